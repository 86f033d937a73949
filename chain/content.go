// Four-stage content ideation pipeline: summarize -> ideate -> hook -> score.
//
// Stage order is fixed and strictly sequential; each stage's output feeds
// the next. Every stage is one structured step with its own retry budget,
// so a repair in one stage never restarts an earlier one.

package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kimmiai/kimmi/model"
)

// Fallback is the assistant message substituted when the pipeline fails.
const Fallback = "No idea generated – retry later."

// Style selects the hook-writing structure.
type Style string

const (
	StyleAIDA Style = "AIDA"
	StylePAS  Style = "PAS"
)

// Stage names, used as tool identifiers in turn results and provenance.
const (
	StageSummarize = "summarizeTrend"
	StageIdeate    = "generateIdeas"
	StageHooks     = "writeHooks"
	StageScore     = "estimatePerformance"
)

// ChainError reports a pipeline failure: a structured-output error or a
// stage cardinality mismatch. Transport errors are never wrapped in a
// ChainError; they propagate unchanged.
type ChainError struct {
	Stage string
	Err   error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("content chain stage %s: %v", e.Stage, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// Input is the caller-constructed value object feeding the pipeline.
// It is validated only by downstream step constraints.
type Input struct {
	Niche       string `json:"niche"`
	TrendSource string `json:"trend_source"`
	Notes       string `json:"notes"`
	Style       Style  `json:"style"`
	Platform    string `json:"platform"`
}

// Artifacts holds everything a successful pipeline run produced: the
// merged result, per-stage outputs, and per-stage raw provenance.
// Discarded after being folded into a Turn.
type Artifacts struct {
	Result      map[string]any
	StepOutputs map[string]any
	RawReplies  map[string]map[string]any
}

// Chain executes the four-stage content ideation pipeline.
type Chain struct {
	exec *Executor
}

// New creates a content chain over the given language model with the given
// per-step retry budget.
func New(lm model.LanguageModel, maxAttempts int) *Chain {
	return &Chain{exec: NewExecutor(lm, maxAttempts)}
}

// Run executes all four stages and captures intermediate artifacts.
// Any stage failure aborts the whole pipeline; no partial result is
// returned.
func (c *Chain) Run(ctx context.Context, payload Input) (Artifacts, error) {
	summary, summaryReply, err := c.summarizeTrend(ctx, payload)
	if err != nil {
		return Artifacts{}, stageErr(StageSummarize, err)
	}

	ideas, ideasReply, err := c.generateIdeas(ctx, payload, summary)
	if err != nil {
		return Artifacts{}, stageErr(StageIdeate, err)
	}

	hooks, hooksReply, err := c.writeHooks(ctx, payload, ideas)
	if err != nil {
		return Artifacts{}, stageErr(StageHooks, err)
	}

	scores, scoresReply, err := c.estimatePerformance(ctx, payload, hooks)
	if err != nil {
		return Artifacts{}, stageErr(StageScore, err)
	}

	result := map[string]any{
		"niche":       payload.Niche,
		"trendSource": payload.TrendSource,
		"style":       string(payload.Style),
		"platform":    payload.Platform,
		"summary":     summary,
		"ideas":       ideas,
		"hooks":       hooks,
		"scores":      scores,
	}

	stepOutputs := map[string]any{
		StageSummarize: map[string]any{"summary": summary},
		StageIdeate:    map[string]any{"ideas": ideas},
		StageHooks:     map[string]any{"hooks": hooks},
		StageScore:     map[string]any{"scores": scores},
	}

	rawReplies := map[string]map[string]any{
		StageSummarize: summaryReply.Raw,
		StageIdeate:    ideasReply.Raw,
		StageHooks:     hooksReply.Raw,
		StageScore:     scoresReply.Raw,
	}

	return Artifacts{Result: result, StepOutputs: stepOutputs, RawReplies: rawReplies}, nil
}

// stageErr wraps structured-output and cardinality failures in a
// ChainError. Transport errors pass through unchanged so callers can keep
// treating them as fatal.
func stageErr(stage string, err error) error {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return &ChainError{Stage: stage, Err: err}
	}
	return err
}

func (c *Chain) summarizeTrend(ctx context.Context, payload Input) (string, model.ModelReply, error) {
	systemPrompt := "You are summarizeTrend. Keep outputs < 30 words, cite one surprising or high-signal fact when available. " +
		`Respond with JSON only, shaped as {"summary": string}.`

	data, reply, err := c.step(ctx, systemPrompt, map[string]any{
		"niche":       payload.Niche,
		"trendSource": payload.TrendSource,
		"notes":       payload.Notes,
	}, []string{"summary"})
	if err != nil {
		return "", model.ModelReply{}, err
	}

	summary, _ := data["summary"].(string)
	return summary, reply, nil
}

func (c *Chain) generateIdeas(ctx context.Context, payload Input, summary string) ([]any, model.ModelReply, error) {
	systemPrompt := "You are generateIdeas. Produce exactly three ideas tailored to the niche. " +
		"Each idea must include title (<7 words), angle with production notes, and callToAction describing on-camera action. " +
		`Reference the trend insight. Respond with JSON {"ideas": [ ... ]}.`

	data, reply, err := c.step(ctx, systemPrompt, map[string]any{
		"niche":   payload.Niche,
		"summary": summary,
	}, []string{"ideas"})
	if err != nil {
		return nil, model.ModelReply{}, err
	}

	ideas, err := listOfThree(data["ideas"], StageIdeate, "ideas")
	if err != nil {
		return nil, model.ModelReply{}, err
	}
	return ideas, reply, nil
}

func (c *Chain) writeHooks(ctx context.Context, payload Input, ideas []any) ([]any, model.ModelReply, error) {
	systemPrompt := "You are writeHooks. Convert each idea into a hook under 20 words using the specified structure. " +
		`Emphasize curiosity, emotion, or surprise. Respond with JSON {"hooks": [ ... ]}.`

	data, reply, err := c.step(ctx, systemPrompt, map[string]any{
		"ideas": ideas,
		"style": string(payload.Style),
	}, []string{"hooks"})
	if err != nil {
		return nil, model.ModelReply{}, err
	}

	hooks, err := listOfThree(data["hooks"], StageHooks, "hooks")
	if err != nil {
		return nil, model.ModelReply{}, err
	}
	return hooks, reply, nil
}

func (c *Chain) estimatePerformance(ctx context.Context, payload Input, hooks []any) ([]any, model.ModelReply, error) {
	systemPrompt := "You are estimatePerformance. Score each hook as High, Medium, or Low for the given platform. " +
		`Cite one qualitative and one quantitative factor when possible. Respond with JSON {"scores": [ ... ]}.`

	data, reply, err := c.step(ctx, systemPrompt, map[string]any{
		"hooks":    hooks,
		"platform": payload.Platform,
	}, []string{"scores"})
	if err != nil {
		return nil, model.ModelReply{}, err
	}

	scores, err := listOfThree(data["scores"], StageScore, "scores")
	if err != nil {
		return nil, model.ModelReply{}, err
	}
	return scores, reply, nil
}

// step marshals the user payload and delegates to the structured-step
// executor with a fresh two-message prompt.
func (c *Chain) step(ctx context.Context, systemPrompt string, userPayload map[string]any, requiredKeys []string) (map[string]any, model.ModelReply, error) {
	userJSON, err := json.Marshal(userPayload)
	if err != nil {
		return nil, model.ModelReply{}, fmt.Errorf("marshal step payload: %w", err)
	}

	return c.exec.Run(ctx, []model.Message{
		model.SystemMessage(systemPrompt),
		model.UserMessage(string(userJSON)),
	}, requiredKeys)
}

// listOfThree enforces the exact-cardinality-of-3 constraint each stage
// output must satisfy before feeding the next stage.
func listOfThree(value any, stage, key string) ([]any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, &ChainError{Stage: stage, Err: fmt.Errorf("%s must be a list", key)}
	}
	if len(list) != 3 {
		return nil, &ChainError{Stage: stage, Err: fmt.Errorf("%s must contain exactly 3 entries, got %d", key, len(list))}
	}
	return list, nil
}
