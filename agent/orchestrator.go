// Orchestration loop: coordinates model calls, tool invocations, and
// memory updates for one turn at a time.
//
// Information Hiding:
// - Reasoning loop internals hidden
// - Conversation assembly and persistence ordering hidden
// - Tool execution coordination hidden

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kimmiai/kimmi/chain"
	"github.com/kimmiai/kimmi/model"
)

// Hook is an optional post-turn side effect invoked after a successful
// content pipeline. Hooks are independently failable: an error or panic in
// one hook is logged and swallowed, never failing the turn.
type Hook func(ctx context.Context, turn model.Turn) error

// Orchestrator coordinates model calls, tool invocations, and memory
// updates. One logical task per turn; concurrent turns share no mutable
// state beyond the Memory port.
type Orchestrator struct {
	config Config
	memory model.Memory
	tools  model.ToolRunner
	lm     model.LanguageModel
	chain  *chain.Chain
	hooks  []Hook
	logger *slog.Logger
}

// New creates an orchestrator over the given ports.
func New(config Config, memory model.Memory, tools model.ToolRunner, lm model.LanguageModel) *Orchestrator {
	return &Orchestrator{
		config: config,
		memory: memory,
		tools:  tools,
		lm:     lm,
		logger: slog.Default(),
	}
}

// WithContentChain attaches the content ideation pipeline.
func (o *Orchestrator) WithContentChain(c *chain.Chain) *Orchestrator {
	o.chain = c
	return o
}

// WithHooks registers post-turn hooks, run in order after a successful
// content pipeline.
func (o *Orchestrator) WithHooks(hooks ...Hook) *Orchestrator {
	o.hooks = append(o.hooks, hooks...)
	return o
}

// WithLogger overrides the default logger.
func (o *Orchestrator) WithLogger(logger *slog.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// Run executes a full reasoning turn for the provided user text.
func (o *Orchestrator) Run(ctx context.Context, userText string) (model.Turn, error) {
	userMessage := model.UserMessage(userText)

	conversation := []model.Message{model.SystemMessage(o.config.SystemPrompt)}
	transcript, err := o.memory.LoadContext(ctx)
	if err != nil {
		return model.Turn{}, fmt.Errorf("load transcript: %w", err)
	}
	conversation = append(conversation, transcript...)
	conversation = append(conversation, userMessage)

	reply, toolResults, exhausted, err := o.reason(ctx, conversation)
	if err != nil {
		return model.Turn{}, err
	}

	if err := o.memory.Append(ctx, userMessage); err != nil {
		return model.Turn{}, fmt.Errorf("append user message: %w", err)
	}
	if err := o.memory.Append(ctx, reply.Message); err != nil {
		return model.Turn{}, fmt.Errorf("append assistant message: %w", err)
	}

	return model.Turn{
		UserMessage:      userMessage,
		AssistantMessage: reply.Message,
		ToolResults:      toolResults,
		RawModelReply:    reply.Raw,
		Exhausted:        exhausted,
	}, nil
}

// RunContentPipeline executes the content ideation chain and assembles its
// outcome into a turn. A chain-level failure degrades to the fixed
// fallback assistant message with the error recorded in provenance; any
// other failure propagates.
func (o *Orchestrator) RunContentPipeline(ctx context.Context, payload chain.Input) (model.Turn, error) {
	if o.chain == nil {
		return model.Turn{}, fmt.Errorf("content chain not configured")
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return model.Turn{}, fmt.Errorf("marshal chain input: %w", err)
	}
	userMessage := model.UserMessage(string(payloadJSON))

	var assistantMessage model.Message
	var rawModelReply map[string]any
	var toolResults []model.ToolResult
	var chainOK bool

	artifacts, err := o.chain.Run(ctx, payload)
	switch {
	case err == nil:
		resultJSON, err := json.MarshalIndent(artifacts.Result, "", "  ")
		if err != nil {
			return model.Turn{}, fmt.Errorf("marshal chain result: %w", err)
		}
		assistantMessage = model.AssistantMessage(string(resultJSON))
		rawModelReply = map[string]any{
			"chain": "contentIdeation",
			"steps": artifacts.RawReplies,
		}
		for _, stage := range []string{chain.StageSummarize, chain.StageIdeate, chain.StageHooks, chain.StageScore} {
			toolResults = append(toolResults, model.ToolResult{
				Tool:   stage,
				Result: artifacts.StepOutputs[stage],
			})
		}
		chainOK = true
	case isChainFailure(err):
		assistantMessage = model.AssistantMessage(chain.Fallback)
		rawModelReply = map[string]any{
			"chain": "contentIdeation",
			"error": err.Error(),
		}
	default:
		// Transport or provider failure: fatal to the turn.
		return model.Turn{}, err
	}

	// User then assistant, exactly once per turn, even on chain failure:
	// the fallback message still represents the turn's outcome.
	if err := o.memory.Append(ctx, userMessage); err != nil {
		return model.Turn{}, fmt.Errorf("append user message: %w", err)
	}
	if err := o.memory.Append(ctx, assistantMessage); err != nil {
		return model.Turn{}, fmt.Errorf("append assistant message: %w", err)
	}

	turn := model.Turn{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		ToolResults:      toolResults,
		RawModelReply:    rawModelReply,
	}

	if chainOK {
		o.runHooks(ctx, turn)
	}

	return turn, nil
}

// reason drives the bounded tool-call loop. It returns the terminal reply,
// the accumulated tool results, and whether the iteration budget ran out
// while the model was still requesting tools.
func (o *Orchestrator) reason(ctx context.Context, base []model.Message) (model.ModelReply, []model.ToolResult, bool, error) {
	conversation := make([]model.Message, len(base))
	copy(conversation, base)

	var toolResults []model.ToolResult
	var reply model.ModelReply

	maxIterations := o.config.maxIterations()
	for iteration := 0; iteration < maxIterations; iteration++ {
		var err error
		reply, err = o.lm.Generate(ctx, conversation)
		if err != nil {
			return model.ModelReply{}, nil, false, fmt.Errorf("generate: %w", err)
		}

		if len(reply.ToolCalls) == 0 {
			return reply, toolResults, false, nil
		}

		conversation = append(conversation, reply.Message)

		// Execute tools sequentially: ordering and side effects matter,
		// a later tool may depend on an earlier tool's recorded effect.
		for _, call := range reply.ToolCalls {
			result, err := o.tools.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				return model.ModelReply{}, nil, false, fmt.Errorf("tool %q: %w", call.Name, err)
			}
			if err := o.memory.RecordToolCall(ctx, call.Name, call.Arguments, result); err != nil {
				return model.ModelReply{}, nil, false, fmt.Errorf("record tool call %q: %w", call.Name, err)
			}

			conversation = append(conversation, model.Message{
				Role:     model.RoleTool,
				Name:     call.Name,
				Content:  stringifyToolResult(result),
				Metadata: map[string]any{"iteration": iteration},
			})

			toolResults = append(toolResults, model.ToolResult{
				Tool:      call.Name,
				Arguments: call.Arguments,
				Result:    result,
			})
		}
	}

	// Budget exhausted while tools were still requested: soft termination
	// with the last received reply.
	return reply, toolResults, true, nil
}

func (o *Orchestrator) runHooks(ctx context.Context, turn model.Turn) {
	for i, hook := range o.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Warn("post-turn hook panicked", "hook", i, "panic", r)
				}
			}()
			if err := hook(ctx, turn); err != nil {
				o.logger.Warn("post-turn hook failed", "hook", i, "error", err)
			}
		}()
	}
}

// isChainFailure reports whether err is a chain-level failure that should
// degrade to the fallback message rather than fail the turn.
func isChainFailure(err error) bool {
	var chainErr *chain.ChainError
	return errors.As(err, &chainErr)
}

func stringifyToolResult(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(encoded)
}
