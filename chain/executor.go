// Structured-step execution with bounded retry-and-repair.
//
// Information Hiding:
// - Retry accumulation and corrective prompting hidden
// - Fence stripping and JSON validation hidden
// - Callers see only the validated mapping or a StepError

package chain

import (
	"context"
	"fmt"
	"strings"

	jsonutil "github.com/kimmiai/kimmi/internal/json"
	"github.com/kimmiai/kimmi/model"
)

// DefaultMaxAttempts is the retry budget for one structured step.
const DefaultMaxAttempts = 2

// StepError reports a structured-output failure: the model's reply could
// not be parsed as JSON, or parsed but lacked required keys, after the
// retry budget was exhausted.
type StepError struct {
	Reason      string
	MissingKeys []string
}

func (e *StepError) Error() string {
	if len(e.MissingKeys) > 0 {
		return fmt.Sprintf("missing keys in model output: [%s]", strings.Join(e.MissingKeys, " "))
	}
	return e.Reason
}

// Executor runs one JSON-only request/response exchange against the
// language model, validating and repairing output through bounded retries.
type Executor struct {
	lm          model.LanguageModel
	maxAttempts int
}

// NewExecutor creates an executor with the given retry budget.
// A non-positive budget falls back to DefaultMaxAttempts.
func NewExecutor(lm model.LanguageModel, maxAttempts int) *Executor {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Executor{lm: lm, maxAttempts: maxAttempts}
}

// Run sends the prompt and returns the parsed JSON mapping plus the reply
// it came from. On malformed or incomplete output it appends a corrective
// system message and retries immediately with the full accumulated
// conversation, so the model sees its own prior malformed answer. Retries
// repair output shape only; transport errors from the language model are
// returned unchanged and never retried.
func (e *Executor) Run(ctx context.Context, messages []model.Message, requiredKeys []string) (map[string]any, model.ModelReply, error) {
	conversation := make([]model.Message, len(messages))
	copy(conversation, messages)

	for attempt := 1; ; attempt++ {
		reply, err := e.lm.Generate(ctx, conversation)
		if err != nil {
			return nil, model.ModelReply{}, fmt.Errorf("structured step generate: %w", err)
		}

		data, err := jsonutil.ParseObject(reply.Message.Content)
		if err != nil {
			if attempt >= e.maxAttempts {
				return nil, model.ModelReply{}, &StepError{Reason: fmt.Sprintf("invalid JSON response: %v", err)}
			}
			conversation = append(conversation, model.SystemMessage(
				"The previous output was invalid JSON. Respond with valid JSON only, no prose."))
			continue
		}

		missing := missingKeys(data, requiredKeys)
		if len(missing) > 0 {
			if attempt >= e.maxAttempts {
				return nil, model.ModelReply{}, &StepError{MissingKeys: missing}
			}
			conversation = append(conversation, model.SystemMessage(fmt.Sprintf(
				"The previous output was missing keys [%s]. Return the complete JSON payload.",
				strings.Join(missing, " "))))
			continue
		}

		return data, reply, nil
	}
}

func missingKeys(data map[string]any, required []string) []string {
	var missing []string
	for _, key := range required {
		if _, ok := data[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
