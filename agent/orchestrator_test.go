package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kimmiai/kimmi/chain"
	"github.com/kimmiai/kimmi/model"
)

// scriptedLM replays a fixed sequence of replies and records every
// conversation it received.
type scriptedLM struct {
	replies []model.ModelReply
	errs    []error
	calls   [][]model.Message
}

func (s *scriptedLM) Generate(ctx context.Context, messages []model.Message) (model.ModelReply, error) {
	call := make([]model.Message, len(messages))
	copy(call, messages)
	s.calls = append(s.calls, call)

	i := len(s.calls) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return model.ModelReply{}, s.errs[i]
	}
	if i >= len(s.replies) {
		// Repeat the last scripted reply for unbounded-loop scenarios.
		return s.replies[len(s.replies)-1], nil
	}
	return s.replies[i], nil
}

// fakeTools records executions and returns a canned result per tool name.
type fakeTools struct {
	results map[string]any
	err     error
	calls   []string
}

func (f *fakeTools) Execute(ctx context.Context, name string, arguments map[string]any) (any, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	if result, ok := f.results[name]; ok {
		return result, nil
	}
	return "ok", nil
}

// recordingMemory logs the order of every persistence operation.
type recordingMemory struct {
	transcript []model.Message
	events     []string
}

func (m *recordingMemory) LoadContext(ctx context.Context) ([]model.Message, error) {
	copied := make([]model.Message, len(m.transcript))
	copy(copied, m.transcript)
	return copied, nil
}

func (m *recordingMemory) Append(ctx context.Context, message model.Message) error {
	m.transcript = append(m.transcript, message)
	m.events = append(m.events, "append:"+message.Role)
	return nil
}

func (m *recordingMemory) RecordToolCall(ctx context.Context, tool string, arguments map[string]any, result any) error {
	m.events = append(m.events, "tool:"+tool)
	return nil
}

func assistantReply(content string) model.ModelReply {
	return model.ModelReply{Message: model.AssistantMessage(content)}
}

func toolReply(name string) model.ModelReply {
	return model.ModelReply{
		Message:   model.AssistantMessage(""),
		ToolCalls: []model.ToolCall{{Name: name, Arguments: map[string]any{}}},
	}
}

func newTestOrchestrator(lm model.LanguageModel, memory model.Memory, tools model.ToolRunner) *Orchestrator {
	return New(Config{SystemPrompt: "You are a test agent."}, memory, tools, lm)
}

func TestRunDirectAnswer(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{assistantReply("hello there")}}
	memory := &recordingMemory{}
	orch := newTestOrchestrator(lm, memory, &fakeTools{})

	turn, err := orch.Run(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.AssistantMessage.Content != "hello there" {
		t.Errorf("unexpected assistant message: %q", turn.AssistantMessage.Content)
	}
	if turn.Exhausted {
		t.Error("a direct answer must not be marked exhausted")
	}
	if len(turn.ToolResults) != 0 {
		t.Errorf("expected no tool results, got %d", len(turn.ToolResults))
	}
	if len(lm.calls) != 1 {
		t.Errorf("expected 1 model call, got %d", len(lm.calls))
	}

	want := []string{"append:user", "append:assistant"}
	if fmt.Sprint(memory.events) != fmt.Sprint(want) {
		t.Errorf("unexpected persistence order: %v", memory.events)
	}
}

func TestRunPromptAssembly(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{assistantReply("ok")}}
	memory := &recordingMemory{transcript: []model.Message{
		model.UserMessage("earlier question"),
		model.AssistantMessage("earlier answer"),
	}}
	orch := newTestOrchestrator(lm, memory, &fakeTools{})

	if _, err := orch.Run(context.Background(), "new question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conversation := lm.calls[0]
	if len(conversation) != 4 {
		t.Fatalf("expected system + transcript + user, got %d messages", len(conversation))
	}
	if conversation[0].Role != model.RoleSystem {
		t.Errorf("first message should be the system prompt, got %q", conversation[0].Role)
	}
	if conversation[3].Content != "new question" {
		t.Errorf("last message should be the new user text, got %q", conversation[3].Content)
	}
}

func TestRunToolLoop(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{
		toolReply("get_status"),
		assistantReply("all good"),
	}}
	memory := &recordingMemory{}
	tools := &fakeTools{results: map[string]any{"get_status": "running"}}
	orch := newTestOrchestrator(lm, memory, tools)

	turn, err := orch.Run(context.Background(), "status?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.AssistantMessage.Content != "all good" {
		t.Errorf("unexpected assistant message: %q", turn.AssistantMessage.Content)
	}
	if len(turn.ToolResults) != 1 || turn.ToolResults[0].Tool != "get_status" {
		t.Errorf("unexpected tool results: %+v", turn.ToolResults)
	}

	// Tool recording happens before the conversation append, and the
	// conversation fed back to the model carries the tool output.
	want := []string{"tool:get_status", "append:user", "append:assistant"}
	if fmt.Sprint(memory.events) != fmt.Sprint(want) {
		t.Errorf("unexpected persistence order: %v", memory.events)
	}

	second := lm.calls[1]
	last := second[len(second)-1]
	if last.Role != model.RoleTool || last.Name != "get_status" {
		t.Errorf("expected tool message, got role=%q name=%q", last.Role, last.Name)
	}
	if last.Metadata["iteration"] != 0 {
		t.Errorf("expected iteration metadata 0, got %v", last.Metadata["iteration"])
	}
	if last.Content != "running" {
		t.Errorf("unexpected tool content: %q", last.Content)
	}
}

func TestRunMultipleToolCallsPreserveOrder(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{
		{
			Message: model.AssistantMessage(""),
			ToolCalls: []model.ToolCall{
				{Name: "sequential_thinking", Arguments: map[string]any{"step": "plan"}},
				{Name: "get_status", Arguments: map[string]any{}},
				{Name: "memory_bank", Arguments: map[string]any{"action": "status"}},
			},
		},
		assistantReply("done"),
	}}
	memory := &recordingMemory{}
	tools := &fakeTools{}
	orch := newTestOrchestrator(lm, memory, tools)

	turn, err := orch.Run(context.Background(), "do three things")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requested := []string{"sequential_thinking", "get_status", "memory_bank"}

	// Execution, memory recording, and the turn's result list all follow
	// request order.
	if fmt.Sprint(tools.calls) != fmt.Sprint(requested) {
		t.Errorf("tools executed out of order: %v", tools.calls)
	}
	wantEvents := []string{
		"tool:sequential_thinking", "tool:get_status", "tool:memory_bank",
		"append:user", "append:assistant",
	}
	if fmt.Sprint(memory.events) != fmt.Sprint(wantEvents) {
		t.Errorf("unexpected persistence order: %v", memory.events)
	}
	if len(turn.ToolResults) != 3 {
		t.Fatalf("expected 3 tool results, got %d", len(turn.ToolResults))
	}
	for i, name := range requested {
		if turn.ToolResults[i].Tool != name {
			t.Errorf("tool result %d: expected %s, got %s", i, name, turn.ToolResults[i].Tool)
		}
	}

	// The follow-up conversation carries one tool message per call, in
	// request order, after a single assistant message.
	second := lm.calls[1]
	tail := second[len(second)-4:]
	if tail[0].Role != model.RoleAssistant {
		t.Errorf("expected one assistant message before the tool messages, got %q", tail[0].Role)
	}
	for i, name := range requested {
		msg := tail[i+1]
		if msg.Role != model.RoleTool || msg.Name != name {
			t.Errorf("tool message %d: expected %s, got role=%q name=%q", i, name, msg.Role, msg.Name)
		}
	}
}

func TestRunIterationBudgetExhausted(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{toolReply("get_status")}}
	memory := &recordingMemory{}
	tools := &fakeTools{}
	orch := New(Config{SystemPrompt: "sys", MaxToolIterations: 3}, memory, tools, lm)

	turn, err := orch.Run(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !turn.Exhausted {
		t.Error("expected the turn to be marked exhausted")
	}
	if len(lm.calls) != 3 {
		t.Errorf("expected exactly 3 model calls, got %d", len(lm.calls))
	}
	if len(tools.calls) != 3 {
		t.Errorf("expected exactly 3 tool executions, got %d", len(tools.calls))
	}
	// Soft termination still persists the turn.
	if len(memory.transcript) != 2 {
		t.Errorf("expected user and assistant appended, got %d messages", len(memory.transcript))
	}
}

func TestRunToolFailureFailsTurn(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{toolReply("broken")}}
	memory := &recordingMemory{}
	tools := &fakeTools{err: errors.New("boom")}
	orch := newTestOrchestrator(lm, memory, tools)

	_, err := orch.Run(context.Background(), "try the tool")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error should name the failed tool: %v", err)
	}
	if len(memory.transcript) != 0 {
		t.Error("a failed turn must not be persisted")
	}
}

func TestContentPipelineSuccess(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{
		assistantReply(`{"summary": "trend summary"}`),
		assistantReply(`{"ideas": ["a", "b", "c"]}`),
		assistantReply(`{"hooks": ["h1", "h2", "h3"]}`),
		assistantReply(`{"scores": ["High", "Medium", "Low"]}`),
	}}
	memory := &recordingMemory{}

	var hookTurns []model.Turn
	orch := newTestOrchestrator(lm, memory, &fakeTools{}).
		WithContentChain(chain.New(lm, 2)).
		WithHooks(func(ctx context.Context, turn model.Turn) error {
			hookTurns = append(hookTurns, turn)
			return nil
		})

	turn, err := orch.RunContentPipeline(context.Background(), chain.Input{
		Niche:    "coffee",
		Style:    chain.StyleAIDA,
		Platform: "tiktok",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(turn.AssistantMessage.Content, `"summary": "trend summary"`) {
		t.Errorf("assistant message should carry the merged result: %q", turn.AssistantMessage.Content)
	}

	stages := []string{chain.StageSummarize, chain.StageIdeate, chain.StageHooks, chain.StageScore}
	if len(turn.ToolResults) != len(stages) {
		t.Fatalf("expected %d tool results, got %d", len(stages), len(turn.ToolResults))
	}
	for i, stage := range stages {
		if turn.ToolResults[i].Tool != stage {
			t.Errorf("tool result %d: expected %s, got %s", i, stage, turn.ToolResults[i].Tool)
		}
	}

	want := []string{"append:user", "append:assistant"}
	if fmt.Sprint(memory.events) != fmt.Sprint(want) {
		t.Errorf("unexpected persistence order: %v", memory.events)
	}
	if len(hookTurns) != 1 {
		t.Errorf("expected hooks to run once, ran %d times", len(hookTurns))
	}
}

func TestContentPipelineFallback(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{
		assistantReply("not json"),
		assistantReply("still not json"),
	}}
	memory := &recordingMemory{}

	hooksRan := false
	orch := newTestOrchestrator(lm, memory, &fakeTools{}).
		WithContentChain(chain.New(lm, 2)).
		WithHooks(func(ctx context.Context, turn model.Turn) error {
			hooksRan = true
			return nil
		})

	turn, err := orch.RunContentPipeline(context.Background(), chain.Input{Niche: "coffee"})
	if err != nil {
		t.Fatalf("chain failure must not fail the turn: %v", err)
	}
	if turn.AssistantMessage.Content != chain.Fallback {
		t.Errorf("expected fallback message, got %q", turn.AssistantMessage.Content)
	}
	if _, ok := turn.RawModelReply["error"]; !ok {
		t.Error("fallback turn should record the failure in provenance")
	}
	if len(turn.ToolResults) != 0 {
		t.Errorf("fallback turn must carry no stage results, got %d", len(turn.ToolResults))
	}

	// The fallback turn is still persisted, user then assistant.
	want := []string{"append:user", "append:assistant"}
	if fmt.Sprint(memory.events) != fmt.Sprint(want) {
		t.Errorf("unexpected persistence order: %v", memory.events)
	}
	if hooksRan {
		t.Error("hooks must not run after a chain failure")
	}
}

func TestContentPipelineTransportErrorIsFatal(t *testing.T) {
	transport := errors.New("dial tcp: connection refused")
	lm := &scriptedLM{errs: []error{transport}, replies: []model.ModelReply{assistantReply("unused")}}
	memory := &recordingMemory{}
	orch := newTestOrchestrator(lm, memory, &fakeTools{}).
		WithContentChain(chain.New(lm, 2))

	_, err := orch.RunContentPipeline(context.Background(), chain.Input{Niche: "coffee"})
	if !errors.Is(err, transport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(memory.transcript) != 0 {
		t.Error("a fatal turn must not be persisted")
	}
}

func TestHookFailureDoesNotFailTurn(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{
		assistantReply(`{"summary": "s"}`),
		assistantReply(`{"ideas": ["a", "b", "c"]}`),
		assistantReply(`{"hooks": ["h1", "h2", "h3"]}`),
		assistantReply(`{"scores": ["High", "Medium", "Low"]}`),
	}}
	memory := &recordingMemory{}

	secondHookRan := false
	orch := newTestOrchestrator(lm, memory, &fakeTools{}).
		WithContentChain(chain.New(lm, 2)).
		WithHooks(
			func(ctx context.Context, turn model.Turn) error {
				panic("hook exploded")
			},
			func(ctx context.Context, turn model.Turn) error {
				secondHookRan = true
				return nil
			},
		)

	if _, err := orch.RunContentPipeline(context.Background(), chain.Input{Niche: "coffee"}); err != nil {
		t.Fatalf("hook panic must not fail the turn: %v", err)
	}
	if !secondHookRan {
		t.Error("later hooks must still run after an earlier hook panics")
	}
}
