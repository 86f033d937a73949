package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/kimmiai/kimmi/model"
)

func TestChainHappyPath(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{
		textReply(`{"summary": "Cold brew content is spiking after a viral taste test"}`),
		textReply(`{"ideas": [
			{"title": "Blind taste test", "angle": "compare three brews", "callToAction": "comment your pick"},
			{"title": "Barista mistakes", "angle": "common home errors", "callToAction": "save for later"},
			{"title": "60-second recipe", "angle": "fast how-to", "callToAction": "try it today"}
		]}`),
		textReply(`{"hooks": ["Hook one", "Hook two", "Hook three"]}`),
		textReply(`{"scores": [
			{"hook": "Hook one", "score": "High"},
			{"hook": "Hook two", "score": "Medium"},
			{"hook": "Hook three", "score": "High"}
		]}`),
	}}

	c := New(lm, 2)
	artifacts, err := c.Run(context.Background(), Input{
		Niche:       "coffee",
		TrendSource: "tiktok trending sounds",
		Style:       StyleAIDA,
		Platform:    "tiktok",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(lm.calls) != 4 {
		t.Errorf("expected 4 model calls, got %d", len(lm.calls))
	}

	result := artifacts.Result
	if result["niche"] != "coffee" {
		t.Errorf("unexpected niche: %v", result["niche"])
	}
	if result["style"] != "AIDA" {
		t.Errorf("unexpected style: %v", result["style"])
	}
	if result["summary"] != "Cold brew content is spiking after a viral taste test" {
		t.Errorf("unexpected summary: %v", result["summary"])
	}
	for _, key := range []string{"ideas", "hooks", "scores"} {
		list, ok := result[key].([]any)
		if !ok {
			t.Fatalf("%s is not a list: %T", key, result[key])
		}
		if len(list) != 3 {
			t.Errorf("%s: expected 3 entries, got %d", key, len(list))
		}
	}

	for _, stage := range []string{StageSummarize, StageIdeate, StageHooks, StageScore} {
		if _, ok := artifacts.StepOutputs[stage]; !ok {
			t.Errorf("missing step output for %s", stage)
		}
	}
}

func TestChainCardinalityMismatch(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{
		textReply(`{"summary": "something"}`),
		textReply(`{"ideas": ["only", "two"]}`),
	}}

	c := New(lm, 2)
	artifacts, err := c.Run(context.Background(), Input{Niche: "coffee"})

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %v", err)
	}
	if chainErr.Stage != StageIdeate {
		t.Errorf("expected stage %s, got %s", StageIdeate, chainErr.Stage)
	}
	if artifacts.Result != nil {
		t.Error("no partial result may survive a failed stage")
	}
	// Later stages must never run after a failure.
	if len(lm.calls) != 2 {
		t.Errorf("expected 2 model calls, got %d", len(lm.calls))
	}
}

func TestChainStructuredFailureBecomesChainError(t *testing.T) {
	lm := &scriptedLM{replies: []model.ModelReply{
		textReply("not json"),
		textReply("still not json"),
	}}

	c := New(lm, 2)
	_, err := c.Run(context.Background(), Input{Niche: "coffee"})

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %v", err)
	}
	if chainErr.Stage != StageSummarize {
		t.Errorf("expected stage %s, got %s", StageSummarize, chainErr.Stage)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Error("ChainError should wrap the underlying StepError")
	}
}

func TestChainTransportErrorPassesThrough(t *testing.T) {
	transport := errors.New("tls handshake timeout")
	lm := &scriptedLM{
		replies: []model.ModelReply{textReply(`{"summary": "ok"}`)},
		errs:    []error{nil, transport},
	}

	c := New(lm, 2)
	_, err := c.Run(context.Background(), Input{Niche: "coffee"})

	if !errors.Is(err, transport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		t.Error("transport error must not be wrapped in a ChainError")
	}
}
