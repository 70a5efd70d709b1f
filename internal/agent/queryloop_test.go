package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestQueryLoopSuccess(t *testing.T) {
	gen := &fakeGenerator{
		writeFn: func(question string) (string, error) {
			return "SELECT MAX(Alt) FROM GPS_0", nil
		},
		summarizeFn: func(question, query, result string) (string, error) {
			return fmt.Sprintf("answer for %q from %s", question, result), nil
		},
	}
	exec := &fakeExecutor{results: map[string]string{
		"SELECT MAX(Alt) FROM GPS_0": `[{"MAX(Alt)": 30}]`,
	}}

	res := NewQueryLoop(gen, exec, "docs", 0).Run(context.Background(), "what was the max altitude?")
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success (text %q)", res.Outcome, res.Text)
	}
	want := `answer for "what was the max altitude?" from [{"MAX(Alt)": 30}]`
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	if exec.calls != 1 {
		t.Errorf("executions = %d, want 1", exec.calls)
	}
}

func TestQueryLoopRepairsThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{
		writeFn: func(string) (string, error) { return "SELECT bogus FROM GPS_0", nil },
		repairFn: func(lastQuery, queryErr string, attempts []string) (string, error) {
			if queryErr == "" {
				t.Error("repair called without the execution error")
			}
			return "SELECT Alt FROM GPS_0", nil
		},
		summarizeFn: func(_, _, result string) (string, error) { return "ok: " + result, nil },
	}
	exec := &fakeExecutor{results: map[string]string{
		"SELECT Alt FROM GPS_0": `[{"Alt": 10}]`,
	}}

	res := NewQueryLoop(gen, exec, "docs", 0).Run(context.Background(), "altitude?")
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success (text %q)", res.Outcome, res.Text)
	}
	if gen.repairCalls != 1 {
		t.Errorf("repair calls = %d, want 1", gen.repairCalls)
	}
	if exec.calls != 2 {
		t.Errorf("executions = %d, want 2", exec.calls)
	}
}

func TestQueryLoopExhaustsAfterFiveAttempts(t *testing.T) {
	gen := &fakeGenerator{
		writeFn: func(string) (string, error) { return "SELECT bogus FROM GPS_0", nil },
		repairFn: func(_, _ string, attempts []string) (string, error) {
			return fmt.Sprintf("SELECT bogus FROM GPS_0 -- try %d", len(attempts)), nil
		},
	}
	exec := &fakeExecutor{} // every query fails

	res := NewQueryLoop(gen, exec, "docs", 0).Run(context.Background(), "altitude?")
	if res.Outcome != OutcomeExhausted {
		t.Fatalf("Outcome = %v, want exhausted (text %q)", res.Outcome, res.Text)
	}
	if res.Text != "Failed after 5 attempts." {
		t.Errorf("Text = %q, want %q", res.Text, "Failed after 5 attempts.")
	}
	// One initial write plus four repairs, never a sixth generation.
	if got := gen.writeCalls + gen.repairCalls; got != 5 {
		t.Errorf("generation calls = %d, want exactly 5", got)
	}
	if exec.calls != 5 {
		t.Errorf("executions = %d, want 5", exec.calls)
	}
}

func TestQueryLoopGenerationFault(t *testing.T) {
	gen := &fakeGenerator{
		writeFn: func(string) (string, error) { return "", errors.New("api unavailable") },
	}
	res := NewQueryLoop(gen, &fakeExecutor{}, "docs", 0).Run(context.Background(), "altitude?")
	if res.Outcome != OutcomeFault {
		t.Fatalf("Outcome = %v, want fault", res.Outcome)
	}
	if res.Text != "Something went wrong. Please try again." {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestQueryLoopRepairFault(t *testing.T) {
	gen := &fakeGenerator{
		writeFn:  func(string) (string, error) { return "SELECT bogus FROM GPS_0", nil },
		repairFn: func(_, _ string, _ []string) (string, error) { return "", errors.New("api unavailable") },
	}
	res := NewQueryLoop(gen, &fakeExecutor{}, "docs", 0).Run(context.Background(), "altitude?")
	if res.Outcome != OutcomeFault {
		t.Fatalf("Outcome = %v, want fault", res.Outcome)
	}
	if res.Text != "Something went wrong. Please try again." {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestQueryLoopSummarizeFault(t *testing.T) {
	gen := &fakeGenerator{
		writeFn:     func(string) (string, error) { return "SELECT Alt FROM GPS_0", nil },
		summarizeFn: func(_, _, _ string) (string, error) { return "", errors.New("api unavailable") },
	}
	exec := &fakeExecutor{results: map[string]string{"SELECT Alt FROM GPS_0": "[]"}}
	res := NewQueryLoop(gen, exec, "docs", 0).Run(context.Background(), "altitude?")
	if res.Outcome != OutcomeFault {
		t.Fatalf("Outcome = %v, want fault", res.Outcome)
	}
}

func TestQueryLoopExecutionCeiling(t *testing.T) {
	gen := &fakeGenerator{
		writeFn:  func(string) (string, error) { return "SELECT bogus FROM GPS_0", nil },
		repairFn: func(_, _ string, _ []string) (string, error) { return "SELECT bogus FROM GPS_0", nil },
	}
	exec := &fakeExecutor{}

	loop := NewQueryLoop(gen, exec, "docs", 0)
	loop.maxAttempts = 10 // leave only the execution ceiling in play
	res := loop.Run(context.Background(), "altitude?")
	if res.Outcome != OutcomeExhausted {
		t.Fatalf("Outcome = %v, want exhausted", res.Outcome)
	}
	if res.Text != "I couldn't access the information" {
		t.Errorf("Text = %q", res.Text)
	}
	if exec.calls != 5 {
		t.Errorf("executions = %d, want 5", exec.calls)
	}
}
