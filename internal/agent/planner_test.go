package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pimwelt1/UAVLogViewer/internal/domain"
	"github.com/pimwelt1/UAVLogViewer/internal/telemetry"
)

func testTables() map[string]*telemetry.Table {
	return map[string]*telemetry.Table{
		"GPS_0": {Name: "GPS_0", Columns: []telemetry.Column{
			{Name: "Alt", Dtype: telemetry.DtypeReal, Values: []any{10.0, 20.0, 30.0}},
		}},
	}
}

func newTestPlanner(gen *fakeGenerator, exec Executor) *Planner {
	queries := NewQueryLoop(gen, exec, "docs", 0)
	return NewPlanner(gen, queries, NewAnalyzer(testTables()), "docs", 0)
}

func TestPlannerDirectResponse(t *testing.T) {
	gen := &fakeGenerator{
		decideFn: func(input string, _ []domain.Turn) (Decision, error) {
			return Decision{Response: "Hello! Ask me about your flight log."}, nil
		},
	}
	p := newTestPlanner(gen, &fakeExecutor{})

	res := p.Run(context.Background(), "hi", nil, nil)
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}
	if res.Text != "Hello! Ask me about your flight log." {
		t.Errorf("Text = %q", res.Text)
	}
	if gen.replanCalls != 0 {
		t.Errorf("replan called %d times on a direct response", gen.replanCalls)
	}
}

func TestPlannerExecutesQueryStepThenResponds(t *testing.T) {
	step := PlanStep{Kind: StepQuery, Question: "max altitude?"}
	gen := &fakeGenerator{
		decideFn: func(string, []domain.Turn) (Decision, error) {
			return Decision{Plan: []PlanStep{step}}, nil
		},
		replanFn: func(_ []PlanStep, past []PastStep, _ bool) (Decision, error) {
			if len(past) != 1 || past[0].Step == nil || *past[0].Step != step {
				t.Errorf("past steps = %+v, want the executed step", past)
			}
			return Decision{Response: "The max altitude was 30m."}, nil
		},
		writeFn:     func(string) (string, error) { return "SELECT MAX(Alt) FROM GPS_0", nil },
		summarizeFn: func(_, _, result string) (string, error) { return "summary: " + result, nil },
	}
	exec := &fakeExecutor{results: map[string]string{"SELECT MAX(Alt) FROM GPS_0": "[{}]"}}

	var events []StepEvent
	res := newTestPlanner(gen, exec).Run(context.Background(), "max altitude?", nil, func(ev StepEvent) {
		events = append(events, ev)
	})
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success (text %q)", res.Outcome, res.Text)
	}
	if res.Text != "The max altitude was 30m." {
		t.Errorf("Text = %q", res.Text)
	}
	if len(events) != 1 {
		t.Fatalf("got %d step events, want 1", len(events))
	}
	if events[0].Step == nil || events[0].Step.Kind != StepQuery {
		t.Errorf("event step = %+v, want the query step", events[0].Step)
	}
	if events[0].Result != "summary: [{}]" {
		t.Errorf("event result = %q", events[0].Result)
	}
}

func TestPlannerAnalysisStep(t *testing.T) {
	step := PlanStep{Kind: StepAnalysis, TableName: "GPS_0"}
	gen := &fakeGenerator{
		decideFn: func(string, []domain.Turn) (Decision, error) {
			return Decision{Plan: []PlanStep{step}}, nil
		},
		replanFn: func(_ []PlanStep, past []PastStep, _ bool) (Decision, error) {
			if !strings.Contains(past[0].Result, "Summary of `GPS_0` Table") {
				t.Errorf("analysis result = %q", past[0].Result)
			}
			return Decision{Response: "done"}, nil
		},
	}
	res := newTestPlanner(gen, &fakeExecutor{}).Run(context.Background(), "analyze GPS_0", nil, nil)
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}
}

func TestPlannerSuppressesRepeatedSteps(t *testing.T) {
	step := PlanStep{Kind: StepQuery, Question: "max altitude?"}
	gen := &fakeGenerator{
		decideFn: func(string, []domain.Turn) (Decision, error) {
			return Decision{Plan: []PlanStep{step}}, nil
		},
		replanFn: func(plan []PlanStep, past []PastStep, _ bool) (Decision, error) {
			// Keep re-proposing the already-executed step; the planner must
			// filter it out and eventually record a placeholder past step.
			if len(past) >= 2 {
				if past[1].Step != nil {
					t.Errorf("placeholder past step = %+v, want nil step", past[1].Step)
				}
				return Decision{Response: "gave up repeating"}, nil
			}
			return Decision{Plan: []PlanStep{step}}, nil
		},
		writeFn:     func(string) (string, error) { return "SELECT MAX(Alt) FROM GPS_0", nil },
		summarizeFn: func(_, _, result string) (string, error) { return "30", nil },
	}
	exec := &fakeExecutor{results: map[string]string{"SELECT MAX(Alt) FROM GPS_0": "[{}]"}}

	var events []StepEvent
	res := newTestPlanner(gen, exec).Run(context.Background(), "max altitude?", nil, func(ev StepEvent) {
		events = append(events, ev)
	})
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success (text %q)", res.Outcome, res.Text)
	}
	if res.Text != "gave up repeating" {
		t.Errorf("Text = %q", res.Text)
	}
	// The duplicated step ran once; the placeholder is not observed.
	if len(events) != 1 {
		t.Errorf("got %d step events, want 1", len(events))
	}
	if exec.calls != 1 {
		t.Errorf("executions = %d, want the step to run once", exec.calls)
	}
}

func TestPlannerPrefersResponseAfterManySteps(t *testing.T) {
	n := 0
	var sawPrefer bool
	gen := &fakeGenerator{
		decideFn: func(string, []domain.Turn) (Decision, error) {
			return Decision{Plan: []PlanStep{{Kind: StepAnalysis, TableName: "GPS_0"}}}, nil
		},
		replanFn: func(_ []PlanStep, past []PastStep, preferResponse bool) (Decision, error) {
			if preferResponse {
				sawPrefer = true
				return Decision{Response: "final answer"}, nil
			}
			n++
			return Decision{Plan: []PlanStep{{Kind: StepQuery, Question: strings.Repeat("q", n)}}}, nil
		},
		writeFn:     func(string) (string, error) { return "SELECT 1", nil },
		summarizeFn: func(_, _, _ string) (string, error) { return "1", nil },
	}
	exec := &fakeExecutor{results: map[string]string{"SELECT 1": "[{}]"}}

	res := newTestPlanner(gen, exec).Run(context.Background(), "deep question", nil, nil)
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success (text %q)", res.Outcome, res.Text)
	}
	if !sawPrefer {
		t.Error("preferResponse was never signaled")
	}
	if res.Text != "final answer" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestPlannerDecisionFault(t *testing.T) {
	gen := &fakeGenerator{
		decideFn: func(string, []domain.Turn) (Decision, error) {
			return Decision{}, errors.New("api unavailable")
		},
	}
	res := newTestPlanner(gen, &fakeExecutor{}).Run(context.Background(), "hi", nil, nil)
	if res.Outcome != OutcomeFault {
		t.Fatalf("Outcome = %v, want fault", res.Outcome)
	}
	if res.Text != "Please reformulate." {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestPlannerReplanFault(t *testing.T) {
	gen := &fakeGenerator{
		decideFn: func(string, []domain.Turn) (Decision, error) {
			return Decision{Plan: []PlanStep{{Kind: StepAnalysis, TableName: "GPS_0"}}}, nil
		},
		replanFn: func([]PlanStep, []PastStep, bool) (Decision, error) {
			return Decision{}, errors.New("api unavailable")
		},
	}
	res := newTestPlanner(gen, &fakeExecutor{}).Run(context.Background(), "analyze", nil, nil)
	if res.Outcome != OutcomeFault {
		t.Fatalf("Outcome = %v, want fault", res.Outcome)
	}
	if res.Text != "Please reformulate." {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestPlannerTransitionCeiling(t *testing.T) {
	gen := &fakeGenerator{
		decideFn: func(string, []domain.Turn) (Decision, error) {
			return Decision{Plan: []PlanStep{{Kind: StepAnalysis, TableName: "GPS_0"}}}, nil
		},
		replanFn: func(_ []PlanStep, past []PastStep, _ bool) (Decision, error) {
			// Always propose a fresh step so the loop never settles.
			return Decision{Plan: []PlanStep{{Kind: StepQuery, Question: strings.Repeat("x", len(past))}}}, nil
		},
		writeFn:     func(string) (string, error) { return "SELECT 1", nil },
		summarizeFn: func(_, _, _ string) (string, error) { return "1", nil },
	}
	exec := &fakeExecutor{results: map[string]string{"SELECT 1": "[{}]"}}

	p := newTestPlanner(gen, exec)
	res := p.Run(context.Background(), "loop forever", nil, nil)
	if res.Outcome != OutcomeExhausted {
		t.Fatalf("Outcome = %v, want exhausted (text %q)", res.Outcome, res.Text)
	}
	if res.Text != "Please reformulate." {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestPlannerClampsOversizedPlan(t *testing.T) {
	steps := make([]PlanStep, 8)
	for i := range steps {
		steps[i] = PlanStep{Kind: StepAnalysis, TableName: "GPS_0"}
	}
	got := clampPlan(steps)
	if len(got) != maxPlanSteps {
		t.Errorf("clampPlan kept %d steps, want %d", len(got), maxPlanSteps)
	}
}
