package agent

import (
	"context"
	"log/slog"

	"github.com/pimwelt1/UAVLogViewer/internal/domain"
)

// planState names the states of the plan-execute loop.
type planState int

const (
	stateDecide planState = iota
	stateExecuteStep
	stateReplan
	stateUpdateHistory
)

// Plan-execute bounds. maxPlanSteps caps one plan; softStepLimit is the
// past-step count beyond which replanning is biased toward responding;
// maxTransitions is the hard ceiling on state transitions per turn.
const (
	maxPlanSteps              = 5
	softStepLimit             = 5
	defaultMaxPlanTransitions = 25
)

// Planner runs the outer plan-execute-replan loop for one session.
type Planner struct {
	gen            Generator
	queries        *QueryLoop
	analyzer       *Analyzer
	documentation  string
	maxTransitions int
}

// NewPlanner wires the planner to its generator, query loop, and
// analyzer for one session's table set. maxTransitions <= 0 selects
// the default ceiling.
func NewPlanner(gen Generator, queries *QueryLoop, analyzer *Analyzer, documentation string, maxTransitions int) *Planner {
	if maxTransitions <= 0 {
		maxTransitions = defaultMaxPlanTransitions
	}
	return &Planner{
		gen:            gen,
		queries:        queries,
		analyzer:       analyzer,
		documentation:  documentation,
		maxTransitions: maxTransitions,
	}
}

// Run processes one user turn: decide direct-or-plan, execute steps one
// at a time, replan after each, and finish with a response. Faults and
// the transition ceiling both resolve to the fixed fallback text; the
// caller appends to history only on success.
func (p *Planner) Run(ctx context.Context, input string, history []domain.Turn, observe StepObserver) Result {
	var (
		plan     []PlanStep
		past     []PastStep
		response string
	)

	state := stateDecide
	for transitions := 0; transitions < p.maxTransitions; transitions++ {
		switch state {
		case stateDecide:
			decision, err := p.gen.DecideDirectOrPlan(ctx, input, history, p.documentation)
			if err != nil {
				slog.Error("Plan-or-response decision failed", "error", err)
				return Result{Outcome: OutcomeFault, Text: msgFallback}
			}
			if len(decision.Plan) > 0 {
				plan = clampPlan(decision.Plan)
				slog.Info("Got plan", "steps", len(plan))
				state = stateExecuteStep
			} else {
				response = decision.Response
				slog.Info("Answering directly")
				state = stateUpdateHistory
			}

		case stateExecuteStep:
			past = append(past, p.executeStep(ctx, plan, observe))
			state = stateReplan

		case stateReplan:
			decision, err := p.gen.Replan(ctx, input, plan, past, p.documentation, len(past) > softStepLimit)
			if err != nil {
				slog.Error("Replanning failed", "error", err)
				return Result{Outcome: OutcomeFault, Text: msgFallback}
			}
			if decision.Response != "" {
				response = decision.Response
				state = stateUpdateHistory
			} else {
				plan = clampPlan(filterCompleted(decision.Plan, past))
				slog.Info("Continuing with new plan", "steps", len(plan), "past_steps", len(past))
				state = stateExecuteStep
			}

		case stateUpdateHistory:
			return Result{Outcome: OutcomeSuccess, Text: response}
		}
	}

	slog.Warn("Turn exceeded transition ceiling", "max_transitions", p.maxTransitions)
	return Result{Outcome: OutcomeExhausted, Text: msgFallback}
}

// executeStep runs the first step of the current plan. An empty plan
// records a placeholder past-step so replanning still advances.
func (p *Planner) executeStep(ctx context.Context, plan []PlanStep, observe StepObserver) PastStep {
	if len(plan) == 0 {
		return PastStep{Step: nil, Result: ""}
	}
	step := plan[0]

	var result string
	switch step.Kind {
	case StepQuery:
		slog.Info("Executing query step", "question", step.Question)
		result = p.queries.Run(ctx, step.Question).Text
	case StepAnalysis:
		slog.Info("Executing analysis step", "table", step.TableName)
		result = p.analyzer.Analyze(step.TableName)
	default:
		slog.Error("Unknown step kind", "kind", int(step.Kind))
		result = "Error: Unknown step type"
	}

	if observe != nil {
		observe(StepEvent{Step: &step, Result: result})
	}
	return PastStep{Step: &step, Result: result}
}

// filterCompleted drops any step structurally equal to one already
// executed, so no step ever runs twice within a turn.
func filterCompleted(plan []PlanStep, past []PastStep) []PlanStep {
	var remaining []PlanStep
	for _, step := range plan {
		done := false
		for _, ps := range past {
			if ps.Step != nil && *ps.Step == step {
				done = true
				break
			}
		}
		if !done {
			remaining = append(remaining, step)
		}
	}
	return remaining
}

func clampPlan(plan []PlanStep) []PlanStep {
	if len(plan) > maxPlanSteps {
		return plan[:maxPlanSteps]
	}
	return plan
}
