package agent

import (
	"context"

	"github.com/pimwelt1/UAVLogViewer/internal/domain"
)

// Generator is the text-generation capability behind both loops.
// Implementations run their own bounded retry policy; a returned error
// means the capability is unavailable, not that the answer is wrong.
// This interface is implemented by the OpenAI client.
type Generator interface {
	// DecideDirectOrPlan chooses between answering the input directly and
	// returning a plan of at most maxPlanSteps steps.
	DecideDirectOrPlan(ctx context.Context, input string, history []domain.Turn, documentation string) (Decision, error)

	// Replan decides between a final response and a continuation plan,
	// given everything executed so far. preferResponse signals that
	// enough steps have run and a response is strongly preferred.
	Replan(ctx context.Context, input string, lastPlan []PlanStep, pastSteps []PastStep, documentation string, preferResponse bool) (Decision, error)

	// WriteQuery produces one query string for the question.
	WriteQuery(ctx context.Context, question, documentation string) (string, error)

	// RepairQuery produces a corrected query after a failed attempt.
	RepairQuery(ctx context.Context, question, lastQuery, queryErr string, attempts []string, documentation string) (string, error)

	// Summarize turns a successful query result into a concise answer.
	Summarize(ctx context.Context, question, query, result, documentation string) (string, error)
}
