// Package agent implements the conversational analytics agent: an outer
// plan-execute-replan loop that decomposes a user question into steps,
// and an inner query loop that generates, executes, and repairs database
// queries against the session's telemetry tables.
package agent

import "fmt"

// StepKind discriminates the two plan step variants.
type StepKind int

const (
	// StepQuery resolves a natural-language question via a generated query.
	StepQuery StepKind = iota
	// StepAnalysis produces a statistical summary of one table.
	StepAnalysis
)

func (k StepKind) String() string {
	switch k {
	case StepQuery:
		return "query"
	case StepAnalysis:
		return "analysis"
	default:
		return "unknown"
	}
}

// PlanStep is one planned action. Exactly one of Question or TableName
// is set, according to Kind. The struct is comparable so replanning can
// drop steps that already executed.
type PlanStep struct {
	Kind      StepKind
	Question  string
	TableName string
}

func (s PlanStep) String() string {
	switch s.Kind {
	case StepQuery:
		return fmt.Sprintf("Query(question=%q)", s.Question)
	case StepAnalysis:
		return fmt.Sprintf("Analysis(table_name=%q)", s.TableName)
	default:
		return "Unknown()"
	}
}

// PastStep is a step already executed this turn, paired with its result
// text. Step is nil for the placeholder recorded when the plan was empty.
type PastStep struct {
	Step   *PlanStep
	Result string
}

// Decision is the outcome of a planning call: either a direct response
// or a plan, never both.
type Decision struct {
	Response string
	Plan     []PlanStep
}

// Outcome classifies how a loop finished.
type Outcome int

const (
	// OutcomeSuccess carries an ordinary answer.
	OutcomeSuccess Outcome = iota
	// OutcomeDomainError carries a user-recoverable error as result text.
	OutcomeDomainError
	// OutcomeExhausted means a bounded retry or transition ceiling was hit.
	OutcomeExhausted
	// OutcomeFault means an infrastructure fault was converted to a fixed
	// message at a loop boundary.
	OutcomeFault
)

// Result pairs an outcome with its user-facing text. Loop-internal
// errors travel as Results, never as raw faults.
type Result struct {
	Outcome Outcome
	Text    string
}

// Fixed messages for the bounded-failure outcomes.
const (
	// msgDegraded is returned when the query loop exceeds its transition
	// ceiling. Distinct from the repair-exhausted message.
	msgDegraded = "I couldn't access the information"
	// msgQueryFault replaces any unexpected fault inside the query loop.
	msgQueryFault = "Something went wrong. Please try again."
	// msgFallback replaces any fault that reaches the turn boundary.
	msgFallback = "Please reformulate."
)

// StepEvent is published to streaming transports after each executed
// plan step.
type StepEvent struct {
	Step   *PlanStep
	Result string
}

// StepObserver receives step events during a turn. May be nil.
type StepObserver func(StepEvent)
