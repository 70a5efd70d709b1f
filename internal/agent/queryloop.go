package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// Executor runs one query against the session's tables. Implemented by
// the sqlexec engine.
type Executor interface {
	Execute(ctx context.Context, query string) (string, error)
}

// queryState names the states of the query loop.
type queryState int

const (
	stateWriteQuery queryState = iota
	stateExecuteQuery
	stateRepairQuery
	stateAnalyzeResult
)

// Query loop bounds. The execution ceiling counts write-execute cycles,
// so running out of attempts always wins over the ceiling when the two
// are equal.
const defaultMaxAttempts = 5

// QueryLoop answers one natural-language question by generating a
// query, executing it, and repairing it on failure, up to a bounded
// number of attempts, then summarizing the successful result.
type QueryLoop struct {
	gen           Generator
	exec          Executor
	documentation string
	maxAttempts   int
	maxExecutions int
}

// NewQueryLoop creates a query loop. maxAttempts <= 0 selects the
// default bound; the execution ceiling tracks the attempt bound.
func NewQueryLoop(gen Generator, exec Executor, documentation string, maxAttempts int) *QueryLoop {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &QueryLoop{
		gen:           gen,
		exec:          exec,
		documentation: documentation,
		maxAttempts:   maxAttempts,
		maxExecutions: maxAttempts,
	}
}

// Run drives the loop to one of its terminal outcomes. It never
// returns a raw fault: infrastructure errors become a fixed message.
func (l *QueryLoop) Run(ctx context.Context, question string) Result {
	var (
		attempts   []string
		query      string
		execResult string
		execErr    string
	)

	executions := 0
	state := stateWriteQuery
	for {
		switch state {
		case stateWriteQuery:
			q, err := l.gen.WriteQuery(ctx, question, l.documentation)
			if err != nil {
				slog.Error("Query generation failed", "question", question, "error", err)
				return Result{Outcome: OutcomeFault, Text: msgQueryFault}
			}
			query = q
			attempts = append(attempts, q)
			state = stateExecuteQuery

		case stateExecuteQuery:
			executions++
			if executions > l.maxExecutions {
				slog.Warn("Query loop exceeded execution ceiling", "question", question, "executions", executions)
				return Result{Outcome: OutcomeExhausted, Text: msgDegraded}
			}
			res, err := l.exec.Execute(ctx, query)
			if err != nil {
				execErr = err.Error()
				slog.Info("Query failed", "query", query, "error", execErr)
				state = stateRepairQuery
			} else {
				execResult = res
				state = stateAnalyzeResult
			}

		case stateRepairQuery:
			if len(attempts) >= l.maxAttempts {
				return Result{
					Outcome: OutcomeExhausted,
					Text:    fmt.Sprintf("Failed after %d attempts.", l.maxAttempts),
				}
			}
			q, err := l.gen.RepairQuery(ctx, question, query, execErr, attempts, l.documentation)
			if err != nil {
				slog.Error("Query repair failed", "question", question, "error", err)
				return Result{Outcome: OutcomeFault, Text: msgQueryFault}
			}
			query = q
			attempts = append(attempts, q)
			state = stateExecuteQuery

		case stateAnalyzeResult:
			summary, err := l.gen.Summarize(ctx, question, query, execResult, l.documentation)
			if err != nil {
				slog.Error("Result summarization failed", "question", question, "error", err)
				return Result{Outcome: OutcomeFault, Text: msgQueryFault}
			}
			return Result{Outcome: OutcomeSuccess, Text: summary}
		}
	}
}
