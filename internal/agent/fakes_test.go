package agent

import (
	"context"
	"errors"

	"github.com/pimwelt1/UAVLogViewer/internal/domain"
)

// fakeGenerator scripts the generation calls for loop tests. Each func
// field may be nil when the test never reaches that call.
type fakeGenerator struct {
	decideFn    func(input string, history []domain.Turn) (Decision, error)
	replanFn    func(lastPlan []PlanStep, past []PastStep, preferResponse bool) (Decision, error)
	writeFn     func(question string) (string, error)
	repairFn    func(lastQuery, queryErr string, attempts []string) (string, error)
	summarizeFn func(question, query, result string) (string, error)

	writeCalls  int
	repairCalls int
	replanCalls int
}

func (f *fakeGenerator) DecideDirectOrPlan(_ context.Context, input string, history []domain.Turn, _ string) (Decision, error) {
	return f.decideFn(input, history)
}

func (f *fakeGenerator) Replan(_ context.Context, _ string, lastPlan []PlanStep, past []PastStep, _ string, preferResponse bool) (Decision, error) {
	f.replanCalls++
	return f.replanFn(lastPlan, past, preferResponse)
}

func (f *fakeGenerator) WriteQuery(_ context.Context, question, _ string) (string, error) {
	f.writeCalls++
	return f.writeFn(question)
}

func (f *fakeGenerator) RepairQuery(_ context.Context, _, lastQuery, queryErr string, attempts []string, _ string) (string, error) {
	f.repairCalls++
	return f.repairFn(lastQuery, queryErr, attempts)
}

func (f *fakeGenerator) Summarize(_ context.Context, question, query, result, _ string) (string, error) {
	return f.summarizeFn(question, query, result)
}

var _ Generator = (*fakeGenerator)(nil)

// fakeExecutor scripts execution outcomes keyed by query text.
type fakeExecutor struct {
	results map[string]string
	calls   int
}

func (f *fakeExecutor) Execute(_ context.Context, query string) (string, error) {
	f.calls++
	if res, ok := f.results[query]; ok {
		return res, nil
	}
	return "", errors.New("no such column: bogus")
}

var _ Executor = (*fakeExecutor)(nil)
