// Package session owns per-session state (telemetry tables, the
// documentation blob, the agent loops, and the bounded conversation
// history) and the time-bounded registry of active sessions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pimwelt1/UAVLogViewer/internal/agent"
	"github.com/pimwelt1/UAVLogViewer/internal/domain"
	"github.com/pimwelt1/UAVLogViewer/internal/sqlexec"
	"github.com/pimwelt1/UAVLogViewer/internal/store"
	"github.com/pimwelt1/UAVLogViewer/internal/telemetry"
)

// historyLimit bounds the conversation history to the most recent turns.
const historyLimit = 10

// Session is one user's isolated telemetry dataset, conversation
// history, and caches. It exclusively owns its tables, documentation,
// query engine, and analysis cache for its whole lifetime.
type Session struct {
	ID string

	mu            sync.Mutex // serializes turns on the same session
	tables        map[string]*telemetry.Table
	documentation string
	engine        *sqlexec.Engine
	planner       *agent.Planner
	history       []domain.Turn
	repo          store.Repository // nil disables persistence
}

// Limits bounds the agent loops for a session. Zero values select the
// loop defaults.
type Limits struct {
	QueryAttempts   int
	TurnTransitions int
}

// New builds a session from its table set: loads the query engine,
// composes the documentation blob, and wires the agent loops.
func New(id string, tables map[string]*telemetry.Table, docs *telemetry.Docs, gen agent.Generator, repo store.Repository, limits Limits) (*Session, error) {
	engine, err := sqlexec.NewEngine(tables)
	if err != nil {
		return nil, fmt.Errorf("initialize query engine: %w", err)
	}

	documentation := docs.BuildDocumentation(tables)
	analyzer := agent.NewAnalyzer(tables)
	queries := agent.NewQueryLoop(gen, engine, documentation, limits.QueryAttempts)
	planner := agent.NewPlanner(gen, queries, analyzer, documentation, limits.TurnTransitions)

	return &Session{
		ID:            id,
		tables:        tables,
		documentation: documentation,
		engine:        engine,
		planner:       planner,
		repo:          repo,
	}, nil
}

// Turn runs one user turn to completion and returns the response text.
// Concurrent turns on the same session are serialized. History is
// updated and persisted only when the turn succeeds; bounded-failure
// and fallback texts are returned without touching history.
func (s *Session) Turn(ctx context.Context, message string, observe agent.StepObserver) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.planner.Run(ctx, message, s.history, observe)
	if result.Outcome != agent.OutcomeSuccess {
		return result.Text
	}

	if len(s.history) >= historyLimit {
		s.history = s.history[1:]
	}
	s.history = append(s.history, domain.Turn{Input: message, Response: result.Text})

	if s.repo != nil {
		if err := s.repo.AppendTurn(ctx, s.ID, message, result.Text); err != nil {
			slog.Warn("Failed to persist conversation turn", "session_id", s.ID, "error", err)
		}
	}
	return result.Text
}

// History returns a copy of the conversation history, oldest first.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Documentation returns the session's documentation blob.
func (s *Session) Documentation() string {
	return s.documentation
}

// TableNames returns the names of the loaded tables.
func (s *Session) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}

// Close releases the session's query engine.
func (s *Session) Close() {
	if err := s.engine.Close(); err != nil {
		slog.Warn("Failed to close query engine", "session_id", s.ID, "error", err)
	}
}
