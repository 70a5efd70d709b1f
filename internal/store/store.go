// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/pimwelt1/UAVLogViewer/internal/domain"
)

// Repository persists per-session conversation history across turns.
type Repository interface {
	// AppendTurn stores a completed conversation turn and prunes the
	// session's history down to the retention bound.
	AppendTurn(ctx context.Context, sessionID, input, response string) error

	// RecentTurns returns the session's most recent turns, oldest first,
	// up to limit.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)

	// DeleteSession removes all stored turns for a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// CountTurns returns the number of stored turns for a session.
	CountTurns(ctx context.Context, sessionID string) (int, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
