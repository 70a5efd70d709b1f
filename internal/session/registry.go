package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/pimwelt1/UAVLogViewer/internal/agent"
	"github.com/pimwelt1/UAVLogViewer/internal/store"
	"github.com/pimwelt1/UAVLogViewer/internal/telemetry"
)

// Registry defaults: sessions expire after a fixed idle period and the
// registry holds a bounded number of them, evicting the stalest.
const (
	DefaultTTL      = 30 * time.Minute
	DefaultCapacity = 20
)

// ErrInvalidSession is reported for a missing or expired session id.
// It is a recoverable condition, not a fault.
var ErrInvalidSession = errors.New("invalid or expired session ID")

// Registry is the time-bounded cache of active sessions, keyed by
// session id. Safe for concurrent use.
type Registry struct {
	cache  *ttlcache.Cache[string, *Session]
	docs   *telemetry.Docs
	gen    agent.Generator
	repo   store.Repository
	limits Limits
}

// RegistryConfig configures the session registry. Zero TTL and
// capacity fall back to the defaults.
type RegistryConfig struct {
	TTL       time.Duration
	Capacity  uint64
	Limits    Limits
	Docs      *telemetry.Docs
	Generator agent.Generator
	Repo      store.Repository
}

// NewRegistry creates a registry whose entries expire after the idle
// TTL. Evicted and expired sessions are cleaned up via the eviction
// hook: engine closed, stored turns deleted.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}

	r := &Registry{
		docs:   cfg.Docs,
		gen:    cfg.Generator,
		repo:   cfg.Repo,
		limits: cfg.Limits,
	}
	r.cache = ttlcache.New(
		ttlcache.WithTTL[string, *Session](cfg.TTL),
		ttlcache.WithCapacity[string, *Session](cfg.Capacity),
	)
	r.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		slog.Info("Session evicted", "session_id", item.Key(), "reason", int(reason))
		r.cleanupSession(item.Value())
	})
	return r
}

// Start runs the background expiry sweeper until Stop is called.
func (r *Registry) Start() {
	go r.cache.Start()
}

// Stop halts the sweeper and cleans up every remaining session.
func (r *Registry) Stop() {
	r.cache.Stop()
	r.cache.DeleteAll()
}

// Create builds a session from raw parsed telemetry, registers it, and
// returns its id.
func (r *Registry) Create(ctx context.Context, parsedMessages map[string]any) (string, error) {
	tables := telemetry.FromParsedMessages(parsedMessages, telemetry.DefaultExcludedTypes)

	id := uuid.NewString()
	sess, err := New(id, tables, r.docs, r.gen, r.repo, r.limits)
	if err != nil {
		return "", err
	}

	r.cache.Set(id, sess, ttlcache.DefaultTTL)
	slog.Info("Session created", "session_id", id, "tables", len(tables))
	return id, nil
}

// Get returns the session and refreshes its idle TTL, or
// ErrInvalidSession when the id is missing or expired.
func (r *Registry) Get(id string) (*Session, error) {
	item := r.cache.Get(id)
	if item == nil {
		return nil, ErrInvalidSession
	}
	return item.Value(), nil
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

func (r *Registry) cleanupSession(s *Session) {
	s.Close()
	if r.repo != nil {
		if err := deleteTurnsWithRetry(context.Background(), r.repo, s.ID); err != nil {
			slog.Warn("Failed to delete stored turns for session", "session_id", s.ID, "error", err)
		}
	}
}

// deleteTurnsWithRetry deletes a session's stored turns with
// exponential backoff to ride out transient SQLITE_BUSY errors.
func deleteTurnsWithRetry(ctx context.Context, repo store.Repository, sessionID string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = repo.DeleteSession(ctx, sessionID)
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) || i == maxRetries-1 {
			return err
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("Turn delete hit a busy database, retrying",
			"session_id", sessionID, "attempt", i+1, "delay", delay)
		time.Sleep(delay)
	}
	return err
}

func isSQLiteBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
