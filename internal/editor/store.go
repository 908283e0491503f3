package editor

import (
	"context"
	"sync"
	"time"

	"photoedit/internal/domain"
	"photoedit/internal/infra"
	image "photoedit/internal/providers/image"
	"photoedit/internal/view"
)

// Store holds every live session in memory. Sessions do not survive a
// restart; idle ones are swept so a long-lived server does not accumulate
// abandoned timelines and their view handles.
type Store struct {
	transformer image.Transformer
	views       *view.Registry
	logger      infra.Logger
	ttl         time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a session store. A non-positive ttl disables sweeping.
func NewStore(transformer image.Transformer, views *view.Registry, logger infra.Logger, ttl time.Duration) *Store {
	return &Store{
		transformer: transformer,
		views:       views,
		logger:      logger,
		ttl:         ttl,
		sessions:    make(map[string]*Session),
	}
}

// Create registers a new empty session.
func (st *Store) Create() *Session {
	s := newSession(st.transformer, st.views, st.logger)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	st.logger.Info().Str("session_id", s.ID).Msg("editor: session created")
	return s
}

// Get looks up a session by id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	s := st.sessions[id]
	st.mu.Unlock()
	if s == nil {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session and tears down its view handles.
func (st *Store) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	s := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if s == nil {
		return domain.ErrSessionNotFound
	}
	st.views.Teardown(ctx, id)
	st.logger.Info().Str("session_id", id).Msg("editor: session deleted")
	return nil
}

// Len reports how many sessions are live.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes sessions idle longer than the ttl. Busy sessions are left
// alone: an in-flight transform still needs somewhere to commit.
func (st *Store) Sweep(ctx context.Context, now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}
	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.State().Busy {
			continue
		}
		if now.Sub(s.LastActive()) > st.ttl {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		st.views.Teardown(ctx, s.ID)
		st.logger.Info().Str("session_id", s.ID).Msg("editor: session expired")
	}
	return len(expired)
}

// StartSweeper runs Sweep periodically until ctx is canceled.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if st.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				st.Sweep(ctx, now)
			}
		}
	}()
}
