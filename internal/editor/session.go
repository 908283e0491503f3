// Package editor owns per-session editing state: the revision timeline, the
// derived view handles, the focus point, and the single busy guard that
// serializes transform flows.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"photoedit/internal/domain"
	"photoedit/internal/history"
	"photoedit/internal/imaging"
	"photoedit/internal/infra"
	image "photoedit/internal/providers/image"
	"photoedit/internal/view"
)

// Session is one user's editing state. All operations are safe for
// concurrent use; a single busy flag rejects a second transform flow while
// one is in flight, which is the contract the UI relies on.
type Session struct {
	ID string

	transformer image.Transformer
	views       *view.Registry
	logger      infra.Logger

	mu          sync.Mutex
	timeline    *history.Manager
	focus       *domain.FocusPoint
	prompt      string
	lastErr     error
	busy        bool
	generation  uint64
	lastActive  time.Time
	subscribers map[chan Snapshot]struct{}
}

// Snapshot is the session state the UI renders: cursor position, navigation
// affordances, busy flag, the current error, and the live view tokens.
type Snapshot struct {
	SessionID     string             `json:"session_id"`
	Cursor        int                `json:"cursor"`
	Length        int                `json:"length"`
	CanUndo       bool               `json:"can_undo"`
	CanRedo       bool               `json:"can_redo"`
	Busy          bool               `json:"busy"`
	Generation    uint64             `json:"generation"`
	Error         string             `json:"error,omitempty"`
	RateLimited   bool               `json:"rate_limited,omitempty"`
	Focus         *domain.FocusPoint `json:"focus,omitempty"`
	Prompt        string             `json:"prompt,omitempty"`
	ImageName     string             `json:"image_name,omitempty"`
	CurrentToken  string             `json:"current_token,omitempty"`
	OriginalToken string             `json:"original_token,omitempty"`
}

func newSession(transformer image.Transformer, views *view.Registry, logger infra.Logger) *Session {
	return &Session{
		ID:          uuid.NewString(),
		transformer: transformer,
		views:       views,
		logger:      logger,
		timeline:    history.New(),
		lastActive:  time.Now(),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Upload discards the whole timeline and starts over from the given image.
func (s *Session) Upload(ctx context.Context, name, mime string, data []byte) error {
	if len(data) == 0 {
		return s.fail(domain.ErrMissingInput)
	}
	if _, _, err := imaging.Probe(data); err != nil {
		return s.fail(fmt.Errorf("%w: not a decodable image", domain.ErrMissingInput))
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	rev := domain.NewRevision(name, mime, data)
	s.timeline.Reset(rev)
	s.focus = nil
	s.prompt = ""
	s.lastErr = nil
	s.touchLocked()
	s.mu.Unlock()

	s.refreshViews(ctx)
	s.notify()
	return nil
}

// LoadDemo starts the session from one of the built-in sample images.
func (s *Session) LoadDemo(ctx context.Context, demoID string) error {
	data, err := imaging.RenderDemo(demoID)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", domain.ErrMissingInput, err))
	}
	return s.Upload(ctx, demoID+".png", "image/png", data)
}

// SetFocus records the localized-edit target, in native pixel coordinates.
func (s *Session) SetFocus(p domain.FocusPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return domain.ErrBusy
	}
	if _, ok := s.timeline.Current(); !ok {
		return domain.ErrNoImageLoaded
	}
	s.focus = &p
	s.touchLocked()
	s.notifyLocked()
	return nil
}

// ClearFocus drops any pending localized-edit target.
func (s *Session) ClearFocus() {
	s.mu.Lock()
	s.focus = nil
	s.touchLocked()
	s.notifyLocked()
	s.mu.Unlock()
}

// SetPrompt stores the in-progress instruction text so a page reload does
// not lose it.
func (s *Session) SetPrompt(text string) {
	s.mu.Lock()
	s.prompt = text
	s.touchLocked()
	s.mu.Unlock()
}

// Retouch applies a localized edit at the pending focus point.
func (s *Session) Retouch(ctx context.Context, instruction string) error {
	s.mu.Lock()
	focus := s.focus
	s.mu.Unlock()
	if focus == nil {
		return s.fail(fmt.Errorf("%w: no focus point set", domain.ErrMissingInput))
	}
	return s.runTransform(ctx, instruction, focus)
}

// Adjust applies a free-text edit to the whole image.
func (s *Session) Adjust(ctx context.Context, instruction string) error {
	return s.runTransform(ctx, instruction, nil)
}

// ApplyFilter applies one of the preset styles.
func (s *Session) ApplyFilter(ctx context.Context, styleID string) error {
	style, err := image.StyleByID(styleID)
	if err != nil {
		return s.fail(err)
	}
	return s.runTransform(ctx, style.Instruction, nil)
}

// runTransform is the single entry point for AI edit flows: preconditions,
// busy acquisition, provider call, commit. The provider call happens outside
// the lock; the busy flag keeps every other mutating operation out while it
// is in flight.
func (s *Session) runTransform(ctx context.Context, instruction string, focus *domain.FocusPoint) error {
	if strings.TrimSpace(instruction) == "" {
		return s.fail(fmt.Errorf("%w: empty instruction", domain.ErrMissingInput))
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	source, ok := s.timeline.Current()
	if !ok {
		s.lastErr = domain.ErrNoImageLoaded
		s.mu.Unlock()
		s.notify()
		return domain.ErrNoImageLoaded
	}
	s.busy = true
	s.generation++
	gen := s.generation
	s.touchLocked()
	s.mu.Unlock()
	s.notify()

	requestID := uuid.NewString()
	s.logger.Info().
		Str("session_id", s.ID).
		Str("request_id", requestID).
		Uint64("generation", gen).
		Msg("editor: transform flow started")

	result, err := s.transformer.Transform(ctx, image.TransformRequest{
		Source:      source,
		Instruction: instruction,
		Focus:       focus,
		RequestID:   requestID,
	})

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.lastErr = err
		s.touchLocked()
		s.mu.Unlock()
		s.logger.Warn().
			Err(err).
			Str("session_id", s.ID).
			Str("request_id", requestID).
			Msg("editor: transform flow failed")
		s.notify()
		return err
	}

	// A result from an older generation still commits: last write wins.
	// Clients that want to discard stale renders compare generations.
	if gen != s.generation {
		s.logger.Info().
			Str("session_id", s.ID).
			Uint64("generation", gen).
			Uint64("latest", s.generation).
			Msg("editor: committing stale transform result")
	}
	rev := domain.NewRevision(source.Name, result.MIME, result.Data)
	commitErr := s.timeline.Commit(rev)
	if commitErr == nil {
		s.focus = nil
		s.prompt = ""
		s.lastErr = nil
	} else {
		s.lastErr = commitErr
	}
	s.touchLocked()
	s.mu.Unlock()

	if commitErr != nil {
		s.notify()
		return commitErr
	}
	s.refreshViews(ctx)
	s.notify()
	return nil
}

// Crop rasterizes the selection locally and commits the result as a new
// revision.
func (s *Session) Crop(ctx context.Context, sel imaging.Rect, displayedW, displayedH float64) error {
	if sel.Empty() {
		return s.fail(domain.ErrCropSelectionMissing)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	source, ok := s.timeline.Current()
	if !ok {
		s.lastErr = domain.ErrNoImageLoaded
		s.mu.Unlock()
		s.notify()
		return domain.ErrNoImageLoaded
	}
	s.busy = true
	s.mu.Unlock()

	data, mime, err := imaging.Crop(source.Data, sel, displayedW, displayedH)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		// A selection that clamps to nothing is a bad selection, not a
		// processing failure; keep its sentinel for the precondition
		// mapping upstream.
		if !errors.Is(err, domain.ErrCropSelectionMissing) {
			err = fmt.Errorf("%w: %v", domain.ErrCropFailed, err)
		}
		s.lastErr = err
		s.touchLocked()
		s.mu.Unlock()
		s.notify()
		return err
	}
	rev := domain.NewRevision(source.Name, mime, data)
	commitErr := s.timeline.Commit(rev)
	if commitErr == nil {
		s.focus = nil
		s.lastErr = nil
	} else {
		s.lastErr = commitErr
	}
	s.touchLocked()
	s.mu.Unlock()

	if commitErr != nil {
		s.notify()
		return commitErr
	}
	s.refreshViews(ctx)
	s.notify()
	return nil
}

// Export encodes the current image at the requested quality tier. It does
// not mutate the timeline and therefore does not take the busy guard.
func (s *Session) Export(tier domain.QualityTier) (data []byte, mime, filename string, err error) {
	s.mu.Lock()
	current, ok := s.timeline.Current()
	s.touchLocked()
	s.mu.Unlock()
	if !ok {
		return nil, "", "", s.fail(domain.ErrNoImageLoaded)
	}

	data, mime, err = imaging.Export(current.Data, tier)
	if err != nil {
		return nil, "", "", s.fail(fmt.Errorf("%w: %v", domain.ErrExportFailed, err))
	}
	return data, mime, imaging.ExportFilename(current.Name, tier), nil
}

// Undo steps the cursor back one revision.
func (s *Session) Undo(ctx context.Context) bool { return s.navigate(ctx, (*history.Manager).Undo) }

// Redo steps the cursor forward one revision.
func (s *Session) Redo(ctx context.Context) bool { return s.navigate(ctx, (*history.Manager).Redo) }

func (s *Session) navigate(ctx context.Context, move func(*history.Manager) bool) bool {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return false
	}
	moved := move(s.timeline)
	if moved {
		s.focus = nil
	}
	s.touchLocked()
	s.mu.Unlock()

	if moved {
		s.refreshViews(ctx)
		s.notify()
	}
	return moved
}

// Restart points the cursor back at the original image without discarding
// the edits, and clears the error slot.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.timeline.Restart()
	s.focus = nil
	s.lastErr = nil
	s.touchLocked()
	s.mu.Unlock()

	s.refreshViews(ctx)
	s.notify()
	return nil
}

// Clear empties the session entirely: timeline, focus, prompt, error, and
// both view handles.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.timeline.Clear()
	s.focus = nil
	s.prompt = ""
	s.lastErr = nil
	s.touchLocked()
	s.mu.Unlock()

	s.views.Teardown(ctx, s.ID)
	s.notify()
	return nil
}

// DismissError clears the current-error slot without touching anything else.
func (s *Session) DismissError() {
	s.mu.Lock()
	s.lastErr = nil
	s.touchLocked()
	s.notifyLocked()
	s.mu.Unlock()
}

// Revisions returns a copy of every revision currently in the timeline, in
// order. Used by the archive download.
func (s *Session) Revisions() []domain.Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Revision, 0, s.timeline.Len())
	for i := 0; i < s.timeline.Len(); i++ {
		if rev, ok := s.timeline.At(i); ok {
			out = append(out, rev)
		}
	}
	return out
}

// State returns the snapshot the UI renders.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a channel that receives a snapshot after every state
// change. The channel is buffered by the caller; slow consumers miss
// intermediate snapshots rather than blocking the editor.
func (s *Session) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a previously subscribed channel.
func (s *Session) Unsubscribe(ch chan Snapshot) {
	s.mu.Lock()
	delete(s.subscribers, ch)
	s.mu.Unlock()
	close(ch)
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:  s.ID,
		Cursor:     s.timeline.Cursor(),
		Length:     s.timeline.Len(),
		CanUndo:    s.timeline.CanUndo(),
		CanRedo:    s.timeline.CanRedo(),
		Busy:       s.busy,
		Generation: s.generation,
		Focus:      s.focus,
		Prompt:     s.prompt,
	}
	if cur, ok := s.timeline.Current(); ok {
		snap.ImageName = cur.Name
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
		if te, ok := domain.AsTransformError(s.lastErr); ok {
			snap.RateLimited = te.RateLimited
		}
	}
	if h := s.views.Live(s.ID, view.RoleCurrent); h != nil {
		snap.CurrentToken = h.Token
	}
	if h := s.views.Live(s.ID, view.RoleOriginal); h != nil {
		snap.OriginalToken = h.Token
	}
	return snap
}

// refreshViews reconciles both display handles with the timeline: the
// replacement handle is installed before the prior one is released, and an
// empty timeline drops both roles.
func (s *Session) refreshViews(ctx context.Context) {
	s.mu.Lock()
	current, hasCurrent := s.timeline.Current()
	original, hasOriginal := s.timeline.Original()
	s.mu.Unlock()

	if hasCurrent {
		if _, err := s.views.Swap(ctx, s.ID, view.RoleCurrent, current); err != nil {
			s.logger.Error().Err(err).Str("session_id", s.ID).Msg("editor: failed to refresh current view")
		}
	} else {
		s.views.Drop(ctx, s.ID, view.RoleCurrent)
	}
	if hasOriginal {
		if _, err := s.views.Swap(ctx, s.ID, view.RoleOriginal, original); err != nil {
			s.logger.Error().Err(err).Str("session_id", s.ID).Msg("editor: failed to refresh original view")
		}
	} else {
		s.views.Drop(ctx, s.ID, view.RoleOriginal)
	}
}

// fail records err in the error slot and returns it.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.touchLocked()
	s.notifyLocked()
	s.mu.Unlock()
	return err
}

func (s *Session) notify() {
	s.mu.Lock()
	s.notifyLocked()
	s.mu.Unlock()
}

func (s *Session) notifyLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

// LastActive reports when the session last handled an operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
