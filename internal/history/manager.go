// Package history maintains a linear, branch-free timeline of image
// revisions with undo/redo navigation.
package history

import (
	"photoedit/internal/domain"
)

// Manager owns an ordered sequence of revisions and a cursor identifying the
// one currently displayed. The timeline is linear: committing after one or
// more undos discards the redo branch. Manager is not safe for concurrent
// use; the owning session serializes access.
type Manager struct {
	revisions []domain.Revision
	cursor    int
}

// New returns an empty manager. The cursor of an empty manager is -1.
func New() *Manager {
	return &Manager{cursor: -1}
}

// Reset replaces the whole timeline with a single revision and points the
// cursor at it. It always succeeds.
func (m *Manager) Reset(rev domain.Revision) {
	m.revisions = []domain.Revision{rev}
	m.cursor = 0
}

// Commit truncates every revision beyond the cursor, appends rev, and moves
// the cursor to the new end. Committing into an empty timeline fails: a base
// image must exist first.
func (m *Manager) Commit(rev domain.Revision) error {
	if len(m.revisions) == 0 {
		return domain.ErrNoImageLoaded
	}
	m.revisions = append(m.revisions[:m.cursor+1], rev)
	m.cursor = len(m.revisions) - 1
	return nil
}

// Undo moves the cursor one step back. It reports false at the start of the
// timeline and leaves state untouched.
func (m *Manager) Undo() bool {
	if m.cursor <= 0 {
		return false
	}
	m.cursor--
	return true
}

// Redo moves the cursor one step forward. It reports false at the end of the
// timeline and leaves state untouched.
func (m *Manager) Redo() bool {
	if m.cursor >= len(m.revisions)-1 {
		return false
	}
	m.cursor++
	return true
}

// Restart points the cursor back at the original revision without shortening
// the timeline, so the edits remain reachable through Redo.
func (m *Manager) Restart() {
	if len(m.revisions) > 0 {
		m.cursor = 0
	}
}

// Clear empties the timeline entirely.
func (m *Manager) Clear() {
	m.revisions = nil
	m.cursor = -1
}

// Current returns the revision under the cursor.
func (m *Manager) Current() (domain.Revision, bool) {
	if m.cursor < 0 || m.cursor >= len(m.revisions) {
		return domain.Revision{}, false
	}
	return m.revisions[m.cursor], true
}

// At returns the revision at index i without moving the cursor.
func (m *Manager) At(i int) (domain.Revision, bool) {
	if i < 0 || i >= len(m.revisions) {
		return domain.Revision{}, false
	}
	return m.revisions[i], true
}

// Original returns the first revision of the timeline.
func (m *Manager) Original() (domain.Revision, bool) {
	if len(m.revisions) == 0 {
		return domain.Revision{}, false
	}
	return m.revisions[0], true
}

func (m *Manager) CanUndo() bool { return m.cursor > 0 }

func (m *Manager) CanRedo() bool { return m.cursor < len(m.revisions)-1 }

// Len returns the number of revisions in the timeline.
func (m *Manager) Len() int { return len(m.revisions) }

// Cursor returns the index of the current revision, or -1 when empty.
func (m *Manager) Cursor() int { return m.cursor }
