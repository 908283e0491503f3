// Package view manages the revocable display handles used to render
// revisions over HTTP. A handle plays the part a browser object URL plays in
// a canvas UI: an opaque, releasable reference to one revision's bytes.
package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"photoedit/internal/domain"
	"photoedit/internal/storage"
)

// Role names which slot of a session a handle renders.
type Role string

const (
	RoleCurrent  Role = "current"
	RoleOriginal Role = "original"
)

// Handle is a live, revocable reference to a revision's bytes. Exactly one
// handle per (owner, role) is live at any time; the registry releases the
// prior one when a replacement is installed.
type Handle struct {
	Token      string
	RevisionID string
	Name       string
	MIME       string

	key      string
	released bool
}

// Registry owns every live handle in the process, indexed by token for HTTP
// serving and by (owner, role) for lifecycle management. Owners are session
// IDs. All methods are safe for concurrent use.
type Registry struct {
	store *storage.FileStore

	mu       sync.Mutex
	byToken  map[string]*Handle
	byOwner  map[string]map[Role]*Handle
	acquired int
	released int
}

// NewRegistry returns a registry backed by the given store.
func NewRegistry(store *storage.FileStore) *Registry {
	return &Registry{
		store:   store,
		byToken: make(map[string]*Handle),
		byOwner: make(map[string]map[Role]*Handle),
	}
}

// Swap installs a fresh handle for (owner, role) rendering rev, then
// releases the previously live handle for that slot. If the role already
// renders the same revision the live handle is kept and returned unchanged.
func (r *Registry) Swap(ctx context.Context, owner string, role Role, rev domain.Revision) (*Handle, error) {
	r.mu.Lock()
	prior := r.byOwner[owner][role]
	r.mu.Unlock()

	if prior != nil && prior.RevisionID == rev.ID {
		return prior, nil
	}

	token := uuid.NewString()
	key, err := r.store.Write(ctx, fmt.Sprintf("views/%s/%s", owner, token), rev.Data)
	if err != nil {
		return nil, fmt.Errorf("install view handle: %w", err)
	}
	h := &Handle{
		Token:      token,
		RevisionID: rev.ID,
		Name:       rev.Name,
		MIME:       rev.MIME,
		key:        key,
	}

	r.mu.Lock()
	if r.byOwner[owner] == nil {
		r.byOwner[owner] = make(map[Role]*Handle)
	}
	// The slot may have changed since prior was read: a concurrent swap
	// can have installed its own handle in the meantime. Releasing the
	// handle actually displaced here, rather than prior, keeps exactly
	// one handle live per slot.
	displaced := r.byOwner[owner][role]
	r.byOwner[owner][role] = h
	r.byToken[token] = h
	r.acquired++
	r.mu.Unlock()

	// The replacement is installed and resolvable before the old handle
	// goes away, so a render in progress never loses its source.
	if displaced != nil {
		r.release(ctx, owner, displaced)
	}
	return h, nil
}

// Drop releases the live handle for (owner, role), if any.
func (r *Registry) Drop(ctx context.Context, owner string, role Role) {
	r.mu.Lock()
	h := r.byOwner[owner][role]
	if h != nil {
		delete(r.byOwner[owner], role)
	}
	r.mu.Unlock()
	if h != nil {
		r.release(ctx, owner, h)
	}
}

// Teardown releases every handle the owner still holds.
func (r *Registry) Teardown(ctx context.Context, owner string) {
	r.mu.Lock()
	roles := r.byOwner[owner]
	delete(r.byOwner, owner)
	r.mu.Unlock()
	for _, h := range roles {
		r.release(ctx, owner, h)
	}
}

// Resolve returns the bytes and metadata for a live handle token. Tokens of
// released handles resolve to nothing.
func (r *Registry) Resolve(ctx context.Context, token string) (*Handle, []byte, error) {
	r.mu.Lock()
	h := r.byToken[token]
	r.mu.Unlock()
	if h == nil {
		return nil, nil, domain.ErrSessionNotFound
	}
	data, err := r.store.Read(ctx, h.key)
	if err != nil {
		return nil, nil, err
	}
	return h, data, nil
}

// Live returns the live handle for (owner, role), or nil.
func (r *Registry) Live(owner string, role Role) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byOwner[owner][role]
}

// Stats reports how many handles were ever installed, how many were
// released, and how many are live now.
func (r *Registry) Stats() (acquired, released, live int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquired, r.released, len(r.byToken)
}

func (r *Registry) release(ctx context.Context, owner string, h *Handle) {
	r.mu.Lock()
	if h.released {
		r.mu.Unlock()
		return
	}
	h.released = true
	delete(r.byToken, h.Token)
	r.released++
	r.mu.Unlock()
	_ = r.store.Remove(ctx, h.key)
}
