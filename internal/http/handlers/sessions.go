package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"photoedit/internal/domain"
	"photoedit/internal/editor"
	pkgzip "photoedit/pkg/zip"
)

// SessionCreate starts a new editing session from an uploaded image
// (multipart field "image") or from a built-in demo (?demo=id).
func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	s := a.Sessions.Create()

	if demoID := r.URL.Query().Get("demo"); demoID != "" {
		if err := s.LoadDemo(r.Context(), demoID); err != nil {
			_ = a.Sessions.Delete(r.Context(), s.ID)
			a.fail(w, err)
			return
		}
		a.json(w, http.StatusCreated, a.withViewURLs(s.State()))
		return
	}

	name, mime, data, err := a.readUpload(r)
	if err != nil {
		_ = a.Sessions.Delete(r.Context(), s.ID)
		a.fail(w, err)
		return
	}
	if err := s.Upload(r.Context(), name, mime, data); err != nil {
		_ = a.Sessions.Delete(r.Context(), s.ID)
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, a.withViewURLs(s.State()))
}

// SessionState returns the snapshot the UI renders.
func (a *App) SessionState(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionUpload replaces the session's image, discarding all history.
func (a *App) SessionUpload(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	name, mime, data, err := a.readUpload(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := s.Upload(r.Context(), name, mime, data); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionDelete tears the session down, releasing its view handles.
func (a *App) SessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(r.Context(), chi.URLParam(r, "session_id")); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionUndo steps one revision back.
func (a *App) SessionUndo(w http.ResponseWriter, r *http.Request) {
	a.navigate(w, r, (*editor.Session).Undo)
}

// SessionRedo steps one revision forward.
func (a *App) SessionRedo(w http.ResponseWriter, r *http.Request) {
	a.navigate(w, r, (*editor.Session).Redo)
}

func (a *App) navigate(w http.ResponseWriter, r *http.Request, move func(*editor.Session, context.Context) bool) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	moved := move(s, r.Context())
	snap := a.withViewURLs(s.State())
	snap.Moved = moved
	a.json(w, http.StatusOK, snap)
}

// SessionRestart points the cursor back at the original image.
func (a *App) SessionRestart(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	if err := s.Restart(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionDismissError clears the current-error slot.
func (a *App) SessionDismissError(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	s.DismissError()
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionArchive downloads every revision of the timeline as a zip.
func (a *App) SessionArchive(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	revisions := s.Revisions()
	if len(revisions) == 0 {
		a.fail(w, domain.ErrNoImageLoaded)
		return
	}
	assets := make([]pkgzip.Asset, len(revisions))
	for i, rev := range revisions {
		assets[i] = pkgzip.Asset{
			Filename: fmt.Sprintf("revision-%02d", i),
			MIME:     rev.MIME,
			Data:     rev.Data,
		}
	}
	archive := pkgzip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-%s.zip", s.ID))
	_, _ = w.Write(archive)
}

func (a *App) readUpload(r *http.Request) (name, mime string, data []byte, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, a.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.Config.MaxUploadBytes); err != nil {
		return "", "", nil, fmt.Errorf("%w: invalid multipart upload", domain.ErrMissingInput)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: image field required", domain.ErrMissingInput)
	}
	defer file.Close()
	data, err = io.ReadAll(file)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: read upload", domain.ErrMissingInput)
	}
	return header.Filename, header.Header.Get("Content-Type"), data, nil
}
