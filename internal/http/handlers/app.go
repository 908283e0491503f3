package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"photoedit/internal/domain"
	"photoedit/internal/editor"
	"photoedit/internal/infra"
	"photoedit/internal/view"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Sessions *editor.Store
	Views    *view.Registry
}

func NewApp(cfg *infra.Config, logger infra.Logger, sessions *editor.Store, views *view.Registry) *App {
	return &App{Config: cfg, Logger: logger, Sessions: sessions, Views: views}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": code, "message": message})
}

// fail maps a domain error onto the HTTP surface. Precondition failures are
// unprocessable, busy is a conflict, rate-limited transforms keep their 429,
// and any other provider failure is a bad gateway.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		a.error(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, domain.ErrBusy):
		a.error(w, http.StatusConflict, "busy", "an edit is already in progress")
	case errors.Is(err, domain.ErrNoImageLoaded):
		a.error(w, http.StatusUnprocessableEntity, "no_image", "no image loaded")
	case errors.Is(err, domain.ErrMissingInput):
		a.error(w, http.StatusUnprocessableEntity, "missing_input", err.Error())
	case errors.Is(err, domain.ErrCropSelectionMissing):
		a.error(w, http.StatusUnprocessableEntity, "crop_selection_missing", "no crop selection")
	case errors.Is(err, domain.ErrUnknownStyle):
		a.error(w, http.StatusUnprocessableEntity, "unknown_style", "unknown style")
	case errors.Is(err, domain.ErrCropFailed):
		a.error(w, http.StatusInternalServerError, "crop_failed", err.Error())
	case errors.Is(err, domain.ErrExportFailed):
		a.error(w, http.StatusInternalServerError, "export_failed", err.Error())
	default:
		if te, ok := domain.AsTransformError(err); ok {
			if te.RateLimited {
				a.error(w, http.StatusTooManyRequests, "rate_limited", te.Message)
				return
			}
			a.error(w, http.StatusBadGateway, "transform_failed", te.Message)
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

// session resolves the {session_id} route parameter.
func (a *App) session(w http.ResponseWriter, sessionID string) (*editor.Session, bool) {
	s, err := a.Sessions.Get(sessionID)
	if err != nil {
		a.fail(w, err)
		return nil, false
	}
	return s, true
}
