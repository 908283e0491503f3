package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"photoedit/internal/domain"
	"photoedit/internal/imaging"
)

type retouchRequest struct {
	Instruction string `json:"instruction"`
}

type adjustRequest struct {
	Instruction string `json:"instruction"`
}

type filterRequest struct {
	StyleID string `json:"style_id"`
}

type cropRequest struct {
	Selection  imaging.Rect `json:"selection"`
	DisplayedW float64      `json:"displayed_width"`
	DisplayedH float64      `json:"displayed_height"`
}

type focusRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type promptRequest struct {
	Text string `json:"text"`
}

// SessionRetouch applies a localized edit at the pending focus point.
func (a *App) SessionRetouch(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	var req retouchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := s.Retouch(r.Context(), req.Instruction); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionAdjust applies a free-text edit to the whole image.
func (a *App) SessionAdjust(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := s.Adjust(r.Context(), req.Instruction); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionFilter applies one of the preset styles.
func (a *App) SessionFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := s.ApplyFilter(r.Context(), req.StyleID); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionCrop rasterizes a crop selection and commits it.
func (a *App) SessionCrop(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	var req cropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := s.Crop(r.Context(), req.Selection, req.DisplayedW, req.DisplayedH); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionSetFocus records the localized-edit target.
func (a *App) SessionSetFocus(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	var req focusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := s.SetFocus(domain.FocusPoint{X: req.X, Y: req.Y}); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionClearFocus drops the localized-edit target.
func (a *App) SessionClearFocus(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	s.ClearFocus()
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}

// SessionSetPrompt stores the in-progress instruction text.
func (a *App) SessionSetPrompt(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	s.SetPrompt(req.Text)
	a.json(w, http.StatusOK, a.withViewURLs(s.State()))
}
