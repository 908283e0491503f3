package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"photoedit/internal/domain"
)

// SessionExport downloads the current image encoded at the requested
// quality tier (?tier=low|medium|high, default high).
func (a *App) SessionExport(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}
	tier := domain.QualityTier(r.URL.Query().Get("tier"))
	if tier == "" {
		tier = domain.QualityHigh
	}
	if _, ok := tier.Compression(); !ok {
		a.error(w, http.StatusUnprocessableEntity, "unknown_tier", "tier must be low, medium or high")
		return
	}
	data, mime, filename, err := s.Export(tier)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}
