package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ViewServe streams the bytes behind a live display handle. Released
// handles are gone: the token 404s, exactly like a revoked object URL.
func (a *App) ViewServe(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	handle, data, err := a.Views.Resolve(r.Context(), token)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "view not found")
		return
	}
	w.Header().Set("Content-Type", handle.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
