package handlers

import "net/http"

// Health reports liveness and whether transforms run against the real
// provider or the offline synthetic renderer.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	mode := "online"
	if a.Config.GeminiAPIKey == "" {
		mode = "offline"
	}
	a.json(w, http.StatusOK, map[string]string{
		"status":         "ok",
		"transform_mode": mode,
	})
}
