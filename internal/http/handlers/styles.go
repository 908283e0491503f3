package handlers

import (
	"net/http"

	"photoedit/internal/imaging"
	image "photoedit/internal/providers/image"
)

// StylesList returns the filter and adjustment presets the UI offers.
func (a *App) StylesList(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": image.Styles()})
}

// DemosList returns the built-in sample images a session can start from.
func (a *App) DemosList(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": imaging.Demos()})
}
