package handlers

import (
	"photoedit/internal/editor"
)

// stateResponse decorates a session snapshot with the URLs the browser can
// fetch the live views from, mirroring how object URLs address blobs in a
// canvas UI.
type stateResponse struct {
	editor.Snapshot
	CurrentURL  string `json:"current_url,omitempty"`
	OriginalURL string `json:"original_url,omitempty"`
	Moved       bool   `json:"moved,omitempty"`
}

func (a *App) withViewURLs(snap editor.Snapshot) stateResponse {
	resp := stateResponse{Snapshot: snap}
	if snap.CurrentToken != "" {
		resp.CurrentURL = "/v1/views/" + snap.CurrentToken
	}
	if snap.OriginalToken != "" {
		resp.OriginalURL = "/v1/views/" + snap.OriginalToken
	}
	return resp
}
