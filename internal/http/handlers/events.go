package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"photoedit/internal/editor"
)

const (
	eventWriteTimeout = 10 * time.Second
	eventPingEvery    = 30 * time.Second
)

// SessionEvents upgrades to a websocket and pushes a state snapshot after
// every mutation, so the UI can mirror server-side state (busy flag, cursor,
// view URLs) without polling.
func (a *App) SessionEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, chi.URLParam(r, "session_id"))
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.originAllowed,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		a.Logger.Debug().Err(err).Str("session_id", s.ID).Msg("handlers: websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := s.Subscribe()
	defer s.Unsubscribe(updates)

	// Reader goroutine only watches for the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Initial snapshot so the client does not render from nothing.
	if err := a.writeSnapshot(conn, s.State()); err != nil {
		return
	}

	ping := time.NewTicker(eventPingEvery)
	defer ping.Stop()
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := a.writeSnapshot(conn, snap); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (a *App) writeSnapshot(conn *websocket.Conn, snap editor.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	return conn.WriteJSON(a.withViewURLs(snap))
}

func (a *App) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.Config.CORSAllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
