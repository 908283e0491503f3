package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"photoedit/internal/http/handlers"
	"photoedit/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
		middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/styles", app.StylesList)
	r.Get("/v1/demos", app.DemosList)
	r.Get("/v1/views/{token}", app.ViewServe)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.SessionCreate)
		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", app.SessionState)
			r.Delete("/", app.SessionDelete)
			r.Post("/image", app.SessionUpload)
			r.Post("/retouch", app.SessionRetouch)
			r.Post("/adjust", app.SessionAdjust)
			r.Post("/filter", app.SessionFilter)
			r.Post("/crop", app.SessionCrop)
			r.Post("/undo", app.SessionUndo)
			r.Post("/redo", app.SessionRedo)
			r.Post("/restart", app.SessionRestart)
			r.Post("/focus", app.SessionSetFocus)
			r.Delete("/focus", app.SessionClearFocus)
			r.Post("/prompt", app.SessionSetPrompt)
			r.Post("/dismiss-error", app.SessionDismissError)
			r.Get("/export", app.SessionExport)
			r.Get("/archive", app.SessionArchive)
			r.Get("/events", app.SessionEvents)
		})
	})

	return r
}
