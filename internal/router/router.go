package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/Katlearn/cablevision-form/internal/handler"
	mw "github.com/Katlearn/cablevision-form/internal/middleware"
)

// Handlers groups everything the router mounts. Files is nil when the file
// host is disabled.
type Handlers struct {
	Form     *handler.FormHandler
	Sessions *handler.SessionHandler
	Files    *handler.FileHandler
	Health   *handler.HealthHandler
}

func New(corsOrigins []string, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(corsOrigins))

	r.Get("/healthz", h.Health.Health)

	// Browser form
	r.Get("/", h.Form.Page)
	r.Post("/apply", h.Form.Apply)

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", h.Sessions.Create)
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", h.Sessions.Get)
			r.Delete("/", h.Sessions.Delete)
			r.Patch("/fields", h.Sessions.FieldChange)
			r.Put("/marker", h.Sessions.MarkerDragEnd)
			r.Put("/signature", h.Sessions.PutSignature)
			r.Delete("/signature", h.Sessions.ClearSignature)
			r.Post("/submit", h.Sessions.Submit)
		})
	})

	if h.Files != nil {
		r.Post("/files", h.Files.Upload)
		r.Get("/files/{key}", h.Files.Download)
		r.Delete("/files/{key}", h.Files.Delete)
	}

	return r
}
