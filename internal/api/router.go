package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/series", h.ListSeries)
	r.Post("/series", h.CreateSeries)

	r.Get("/meetings", h.ListMeetings)
	r.Post("/meetings", h.CreateMeeting)
	r.Route("/meetings/{id}", func(r chi.Router) {
		r.Get("/", h.GetMeeting)
		r.Put("/source", h.UpdateSource)
		r.Post("/parse", h.ParseMeeting)
		r.Get("/render/{format}", h.RenderMeeting)
		r.Get("/diagnostics", h.Diagnostics)
	})

	r.Get("/todos", h.ListActionItems)
	r.Post("/todos/merge", h.MergeActionItems)
	r.Patch("/todos/{number}", h.UpdateActionItem)
	r.Get("/decisions", h.ListDecisions)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
