package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"furnishai-web/internal/handlers"
	"furnishai-web/internal/middleware"
	"furnishai-web/internal/websocket"
)

func New(
	log logrus.FieldLogger,
	sessions *middleware.SessionTokens,
	chatLimiter *middleware.RateLimiter,
	pageHandler *handlers.PageHandler,
	chatHandler *handlers.ChatHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	infoHandler *handlers.InfoHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Pages ────
	r.Group(func(r chi.Router) {
		r.Get("/", pageHandler.Recommend)
		r.With(chatLimiter.Middleware).Post("/recommend", pageHandler.SubmitForm)
		r.Get("/analytics", pageHandler.Analytics)
		r.Get("/info", pageHandler.Info)
	})
	r.NotFound(pageHandler.NotFound)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Chat Routes ────
		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", chatHandler.CreateSession)

			r.Group(func(r chi.Router) {
				r.Use(sessions.Middleware)
				r.Get("/{id}", chatHandler.GetSession)
				r.With(chatLimiter.Middleware).Post("/{id}/messages", chatHandler.SendMessage)
			})
		})

		// ──── Analytics & Info ────
		r.Get("/analytics", analyticsHandler.Report)
		r.Get("/info", infoHandler.Get)

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
