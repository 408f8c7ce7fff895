package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	chatHandler "github.com/yattcodes/ai-gateway/backend/internal/handler/chat"
	"github.com/yattcodes/ai-gateway/backend/internal/handler/conversation"
	"github.com/yattcodes/ai-gateway/backend/internal/middleware"
	chatService "github.com/yattcodes/ai-gateway/backend/internal/service/chat"
	"github.com/yattcodes/ai-gateway/backend/internal/service/document"
	"github.com/yattcodes/ai-gateway/backend/pkg/utils"
)

// Options carries everything the router needs wired in.
type Options struct {
	ChatService     *chatService.Service
	DocumentService *document.Service
	UploadDir       string
	AuthSecret      string
	CORSOrigin      string
	// Global fixed-window limiter over mutating endpoints, keyed by
	// client address.
	GlobalLimit  int
	GlobalWindow time.Duration
	Logger       *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.CORSOrigin))

	chatH := chatHandler.New(opts.ChatService, opts.DocumentService, opts.UploadDir, opts.Logger)
	convH := conversation.New(opts.ChatService, opts.Logger)

	r.Route("/api", func(api chi.Router) {
		// Liveness check, the only unauthenticated route.
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		api.Group(func(priv chi.Router) {
			priv.Use(middleware.Auth(opts.AuthSecret))

			priv.Group(func(mutating chi.Router) {
				mutating.Use(httprate.LimitByIP(opts.GlobalLimit, opts.GlobalWindow))
				mutating.Post("/chat", chatH.HandleChat)
				mutating.Post("/chat/upload-pdf", chatH.HandleUploadPDF)
			})

			priv.Get("/chat/history", chatH.HandleHistory)
			priv.Get("/conversations", convH.HandleList)
		})
	})

	return r
}
