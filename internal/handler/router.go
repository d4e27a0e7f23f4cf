package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/line-relay/backend/internal/handler/devchat"
	"github.com/zhouzirui/line-relay/backend/internal/handler/health"
	"github.com/zhouzirui/line-relay/backend/internal/handler/persona"
	"github.com/zhouzirui/line-relay/backend/internal/handler/webhook"
	"github.com/zhouzirui/line-relay/backend/internal/logging"
	middlewarePkg "github.com/zhouzirui/line-relay/backend/internal/middleware"
	personaModel "github.com/zhouzirui/line-relay/backend/internal/model/persona"
	aiService "github.com/zhouzirui/line-relay/backend/internal/service/ai"
	chatService "github.com/zhouzirui/line-relay/backend/internal/service/chat"
	"github.com/zhouzirui/line-relay/backend/internal/service/dispatch"
)

// Services are the components the HTTP surface is built on.
type Services struct {
	Personas   personaModel.Store
	Sessions   *chatService.Service
	Gateway    *aiService.Gateway
	Dispatcher *dispatch.Dispatcher
	// ChannelSecret verifies webhook deliveries; empty disables the webhook (500).
	ChannelSecret string
	DevChannel    bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services, logger *zap.Logger) http.Handler {
	logger = logging.OrNop(logger)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	var dispatcher webhook.Dispatcher
	if svc.ChannelSecret != "" && svc.Dispatcher != nil {
		dispatcher = svc.Dispatcher
	}
	webhook.New(svc.ChannelSecret, dispatcher, logger).RegisterRoutes(r)

	healthHandler := health.New(svc.Gateway, svc.Sessions, svc.Dispatcher.Mode())
	healthHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		healthHandler.RegisterAPIRoutes(api)
		persona.New(svc.Personas).RegisterRoutes(api)

		if svc.DevChannel {
			devchat.NewWebSocketHandler(svc.Dispatcher, logger).RegisterRoutes(api)
			logger.Warn("dev channel enabled: /api/dev/ws bypasses signature verification")
		}
	})

	return r
}
