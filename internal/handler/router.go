package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parley-app/parley/internal/handler/auth"
	"github.com/parley-app/parley/internal/handler/conversation"
	"github.com/parley-app/parley/internal/handler/history"
	topicHandler "github.com/parley-app/parley/internal/handler/topic"
	middlewarePkg "github.com/parley-app/parley/internal/middleware"
	"github.com/parley-app/parley/internal/model/topic"
	"github.com/parley-app/parley/internal/service/account"
	aiService "github.com/parley-app/parley/internal/service/ai"
	chatService "github.com/parley-app/parley/internal/service/chat"
	"github.com/parley-app/parley/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(topics topic.Store, accounts *account.Service, chatSvc *chatService.Service, responder aiService.Responder, opts ...conversation.Option) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	auth.New(accounts).RegisterRoutes(r)
	topicHandler.New(topics).RegisterRoutes(r)

	r.Group(func(protected chi.Router) {
		protected.Use(middlewarePkg.RequireUser(accounts))
		history.New(chatSvc, topics).RegisterRoutes(protected)
	})

	// 对话在 WebSocket 内部完成鉴权，不挂载 RequireUser
	conversation.NewWebSocketHandler(accounts, topics, chatSvc, responder, opts...).RegisterRoutes(r)

	return r
}
