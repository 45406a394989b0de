package history

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-app/parley/internal/middleware"
	"github.com/parley-app/parley/internal/model/chat"
	"github.com/parley-app/parley/internal/model/topic"
	chatService "github.com/parley-app/parley/internal/service/chat"
	"github.com/parley-app/parley/pkg/utils"
)

// Entry is one row of the history table.
type Entry struct {
	chat.Session
	TopicName    string `json:"topicName"`
	MessageCount int    `json:"messageCount"`
}

// Handler 会话历史的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	topics  topic.Store
}

// New 创建历史处理器
func New(chatSvc *chatService.Service, topics topic.Store) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		topics:  topics,
	}
}

// RegisterRoutes 注册历史相关的路由，调用方负责挂载鉴权中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.handleList)
	r.Get("/history/{sessionID}", h.handleTranscript)
	r.Get("/stats", h.handleStats)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	sessions := h.chatSvc.ListByUser(r.Context(), user.ID)
	entries := make([]Entry, 0, len(sessions))
	for _, session := range sessions {
		entry := Entry{Session: session}
		if t, ok := h.topics.FindByID(session.TopicID); ok {
			entry.TopicName = t.Name
		}
		if transcript, err := h.chatSvc.LoadTranscript(r.Context(), session.ID); err == nil {
			entry.MessageCount = len(transcript)
		}
		entries = append(entries, entry)
	}

	utils.RespondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if errors.Is(err, chatService.ErrSessionNotFound) || (err == nil && session.UserID != user.ID) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	transcript, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, transcript)
}

// handleStats 返回用户的会话统计
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.Stats(r.Context(), user.ID))
}
