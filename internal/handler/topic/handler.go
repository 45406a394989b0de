package topic

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-app/parley/internal/model/topic"
	"github.com/parley-app/parley/pkg/utils"
)

// Handler 话题浏览的HTTP处理器
type Handler struct {
	topics topic.Store
}

// New 创建话题处理器
func New(topics topic.Store) *Handler {
	return &Handler{
		topics: topics,
	}
}

// RegisterRoutes 注册话题相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/topics", h.handleListTopics)
	r.Get("/categories", h.handleListCategories)
}

// handleListTopics 列出话题，可按 category 过滤
func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics := h.topics.List()

	if category := r.URL.Query().Get("category"); category != "" {
		filtered := make([]topic.Topic, 0, len(topics))
		for _, item := range topics {
			if item.CategoryID == category {
				filtered = append(filtered, item)
			}
		}
		topics = filtered
	}

	utils.RespondJSON(w, http.StatusOK, topics)
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.topics.Categories())
}
