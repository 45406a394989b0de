package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/middleware"
	"github.com/parley-app/parley/internal/model/chat"
	model "github.com/parley-app/parley/internal/model/conversation"
	"github.com/parley-app/parley/internal/model/topic"
	"github.com/parley-app/parley/internal/service/account"
	"github.com/parley-app/parley/internal/service/ai"
	chatService "github.com/parley-app/parley/internal/service/chat"
	"github.com/parley-app/parley/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second

	closingLine = "Time is up. Thanks for the conversation!"
)

// Option 调整处理器行为，主要用于测试
type Option func(*WebSocketHandler)

// WithAuthTimeout bounds how long the server waits for the auth frame.
func WithAuthTimeout(d time.Duration) Option {
	return func(h *WebSocketHandler) { h.authTimeout = d }
}

// WithMinute overrides the length of one conversation minute.
func WithMinute(d time.Duration) Option {
	return func(h *WebSocketHandler) { h.minute = d }
}

// WebSocketHandler 对话WebSocket处理器
type WebSocketHandler struct {
	verifier    middleware.TokenVerifier
	topics      topic.Store
	chatSvc     *chatService.Service
	responder   ai.Responder
	upgrader    websocket.Upgrader
	authTimeout time.Duration
	minute      time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(verifier middleware.TokenVerifier, topics topic.Store, chatSvc *chatService.Service, responder ai.Responder, opts ...Option) *WebSocketHandler {
	if responder == nil {
		responder = ai.EchoResponder{}
	}
	h := &WebSocketHandler{
		verifier:  verifier,
		topics:    topics,
		chatSvc:   chatSvc,
		responder: responder,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		authTimeout: 10 * time.Second,
		minute:      time.Minute,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/conversation", h.handleConversation)
}

type inbound struct {
	text string
	err  error
}

// handleConversation 处理一次完整的对话连接
func (h *WebSocketHandler) handleConversation(w http.ResponseWriter, r *http.Request) {
	topicID := strings.TrimSpace(r.URL.Query().Get("topic_id"))
	if topicID == "" {
		utils.RespondError(w, http.StatusBadRequest, "topic_id is required")
		return
	}
	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil || !model.ValidDuration(duration) {
		utils.RespondError(w, http.StatusBadRequest, "duration must be one of 1, 5 or 10")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "conversation").Msg("upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("component", "conversation").Str("topic_id", topicID).Logger()

	user, ok := h.authenticate(r.Context(), conn, logger)
	if !ok {
		return
	}

	selected, found := h.topics.FindByID(topicID)
	if !found {
		h.reject(conn, "Error: Invalid topic selected.", websocket.CloseNormalClosure)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session, err := h.chatSvc.CreateSession(ctx, user.ID, selected.ID, duration)
	if err != nil {
		logger.Error().Err(err).Msg("create session failed")
		h.reject(conn, "Error: could not start the conversation.", websocket.CloseInternalServerErr)
		return
	}
	defer func() {
		if err := h.chatSvc.EndSession(context.Background(), session.ID); err != nil {
			logger.Warn().Err(err).Msg("end session failed")
		}
	}()
	logger = logger.With().Str("session_id", session.ID).Str("user_id", user.ID).Logger()
	logger.Info().Int("duration", duration).Msg("conversation started")

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	go h.pingLoop(ctx, conn)

	if err := h.say(ctx, conn, session.ID, h.responder.Intro(selected)); err != nil {
		logger.Warn().Err(err).Msg("send intro failed")
		return
	}

	incoming := make(chan inbound)
	go readLoop(ctx, conn, incoming)

	timer := time.NewTimer(time.Duration(duration) * h.minute)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			_ = h.say(ctx, conn, session.ID, closingLine)
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation finished")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeTimeout))
			logger.Info().Msg("conversation finished")
			return
		case in := <-incoming:
			if in.err != nil {
				if websocket.IsUnexpectedCloseError(in.err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn().Err(in.err).Msg("read error")
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			if err := h.answer(ctx, conn, selected, session.ID, in.text, logger); err != nil {
				logger.Warn().Err(err).Msg("write failed")
				return
			}
		}
	}
}

// authenticate 等待客户端发送的 auth 帧并校验令牌
func (h *WebSocketHandler) authenticate(ctx context.Context, conn *websocket.Conn, logger zerolog.Logger) (account.User, bool) {
	conn.SetReadDeadline(time.Now().Add(h.authTimeout))

	_, data, err := conn.ReadMessage()
	if err != nil {
		logger.Debug().Err(err).Msg("no auth frame")
		return account.User{}, false
	}

	var envelope model.AuthEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Type != "auth" {
		h.reject(conn, "Error: authentication required.", websocket.ClosePolicyViolation)
		return account.User{}, false
	}

	user, err := h.verifier.Verify(ctx, envelope.Token)
	if err != nil {
		h.reject(conn, "Error: invalid token.", websocket.ClosePolicyViolation)
		return account.User{}, false
	}
	return user, true
}

func (h *WebSocketHandler) answer(ctx context.Context, conn *websocket.Conn, selected topic.Topic, sessionID, text string, logger zerolog.Logger) error {
	history, err := h.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := h.chatSvc.SaveMessage(ctx, chat.Message{SessionID: sessionID, Role: chat.RoleUser, Content: text}); err != nil {
		return err
	}

	reply, err := h.responder.Reply(ctx, selected, history, text)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err == nil {
			err = errors.New("empty reply")
		}
		logger.Warn().Err(err).Msg("responder failed")
		return writeText(conn, "Error: AI could not generate a response.")
	}
	return h.say(ctx, conn, sessionID, reply)
}

// say records an assistant line and sends it.
func (h *WebSocketHandler) say(ctx context.Context, conn *websocket.Conn, sessionID, text string) error {
	if err := h.chatSvc.SaveMessage(ctx, chat.Message{SessionID: sessionID, Role: chat.RoleAssistant, Content: text}); err != nil {
		return err
	}
	return writeText(conn, text)
}

func (h *WebSocketHandler) reject(conn *websocket.Conn, text string, code int) {
	_ = writeText(conn, text)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(writeTimeout))
}

func writeText(conn *websocket.Conn, text string) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func readLoop(ctx context.Context, conn *websocket.Conn, out chan<- inbound) {
	for {
		_, data, err := conn.ReadMessage()
		select {
		case out <- inbound{text: string(data), err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
