package devchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/line-relay/backend/internal/logging"
	"github.com/zhouzirui/line-relay/backend/internal/model/chat"
	"github.com/zhouzirui/line-relay/backend/internal/service/dispatch"
)

// Dispatcher 为每个连接绑定独立的发送器。
type Dispatcher interface {
	WithSender(s dispatch.Sender) *dispatch.Dispatcher
}

// WebSocketHandler 开发调试用的 WebSocket 通道，每一帧文本视为一条 LINE 文本消息。
type WebSocketHandler struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(dispatcher Dispatcher, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		dispatcher: dispatcher,
		logger:     logging.OrNop(logger).With(zap.String("component", "devchat")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dev/ws", h.handleWebSocket)
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Target    string `json:"target,omitempty"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

var errConnectionClosed = errors.New("dev channel connection closed")

// connSender 将回复与推送写回连接。gorilla/websocket 只允许一个并发写入者，
// 而异步推送来自后台任务，因此写入需加锁。
type connSender struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (s *connSender) Reply(_ context.Context, replyToken, text string) error {
	return s.write(outgoingMessage{Type: "reply", Target: replyToken, Text: text})
}

func (s *connSender) Push(_ context.Context, to, text string) error {
	return s.write(outgoingMessage{Type: "push", Target: to, Text: text})
}

func (s *connSender) write(msg outgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errConnectionClosed
	}
	msg.Timestamp = time.Now().Unix()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(msg)
}

func (s *connSender) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errConnectionClosed
	}
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

func (s *connSender) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		http.Error(w, "user query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("user", userID))
	logger.Info("dev channel connected")

	sender := &connSender{conn: conn}
	defer sender.close()
	dispatcher := h.dispatcher.WithSender(sender)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, sender)

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if msgType != websocket.TextMessage {
			continue
		}
		event := chat.NewTextEvent(userID, uuid.NewString(), string(payload))
		dispatcher.Handle(ctx, []chat.Event{event})
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, sender *connSender) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sender.ping(); err != nil {
				return
			}
		}
	}
}
