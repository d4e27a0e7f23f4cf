package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/line-relay/backend/internal/logging"
	"github.com/zhouzirui/line-relay/backend/internal/model/chat"
	linemodel "github.com/zhouzirui/line-relay/backend/internal/model/line"
	lineservice "github.com/zhouzirui/line-relay/backend/internal/service/line"
	"github.com/zhouzirui/line-relay/backend/pkg/utils"
)

// MaxBodyBytes 单次 webhook 投递的请求体上限。
const MaxBodyBytes = 1 << 20

// Dispatcher 处理已通过签名校验的事件。
type Dispatcher interface {
	Handle(ctx context.Context, events []chat.Event)
}

// Handler LINE webhook 的HTTP处理器
type Handler struct {
	secret     string
	dispatcher Dispatcher
	logger     *zap.Logger
}

// New 创建webhook处理器。secret 为空时所有投递返回 500。
func New(secret string, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{
		secret:     secret,
		dispatcher: dispatcher,
		logger:     logging.OrNop(logger).With(zap.String("component", "webhook")),
	}
}

// RegisterRoutes 注册webhook路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/callback", h.handleCallback)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" || h.dispatcher == nil {
		utils.RespondError(w, http.StatusInternalServerError, "LINE channel is not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if !lineservice.Verify(body, r.Header.Get(lineservice.SignatureHeader), h.secret) {
		h.logger.Warn("rejected delivery", zap.Error(lineservice.ErrInvalidSignature))
		utils.RespondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	hook, err := linemodel.ParseWebhook(body)
	if err != nil {
		h.logger.Warn("malformed delivery", zap.Error(err))
		utils.RespondError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	events := hook.ToEvents()
	h.logger.Debug("delivery accepted", zap.Int("events", len(events)))

	// LINE 断开连接后事件仍需回复
	h.dispatcher.Handle(context.WithoutCancel(r.Context()), events)

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
