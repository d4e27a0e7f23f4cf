package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/line-relay/backend/pkg/utils"
)

// Gateway 暴露推理网关的 provider 状态。
type Gateway interface {
	Providers() []string
	Sticky() string
}

// Sessions 报告当前会话数量。
type Sessions interface {
	Len() int
}

// Handler 健康检查与网关状态的HTTP处理器
type Handler struct {
	gateway  Gateway
	sessions Sessions
	mode     string
}

// New 创建健康检查处理器。mode 为分发器的回复模式。
func New(gateway Gateway, sessions Sessions, mode string) *Handler {
	return &Handler{gateway: gateway, sessions: sessions, mode: mode}
}

// RegisterRoutes 注册 /healthz 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
}

// RegisterAPIRoutes 在 API 前缀下注册 /gateway 路由
func (h *Handler) RegisterAPIRoutes(r chi.Router) {
	r.Get("/gateway", h.handleGateway)
}

type gatewayState struct {
	Providers []string `json:"providers"`
	Sticky    string   `json:"sticky"`
}

type healthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
	gatewayState
	Sessions int `json:"sessions"`
}

func (h *Handler) state() gatewayState {
	state := gatewayState{Providers: []string{}}
	if h.gateway != nil {
		state.Providers = append(state.Providers, h.gateway.Providers()...)
		state.Sticky = h.gateway.Sticky()
	}
	return state
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Mode: h.mode, gatewayState: h.state()}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGateway(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.state())
}
