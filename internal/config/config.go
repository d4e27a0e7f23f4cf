package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server      ServerConfig
	LINE        LINEConfig
	Gateway     GatewayConfig
	Ollama      OllamaConfig
	HF          HFConfig
	OpenAI      OpenAIConfig
	Ark         ArkConfig
	Gemini      GeminiConfig
	Reply       ReplyConfig
	Dispatch    DispatchConfig
	PersonaFile string
	DevChannel  bool
	LogLevel    string
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	gateway, err := loadGatewayConfig()
	if err != nil {
		return nil, err
	}

	ark, err := loadArkConfig()
	if err != nil {
		return nil, err
	}

	reply, err := loadReplyConfig()
	if err != nil {
		return nil, err
	}

	dispatch, err := loadDispatchConfig()
	if err != nil {
		return nil, err
	}

	devChannel, err := parseBoolEnv("DEV_CHANNEL", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		LINE:    loadLINEConfig(),
		Gateway: gateway,
		Ollama: OllamaConfig{
			BaseURL: strings.TrimRight(getEnvOrDefault("OLLAMA_API_URL", "http://localhost:11434"), "/"),
			Model:   getEnvOrDefault("OLLAMA_MODEL", "qwen3:8b"),
		},
		HF: HFConfig{
			BaseURL: strings.TrimRight(getEnvOrDefault("HF_API_URL", "https://api-inference.huggingface.co"), "/"),
			Token:   strings.TrimSpace(os.Getenv("HF_TOKEN")),
			Model:   strings.TrimSpace(os.Getenv("HF_MODEL")),
		},
		OpenAI: OpenAIConfig{
			BaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Ark: ark,
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Reply:       reply,
		Dispatch:    dispatch,
		PersonaFile: strings.TrimSpace(os.Getenv("PERSONA_FILE")),
		DevChannel:  devChannel,
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LINEConfig 描述 LINE Messaging API 凭证。
type LINEConfig struct {
	ChannelSecret string
	AccessToken   string
	APIBase       string
}

// Enabled 表示 webhook 所需的两个凭证是否都已提供。
func (c LINEConfig) Enabled() bool {
	return c.ChannelSecret != "" && c.AccessToken != ""
}

func loadLINEConfig() LINEConfig {
	return LINEConfig{
		ChannelSecret: strings.TrimSpace(os.Getenv("LINE_CHANNEL_SECRET")),
		AccessToken:   strings.TrimSpace(os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")),
		APIBase:       strings.TrimRight(getEnvOrDefault("LINE_API_BASE", "https://api.line.me"), "/"),
	}
}

// GatewayConfig 描述推理网关的 provider 顺序与生成参数。
type GatewayConfig struct {
	Order          []string
	MaxTokens      int
	Temperature    float64
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DefaultProviderOrder 未设置 PROVIDER_ORDER 时使用：本地优先，托管其次。
var DefaultProviderOrder = []string{"ollama", "hf", "openai", "ark", "gemini"}

func loadGatewayConfig() (GatewayConfig, error) {
	cfg := GatewayConfig{
		Order:          DefaultProviderOrder,
		MaxTokens:      512,
		Temperature:    0.3,
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 30 * time.Second,
	}

	if raw := strings.TrimSpace(os.Getenv("PROVIDER_ORDER")); raw != "" {
		cfg.Order = splitList(raw)
	}

	maxTokens, err := parseOptionalIntEnv("GEN_MAX_TOKENS")
	if err != nil {
		return GatewayConfig{}, err
	}
	if maxTokens != nil {
		if *maxTokens < 1 {
			return GatewayConfig{}, fmt.Errorf("invalid GEN_MAX_TOKENS value %d: must be positive", *maxTokens)
		}
		cfg.MaxTokens = *maxTokens
	}

	temperature, err := parseOptionalFloatEnv("GEN_TEMPERATURE")
	if err != nil {
		return GatewayConfig{}, err
	}
	if temperature != nil {
		cfg.Temperature = *temperature
	}

	return cfg, nil
}

// OllamaConfig 描述本地 Ollama 服务。
type OllamaConfig struct {
	BaseURL string
	Model   string
}

// Enabled 表示是否配置了 Ollama。
func (c OllamaConfig) Enabled() bool {
	return c.BaseURL != "" && c.Model != ""
}

// HFConfig 描述托管推理 API。
type HFConfig struct {
	BaseURL string
	Token   string
	Model   string
}

// Enabled 表示是否配置了托管推理 API。
func (c HFConfig) Enabled() bool {
	return c.Token != "" && c.Model != ""
}

// OpenAIConfig 描述 OpenAI 兼容接口。
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Enabled 表示是否配置了 OpenAI 兼容接口。
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// GeminiConfig 描述 Gemini API。
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Enabled 表示是否配置了 Gemini。
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// ArkConfig 描述 Ark 大模型相关配置。
type ArkConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
	TopP      *float64
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。生成参数由调用方按次传入。
func (c ArkConfig) NewChatModel(ctx context.Context, timeout time.Duration) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
		TopP:      topP,
		Timeout:   &timeout,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadArkConfig() (ArkConfig, error) {
	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return ArkConfig{}, err
	}

	return ArkConfig{
		APIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:     strings.TrimSpace(os.Getenv("Model")),
		BaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
		TopP:      topP,
	}, nil
}

// ReplyConfig 描述回复后处理策略。
type ReplyConfig struct {
	MaxChars       int
	Suffix         string
	StripReasoning bool
}

func loadReplyConfig() (ReplyConfig, error) {
	maxChars := 4900
	if override, err := parseOptionalIntEnv("REPLY_MAX_CHARS"); err != nil {
		return ReplyConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ReplyConfig{}, fmt.Errorf("invalid REPLY_MAX_CHARS value %d: must be positive", *override)
		}
		maxChars = *override
	}

	strip, err := parseBoolEnv("REPLY_STRIP_REASONING", true)
	if err != nil {
		return ReplyConfig{}, err
	}

	return ReplyConfig{
		MaxChars:       maxChars,
		Suffix:         strings.TrimSpace(os.Getenv("REPLY_SUFFIX")),
		StripReasoning: strip,
	}, nil
}

// DISPATCH_MODE 支持的回复模式。
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// DispatchConfig 描述事件分发行为。
type DispatchConfig struct {
	Mode         string
	EventTimeout time.Duration
	AsyncWorkers int
}

func loadDispatchConfig() (DispatchConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("DISPATCH_MODE", ModeSync))
	if mode != ModeSync && mode != ModeAsync {
		return DispatchConfig{}, fmt.Errorf("invalid DISPATCH_MODE value %q: want %s or %s", mode, ModeSync, ModeAsync)
	}

	timeout, err := parseOptionalDurationEnv("EVENT_TIMEOUT")
	if err != nil {
		return DispatchConfig{}, err
	}
	eventTimeout := 45 * time.Second
	if timeout != nil {
		eventTimeout = *timeout
	}

	workers := 8
	if override, err := parseOptionalIntEnv("ASYNC_WORKERS"); err != nil {
		return DispatchConfig{}, err
	} else if override != nil && *override > 0 {
		workers = *override
	}

	return DispatchConfig{Mode: mode, EventTimeout: eventTimeout, AsyncWorkers: workers}, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseOptionalDurationEnv 接受 Go duration（"45s"）或纯秒数（"45"）。
func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		d := time.Duration(seconds) * time.Second
		return &d, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("invalid %s value %q: must be positive", key, value)
	}
	return &d, nil
}
