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
	Server ServerConfig
	Auth   AuthConfig
	AI     AIConfig
	Client ClientConfig
	Debug  bool
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	debug, err := parseBoolEnv("PARLEY_DEBUG", false)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Auth: auth, AI: ai, Client: client, Debug: debug}, nil
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

// AuthConfig 描述令牌签发配置。
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
	// ResetLinkBase is prefixed to reset tokens in the link sent to users.
	ResetLinkBase string
}

const devSecret = "parley-dev-secret"

func loadAuthConfig() (AuthConfig, error) {
	ttl, err := parseDurationEnv("PARLEY_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}
	if ttl <= 0 {
		return AuthConfig{}, fmt.Errorf("invalid PARLEY_TOKEN_TTL value %q: must be positive", ttl)
	}

	return AuthConfig{
		Secret:        getEnvOrDefault("PARLEY_JWT_SECRET", devSecret),
		TokenTTL:      ttl,
		ResetLinkBase: getEnvOrDefault("PARLEY_RESET_URL", "http://localhost:3000/reset-password/"),
	}, nil
}

// DevSecret reports whether tokens are signed with the built-in development secret.
func (c AuthConfig) DevSecret() bool {
	return c.Secret == devSecret
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// ClientConfig 描述 CLI 客户端配置。
type ClientConfig struct {
	APIBaseURL       string
	TokenPath        string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	BufferLimit      int
	MaxAttempts      int
	RetryBackoff     time.Duration
}

func loadClientConfig() (ClientConfig, error) {
	handshake, err := parseDurationEnv("PARLEY_HANDSHAKE_TIMEOUT", 0)
	if err != nil {
		return ClientConfig{}, err
	}

	ping, err := parseDurationEnv("PARLEY_PING_INTERVAL", 30*time.Second)
	if err != nil {
		return ClientConfig{}, err
	}

	read, err := parseDurationEnv("PARLEY_READ_TIMEOUT", 60*time.Second)
	if err != nil {
		return ClientConfig{}, err
	}

	backoff, err := parseDurationEnv("PARLEY_RETRY_BACKOFF", time.Second)
	if err != nil {
		return ClientConfig{}, err
	}

	bufferLimit := 0
	if limit, err := parseOptionalIntEnv("PARLEY_BUFFER_LIMIT"); err != nil {
		return ClientConfig{}, err
	} else if limit != nil && *limit > 0 {
		bufferLimit = *limit
	}

	attempts := 1
	if override, err := parseOptionalIntEnv("PARLEY_MAX_ATTEMPTS"); err != nil {
		return ClientConfig{}, err
	} else if override != nil && *override > 1 {
		attempts = *override
	}

	return ClientConfig{
		APIBaseURL:       strings.TrimSuffix(getEnvOrDefault("PARLEY_API_URL", "http://localhost:8000"), "/"),
		TokenPath:        strings.TrimSpace(os.Getenv("PARLEY_TOKEN_FILE")),
		HandshakeTimeout: handshake,
		PingInterval:     ping,
		ReadTimeout:      read,
		BufferLimit:      bufferLimit,
		MaxAttempts:      attempts,
		RetryBackoff:     backoff,
	}, nil
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

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
