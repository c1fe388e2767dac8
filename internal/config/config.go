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

// Config aggregates every configuration section of the service.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Mail      MailConfig
	Captcha   CaptchaConfig
	Widget    WidgetConfig
	RateLimit RateLimitConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	widget, err := loadWidgetConfig()
	if err != nil {
		return nil, err
	}

	rate, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Mail:      loadMailConfig(),
		Captcha:   loadCaptchaConfig(),
		Widget:    widget,
		RateLimit: rate,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the language model provider.
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

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: provide ARK_API_KEY + Model, or an AK/SK pair")
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

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
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
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// MailConfig describes the email delivery provider.
type MailConfig struct {
	APIKey string
	To     string
	From   string
}

// Enabled reports whether the provider credential and destination are set.
func (c MailConfig) Enabled() bool {
	return c.APIKey != "" && c.To != ""
}

func loadMailConfig() MailConfig {
	return MailConfig{
		APIKey: strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		To:     strings.TrimSpace(os.Getenv("CONTACT_TO_EMAIL")),
		From:   getEnvOrDefault("CONTACT_FROM", "Portfolio <onboarding@resend.dev>"),
	}
}

// CaptchaConfig describes the optional Turnstile verification step.
type CaptchaConfig struct {
	Secret    string
	VerifyURL string
}

// Enabled reports whether captcha verification is switched on.
func (c CaptchaConfig) Enabled() bool {
	return c.Secret != ""
}

func loadCaptchaConfig() CaptchaConfig {
	return CaptchaConfig{
		Secret:    strings.TrimSpace(os.Getenv("TURNSTILE_SECRET_KEY")),
		VerifyURL: getEnvOrDefault("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
	}
}

// WidgetConfig tunes the chat widget session behavior.
type WidgetConfig struct {
	IdleTimeout    time.Duration
	TypingInterval time.Duration
}

func loadWidgetConfig() (WidgetConfig, error) {
	idleMs, err := parseOptionalIntEnv("CHAT_AUTOCLEAR_MS")
	if err != nil {
		return WidgetConfig{}, err
	}
	idle := 60 * time.Second
	if idleMs != nil && *idleMs > 0 {
		idle = time.Duration(*idleMs) * time.Millisecond
	}

	typingMs, err := parseOptionalIntEnv("CHAT_TYPING_INTERVAL_MS")
	if err != nil {
		return WidgetConfig{}, err
	}
	typing := 28 * time.Millisecond
	if typingMs != nil && *typingMs > 0 {
		typing = time.Duration(*typingMs) * time.Millisecond
	}

	return WidgetConfig{IdleTimeout: idle, TypingInterval: typing}, nil
}

// RateLimitConfig holds per-endpoint sliding-window policies. The numbers
// are deployment policy, not protocol.
type RateLimitConfig struct {
	Window       time.Duration
	ReplyMax     int
	RelayChatMax int
	RelayFormMax int
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	cfg := RateLimitConfig{
		Window:       time.Minute,
		ReplyMax:     5,
		RelayChatMax: 3,
		RelayFormMax: 5,
	}

	if v, err := parseOptionalIntEnv("RATE_REPLY_PER_MIN"); err != nil {
		return RateLimitConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.ReplyMax = *v
	}

	if v, err := parseOptionalIntEnv("RATE_RELAY_CHAT_PER_MIN"); err != nil {
		return RateLimitConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.RelayChatMax = *v
	}

	if v, err := parseOptionalIntEnv("RATE_RELAY_FORM_PER_MIN"); err != nil {
		return RateLimitConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.RelayFormMax = *v
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
