// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay service.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/samber/lo"
)

const (
	defaultPort            = ":8080"
	defaultMaxMessageSize  = protocol.MaxFrameSize
	defaultSendBufferSize  = 256
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultCensorCharacter = '*'
)

// RateLimitConfig defines the parameters for per-connection publish rate
// limiting. A Burst of zero disables the limiter.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings. Fields are read from the
// environment by LoadConfig.
type Config struct {
	Port               string        `env:"SERVER_PORT,default=:8080"`
	AllowedOriginsRaw  string        `env:"ALLOWED_ORIGINS,default=*"`
	MaxMessageSize     int           `env:"MAX_MESSAGE_SIZE"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST,default=0"`
	RateLimitRefill    time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`
	SendBufferSize     int           `env:"SEND_BUFFER_SIZE,default=256"`
	CensoredWordsRaw   string        `env:"CENSORED_WORDS"`
	CensorCharacterRaw string        `env:"CENSOR_CHARACTER,default=*"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	LogLevel           string        `env:"LOG_LEVEL,default=INFO"`
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() Config {
	return Config{
		Port:               defaultPort,
		AllowedOriginsRaw:  "*",
		MaxMessageSize:     defaultMaxMessageSize,
		RateLimitRefill:    defaultRefillInterval,
		SendBufferSize:     defaultSendBufferSize,
		CensorCharacterRaw: string(defaultCensorCharacter),
		ShutdownTimeout:    defaultShutdownTimeout,
		LogLevel:           "INFO",
	}
}

// LoadConfig reads the configuration from environment variables and falls
// back to defaults for anything unset or out of range.
func LoadConfig() (Config, error) {
	cfg := NewConfig()
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg.Sanitize(), nil
}

// Sanitize replaces invalid values with defaults.
func (c Config) Sanitize() Config {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.RateLimitBurst < 0 {
		c.RateLimitBurst = 0
	}
	if c.RateLimitRefill <= 0 {
		c.RateLimitRefill = defaultRefillInterval
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	return c
}

// RateLimit returns the per-connection limiter settings.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{Burst: c.RateLimitBurst, RefillInterval: c.RateLimitRefill}
}

// AllowedOrigins splits ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	return splitList(c.AllowedOriginsRaw)
}

// CensoredWords splits CENSORED_WORDS on commas.
func (c Config) CensoredWords() []string {
	return splitList(c.CensoredWordsRaw)
}

// CensorCharacter returns the first rune of CENSOR_CHARACTER.
func (c Config) CensorCharacter() rune {
	for _, r := range c.CensorCharacterRaw {
		return r
	}
	return defaultCensorCharacter
}

func splitList(raw string) []string {
	parts := lo.Map(strings.Split(raw, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Compact(parts)
}
