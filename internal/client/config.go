package client

import (
	"fmt"
	"net/url"
	"time"

	env "github.com/Netflix/go-env"
)

const (
	defaultServerAddr       = "localhost:8080"
	defaultPath             = "/ws"
	defaultReadyTimeout     = 3 * time.Second
	defaultHandshakeTimeout = 5 * time.Second
	defaultSendBufferSize   = 64
)

// Config describes how the terminal client reaches the relay.
type Config struct {
	ServerAddr       string        `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Path             string        `env:"CHAT_WS_PATH,default=/ws"`
	TLS              bool          `env:"CHAT_TLS,default=false"`
	Username         string        `env:"CHAT_USERNAME"`
	Origin           string        `env:"CHAT_ORIGIN"`
	ReadyTimeout     time.Duration `env:"CHAT_READY_TIMEOUT,default=3s"`
	HandshakeTimeout time.Duration `env:"CHAT_HANDSHAKE_TIMEOUT,default=5s"`
	SendBufferSize   int           `env:"CHAT_SEND_BUFFER_SIZE,default=64"`
	LogLevel         string        `env:"LOG_LEVEL,default=WARN"`
}

// NewConfig returns a Config with every default applied.
func NewConfig() Config {
	return Config{
		ServerAddr:       defaultServerAddr,
		Path:             defaultPath,
		ReadyTimeout:     defaultReadyTimeout,
		HandshakeTimeout: defaultHandshakeTimeout,
		SendBufferSize:   defaultSendBufferSize,
		LogLevel:         "WARN",
	}
}

// LoadConfig reads the client configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := NewConfig()
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg.Sanitize(), nil
}

// Sanitize replaces invalid values with defaults.
func (c Config) Sanitize() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = defaultServerAddr
	}
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = defaultReadyTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	return c
}

// URL is the WebSocket endpoint.
func (c Config) URL() string {
	scheme := "ws"
	if c.TLS {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: c.ServerAddr, Path: c.Path}
	return u.String()
}
