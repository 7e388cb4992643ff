package config

import "time"

// ServerConfig holds reference server configuration values.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTTTL            time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	WSFramesPerMinute int           `mapstructure:"ws_frames_per_minute" yaml:"ws_frames_per_minute"`
	HistoryLimit      int           `mapstructure:"history_limit" yaml:"history_limit"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultServer returns configuration with reasonable starter defaults.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "channelchat.db",
		JWTSecret:         "change-me",
		JWTIssuer:         "channelchat",
		JWTTTL:            30 * 24 * time.Hour,
		MaxMessageBytes:   4096,
		WSFramesPerMinute: 120,
		HistoryLimit:      200,
		LogLevel:          "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *ServerConfig) UpdateFrom(other ServerConfig) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTTTL != 0 {
		c.JWTTTL = other.JWTTTL
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.WSFramesPerMinute != 0 {
		c.WSFramesPerMinute = other.WSFramesPerMinute
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// ClientConfig holds terminal client configuration values.
type ClientConfig struct {
	APIURL         string        `mapstructure:"api_url" yaml:"api_url"`
	WSURL          string        `mapstructure:"ws_url" yaml:"ws_url"`
	DBPath         string        `mapstructure:"db_path" yaml:"db_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultClient returns client defaults pointing at a local server.
func DefaultClient() ClientConfig {
	return ClientConfig{
		APIURL:         "http://localhost:8080/api",
		WSURL:          "ws://localhost:8080/ws",
		DBPath:         "chat-session.db",
		RequestTimeout: 10 * time.Second,
		LogLevel:       "warn",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *ClientConfig) UpdateFrom(other ClientConfig) {
	if other.APIURL != "" {
		c.APIURL = other.APIURL
	}
	if other.WSURL != "" {
		c.WSURL = other.WSURL
	}
	if other.DBPath != "" {
		c.DBPath = other.DBPath
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
