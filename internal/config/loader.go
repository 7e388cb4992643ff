package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix             = "CHANNELCHAT"
	envConfigDefaultPath  = "CHANNELCHAT_CONFIG_DEFAULT_PATH"
	defaultServerFileName = "server.yaml"
	defaultClientFileName = "chat.yaml"
)

// LoadServer builds server configuration from defaults, optional config file,
// env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func LoadServer(logger *zerolog.Logger, explicitPath string) (ServerConfig, string, error) {
	cfg := DefaultServer()
	path, err := load(logger, resolveConfigPath(explicitPath, defaultServerFileName), map[string]any{
		"addr":                 cfg.Addr,
		"read_header_timeout":  cfg.ReadHeaderTimeout,
		"shutdown_timeout":     cfg.ShutdownTimeout,
		"database_path":        cfg.DatabasePath,
		"jwt_secret":           cfg.JWTSecret,
		"jwt_issuer":           cfg.JWTIssuer,
		"jwt_ttl":              cfg.JWTTTL,
		"max_message_bytes":    cfg.MaxMessageBytes,
		"ws_frames_per_minute": cfg.WSFramesPerMinute,
		"history_limit":        cfg.HistoryLimit,
		"log_level":            cfg.LogLevel,
	}, &cfg)
	return cfg, path, err
}

// LoadClient builds client configuration the same way as LoadServer.
func LoadClient(logger *zerolog.Logger, explicitPath string) (ClientConfig, string, error) {
	cfg := DefaultClient()
	path, err := load(logger, resolveConfigPath(explicitPath, defaultClientFileName), map[string]any{
		"api_url":         cfg.APIURL,
		"ws_url":          cfg.WSURL,
		"db_path":         cfg.DBPath,
		"request_timeout": cfg.RequestTimeout,
		"log_level":       cfg.LogLevel,
	}, &cfg)
	return cfg, path, err
}

// load reads configPath into cfg, writing cfg as the default file when the
// path does not exist yet. cfg must hold the defaults on entry.
func load(logger *zerolog.Logger, configPath string, defaults map[string]any, cfg any) (string, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return configPath, nil
}

func resolveConfigPath(explicitPath, fileName string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, fileName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fileName
	}
	return filepath.Join(cwd, fileName)
}

func writeDefaultConfig(path string, cfg any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
