package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errors []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	if c.Store.Path == "" {
		errors = append(errors, fmt.Errorf("store.path is required"))
	}

	if _, err := url.ParseRequestURI(c.Browser.TargetURL); err != nil {
		errors = append(errors, fmt.Errorf("invalid browser.target_url: %w", err))
	}

	if c.Resolver.APIURL == "" {
		errors = append(errors, fmt.Errorf("resolver.api_url is required"))
	} else if _, err := url.ParseRequestURI(c.Resolver.APIURL); err != nil {
		errors = append(errors, fmt.Errorf("invalid resolver.api_url: %w", err))
	}
	if c.Resolver.APIKey == "" {
		errors = append(errors, fmt.Errorf("resolver.api_key is required"))
	}

	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Telegram.Token); err != nil {
			errors = append(errors, err)
		}
	}

	return errors
}

// validateTelegramToken checks the bot token has the <id>:<secret> shape
// issued by BotFather.
func validateTelegramToken(token string) error {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 || parts[0] == "" || len(parts[1]) < 30 {
		return fmt.Errorf("invalid telegram.token format")
	}
	for _, r := range parts[0] {
		if r < '0' || r > '9' {
			return fmt.Errorf("invalid telegram.token: bot id must be numeric")
		}
	}
	return nil
}

// expandEnvVars expands ${VAR} references in string fields that commonly
// carry secrets or machine-specific paths.
func expandEnvVars(c *Config) {
	c.Telegram.Token = expandEnv(c.Telegram.Token)
	c.Resolver.APIKey = expandEnv(c.Resolver.APIKey)
	c.Resolver.APIURL = expandEnv(c.Resolver.APIURL)
	c.Store.Path = expandEnv(c.Store.Path)
	c.Resolver.DownloadDir = expandEnv(c.Resolver.DownloadDir)
	c.Browser.DiagnosticsDir = expandEnv(c.Browser.DiagnosticsDir)
}

// expandEnv expands a single ${VAR} or ${VAR:default} reference.
func expandEnv(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}

	inner := value[2 : len(value)-1]
	name, def, hasDefault := strings.Cut(inner, ":")

	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	if hasDefault {
		return def
	}
	return ""
}
