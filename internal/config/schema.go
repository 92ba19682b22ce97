// Package config provides configuration loading and validation for repostbot.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [logging]: Logging level, format, and output
//   - [store]: SQLite database location
//   - [scheduler]: Poll cadence, inter-job delay, temp-file cleanup policy
//   - [browser]: Browser automation settings and per-step waits
//   - [resolver]: Media resolver API and download directory
//   - [telegram]: Telegram bot settings (commands and notifications)
//   - [metrics]: Prometheus metrics endpoint
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax, for example: token = "${BOT_TOKEN}".
package config

// Config represents the main application configuration.
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	Store     StoreConfig     `toml:"store"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Browser   BrowserConfig   `toml:"browser"`
	Resolver  ResolverConfig  `toml:"resolver"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// StoreConfig configures the SQLite job store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// SchedulerConfig configures the job poller and temp-file cleanup.
type SchedulerConfig struct {
	PollIntervalMinutes  int `toml:"poll_interval_minutes"`
	InterJobDelaySeconds int `toml:"inter_job_delay_seconds"`
	CleanupIntervalHours int `toml:"cleanup_interval_hours"`
	CleanupMaxAgeHours   int `toml:"cleanup_max_age_hours"`
}

// BrowserConfig configures the browser automation controller.
// The *_wait_seconds values are fixed waits standing in for server-side
// processing the target UI exposes no completion signal for.
type BrowserConfig struct {
	Headless                 bool   `toml:"headless"`
	Stealth                  bool   `toml:"stealth"`
	TargetURL                string `toml:"target_url"`
	DiagnosticsDir           string `toml:"diagnostics_dir"`
	UserAgent                string `toml:"user_agent"`
	PageLoadWaitSeconds      int    `toml:"page_load_wait_seconds"`
	SessionReloadWaitSeconds int    `toml:"session_reload_wait_seconds"`
	ProcessingWaitSeconds    int    `toml:"processing_wait_seconds"`
	FinalizeWaitSeconds      int    `toml:"finalize_wait_seconds"`
	ConfirmWaitSeconds       int    `toml:"confirm_wait_seconds"`
	SelectorWaitSeconds      int    `toml:"selector_wait_seconds"`
}

// ResolverConfig configures the media resolver API client.
type ResolverConfig struct {
	APIURL                 string `toml:"api_url"`
	APIKey                 string `toml:"api_key"`
	DownloadDir            string `toml:"download_dir"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	Enabled            bool     `toml:"enabled"`
	Token              string   `toml:"token"`
	AllowedUsers       []string `toml:"allowed_users"`
	SendTimeoutSeconds int      `toml:"send_timeout_seconds"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}
