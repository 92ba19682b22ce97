package config

// Default values mirror the cadence the publish target tolerates: 1-minute
// polling, 5 seconds between jobs, 24-hour retention for downloaded media.

func applyDefaults(c *Config) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Store.Path == "" {
		c.Store.Path = "./repostbot.db"
	}

	if c.Scheduler.PollIntervalMinutes <= 0 {
		c.Scheduler.PollIntervalMinutes = 1
	}
	if c.Scheduler.InterJobDelaySeconds <= 0 {
		c.Scheduler.InterJobDelaySeconds = 5
	}
	if c.Scheduler.CleanupIntervalHours <= 0 {
		c.Scheduler.CleanupIntervalHours = 6
	}
	if c.Scheduler.CleanupMaxAgeHours <= 0 {
		c.Scheduler.CleanupMaxAgeHours = 24
	}

	if c.Browser.TargetURL == "" {
		c.Browser.TargetURL = "https://video.zalo.me/"
	}
	if c.Browser.DiagnosticsDir == "" {
		c.Browser.DiagnosticsDir = "./diagnostics"
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	}
	if c.Browser.PageLoadWaitSeconds <= 0 {
		c.Browser.PageLoadWaitSeconds = 2
	}
	if c.Browser.SessionReloadWaitSeconds <= 0 {
		c.Browser.SessionReloadWaitSeconds = 3
	}
	if c.Browser.ProcessingWaitSeconds <= 0 {
		c.Browser.ProcessingWaitSeconds = 10
	}
	if c.Browser.FinalizeWaitSeconds <= 0 {
		c.Browser.FinalizeWaitSeconds = 5
	}
	if c.Browser.ConfirmWaitSeconds <= 0 {
		c.Browser.ConfirmWaitSeconds = 5
	}
	if c.Browser.SelectorWaitSeconds <= 0 {
		c.Browser.SelectorWaitSeconds = 5
	}

	if c.Resolver.DownloadDir == "" {
		c.Resolver.DownloadDir = "./downloads"
	}
	if c.Resolver.RequestTimeoutSeconds <= 0 {
		c.Resolver.RequestTimeoutSeconds = 30
	}
	if c.Resolver.DownloadTimeoutSeconds <= 0 {
		c.Resolver.DownloadTimeoutSeconds = 120
	}

	if c.Telegram.SendTimeoutSeconds <= 0 {
		c.Telegram.SendTimeoutSeconds = 10
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
}
