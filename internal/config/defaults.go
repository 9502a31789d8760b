package config

import "time"

// Default values keep a minimal config file workable. Anything set
// explicitly wins.
const (
	defaultSubmitPause    = 2 * time.Second
	defaultPerMinute      = 10
	defaultPerHour        = 100
	defaultPerDay         = 500
	defaultSweepInterval  = 10 * time.Minute
	defaultMaxAttempts    = 5
	defaultBaseDelay      = time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultAbuseMinimum   = 30 * time.Second
	defaultInterval       = 10 * time.Minute
	defaultHTTPPort       = 8080
	defaultAdminPort      = 9090
	defaultStateDB        = "attestbot.db"
	defaultLedgerTimeout  = 20 * time.Second
	defaultGatewayTimeout = 30 * time.Second
	defaultPollInterval   = 2 * time.Second
	defaultNATSSubject    = "attestbot.attestation.recorded"
	defaultNATSStream     = "ATTESTBOT"
)

func (c *Config) applyDefaults() {
	if c.Watch.SubmitPause <= 0 {
		c.Watch.SubmitPause = defaultSubmitPause
	}
	if c.RateLimit.PerMinute <= 0 {
		c.RateLimit.PerMinute = defaultPerMinute
	}
	if c.RateLimit.PerHour <= 0 {
		c.RateLimit.PerHour = defaultPerHour
	}
	if c.RateLimit.PerDay <= 0 {
		c.RateLimit.PerDay = defaultPerDay
	}
	if c.RateLimit.SweepInterval <= 0 {
		c.RateLimit.SweepInterval = defaultSweepInterval
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultMaxAttempts
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = defaultBaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = defaultMaxDelay
	}
	if c.Retry.AbuseMinimum <= 0 {
		c.Retry.AbuseMinimum = defaultAbuseMinimum
	}
	if c.Daemon.Interval <= 0 {
		c.Daemon.Interval = defaultInterval
	}
	if c.Daemon.HTTPPort == 0 {
		c.Daemon.HTTPPort = defaultHTTPPort
	}
	if c.Daemon.AdminPort == 0 {
		c.Daemon.AdminPort = defaultAdminPort
	}
	if c.Daemon.StateDB == "" {
		c.Daemon.StateDB = defaultStateDB
	}
	if c.Ledger.RequestTimeout <= 0 {
		c.Ledger.RequestTimeout = defaultLedgerTimeout
	}
	if c.Settlement.RequestTimeout <= 0 {
		c.Settlement.RequestTimeout = defaultGatewayTimeout
	}
	if c.Settlement.PollInterval <= 0 {
		c.Settlement.PollInterval = defaultPollInterval
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = defaultNATSSubject
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = defaultNATSStream
	}
	for _, f := range c.Forges {
		if f.Type == ForgeGitHub {
			if f.APIURL == "" {
				f.APIURL = "https://api.github.com"
			}
			if f.BaseURL == "" {
				f.BaseURL = "https://github.com"
			}
			if f.Domain == "" {
				f.Domain = "github.com"
			}
		}
	}
}
