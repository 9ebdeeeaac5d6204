package core

import "time"

// Config is the high-level configuration consumed by NewFromConfig.
// Zero durations fall back to the documented defaults.
type Config struct {
	// BaseURL is used to build links embedded in outgoing email
	// (magic-link and password-reset). Paths are fixed: /magic, /reset,
	// and /admin/reset.
	BaseURL string

	UserSessionTTL  time.Duration // default 7 days
	AdminSessionTTL time.Duration // default 24 hours
	MagicLinkTTL    time.Duration // default 30 minutes
	ResetTokenTTL   time.Duration // default 1 hour
}

// Options is the resolved, immutable configuration held by a Service.
type Options struct {
	BaseURL         string
	UserSessionTTL  time.Duration
	AdminSessionTTL time.Duration
	MagicLinkTTL    time.Duration
	ResetTokenTTL   time.Duration
}

const (
	defaultUserSessionTTL = 7 * 24 * time.Hour
	// Admin sessions are deliberately shorter: admin access is
	// higher-privilege.
	defaultAdminSessionTTL = 24 * time.Hour
	defaultMagicLinkTTL    = 30 * time.Minute
	defaultResetTokenTTL   = time.Hour
)

func optionsFromConfig(cfg Config) Options {
	o := Options{
		BaseURL:         cfg.BaseURL,
		UserSessionTTL:  cfg.UserSessionTTL,
		AdminSessionTTL: cfg.AdminSessionTTL,
		MagicLinkTTL:    cfg.MagicLinkTTL,
		ResetTokenTTL:   cfg.ResetTokenTTL,
	}
	if o.UserSessionTTL <= 0 {
		o.UserSessionTTL = defaultUserSessionTTL
	}
	if o.AdminSessionTTL <= 0 {
		o.AdminSessionTTL = defaultAdminSessionTTL
	}
	if o.MagicLinkTTL <= 0 {
		o.MagicLinkTTL = defaultMagicLinkTTL
	}
	if o.ResetTokenTTL <= 0 {
		o.ResetTokenTTL = defaultResetTokenTTL
	}
	return o
}
