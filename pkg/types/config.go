// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every adapter and transport.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request
	// (e.g. "sbir-search/0.1").
	UserAgent string `mapstructure:"user_agent"`

	// RetryMax is the number of retry attempts on 429/5xx responses.
	RetryMax int `mapstructure:"retry_max"`

	// RequestsPerSecond caps the outbound request rate shared by the
	// JSON API adapters. Zero disables the limiter.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// MatchConfig holds the keyword policy and the primary SBIR.gov source
// settings.
type MatchConfig struct {
	// Keywords are the case-insensitive terms counted toward the score.
	Keywords []string `mapstructure:"keywords"`

	// ExcludeKeywords veto an opportunity outright when any appears.
	ExcludeKeywords []string `mapstructure:"exclude_keywords"`

	// MinScore is the minimum number of distinct keyword hits required.
	MinScore int `mapstructure:"min_score"`

	// Agencies is an optional allow-list of agency codes; empty allows all.
	Agencies []string `mapstructure:"agencies"`

	// OpenOnly restricts matches to opportunities currently accepting
	// submissions.
	OpenOnly bool `mapstructure:"open_only"`

	// AlwaysIncludeSources lists source names whose opportunities bypass
	// the score threshold (agency and open filters still apply).
	AlwaysIncludeSources []string `mapstructure:"always_include_sources"`

	// MatchFields names the Opportunity text fields scanned for keywords.
	MatchFields []string `mapstructure:"match_fields"`

	// StatePath is the location of the persisted seen-id database.
	StatePath string `mapstructure:"state_path"`

	// Rows is the page size for the SBIR.gov API (capped at 50).
	Rows int `mapstructure:"rows"`

	// MaxPages bounds SBIR.gov pagination.
	MaxPages int `mapstructure:"max_pages"`

	// APIBaseURLs lists SBIR.gov endpoints probed in order; the first one
	// that answers is used for the run.
	APIBaseURLs []string `mapstructure:"api_base_urls"`
}

// EmailConfig holds the optional SMTP notification transport settings.
type EmailConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SMTPServer string `mapstructure:"smtp_server"`
	SMTPPort   int    `mapstructure:"smtp_port"`
	SMTPUser   string `mapstructure:"smtp_user"`
	SMTPPass   string `mapstructure:"smtp_pass"`
	FromEmail  string `mapstructure:"from_email"`
	ToEmail    string `mapstructure:"to_email"`
}

// NotifyConfig holds the notification transport settings. The webhook is
// preferred when configured; the bot API is the fallback Discord path.
type NotifyConfig struct {
	DiscordWebhookURL string      `mapstructure:"discord_webhook_url"`
	DiscordBotToken   string      `mapstructure:"discord_bot_token"`
	DiscordChannelID  string      `mapstructure:"discord_channel_id"`
	Email             EmailConfig `mapstructure:"email"`
}

// SAMConfig holds settings for the SAM.gov opportunities API.
type SAMConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	FallbackOnly bool   `mapstructure:"fallback_only"`
	APIKey       string `mapstructure:"api_key"`
	TitleQuery   string `mapstructure:"title_query"`
	PostedDays   int    `mapstructure:"posted_days"`
	Limit        int    `mapstructure:"limit"`
	MaxPages     int    `mapstructure:"max_pages"`
	PType        string `mapstructure:"ptype"`
	BaseURL      string `mapstructure:"base_url"`
}

// DODConfig holds settings for the DARPA SBIR/STTR topics page.
type DODConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	FallbackOnly bool   `mapstructure:"fallback_only"`
	TopicsURL    string `mapstructure:"topics_url"`
}

// NSFConfig holds settings for the NSF seedfund solicitations page.
type NSFConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	FallbackOnly     bool   `mapstructure:"fallback_only"`
	SolicitationsURL string `mapstructure:"solicitations_url"`
}

// NIHConfig holds settings for the NIH Guide funding feed.
type NIHConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	FallbackOnly bool     `mapstructure:"fallback_only"`
	FeedURL      string   `mapstructure:"feed_url"`

	// RequiredTerms prefilters feed entries: at least one term must appear
	// in the title or summary (the feed carries far more than SBIR items).
	RequiredTerms []string `mapstructure:"required_terms"`
}

// RSSConfig holds settings for the grants.gov RSS feeds.
type RSSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	FallbackOnly bool     `mapstructure:"fallback_only"`
	FeedURLs     []string `mapstructure:"feed_urls"`
}

// Config groups all configuration for one run.
type Config struct {
	HTTP   HTTPConfig   `mapstructure:"http"`
	Match  MatchConfig  `mapstructure:"match"`
	Notify NotifyConfig `mapstructure:"notify"`
	SAM    SAMConfig    `mapstructure:"sam"`
	DOD    DODConfig    `mapstructure:"dod"`
	NSF    NSFConfig    `mapstructure:"nsf"`
	NIH    NIHConfig    `mapstructure:"nih"`
	RSS    RSSConfig    `mapstructure:"rss"`

	// ShowWarnings prints per-source fetch warnings to stderr.
	ShowWarnings bool `mapstructure:"show_warnings"`
}
