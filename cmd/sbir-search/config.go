// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/sbir-search/internal/creds"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// setDefaults registers the built-in endpoints and policy defaults, so a
// minimal config file only needs a [match] keywords list.
func setDefaults() {
	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.user_agent", "sbir-search/"+version)
	viper.SetDefault("http.retry_max", 3)
	viper.SetDefault("http.requests_per_second", 0)

	viper.SetDefault("match.min_score", 1)
	viper.SetDefault("match.open_only", true)
	viper.SetDefault("match.state_path", ".sbir-search/state.db")
	viper.SetDefault("match.rows", 50)
	viper.SetDefault("match.max_pages", 40)
	viper.SetDefault("match.api_base_urls", []string{
		"https://api.www.sbir.gov/public/api/solicitations",
	})

	viper.SetDefault("sam.enabled", false)
	viper.SetDefault("sam.fallback_only", true)
	viper.SetDefault("sam.title_query", "SBIR")
	viper.SetDefault("sam.posted_days", 364)
	viper.SetDefault("sam.limit", 100)
	viper.SetDefault("sam.max_pages", 5)
	viper.SetDefault("sam.ptype", "o")
	viper.SetDefault("sam.base_url", "https://api.sam.gov/opportunities/v2/search")

	viper.SetDefault("dod.enabled", true)
	viper.SetDefault("dod.fallback_only", true)
	viper.SetDefault("dod.topics_url", "https://www.darpa.mil/work-with-us/communities/small-business/sbir-sttr-topics")

	viper.SetDefault("nsf.enabled", true)
	viper.SetDefault("nsf.fallback_only", true)
	viper.SetDefault("nsf.solicitations_url", "https://seedfund.nsf.gov/solicitations/")

	viper.SetDefault("nih.enabled", true)
	viper.SetDefault("nih.fallback_only", true)
	viper.SetDefault("nih.feed_url", "https://grants.nih.gov/grants/guide/newsfeed/fundingopps.xml")
	viper.SetDefault("nih.required_terms", []string{"sbir", "sttr", "small business"})

	viper.SetDefault("rss.enabled", true)
	viper.SetDefault("rss.fallback_only", true)
	viper.SetDefault("rss.feed_urls", []string{
		"https://www.grants.gov/rss/GG_OppNewByAgency.xml",
		"https://www.grants.gov/rss/GG_OppNewByCategory.xml",
		"https://www.grants.gov/rss/GG_OppModByAgency.xml",
		"https://www.grants.gov/rss/GG_OppModByCategory.xml",
	})
}

// loadConfig unmarshals the merged viper state, layers in credentials from
// the environment and .secrets/, and validates it. Validation failures here
// are the only errors reported before any fetch begins.
func loadConfig() (*types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	resolveCredentials(&cfg)
	normalize(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveCredentials fills credential fields left empty by the config file.
// Environment variables win over .secrets/ files of the same name.
func resolveCredentials(cfg *types.Config) {
	if cfg.SAM.APIKey == "" {
		cfg.SAM.APIKey = creds.Resolve("SAM_API_KEY")
	}
	if cfg.Notify.DiscordWebhookURL == "" {
		cfg.Notify.DiscordWebhookURL = creds.Resolve("DISCORD_WEBHOOK_URL")
	}
	if cfg.Notify.DiscordBotToken == "" {
		cfg.Notify.DiscordBotToken = creds.ResolveToken("DISCORD_TOKEN")
	}
	if cfg.Notify.DiscordChannelID == "" {
		for _, name := range []string{"DISCORD_CHANNEL_ID", "DISCORD_CHANNEL", "DISCORD_ID"} {
			if v := creds.Resolve(name); v != "" {
				cfg.Notify.DiscordChannelID = v
				break
			}
		}
	}
	if cfg.Notify.Email.Enabled && cfg.Notify.Email.SMTPPass == "" {
		cfg.Notify.Email.SMTPPass = creds.Resolve("SMTP_PASS")
	}
}

func normalize(cfg *types.Config) {
	for i, agency := range cfg.Match.Agencies {
		cfg.Match.Agencies[i] = strings.ToUpper(agency)
	}
	for i, name := range cfg.Match.AlwaysIncludeSources {
		cfg.Match.AlwaysIncludeSources[i] = strings.ToLower(name)
	}
}

func validate(cfg *types.Config) error {
	if len(cfg.Match.Keywords) == 0 {
		return fmt.Errorf("config: match.keywords must list at least one term")
	}
	if cfg.Match.StatePath == "" {
		return fmt.Errorf("config: match.state_path is required")
	}

	// A credential missing for an enabled source that is expected to run
	// every pass is a configuration error, not a fetch-time failure.
	if cfg.SAM.Enabled && !cfg.SAM.FallbackOnly && cfg.SAM.APIKey == "" {
		return fmt.Errorf("config: sam enabled with fallback_only=false but SAM_API_KEY is not set")
	}
	return nil
}
