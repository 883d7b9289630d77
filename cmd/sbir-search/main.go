// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sbir-search CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd runs one discovery pass. The crawl is the whole program, so it
// lives on the root command rather than a subcommand.
var rootCmd = &cobra.Command{
	Use:   "sbir-search",
	Short: "Discover new SBIR/STTR solicitations matching your keywords",
	Long: `sbir-search polls government solicitation sources for small-business
research opportunities, scores them against a keyword policy, and announces
each new match exactly once to Discord or email.

The SBIR.gov API is the primary source; SAM.gov, the DARPA topics page, the
NSF seedfund page, the NIH Guide feed, and the grants.gov RSS feeds act as
fallbacks when the primary is unhealthy. Seen opportunities are remembered
across runs, so a nightly schedule never re-announces an old solicitation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return crawl(cmd)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sbir-search.yaml or ~/.config/sbir-search/config.yaml)")
	rootCmd.Flags().Bool("dry-run", false, "evaluate and report matches without notifying or mutating state")
	rootCmd.Flags().Bool("explain", false, "emit the decision trace for every evaluated opportunity")
	rootCmd.Flags().String("report", "", "write the full run report as YAML to this path")

	rootCmd.Flags().String("test-discord", "", "send a test message through the notification transports and exit")
	rootCmd.Flags().Lookup("test-discord").NoOptDefVal = "sbir-search test message"
}

func initConfig() {
	// Credentials may live in a local .env during development.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sbir-search")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sbir-search"))
		}
	}

	setDefaults()

	viper.SetEnvPrefix("SBIR_SEARCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
