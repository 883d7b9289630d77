// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/internal/match"
	"github.com/pdiddy/sbir-search/internal/notify"
	"github.com/pdiddy/sbir-search/internal/run"
	"github.com/pdiddy/sbir-search/internal/sources"
	"github.com/pdiddy/sbir-search/internal/state"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// crawl executes one discovery pass, or just the notification test when
// --test-discord is present. A returned error maps to a non-zero exit.
func crawl(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := httputil.NewClient(cfg.HTTP)

	if cmd.Flags().Changed("test-discord") {
		message, _ := cmd.Flags().GetString("test-discord")
		return testTransports(cmd.Context(), client, cfg, message)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	explain, _ := cmd.Flags().GetBool("explain")
	reportPath, _ := cmd.Flags().GetString("report")

	var dispatcher *notify.Dispatcher
	if !dryRun {
		dispatcher, err = notify.NewDispatcher(client, cfg.Notify, warnWriter(cfg))
		if err != nil {
			return fmt.Errorf("config: %w (use --dry-run to evaluate without sending)", err)
		}
	}

	store, err := state.Open(cfg.Match.StatePath)
	if err != nil {
		return fmt.Errorf("opening state store %s: %w", cfg.Match.StatePath, err)
	}
	defer store.Close()

	primary, fallbacks := buildSources(client, cfg)
	controller := &run.Controller{
		Primary:    primary,
		Fallbacks:  fallbacks,
		Store:      store,
		Dispatcher: dispatcher,
		Policy:     match.NewPolicy(cfg.Match),
		DryRun:     dryRun,
		Explain:    explain,
		Out:        os.Stdout,
		Err:        warnWriter(cfg),
	}

	report, runErr := controller.Run(cmd.Context())
	if reportPath != "" && report != nil {
		if err := run.WriteReport(reportPath, report); err != nil {
			fmt.Fprintf(os.Stderr, "warning: writing report: %v\n", err)
		}
	}
	return runErr
}

// buildSources assembles the adapter set: SBIR.gov is always the primary;
// the fallbacks run per their enabled and fallback_only settings.
func buildSources(client *httputil.Client, cfg *types.Config) (sources.Source, []sources.Source) {
	primary := sources.NewSBIR(client, cfg.Match)

	var fallbacks []sources.Source
	if cfg.SAM.Enabled {
		fallbacks = append(fallbacks, sources.NewSAM(client, cfg.SAM))
	}
	if cfg.DOD.Enabled {
		fallbacks = append(fallbacks, sources.NewDOD(client, cfg.DOD))
	}
	if cfg.NSF.Enabled {
		fallbacks = append(fallbacks, sources.NewNSF(client, cfg.NSF))
	}
	if cfg.NIH.Enabled {
		fallbacks = append(fallbacks, sources.NewNIH(client, cfg.NIH))
	}
	if cfg.RSS.Enabled {
		fallbacks = append(fallbacks, sources.NewRSS(client, cfg.RSS))
	}
	return primary, fallbacks
}

func testTransports(ctx context.Context, client *httputil.Client, cfg *types.Config, message string) error {
	dispatcher, err := notify.NewDispatcher(client, cfg.Notify, os.Stderr)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := dispatcher.Test(ctx, message); err != nil {
		return err
	}
	fmt.Println("Test message sent.")
	return nil
}

func warnWriter(cfg *types.Config) io.Writer {
	if cfg.ShowWarnings {
		return os.Stderr
	}
	return io.Discard
}
