// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package run drives one discovery pass end to end: acquisition, keyword
// matching, dedup partitioning, and notification dispatch.
package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/sbir-search/internal/match"
	"github.com/pdiddy/sbir-search/internal/notify"
	"github.com/pdiddy/sbir-search/internal/sources"
	"github.com/pdiddy/sbir-search/internal/state"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// Controller wires the pipeline for a single invocation. The seen-id store
// is passed in, never owned; its load and close bracket the run in the
// caller.
type Controller struct {
	Primary    sources.Source
	Fallbacks  []sources.Source
	Store      *state.Store
	Dispatcher *notify.Dispatcher
	Policy     match.Policy

	DryRun  bool
	Explain bool

	Out io.Writer
	Err io.Writer
}

// Run executes one pass and returns its report. A non-nil error means the
// run did not reach DONE: precondition failures or every source failing.
// Individual source and dispatch failures are absorbed into the report.
func (c *Controller) Run(ctx context.Context) (*types.RunReport, error) {
	report := &types.RunReport{
		StartedAt: time.Now().UTC(),
		State:     types.StateInit,
		DryRun:    c.DryRun,
	}
	if c.Out == nil {
		c.Out = io.Discard
	}
	if c.Err == nil {
		c.Err = io.Discard
	}

	if c.Primary == nil {
		return c.fail(report, errors.New("no sources configured"))
	}
	if c.Store == nil {
		return c.fail(report, errors.New("no state store configured"))
	}
	if !c.DryRun && c.Dispatcher == nil {
		return c.fail(report, errors.New("no notification transport configured"))
	}

	report.State = types.StateFetching
	out, err := sources.Collect(ctx, c.Primary, c.Fallbacks, c.Err)
	report.Sources = out.Reports
	if err != nil {
		return c.fail(report, err)
	}

	report.State = types.StateMatching
	var matched []types.MatchDecision
	for _, opp := range out.Opportunities {
		decision := match.Evaluate(opp, c.Policy)
		report.Decisions = append(report.Decisions, decision)
		if decision.Matched {
			matched = append(matched, decision)
		}
		if c.Explain {
			c.explain(decision)
		}
	}
	report.Matched = len(matched)
	report.Skipped = len(report.Decisions) - len(matched)

	report.State = types.StateDeduping
	var fresh []types.MatchDecision
	for _, decision := range matched {
		seen, err := c.Store.Contains(decision.Opportunity.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("state lookup %s: %v", decision.Opportunity.ID, err))
			continue
		}
		if seen {
			report.AlreadySeen++
			continue
		}
		fresh = append(fresh, decision)
	}
	report.New = len(fresh)

	if c.DryRun {
		report.State = types.StateDryRunReport
		c.dryRunReport(fresh)
	} else {
		report.State = types.StateDispatching
		c.dispatch(ctx, fresh, report)
	}

	report.State = types.StateDone
	report.FinishedAt = time.Now().UTC()
	fmt.Fprintln(c.Out, report.Summary())
	return report, nil
}

// dispatch sends the new matches and records each delivered id as seen
// immediately, so a crash mid-batch cannot re-notify delivered items.
func (c *Controller) dispatch(ctx context.Context, fresh []types.MatchDecision, report *types.RunReport) {
	if len(fresh) == 0 {
		return
	}

	results := c.Dispatcher.Dispatch(ctx, fresh)
	report.Dispatch = results
	for _, r := range results {
		if !r.OK {
			report.Errors = append(report.Errors, fmt.Sprintf("dispatch %s: %s", r.OpportunityID, r.Reason))
			continue
		}
		if err := c.Store.MarkSeen(r.OpportunityID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("persisting %s: %v", r.OpportunityID, err))
			fmt.Fprintf(c.Err, "warning: could not persist seen id %s: %v\n", r.OpportunityID, err)
		}
		report.Notified = append(report.Notified, r.OpportunityID)
	}
}

func (c *Controller) dryRunReport(fresh []types.MatchDecision) {
	fmt.Fprintf(c.Out, "dry run: %d new matches, nothing sent, state untouched\n", len(fresh))
	for _, decision := range fresh {
		o := decision.Opportunity
		fmt.Fprintf(c.Out, "  %s  %s", o.ID, o.Title())
		if o.URL != "" {
			fmt.Fprintf(c.Out, "  %s", o.URL)
		}
		fmt.Fprintln(c.Out)
	}
}

// explainRecord is the JSON-lines shape emitted per evaluated opportunity.
type explainRecord struct {
	ID              string   `json:"id"`
	Source          string   `json:"source"`
	Title           string   `json:"title"`
	Agency          string   `json:"agency,omitempty"`
	Matched         bool     `json:"matched"`
	Score           int      `json:"score"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Reasons         []string `json:"reasons"`
	URL             string   `json:"url,omitempty"`
}

func (c *Controller) explain(decision types.MatchDecision) {
	o := decision.Opportunity
	line, err := json.Marshal(explainRecord{
		ID:              o.ID,
		Source:          o.Source,
		Title:           o.Title(),
		Agency:          o.Agency,
		Matched:         decision.Matched,
		Score:           decision.Score,
		MatchedKeywords: decision.MatchedKeywords,
		Reasons:         decision.Reasons,
		URL:             o.URL,
	})
	if err != nil {
		fmt.Fprintf(c.Err, "warning: explain encode: %v\n", err)
		return
	}
	fmt.Fprintln(c.Out, string(line))
}

func (c *Controller) fail(report *types.RunReport, err error) (*types.RunReport, error) {
	report.State = types.StateFailed
	report.FinishedAt = time.Now().UTC()
	report.Errors = append(report.Errors, err.Error())
	return report, err
}
