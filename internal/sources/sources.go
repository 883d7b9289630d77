// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources fetches solicitations from the upstream providers and
// normalizes them into the canonical Opportunity shape. Each provider
// (SBIR.gov, SAM.gov, DARPA, NSF, NIH, grants.gov RSS) implements the Source
// interface; Collect decides which sources run and combines their results.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/sbir-search/pkg/types"
)

// Source fetches raw listings from one provider. Fetch never panics and
// never returns an error: any failure is reported through the FetchStatus so
// the orchestrator can treat it as data.
type Source interface {
	Name() string

	// FallbackOnly reports whether this source runs only when the primary
	// source is unhealthy for the run.
	FallbackOnly() bool

	Fetch(ctx context.Context) ([]types.Opportunity, types.FetchStatus)
}

// ErrAllSourcesFailed is returned by Collect when every invoked source
// reported a failed fetch.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Output holds the combined opportunities and per-source fetch status.
type Output struct {
	Opportunities []types.Opportunity
	Reports       []types.SourceReport
}

// Collect runs one acquisition pass. The primary source is fetched first;
// the decision table for fallbacks is:
//
//	primary ok                → only sources with FallbackOnly() == false run
//	primary degraded or failed → every configured fallback runs
//
// Fallback fetches run concurrently, but combination is deterministic
// regardless of completion order: sources are merged in configured priority
// order (primary first), each source's results sorted by id, and id
// collisions resolve first-seen-wins, so the primary's copy always wins.
func Collect(ctx context.Context, primary Source, fallbacks []Source, w io.Writer) (Output, error) {
	if primary == nil {
		return Output{}, errors.New("no primary source configured")
	}

	primaryOpps, primaryStatus := primary.Fetch(ctx)
	if !primaryStatus.OK() {
		fmt.Fprintf(w, "warning: source %s %s\n", primary.Name(), primaryStatus)
	}

	active := activeFallbacks(primaryStatus, fallbacks)

	type fetchResult struct {
		opps   []types.Opportunity
		status types.FetchStatus
	}
	results := make([]fetchResult, len(active))

	var wg sync.WaitGroup
	for i, src := range active {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			opps, status := src.Fetch(ctx)
			results[i] = fetchResult{opps: opps, status: status}
		}(i, src)
	}
	wg.Wait()

	out := Output{
		Reports: []types.SourceReport{{Name: primary.Name(), Status: primaryStatus}},
	}

	seen := make(map[string]bool)
	out.Opportunities = appendDeduped(out.Opportunities, primaryOpps, seen)

	for i, src := range active {
		r := results[i]
		out.Reports = append(out.Reports, types.SourceReport{Name: src.Name(), Status: r.status})
		if r.status.Failed() {
			fmt.Fprintf(w, "warning: source %s %s\n", src.Name(), r.status)
			continue
		}
		out.Opportunities = appendDeduped(out.Opportunities, r.opps, seen)
	}

	if allFailed(out.Reports) {
		return out, fmt.Errorf("%w: %s", ErrAllSourcesFailed, failureSummary(out.Reports))
	}
	return out, nil
}

// activeFallbacks applies the fallback decision table.
func activeFallbacks(primary types.FetchStatus, fallbacks []Source) []Source {
	var active []Source
	for _, src := range fallbacks {
		if primary.OK() && src.FallbackOnly() {
			continue
		}
		active = append(active, src)
	}
	return active
}

// appendDeduped adds one source's results to the combined slice, sorted by
// id for determinism, skipping ids already contributed by a higher-priority
// source.
func appendDeduped(dst, src []types.Opportunity, seen map[string]bool) []types.Opportunity {
	sorted := make([]types.Opportunity, len(src))
	copy(sorted, src)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, opp := range sorted {
		if seen[opp.ID] {
			continue
		}
		seen[opp.ID] = true
		dst = append(dst, opp)
	}
	return dst
}

func allFailed(reports []types.SourceReport) bool {
	for _, r := range reports {
		if !r.Status.Failed() {
			return false
		}
	}
	return len(reports) > 0
}

func failureSummary(reports []types.SourceReport) string {
	parts := make([]string, 0, len(reports))
	for _, r := range reports {
		parts = append(parts, r.Name+": "+r.Status.Reason)
	}
	return strings.Join(parts, "; ")
}

// failReason maps a fetch error to a status reason, collapsing context
// cancellation into "timeout" so a cancelled adapter is reported rather
// than silently dropped.
func failReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	return err.Error()
}
