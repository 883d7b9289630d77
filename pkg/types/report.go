// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// FetchState classifies the outcome of one adapter fetch.
type FetchState string

const (
	FetchOK       FetchState = "ok"
	FetchDegraded FetchState = "degraded"
	FetchFailed   FetchState = "failed"
)

// FetchStatus is the per-adapter fetch outcome. Adapter failures are
// reported through this value rather than an error so the orchestrator can
// treat them as data.
type FetchStatus struct {
	State  FetchState `json:"state" yaml:"state"`
	Count  int        `json:"count" yaml:"count"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// StatusOK reports a complete fetch of n opportunities.
func StatusOK(n int) FetchStatus {
	return FetchStatus{State: FetchOK, Count: n}
}

// StatusDegraded reports a partial fetch of n opportunities.
func StatusDegraded(n int, reason string) FetchStatus {
	return FetchStatus{State: FetchDegraded, Count: n, Reason: reason}
}

// StatusFailed reports a fetch that produced nothing usable.
func StatusFailed(reason string) FetchStatus {
	return FetchStatus{State: FetchFailed, Reason: reason}
}

// OK reports whether the fetch was complete.
func (s FetchStatus) OK() bool { return s.State == FetchOK }

// Failed reports whether the fetch produced nothing usable.
func (s FetchStatus) Failed() bool { return s.State == FetchFailed }

func (s FetchStatus) String() string {
	switch s.State {
	case FetchOK:
		return fmt.Sprintf("ok(%d)", s.Count)
	case FetchDegraded:
		return fmt.Sprintf("degraded(%d: %s)", s.Count, s.Reason)
	default:
		return fmt.Sprintf("failed(%s)", s.Reason)
	}
}

// SourceReport is the fetch status for one invoked adapter.
type SourceReport struct {
	Name   string      `json:"name" yaml:"name"`
	Status FetchStatus `json:"status" yaml:"status"`
}

// RunState identifies the run controller's position in its state machine.
type RunState string

const (
	StateInit         RunState = "INIT"
	StateFetching     RunState = "FETCHING"
	StateMatching     RunState = "MATCHING"
	StateDeduping     RunState = "DEDUPING"
	StateDispatching  RunState = "DISPATCHING"
	StateDryRunReport RunState = "DRY_RUN_REPORT"
	StateDone         RunState = "DONE"
	StateFailed       RunState = "FAILED"
)

// RunReport aggregates everything observed during one invocation: per-source
// fetch status, every match decision, and the final notified set. It exists
// only for the duration of one run.
type RunReport struct {
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	State      RunState  `json:"state" yaml:"state"`
	DryRun     bool      `json:"dry_run" yaml:"dry_run"`

	Sources   []SourceReport  `json:"sources" yaml:"sources"`
	Decisions []MatchDecision `json:"decisions" yaml:"decisions"`

	Matched     int `json:"matched" yaml:"matched"`
	New         int `json:"new" yaml:"new"`
	AlreadySeen int `json:"already_seen" yaml:"already_seen"`
	Skipped     int `json:"skipped" yaml:"skipped"`

	Notified []string         `json:"notified,omitempty" yaml:"notified,omitempty"`
	Dispatch []DispatchResult `json:"dispatch,omitempty" yaml:"dispatch,omitempty"`
	Errors   []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// TotalOpportunities returns the number of opportunities evaluated.
func (r RunReport) TotalOpportunities() int {
	return len(r.Decisions)
}

// Summary returns the one-line run summary printed at the end of a crawl.
func (r RunReport) Summary() string {
	sources := make([]byte, 0, 64)
	for i, sr := range r.Sources {
		if i > 0 {
			sources = append(sources, ',')
		}
		sources = append(sources, sr.Name...)
		sources = append(sources, ':')
		sources = append(sources, sr.Status.String()...)
	}
	return fmt.Sprintf(
		"crawl complete: opportunities=%d matches=%d new=%d skipped=%d sources=%s",
		r.TotalOpportunities(), r.Matched, r.New, r.Skipped, sources,
	)
}
