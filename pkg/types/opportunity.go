// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the canonical data model shared across the pipeline:
// opportunities, fetch statuses, match decisions, and the run report.
package types

import "strings"

// Opportunity is one canonical solicitation record normalized from any
// source. ID is stable across runs for the same underlying solicitation and
// is namespaced by source (e.g. "sam::<noticeId>").
type Opportunity struct {
	ID                  string `json:"id" yaml:"id"`
	Source              string `json:"source" yaml:"source"`
	SolicitationTitle   string `json:"solicitation_title" yaml:"solicitation_title"`
	SolicitationNumber  string `json:"solicitation_number,omitempty" yaml:"solicitation_number,omitempty"`
	Agency              string `json:"agency,omitempty" yaml:"agency,omitempty"`
	Branch              string `json:"branch,omitempty" yaml:"branch,omitempty"`
	OpenDate            string `json:"open_date,omitempty" yaml:"open_date,omitempty"`
	CloseDate           string `json:"close_date,omitempty" yaml:"close_date,omitempty"`
	TopicTitle          string `json:"topic_title,omitempty" yaml:"topic_title,omitempty"`
	TopicNumber         string `json:"topic_number,omitempty" yaml:"topic_number,omitempty"`
	TopicDescription    string `json:"topic_description,omitempty" yaml:"topic_description,omitempty"`
	SubtopicTitle       string `json:"subtopic_title,omitempty" yaml:"subtopic_title,omitempty"`
	SubtopicDescription string `json:"subtopic_description,omitempty" yaml:"subtopic_description,omitempty"`
	Open                bool   `json:"open" yaml:"open"`
	URL                 string `json:"url,omitempty" yaml:"url,omitempty"`

	// Raw carries source-specific fields not otherwise modeled. It is kept
	// for diagnostics only and is never consulted during matching.
	Raw map[string]any `json:"-" yaml:"-"`
}

// Title returns the most specific title available for display.
func (o Opportunity) Title() string {
	if o.TopicTitle != "" {
		return o.TopicTitle
	}
	return o.SolicitationTitle
}

// Field returns the named text field, or "" for unknown names. The match
// engine uses it to assemble the scan text from configured match fields.
func (o Opportunity) Field(name string) string {
	switch name {
	case "solicitation_title":
		return o.SolicitationTitle
	case "topic_title":
		return o.TopicTitle
	case "topic_description":
		return o.TopicDescription
	case "subtopic_title":
		return o.SubtopicTitle
	case "subtopic_description":
		return o.SubtopicDescription
	default:
		return ""
	}
}

// MatchDecision is the verdict for one opportunity evaluated against the
// keyword policy. Reasons is an ordered, human-readable trace of every
// filter outcome and is populated whether or not the opportunity matched.
type MatchDecision struct {
	Opportunity     Opportunity `json:"opportunity" yaml:"opportunity"`
	Matched         bool        `json:"matched" yaml:"matched"`
	Score           int         `json:"score" yaml:"score"`
	MatchedKeywords []string    `json:"matched_keywords,omitempty" yaml:"matched_keywords,omitempty"`
	Reasons         []string    `json:"reasons" yaml:"reasons"`
}

// DispatchResult records the delivery outcome for one opportunity.
type DispatchResult struct {
	OpportunityID string `json:"opportunity_id" yaml:"opportunity_id"`
	OK            bool   `json:"ok" yaml:"ok"`
	Reason        string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// NormalizeAgency uppercases an agency code for comparison.
func NormalizeAgency(agency string) string {
	return strings.ToUpper(strings.TrimSpace(agency))
}
