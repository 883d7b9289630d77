// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match scores opportunities against the keyword policy. Evaluation
// is a pure function of (opportunity, policy): no I/O, no shared state, and
// every decision carries an ordered trace of why it went the way it did.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/sbir-search/pkg/types"
)

// defaultMatchFields are the opportunity text fields scanned when the
// config does not name its own.
var defaultMatchFields = []string{
	"solicitation_title",
	"topic_title",
	"topic_description",
	"subtopic_title",
	"subtopic_description",
}

// Policy is the compiled keyword policy. Build one with NewPolicy; the zero
// value matches nothing.
type Policy struct {
	Keywords        []string
	ExcludeKeywords []string
	MinScore        int
	Agencies        []string
	OpenOnly        bool
	MatchFields     []string

	keywordPatterns []*regexp.Regexp
	excludePatterns []*regexp.Regexp
	agencySet       map[string]bool
	whitelistedSrcs map[string]bool
}

// NewPolicy compiles the match configuration: keywords are lowercased,
// agencies uppercased, and per-keyword patterns prebuilt.
func NewPolicy(cfg types.MatchConfig) Policy {
	p := Policy{
		MinScore:        cfg.MinScore,
		OpenOnly:        cfg.OpenOnly,
		MatchFields:     cfg.MatchFields,
		agencySet:       make(map[string]bool),
		whitelistedSrcs: make(map[string]bool),
	}
	if len(p.MatchFields) == 0 {
		p.MatchFields = defaultMatchFields
	}

	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		p.Keywords = append(p.Keywords, kw)
		p.keywordPatterns = append(p.keywordPatterns, compileKeyword(kw))
	}
	for _, kw := range cfg.ExcludeKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		p.ExcludeKeywords = append(p.ExcludeKeywords, kw)
		p.excludePatterns = append(p.excludePatterns, compileKeyword(kw))
	}
	for _, agency := range cfg.Agencies {
		agency = types.NormalizeAgency(agency)
		if agency == "" {
			continue
		}
		p.Agencies = append(p.Agencies, agency)
		p.agencySet[agency] = true
	}
	for _, src := range cfg.AlwaysIncludeSources {
		p.whitelistedSrcs[strings.ToLower(strings.TrimSpace(src))] = true
	}

	return p
}

// compileKeyword builds the pattern for one keyword. Short alphanumeric
// keywords (three characters or fewer, e.g. "AI") match on word boundaries
// so they do not fire inside unrelated words; everything else is a plain
// case-insensitive substring.
func compileKeyword(keyword string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(keyword)
	if len(keyword) <= 3 && isAlnum(keyword) {
		return regexp.MustCompile(`(?i)\b` + escaped + `\b`)
	}
	return regexp.MustCompile(`(?i)` + escaped)
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return s != ""
}

// Evaluate classifies one opportunity against the policy. The returned
// decision's Reasons list, in order: keyword hits, any exclude veto, the
// score against the threshold, the agency filter outcome, and the open-only
// filter outcome.
func Evaluate(opp types.Opportunity, p Policy) types.MatchDecision {
	text := p.scanText(opp)

	var matched []string
	for i, pattern := range p.keywordPatterns {
		if pattern.MatchString(text) {
			matched = append(matched, p.Keywords[i])
		}
	}
	score := len(matched)

	d := types.MatchDecision{
		Opportunity:     opp,
		Score:           score,
		MatchedKeywords: matched,
	}

	if score > 0 {
		d.Reasons = append(d.Reasons, "keywords matched: "+strings.Join(matched, ", "))
	} else {
		d.Reasons = append(d.Reasons, "no keyword matches")
	}

	excluded := ""
	for i, pattern := range p.excludePatterns {
		if pattern.MatchString(text) {
			excluded = p.ExcludeKeywords[i]
			break
		}
	}
	if excluded != "" {
		d.Reasons = append(d.Reasons, "excluded keyword present: "+excluded)
	}

	whitelisted := p.whitelistedSrcs[strings.ToLower(opp.Source)]
	scoreOK := score >= p.MinScore
	switch {
	case scoreOK:
		d.Reasons = append(d.Reasons, fmt.Sprintf("score %d >= threshold %d", score, p.MinScore))
	case whitelisted:
		d.Reasons = append(d.Reasons, fmt.Sprintf("score %d < threshold %d, but source %q is whitelisted", score, p.MinScore, opp.Source))
	default:
		d.Reasons = append(d.Reasons, fmt.Sprintf("score %d < threshold %d", score, p.MinScore))
	}

	agencyOK := true
	if len(p.agencySet) == 0 {
		d.Reasons = append(d.Reasons, "agency filter not configured")
	} else if p.agencySet[types.NormalizeAgency(opp.Agency)] {
		d.Reasons = append(d.Reasons, fmt.Sprintf("agency %q in allow-list", opp.Agency))
	} else {
		agencyOK = false
		d.Reasons = append(d.Reasons, fmt.Sprintf("agency %q not in allow-list", opp.Agency))
	}

	openOK := true
	switch {
	case !p.OpenOnly:
		d.Reasons = append(d.Reasons, "open-only filter disabled")
	case opp.Open:
		d.Reasons = append(d.Reasons, "open for submissions")
	default:
		openOK = false
		d.Reasons = append(d.Reasons, "closed: rejected by open-only filter")
	}

	d.Matched = (scoreOK || whitelisted) && excluded == "" && agencyOK && openOK
	return d
}

// scanText assembles the lowercased text scanned for keywords from the
// policy's match fields.
func (p Policy) scanText(opp types.Opportunity) string {
	var fields []string
	for _, name := range p.MatchFields {
		if v := opp.Field(name); v != "" {
			fields = append(fields, v)
		}
	}
	return strings.ToLower(strings.Join(fields, "\n"))
}
