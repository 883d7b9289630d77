// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pdiddy/sbir-search/pkg/types"
)

func basePolicy() Policy {
	return NewPolicy(types.MatchConfig{
		Keywords: []string{"reverse engineering", "firmware"},
		MinScore: 1,
	})
}

func opp(title, desc string) types.Opportunity {
	return types.Opportunity{
		ID:                "sbir::X-24::T1",
		Source:            "sbir",
		SolicitationTitle: title,
		TopicDescription:  desc,
		Agency:            "DOD",
		Open:              true,
	}
}

func TestEvaluateKeywordHit(t *testing.T) {
	d := Evaluate(opp("AI-Powered Reverse Engineering Toolkit", ""), basePolicy())
	if !d.Matched {
		t.Fatalf("Matched = false, want true; reasons: %v", d.Reasons)
	}
	if d.Score != 1 {
		t.Errorf("Score = %d, want 1", d.Score)
	}
	if got := d.MatchedKeywords; len(got) != 1 || got[0] != "reverse engineering" {
		t.Errorf("MatchedKeywords = %v, want [reverse engineering]", got)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	p := NewPolicy(types.MatchConfig{
		Keywords: []string{"sensor", "autonomy"},
		MinScore: 1,
		Agencies: []string{"dod"},
		OpenOnly: true,
	})
	o := opp("Autonomy for Sensor Networks", "sensor fusion")

	first := Evaluate(o, p)
	second := Evaluate(o, p)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated evaluation differs:\n%+v\n%+v", first, second)
	}
}

func TestEvaluateRepeatedKeywordCountsOnce(t *testing.T) {
	d := Evaluate(opp("firmware firmware firmware", "more firmware"), basePolicy())
	if d.Score != 1 {
		t.Errorf("Score = %d, want 1 (distinct keywords only)", d.Score)
	}
}

func TestEvaluateShortKeywordWordBoundary(t *testing.T) {
	p := NewPolicy(types.MatchConfig{Keywords: []string{"AI"}, MinScore: 1})

	if d := Evaluate(opp("Explainable AI for logistics", ""), p); !d.Matched {
		t.Errorf("standalone 'AI' should match; reasons: %v", d.Reasons)
	}
	if d := Evaluate(opp("Maintenance of airframes", ""), p); d.Matched {
		t.Errorf("'AI' inside 'Maintenance' should not match; reasons: %v", d.Reasons)
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	p := NewPolicy(types.MatchConfig{Keywords: []string{"quantum", "photonics"}, MinScore: 2})
	d := Evaluate(opp("Quantum sensing", ""), p)
	if d.Matched {
		t.Fatal("Matched = true, want false")
	}
	if d.Score != 1 {
		t.Errorf("Score = %d, want 1", d.Score)
	}
	assertReasonContains(t, d, "score 1 < threshold 2")
}

func TestEvaluateOpenOnlyRejection(t *testing.T) {
	p := NewPolicy(types.MatchConfig{Keywords: []string{"firmware"}, MinScore: 1, OpenOnly: true})
	o := opp("Firmware analysis", "")
	o.Open = false

	d := Evaluate(o, p)
	if d.Matched {
		t.Fatal("Matched = true, want false")
	}
	assertReasonContains(t, d, "open-only")
}

func TestEvaluateAgencyFilter(t *testing.T) {
	p := NewPolicy(types.MatchConfig{
		Keywords: []string{"firmware"},
		MinScore: 1,
		Agencies: []string{"nsf"},
	})
	d := Evaluate(opp("Firmware analysis", ""), p)
	if d.Matched {
		t.Fatal("DOD opportunity should be rejected by NSF-only allow-list")
	}
	assertReasonContains(t, d, "not in allow-list")

	// Agency comparison is case-insensitive.
	o := opp("Firmware analysis", "")
	o.Agency = "nsf"
	if d := Evaluate(o, p); !d.Matched {
		t.Errorf("lowercase agency should pass; reasons: %v", d.Reasons)
	}
}

func TestEvaluateExcludeKeywordVeto(t *testing.T) {
	p := NewPolicy(types.MatchConfig{
		Keywords:        []string{"firmware"},
		ExcludeKeywords: []string{"phase iii"},
		MinScore:        1,
	})
	d := Evaluate(opp("Firmware analysis (Phase III only)", ""), p)
	if d.Matched {
		t.Fatal("excluded keyword should veto the match")
	}
	assertReasonContains(t, d, "excluded keyword present: phase iii")
}

func TestEvaluateSourceWhitelistBypassesScore(t *testing.T) {
	p := NewPolicy(types.MatchConfig{
		Keywords:             []string{"firmware"},
		MinScore:             1,
		AlwaysIncludeSources: []string{"nsf_seedfund"},
	})
	o := opp("General solicitation", "")
	o.Source = "nsf_seedfund"

	d := Evaluate(o, p)
	if !d.Matched {
		t.Fatalf("whitelisted source should match despite score 0; reasons: %v", d.Reasons)
	}
	assertReasonContains(t, d, "whitelisted")
}

func TestEvaluateWhitelistDoesNotBypassOpenFilter(t *testing.T) {
	p := NewPolicy(types.MatchConfig{
		Keywords:             []string{"firmware"},
		MinScore:             1,
		OpenOnly:             true,
		AlwaysIncludeSources: []string{"nsf_seedfund"},
	})
	o := opp("General solicitation", "")
	o.Source = "nsf_seedfund"
	o.Open = false

	if d := Evaluate(o, p); d.Matched {
		t.Errorf("whitelist must not bypass the open-only filter; reasons: %v", d.Reasons)
	}
}

func TestEvaluateReasonsAlwaysPopulated(t *testing.T) {
	d := Evaluate(opp("AI-Powered Reverse Engineering Toolkit", ""), basePolicy())
	if len(d.Reasons) < 4 {
		t.Fatalf("Reasons = %v, want full trace even on match", d.Reasons)
	}
	// Trace order: keywords, score, agency, open.
	if !strings.Contains(d.Reasons[0], "keywords matched") {
		t.Errorf("Reasons[0] = %q, want keyword line first", d.Reasons[0])
	}
	if !strings.Contains(d.Reasons[1], "threshold") {
		t.Errorf("Reasons[1] = %q, want score line second", d.Reasons[1])
	}
}

func assertReasonContains(t *testing.T, d types.MatchDecision, want string) {
	t.Helper()
	for _, r := range d.Reasons {
		if strings.Contains(strings.ToLower(r), strings.ToLower(want)) {
			return
		}
	}
	t.Errorf("reasons %v do not mention %q", d.Reasons, want)
}
