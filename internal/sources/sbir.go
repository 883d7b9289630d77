// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

const (
	sbirMaxRows         = 50
	sbirDefaultMaxPages = 40
)

// SBIRSource is the primary source: the SBIR.gov solicitations API. It
// probes the configured base URLs in order and paginates the first one that
// answers, exploding each solicitation's topics and subtopics into one
// Opportunity per leaf.
type SBIRSource struct {
	Client *httputil.Client
	Config types.MatchConfig
}

// NewSBIR builds the primary SBIR.gov source.
func NewSBIR(client *httputil.Client, cfg types.MatchConfig) *SBIRSource {
	return &SBIRSource{Client: client, Config: cfg}
}

func (s *SBIRSource) Name() string { return "sbir" }

// FallbackOnly is always false: SBIR.gov is the primary source.
func (s *SBIRSource) FallbackOnly() bool { return false }

// Fetch pages through the solicitations API. A mid-pagination error
// degrades the result instead of discarding the pages already fetched.
func (s *SBIRSource) Fetch(ctx context.Context) ([]types.Opportunity, types.FetchStatus) {
	baseURL, err := s.selectBaseURL(ctx)
	if err != nil {
		return nil, types.StatusFailed(failReason(err))
	}

	rows := s.Config.Rows
	if rows < 1 || rows > sbirMaxRows {
		rows = sbirMaxRows
	}
	maxPages := s.Config.MaxPages
	if maxPages <= 0 {
		maxPages = sbirDefaultMaxPages
	}

	var opps []types.Opportunity
	start := 0
	for page := 0; page < maxPages; page++ {
		records, err := s.fetchPage(ctx, baseURL, rows, start)
		if err != nil {
			if len(opps) > 0 {
				return opps, types.StatusDegraded(len(opps), failReason(err))
			}
			return nil, types.StatusFailed(failReason(err))
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			opps = append(opps, explodeSolicitation(rec)...)
		}

		if len(records) < rows {
			break
		}
		start += rows
	}

	return opps, types.StatusOK(len(opps))
}

// selectBaseURL probes the configured endpoints with a one-row request and
// returns the first that answers. SBIR.gov has moved its API host before;
// carrying the old URL as a second entry keeps the tool working across the
// transition.
func (s *SBIRSource) selectBaseURL(ctx context.Context) (string, error) {
	if len(s.Config.APIBaseURLs) == 0 {
		return "", fmt.Errorf("no SBIR API base URL configured")
	}

	var errs []string
	for _, base := range s.Config.APIBaseURLs {
		if _, err := s.fetchPage(ctx, base, 1, 0); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", base, err))
			continue
		}
		return base, nil
	}
	return "", fmt.Errorf("all SBIR API base URLs failed: %s", strings.Join(errs, "; "))
}

func (s *SBIRSource) fetchPage(ctx context.Context, baseURL string, rows, start int) ([]map[string]any, error) {
	params := url.Values{
		"rows":  {strconv.Itoa(rows)},
		"start": {strconv.Itoa(start)},
	}
	if s.Config.OpenOnly {
		params.Set("open", "1")
	}

	resp, err := s.Client.Get(ctx, baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SBIR API returned HTTP %d", resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing SBIR response: %w", err)
	}
	return extractRecords(payload), nil
}

// extractRecords unwraps the API's response envelope. The endpoint has
// returned both a bare list and several wrapper shapes over time.
func extractRecords(payload any) []map[string]any {
	switch v := payload.(type) {
	case []any:
		return onlyMaps(v)
	case map[string]any:
		for _, key := range []string{"solicitations", "results", "data", "items"} {
			if list, ok := v[key].([]any); ok {
				return onlyMaps(list)
			}
		}
	}
	return nil
}

func onlyMaps(list []any) []map[string]any {
	var out []map[string]any
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// explodeSolicitation yields one Opportunity per topic/subtopic leaf. A
// solicitation with no topics yields a single record at the solicitation
// level.
func explodeSolicitation(rec map[string]any) []types.Opportunity {
	base := types.Opportunity{
		Source:             "sbir",
		SolicitationTitle:  str(rec, "solicitation_title"),
		SolicitationNumber: str(rec, "solicitation_number"),
		Agency:             str(rec, "agency"),
		Branch:             str(rec, "branch"),
		OpenDate:           str(rec, "open_date"),
		CloseDate:          str(rec, "close_date"),
		// The API is queried with open=1, so records are accepting.
		Open: true,
	}

	topics := mapList(rec["solicitation_topics"])
	if len(topics) == 0 {
		o := base
		o.URL = bestURL(rec, nil, nil)
		o.Raw = rec
		o.ID = sbirID(base.SolicitationNumber, "", "")
		return []types.Opportunity{o}
	}

	var opps []types.Opportunity
	for _, topic := range topics {
		subtopics := mapList(topic["subtopics"])
		if len(subtopics) == 0 {
			opps = append(opps, sbirLeaf(base, rec, topic, nil))
			continue
		}
		for _, sub := range subtopics {
			opps = append(opps, sbirLeaf(base, rec, topic, sub))
		}
	}
	return opps
}

func sbirLeaf(base types.Opportunity, rec, topic, sub map[string]any) types.Opportunity {
	o := base
	o.TopicTitle = str(topic, "topic_title")
	o.TopicNumber = str(topic, "topic_number")
	o.TopicDescription = str(topic, "topic_description")
	if sub != nil {
		o.SubtopicTitle = str(sub, "subtopic_title")
		o.SubtopicDescription = str(sub, "subtopic_description")
	}
	o.URL = bestURL(rec, topic, sub)
	o.Raw = map[string]any{"solicitation": rec, "topic": topic, "subtopic": sub}
	o.ID = sbirID(o.SolicitationNumber, o.TopicNumber, o.SubtopicTitle)
	return o
}

// sbirID joins the non-empty identity parts. The scheme must stay stable
// across runs: it is the dedup key.
func sbirID(solNumber, topicNumber, subtopicTitle string) string {
	var parts []string
	for _, p := range []string{solNumber, topicNumber, subtopicTitle} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = []string{"unknown"}
	}
	return "sbir::" + strings.Join(parts, "::")
}

// bestURL prefers the most specific link available.
func bestURL(rec, topic, sub map[string]any) string {
	for _, m := range []map[string]any{sub, topic, rec} {
		if m == nil {
			continue
		}
		for _, key := range []string{
			"sbir_subtopic_link",
			"sbir_topic_link",
			"sbir_solicitation_link",
			"solicitation_agency_url",
		} {
			if v := str(m, key); v != "" {
				return v
			}
		}
	}
	return ""
}

// str returns the trimmed string value of m[key], stringifying numbers.
func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// mapList coerces a decoded JSON value into a list of objects.
func mapList(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	return onlyMaps(list)
}
