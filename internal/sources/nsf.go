// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// NSFSource scrapes the NSF seedfund solicitations page: the lines under
// the "Solicitations" heading that link to a solicitation document.
type NSFSource struct {
	Client *httputil.Client
	Config types.NSFConfig
}

// NewNSF builds the NSF seedfund source.
func NewNSF(client *httputil.Client, cfg types.NSFConfig) *NSFSource {
	return &NSFSource{Client: client, Config: cfg}
}

func (s *NSFSource) Name() string { return "nsf_seedfund" }

func (s *NSFSource) FallbackOnly() bool { return s.Config.FallbackOnly }

func (s *NSFSource) Fetch(ctx context.Context) ([]types.Opportunity, types.FetchStatus) {
	resp, err := s.Client.Get(ctx, s.Config.SolicitationsURL)
	if err != nil {
		return nil, types.StatusFailed(failReason(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.StatusFailed(fmt.Sprintf("NSF solicitations page returned HTTP %d", resp.StatusCode))
	}

	lines, err := parseLines(resp.Body)
	if err != nil {
		return nil, types.StatusFailed("parsing NSF solicitations page: " + err.Error())
	}

	section := sliceSection(lines,
		func(text string) bool { return text == "solicitations" },
		func(text string) bool {
			return text == "return to top" || text == "america's seed fund"
		},
	)

	var opps []types.Opportunity
	for _, line := range section {
		title := strings.TrimSpace(line.text)
		if title == "" || len(line.hrefs) == 0 {
			continue
		}
		if !nsfRelevantTitle(title) {
			continue
		}
		href := pickURL(line.hrefs)
		if !strings.Contains(strings.ToLower(href), "solicitation") {
			continue
		}

		identity := href
		if identity == "" {
			identity = title
		}
		opps = append(opps, types.Opportunity{
			ID:                "nsf_seedfund::" + identity,
			Source:            "nsf_seedfund",
			SolicitationTitle: title,
			Agency:            "NSF",
			Open:              true,
			URL:               resolveURL(s.Config.SolicitationsURL, href),
			Raw:               map[string]any{"title": title, "href": href},
		})
	}

	return opps, types.StatusOK(len(opps))
}

func nsfRelevantTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, token := range []string{"sbir", "sttr", "solicitation"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
