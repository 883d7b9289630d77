// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"strings"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// NIHSource reads the NIH Guide funding-opportunities feed. The feed covers
// all NIH funding, so entries are prefiltered by the configured required
// terms before entering the pipeline.
type NIHSource struct {
	Client *httputil.Client
	Config types.NIHConfig
}

// NewNIH builds the NIH Guide source.
func NewNIH(client *httputil.Client, cfg types.NIHConfig) *NIHSource {
	return &NIHSource{Client: client, Config: cfg}
}

func (s *NIHSource) Name() string { return "nih_guide" }

func (s *NIHSource) FallbackOnly() bool { return s.Config.FallbackOnly }

func (s *NIHSource) Fetch(ctx context.Context) ([]types.Opportunity, types.FetchStatus) {
	items, err := fetchFeed(ctx, s.Client, s.Config.FeedURL)
	if err != nil {
		return nil, types.StatusFailed(failReason(err))
	}

	var opps []types.Opportunity
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		summary := cleanDescription(item.Description)
		if !matchesRequiredTerms(title+" "+summary, s.Config.RequiredTerms) {
			continue
		}

		opps = append(opps, types.Opportunity{
			ID:                "nih_guide::" + feedIdentity(item),
			Source:            "nih_guide",
			SolicitationTitle: title,
			Agency:            "HHS",
			Branch:            "NIH/CDC",
			OpenDate:          strings.TrimSpace(item.PubDate),
			TopicDescription:  summary,
			Open:              true,
			URL:               link,
			Raw:               map[string]any{"guid": item.GUID},
		})
	}

	return opps, types.StatusOK(len(opps))
}

// matchesRequiredTerms reports whether any term appears in the text.
// An empty term list admits everything.
func matchesRequiredTerms(text string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
