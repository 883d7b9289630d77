// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// RSSSource reads the grants.gov new/modified opportunity feeds. Several
// feeds are polled; a subset failing degrades the fetch rather than
// failing it.
type RSSSource struct {
	Client *httputil.Client
	Config types.RSSConfig
}

// NewRSS builds the grants.gov RSS source.
func NewRSS(client *httputil.Client, cfg types.RSSConfig) *RSSSource {
	return &RSSSource{Client: client, Config: cfg}
}

func (s *RSSSource) Name() string { return "grants_rss" }

func (s *RSSSource) FallbackOnly() bool { return s.Config.FallbackOnly }

func (s *RSSSource) Fetch(ctx context.Context) ([]types.Opportunity, types.FetchStatus) {
	if len(s.Config.FeedURLs) == 0 {
		return nil, types.StatusFailed("no feed URLs configured")
	}

	var opps []types.Opportunity
	var failures []string
	for _, feedURL := range s.Config.FeedURLs {
		items, err := fetchFeed(ctx, s.Client, feedURL)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", feedURL, failReason(err)))
			continue
		}
		for _, item := range items {
			if o, ok := s.opportunity(item); ok {
				opps = append(opps, o)
			}
		}
	}

	switch {
	case len(failures) == len(s.Config.FeedURLs):
		return nil, types.StatusFailed(strings.Join(failures, "; "))
	case len(failures) > 0:
		return opps, types.StatusDegraded(len(opps), strings.Join(failures, "; "))
	default:
		return opps, types.StatusOK(len(opps))
	}
}

func (s *RSSSource) opportunity(item feedItem) (types.Opportunity, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return types.Opportunity{}, false
	}

	// The feeds categorize items by agency.
	agency := ""
	if len(item.Categories) > 0 {
		agency = strings.TrimSpace(item.Categories[0])
	}

	return types.Opportunity{
		ID:                "rss::" + feedIdentity(item),
		Source:            "grants_rss",
		SolicitationTitle: title,
		Agency:            agency,
		OpenDate:          strings.TrimSpace(item.PubDate),
		TopicDescription:  cleanDescription(item.Description),
		Open:              true,
		URL:               strings.TrimSpace(item.Link),
		Raw:               map[string]any{"guid": item.GUID, "categories": item.Categories},
	}, true
}
