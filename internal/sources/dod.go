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

// DODSource scrapes the DARPA SBIR/STTR topics page. The page carries an
// "Active Announcement Topics" section of labeled lines (Topic #:, Open:,
// Closes:, Objective:) under per-program headers.
type DODSource struct {
	Client *httputil.Client
	Config types.DODConfig
}

// NewDOD builds the DARPA topics source.
func NewDOD(client *httputil.Client, cfg types.DODConfig) *DODSource {
	return &DODSource{Client: client, Config: cfg}
}

func (s *DODSource) Name() string { return "dod_darpa" }

func (s *DODSource) FallbackOnly() bool { return s.Config.FallbackOnly }

func (s *DODSource) Fetch(ctx context.Context) ([]types.Opportunity, types.FetchStatus) {
	resp, err := s.Client.Get(ctx, s.Config.TopicsURL)
	if err != nil {
		return nil, types.StatusFailed(failReason(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.StatusFailed(fmt.Sprintf("DARPA topics page returned HTTP %d", resp.StatusCode))
	}

	lines, err := parseLines(resp.Body)
	if err != nil {
		return nil, types.StatusFailed("parsing DARPA topics page: " + err.Error())
	}

	active := sliceSection(lines,
		func(text string) bool { return text == "active announcement topics" },
		func(text string) bool { return strings.HasPrefix(text, "closed announcement topics") },
	)

	var opps []types.Opportunity
	for _, topic := range parseDARPATopics(active) {
		identity := topic.number
		if identity == "" {
			identity = topic.title
		}
		program := topic.program
		if program == "" {
			program = "DARPA SBIR/STTR"
		}
		opps = append(opps, types.Opportunity{
			ID:                "dod_darpa::" + identity,
			Source:            "dod_darpa",
			SolicitationTitle: program,
			Agency:            "DOD",
			Branch:            "DARPA",
			OpenDate:          topic.openDate,
			CloseDate:         topic.closeDate,
			TopicTitle:        topic.title,
			TopicNumber:       topic.number,
			TopicDescription:  topic.objective,
			// Topics in the active section are accepting by definition.
			Open: true,
			URL:  resolveURL(s.Config.TopicsURL, topic.url),
			Raw: map[string]any{
				"program":     topic.program,
				"tech_office": topic.techOffice,
			},
		})
	}

	return opps, types.StatusOK(len(opps))
}

type darpaTopic struct {
	title      string
	program    string
	number     string
	objective  string
	techOffice string
	openDate   string
	closeDate  string
	url        string
}

// parseDARPATopics walks the flattened active section. An unlabeled line
// starts a new topic; labeled lines fill in the current one.
func parseDARPATopics(lines []parsedLine) []darpaTopic {
	var topics []darpaTopic
	var current *darpaTopic
	var program string

	flush := func() {
		if current != nil {
			topics = append(topics, *current)
			current = nil
		}
	}

	for _, line := range lines {
		text := strings.TrimSpace(line.text)
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)

		switch {
		case strings.HasPrefix(lower, "sbir |"),
			strings.HasPrefix(lower, "sttr |"),
			strings.HasPrefix(lower, "baa"):
			program = text
			continue
		case strings.HasPrefix(lower, "each year"),
			strings.HasPrefix(lower, "all sbir/sttr topics"),
			lower == "important",
			lower == "solicitation",
			lower == "faq",
			lower == "faqs":
			continue
		}

		if value, ok := labelValue(lower, text, "objective:", "description:"); ok {
			if current != nil {
				current.objective = value
			}
			continue
		}
		if value, ok := labelValue(lower, text, "tech office:"); ok {
			if current != nil {
				current.techOffice = value
			}
			continue
		}
		if value, ok := labelValue(lower, text, "topic #:"); ok {
			if current != nil {
				current.number = value
			}
			continue
		}
		if _, ok := labelValue(lower, text, "pre-release:"); ok {
			continue
		}
		if value, ok := labelValue(lower, text, "open:"); ok {
			if current != nil {
				current.openDate = value
			}
			continue
		}
		if value, ok := labelValue(lower, text, "closes:", "closed:", "deadline:"); ok {
			if current != nil {
				current.closeDate = value
			}
			continue
		}

		// Anything unlabeled is the next topic's title.
		flush()
		current = &darpaTopic{
			title:   text,
			program: program,
			url:     pickURL(line.hrefs),
		}
	}
	flush()

	return topics
}

// labelValue returns the text after the first matching "Label:" prefix.
func labelValue(lower, text string, labels ...string) (string, bool) {
	for _, label := range labels {
		if strings.HasPrefix(lower, label) {
			return strings.TrimSpace(text[len(label):]), true
		}
	}
	return "", false
}
