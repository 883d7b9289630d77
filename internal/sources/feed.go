// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pdiddy/sbir-search/internal/httputil"
)

// feedItem is one entry from an RSS 2.0 channel.
type feedItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

type feedChannel struct {
	Items []feedItem `xml:"item"`
}

type feedDoc struct {
	Channel feedChannel `xml:"channel"`
}

// stripTags removes all HTML markup from feed descriptions, which the
// grants.gov feeds embed wholesale.
var stripTags = bluemonday.StrictPolicy()

// fetchFeed downloads and parses one RSS feed. Government feeds are not
// reliably well-formed, so a parse failure triggers one reparse after
// sanitizing control characters and bare ampersands.
func fetchFeed(ctx context.Context, client *httputil.Client, feedURL string) ([]feedItem, error) {
	resp, err := client.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	items, err := parseFeed(body)
	if err != nil {
		items, err = parseFeed([]byte(sanitizeXML(string(body))))
		if err != nil {
			return nil, fmt.Errorf("parsing feed: %w", err)
		}
	}
	return items, nil
}

func parseFeed(body []byte) ([]feedItem, error) {
	var doc feedDoc
	decoder := xml.NewDecoder(strings.NewReader(string(body)))
	decoder.Strict = false
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Channel.Items) == 0 {
		return nil, fmt.Errorf("feed contained no items")
	}
	return doc.Channel.Items, nil
}

var (
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	validEntities = regexp.MustCompile(`&(?:[a-zA-Z]{2,6};|#\d{2,5};|#x[0-9a-fA-F]{2,5};)`)
)

// sanitizeXML strips control characters and escapes ampersands that do not
// begin a valid entity.
func sanitizeXML(content string) string {
	content = controlChars.ReplaceAllString(content, "")

	// Protect valid entities, escape the rest, restore.
	const marker = "\x00ENT\x00"
	protected := validEntities.ReplaceAllStringFunc(content, func(ent string) string {
		return marker + ent[1:]
	})
	escaped := strings.ReplaceAll(protected, "&", "&amp;")
	return strings.ReplaceAll(escaped, marker, "&")
}

// cleanDescription strips markup and collapses whitespace in a feed
// description.
func cleanDescription(s string) string {
	s = stripTags.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// feedIdentity returns the most stable identifier available for an item.
func feedIdentity(item feedItem) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	return strings.TrimSpace(item.Title) + ":" + strings.TrimSpace(item.PubDate)
}
