// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parsedLine is one block-level text line from a scraped page, with any
// hyperlinks it contained. The DARPA and NSF pages have no stable markup to
// target, so both adapters work from this flattened line model instead of
// CSS selectors tied to the current page design.
type parsedLine struct {
	text  string
	hrefs []string
}

// parseLines flattens the page into text lines, one per leaf block element.
func parseLines(r io.Reader) ([]parsedLine, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var lines []parsedLine
	doc.Find("p, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		// Skip containers whose text would repeat in a nested block.
		if sel.Find("p, li, h1, h2, h3, h4, h5, h6").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return
		}

		var hrefs []string
		seen := make(map[string]bool)
		appendHref := func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok && href != "" && !seen[href] {
				seen[href] = true
				hrefs = append(hrefs, href)
			}
		}
		sel.Find("a[href]").Each(appendHref)
		if sel.Is("a[href]") {
			appendHref(0, sel)
		}
		if parent := sel.Closest("a[href]"); parent.Length() > 0 {
			appendHref(0, parent)
		}

		lines = append(lines, parsedLine{text: text, hrefs: hrefs})
	})
	return lines, nil
}

// sliceSection returns the lines strictly between the first line matching
// start and the next line matching end. When no start marker is found the
// whole input is returned; a missing end marker runs to the end.
func sliceSection(lines []parsedLine, start, end func(string) bool) []parsedLine {
	from := -1
	for i, line := range lines {
		text := strings.ToLower(strings.TrimSpace(line.text))
		if from < 0 {
			if start(text) {
				from = i + 1
			}
			continue
		}
		if end(text) {
			return lines[from:i]
		}
	}
	if from < 0 {
		return lines
	}
	return lines[from:]
}

// pickURL prefers an absolute link.
func pickURL(hrefs []string) string {
	for _, href := range hrefs {
		if strings.HasPrefix(href, "http") {
			return href
		}
	}
	if len(hrefs) > 0 {
		return hrefs[0]
	}
	return ""
}

// resolveURL makes href absolute against base, falling back to base itself.
func resolveURL(base, href string) string {
	if href == "" {
		return base
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return base
	}
	h, err := url.Parse(href)
	if err != nil {
		return base
	}
	return b.ResolveReference(h).String()
}
