// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

func testClient() *httputil.Client {
	return httputil.NewClient(types.HTTPConfig{
		Timeout:   5 * time.Second,
		UserAgent: "sbir-search/test",
	})
}

const sbirSolicitation = `{
	"solicitation_title": "Air Force SBIR 24.1",
	"solicitation_number": "AF-24.1",
	"agency": "DOD",
	"branch": "USAF",
	"open_date": "2026-01-01",
	"close_date": "2026-03-01",
	"sbir_solicitation_link": "https://www.sbir.gov/node/1",
	"solicitation_topics": [
		{
			"topic_title": "Hypersonics",
			"topic_number": "AF241-001",
			"topic_description": "hypersonic vehicle design",
			"sbir_topic_link": "https://www.sbir.gov/node/1/topic/1",
			"subtopics": [
				{"subtopic_title": "Materials", "subtopic_description": "thermal protection"},
				{"subtopic_title": "Guidance", "subtopic_description": "terminal guidance"}
			]
		},
		{
			"topic_title": "Reverse Engineering",
			"topic_number": "AF241-002",
			"topic_description": "binary analysis tooling"
		}
	]
}`

func TestSBIRFetchExplodesTopics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"solicitations": [%s]}`, sbirSolicitation)
	}))
	defer ts.Close()

	src := NewSBIR(testClient(), types.MatchConfig{
		APIBaseURLs: []string{ts.URL},
		Rows:        50,
		MaxPages:    1,
		OpenOnly:    true,
	})

	opps, status := src.Fetch(context.Background())
	if !status.OK() {
		t.Fatalf("status = %v, want ok", status)
	}
	// Two subtopic leaves plus one topic without subtopics.
	if len(opps) != 3 {
		t.Fatalf("len(opps) = %d, want 3", len(opps))
	}

	wantIDs := map[string]bool{
		"sbir::AF-24.1::AF241-001::Materials": true,
		"sbir::AF-24.1::AF241-001::Guidance":  true,
		"sbir::AF-24.1::AF241-002":            true,
	}
	for _, o := range opps {
		if !wantIDs[o.ID] {
			t.Errorf("unexpected id %q", o.ID)
		}
		if o.Source != "sbir" || o.Agency != "DOD" || !o.Open {
			t.Errorf("leaf %q not normalized: %+v", o.ID, o)
		}
	}
}

func TestSBIRFetchPaginates(t *testing.T) {
	var pages []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows, _ := strconv.Atoi(r.URL.Query().Get("rows"))
		start := r.URL.Query().Get("start")
		if rows == 1 {
			// Base URL probe.
			fmt.Fprint(w, `[{"solicitation_title": "probe", "solicitation_number": "P-1"}]`)
			return
		}
		pages = append(pages, start)
		if start == "0" {
			// Full page: forces a second request.
			w.Write([]byte("["))
			for i := 0; i < rows; i++ {
				if i > 0 {
					w.Write([]byte(","))
				}
				fmt.Fprintf(w, `{"solicitation_title": "S%d", "solicitation_number": "N-%s-%d"}`, i, start, i)
			}
			w.Write([]byte("]"))
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	src := NewSBIR(testClient(), types.MatchConfig{
		APIBaseURLs: []string{ts.URL},
		Rows:        10,
		MaxPages:    5,
	})

	opps, status := src.Fetch(context.Background())
	if !status.OK() {
		t.Fatalf("status = %v, want ok", status)
	}
	if len(opps) != 10 {
		t.Errorf("len(opps) = %d, want 10", len(opps))
	}
	if len(pages) != 2 || pages[0] != "0" || pages[1] != "10" {
		t.Errorf("pages fetched = %v, want [0 10]", pages)
	}
}

func TestSBIRFetchProbesBaseURLs(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()

	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `[%s]`, sbirSolicitation)
	}))
	defer live.Close()

	src := NewSBIR(testClient(), types.MatchConfig{
		APIBaseURLs: []string{dead.URL, live.URL},
		MaxPages:    1,
	})

	opps, status := src.Fetch(context.Background())
	if !status.OK() {
		t.Fatalf("status = %v, want ok after falling through to second base URL", status)
	}
	if len(opps) == 0 {
		t.Error("no opportunities from live base URL")
	}
}

func TestSBIRFetchFailsWhenAllBaseURLsDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	src := NewSBIR(testClient(), types.MatchConfig{APIBaseURLs: []string{ts.URL}})

	_, status := src.Fetch(context.Background())
	if !status.Failed() {
		t.Fatalf("status = %v, want failed", status)
	}
}

func TestExtractRecordsEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    int
	}{
		{"bare list", []any{map[string]any{"a": "b"}}, 1},
		{"solicitations key", map[string]any{"solicitations": []any{map[string]any{}}}, 1},
		{"results key", map[string]any{"results": []any{map[string]any{}, map[string]any{}}}, 2},
		{"non-dict entries skipped", []any{"junk", map[string]any{}}, 1},
		{"unknown shape", map[string]any{"other": 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(extractRecords(tt.payload)); got != tt.want {
				t.Errorf("extractRecords() returned %d records, want %d", got, tt.want)
			}
		})
	}
}

func TestSBIRIDStability(t *testing.T) {
	if got := sbirID("AF-24.1", "AF241-001", "Materials"); got != "sbir::AF-24.1::AF241-001::Materials" {
		t.Errorf("sbirID = %q", got)
	}
	if got := sbirID("", "", ""); got != "sbir::unknown" {
		t.Errorf("sbirID empty = %q", got)
	}
}
