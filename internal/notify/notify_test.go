// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gomail "gopkg.in/mail.v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

func newTestClient() *httputil.Client {
	return httputil.NewClient(types.HTTPConfig{Timeout: 5 * time.Second})
}

type stubTransport struct {
	name string
	err  error
	sent []string
}

func (s *stubTransport) Name() string { return s.name }

func (s *stubTransport) Send(_ context.Context, content string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, content)
	return nil
}

func decision(id, title string) types.MatchDecision {
	return types.MatchDecision{
		Opportunity: types.Opportunity{ID: id, Source: "sbir", TopicTitle: title},
		Matched:     true,
		Score:       1,
	}
}

func TestDiscordWebhookSend(t *testing.T) {
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	tr := &DiscordTransport{Client: newTestClient(), WebhookURL: ts.URL}
	require.NoError(t, tr.Send(context.Background(), "hello"))
	assert.Equal(t, "hello", got["content"])
}

func TestDiscordFallsBackToBot(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer webhook.Close()

	var auth, path string
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		fmt.Fprint(w, `{"id": "1"}`)
	}))
	defer bot.Close()

	oldBase := DiscordAPIBase
	DiscordAPIBase = bot.URL
	defer func() { DiscordAPIBase = oldBase }()

	tr := &DiscordTransport{
		Client:     newTestClient(),
		WebhookURL: webhook.URL,
		BotToken:   "tok-1",
		ChannelID:  "555",
	}
	require.NoError(t, tr.Send(context.Background(), "fallback"))
	assert.Equal(t, "Bot tok-1", auth)
	assert.Equal(t, "/channels/555/messages", path)
}

func TestDiscordBothPathsFailing(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer down.Close()

	oldBase := DiscordAPIBase
	DiscordAPIBase = down.URL
	defer func() { DiscordAPIBase = oldBase }()

	tr := &DiscordTransport{
		Client:     newTestClient(),
		WebhookURL: down.URL,
		BotToken:   "tok",
		ChannelID:  "1",
	}
	err := tr.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
	assert.Contains(t, err.Error(), "bot")
}

func TestEmailSendBuildsMessage(t *testing.T) {
	tr := NewEmail(types.EmailConfig{
		Enabled:    true,
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		FromEmail:  "bot@example.com",
		ToEmail:    "me@example.com",
	})

	var captured *gomail.Message
	tr.send = func(m *gomail.Message) error {
		captured = m
		return nil
	}

	require.NoError(t, tr.Send(context.Background(), "body text"))
	require.NotNil(t, captured)
	assert.Equal(t, []string{"me@example.com"}, captured.GetHeader("To"))
}

func TestNewDispatcherRequiresTransport(t *testing.T) {
	_, err := NewDispatcher(newTestClient(), types.NotifyConfig{}, nil)
	require.Error(t, err)

	d, err := NewDispatcher(newTestClient(), types.NotifyConfig{DiscordWebhookURL: "https://x"}, nil)
	require.NoError(t, err)
	assert.Len(t, d.Transports, 1)
}

func TestDispatchBatchesLongRuns(t *testing.T) {
	stub := &stubTransport{name: "stub"}
	d := &Dispatcher{Transports: []Transport{stub}, Err: &bytes.Buffer{}}

	long := strings.Repeat("critical infrastructure resilience ", 12)
	var decisions []types.MatchDecision
	for i := 0; i < 12; i++ {
		decisions = append(decisions, decision(fmt.Sprintf("sbir::t-%d", i), long))
	}

	results := d.Dispatch(context.Background(), decisions)
	require.Len(t, results, 12)
	for _, r := range results {
		assert.True(t, r.OK)
		assert.Empty(t, r.Reason)
	}

	require.Greater(t, len(stub.sent), 1, "long run should split into multiple messages")
	assert.True(t, strings.HasPrefix(stub.sent[0], batchHeader))
	assert.True(t, strings.HasPrefix(stub.sent[1], batchHeaderCont))
	for _, msg := range stub.sent {
		assert.LessOrEqual(t, len(msg), maxMessageLen)
	}
}

func TestDispatchFailureMarksEveryMember(t *testing.T) {
	stub := &stubTransport{name: "stub", err: fmt.Errorf("connection refused")}
	d := &Dispatcher{Transports: []Transport{stub}, Err: &bytes.Buffer{}}

	results := d.Dispatch(context.Background(), []types.MatchDecision{
		decision("sbir::a", "Topic A"),
		decision("sbir::b", "Topic B"),
	})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.OK)
		assert.Contains(t, r.Reason, "connection refused")
	}
}

func TestDispatchOneTransportSufficient(t *testing.T) {
	ok := &stubTransport{name: "discord"}
	failing := &stubTransport{name: "email", err: fmt.Errorf("relay down")}
	var warnings bytes.Buffer
	d := &Dispatcher{Transports: []Transport{ok, failing}, Err: &warnings}

	results := d.Dispatch(context.Background(), []types.MatchDecision{decision("sbir::a", "Topic A")})
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
	assert.Contains(t, warnings.String(), "email delivery failed")
}

func TestDispatchNoDecisionsNoMessages(t *testing.T) {
	stub := &stubTransport{name: "stub"}
	d := &Dispatcher{Transports: []Transport{stub}, Err: &bytes.Buffer{}}

	results := d.Dispatch(context.Background(), nil)
	assert.Empty(t, results)
	assert.Empty(t, stub.sent)
}

func TestTestMessageAggregatesFailures(t *testing.T) {
	var warnings bytes.Buffer
	d := &Dispatcher{
		Transports: []Transport{
			&stubTransport{name: "discord", err: fmt.Errorf("401")},
			&stubTransport{name: "email", err: fmt.Errorf("relay down")},
		},
		Err: &warnings,
	}
	err := d.Test(context.Background(), "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord")
	assert.Contains(t, err.Error(), "email")

	d.Transports = append(d.Transports, &stubTransport{name: "ok"})
	assert.NoError(t, d.Test(context.Background(), "ping"))
}

func TestFormatMatchFields(t *testing.T) {
	msg := formatMatch(types.MatchDecision{
		Opportunity: types.Opportunity{
			ID:         "sbir::x",
			Source:     "sbir",
			TopicTitle: "Autonomy for Contested Logistics",
			Agency:     "DOD",
			Branch:     "DARPA",
			CloseDate:  "2026-10-01",
			URL:        "https://example.gov/topic",
		},
		Matched:         true,
		Score:           2,
		MatchedKeywords: []string{"autonomy", "logistics"},
	})

	assert.Contains(t, msg, "**Autonomy for Contested Logistics**")
	assert.Contains(t, msg, "DOD / DARPA")
	assert.Contains(t, msg, "matched: autonomy, logistics (score 2)")
	assert.Contains(t, msg, "closes: 2026-10-01")
	assert.Contains(t, msg, "https://example.gov/topic")
}
