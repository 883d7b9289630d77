// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// maxMessageLen keeps each message under Discord's 2000 character cap with
// headroom for markdown rendering.
const maxMessageLen = 1800

const (
	batchHeader     = "**SBIR matches:**"
	batchHeaderCont = "**SBIR matches (cont.):**"
)

// Dispatcher renders matched opportunities into batched messages and sends
// each batch over every configured transport. A batch counts as delivered
// when at least one transport accepts it.
type Dispatcher struct {
	Transports []Transport

	// Err receives per-transport delivery warnings.
	Err io.Writer
}

// NewDispatcher wires up transports from config. It errors when nothing is
// configured, since a live run with no delivery path can only lose results.
func NewDispatcher(client *httputil.Client, cfg types.NotifyConfig, errW io.Writer) (*Dispatcher, error) {
	var transports []Transport

	discord := &DiscordTransport{
		Client:     client,
		WebhookURL: cfg.DiscordWebhookURL,
		BotToken:   cfg.DiscordBotToken,
		ChannelID:  cfg.DiscordChannelID,
	}
	if discord.Configured() {
		transports = append(transports, discord)
	}
	if cfg.Email.Enabled {
		transports = append(transports, NewEmail(cfg.Email))
	}

	if len(transports) == 0 {
		return nil, fmt.Errorf("no notification transport configured")
	}
	if errW == nil {
		errW = io.Discard
	}
	return &Dispatcher{Transports: transports, Err: errW}, nil
}

// Dispatch sends the matched decisions and returns one result per
// opportunity. Every opportunity in a batch shares that batch's outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, decisions []types.MatchDecision) []types.DispatchResult {
	var results []types.DispatchResult
	for _, batch := range buildBatches(decisions) {
		ok, reason := d.sendBatch(ctx, batch.content)
		for _, id := range batch.ids {
			results = append(results, types.DispatchResult{
				OpportunityID: id,
				OK:            ok,
				Reason:        reason,
			})
		}
	}
	return results
}

// Test sends a single message over every transport, reporting each outcome.
// It errors only when no transport delivers.
func (d *Dispatcher) Test(ctx context.Context, content string) error {
	delivered := 0
	var failures []string
	for _, t := range d.Transports {
		if err := t.Send(ctx, content); err != nil {
			fmt.Fprintf(d.Err, "warning: %s test failed: %v\n", t.Name(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", t.Name(), err))
			continue
		}
		fmt.Fprintf(d.Err, "%s test message delivered\n", t.Name())
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("all transports failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (d *Dispatcher) sendBatch(ctx context.Context, content string) (bool, string) {
	delivered := 0
	var failures []string
	for _, t := range d.Transports {
		if err := t.Send(ctx, content); err != nil {
			fmt.Fprintf(d.Err, "warning: %s delivery failed: %v\n", t.Name(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", t.Name(), err))
			continue
		}
		delivered++
	}
	if delivered > 0 {
		return true, ""
	}
	return false, strings.Join(failures, "; ")
}

type batch struct {
	content string
	ids     []string
}

// buildBatches packs rendered entries into messages under maxMessageLen,
// tracking which opportunities each message carries.
func buildBatches(decisions []types.MatchDecision) []batch {
	var batches []batch
	var b strings.Builder
	var ids []string

	header := func() string {
		if len(batches) == 0 {
			return batchHeader
		}
		return batchHeaderCont
	}
	flush := func() {
		if len(ids) > 0 {
			batches = append(batches, batch{content: b.String(), ids: ids})
			b = strings.Builder{}
			ids = nil
		}
	}

	for _, dec := range decisions {
		entry := formatMatch(dec)
		if len(entry) > maxMessageLen-len(batchHeaderCont)-2 {
			entry = entry[:maxMessageLen-len(batchHeaderCont)-3] + "…"
		}
		if b.Len() > 0 && b.Len()+len(entry)+1 > maxMessageLen {
			flush()
		}
		if b.Len() == 0 {
			b.WriteString(header())
		}
		b.WriteString("\n")
		b.WriteString(entry)
		ids = append(ids, dec.Opportunity.ID)
	}
	flush()

	return batches
}

// formatMatch renders one opportunity as a markdown block.
func formatMatch(d types.MatchDecision) string {
	o := d.Opportunity
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**", o.Title())
	if o.Agency != "" {
		fmt.Fprintf(&b, " — %s", o.Agency)
		if o.Branch != "" {
			fmt.Fprintf(&b, " / %s", o.Branch)
		}
	}
	fmt.Fprintf(&b, " [%s]", o.Source)

	if len(d.MatchedKeywords) > 0 {
		fmt.Fprintf(&b, "\nmatched: %s (score %d)", strings.Join(d.MatchedKeywords, ", "), d.Score)
	}
	if o.CloseDate != "" {
		fmt.Fprintf(&b, "\ncloses: %s", o.CloseDate)
	}
	if o.URL != "" {
		fmt.Fprintf(&b, "\n%s", o.URL)
	}
	return b.String()
}
