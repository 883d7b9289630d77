// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers match notifications over Discord and email.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	gomail "gopkg.in/mail.v2"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// DiscordAPIBase is the Discord REST endpoint prefix. Tests point it at a
// local server.
var DiscordAPIBase = "https://discord.com/api/v10"

// Transport sends one rendered message over a delivery channel.
type Transport interface {
	Name() string
	Send(ctx context.Context, content string) error
}

// DiscordTransport posts messages to Discord, preferring the webhook and
// falling back to the bot API when the webhook is unset or fails.
type DiscordTransport struct {
	Client     *httputil.Client
	WebhookURL string
	BotToken   string
	ChannelID  string
}

func (t *DiscordTransport) Name() string { return "discord" }

// Configured reports whether at least one Discord delivery path is set up.
func (t *DiscordTransport) Configured() bool {
	return t.WebhookURL != "" || (t.BotToken != "" && t.ChannelID != "")
}

func (t *DiscordTransport) Send(ctx context.Context, content string) error {
	if !t.Configured() {
		return fmt.Errorf("discord transport not configured")
	}

	var webhookErr error
	if t.WebhookURL != "" {
		webhookErr = t.post(ctx, t.WebhookURL, content, nil)
		if webhookErr == nil {
			return nil
		}
	}

	if t.BotToken != "" && t.ChannelID != "" {
		botErr := t.post(ctx,
			DiscordAPIBase+"/channels/"+t.ChannelID+"/messages",
			content,
			map[string]string{"Authorization": "Bot " + t.BotToken},
		)
		if botErr == nil {
			return nil
		}
		if webhookErr != nil {
			return fmt.Errorf("webhook: %v; bot: %v", webhookErr, botErr)
		}
		return fmt.Errorf("bot: %w", botErr)
	}

	return fmt.Errorf("webhook: %w", webhookErr)
}

func (t *DiscordTransport) post(ctx context.Context, url, content string, headers map[string]string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	resp, err := t.Client.PostJSON(ctx, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("discord returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// EmailTransport sends messages through an SMTP relay.
type EmailTransport struct {
	Config  types.EmailConfig
	Subject string

	// send is replaceable for tests; the default dials the relay.
	send func(m *gomail.Message) error
}

// NewEmail builds the SMTP transport.
func NewEmail(cfg types.EmailConfig) *EmailTransport {
	t := &EmailTransport{Config: cfg, Subject: "sbir-search: new solicitation matches"}
	t.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		return d.DialAndSend(m)
	}
	return t
}

func (t *EmailTransport) Name() string { return "email" }

func (t *EmailTransport) Send(ctx context.Context, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Config.SMTPServer == "" || t.Config.FromEmail == "" || t.Config.ToEmail == "" {
		return fmt.Errorf("email transport not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", t.Config.FromEmail)
	m.SetHeader("To", t.Config.ToEmail)
	m.SetHeader("Subject", t.Subject)
	m.SetBody("text/plain", content)

	if err := t.send(m); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}
