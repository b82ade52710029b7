package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Slack posts to an incoming webhook. Messages carry a plain text fallback
// plus a header and a code block, so multi-line errors stay readable.
type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{Webhook: webhook, Client: &http.Client{Timeout: 10 * time.Second}}
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// header blocks are limited to 150 characters
const maxHeader = 150

func slackPayload(title, text string) slackMessage {
	header := title
	if r := []rune(header); len(r) > maxHeader {
		header = string(r[:maxHeader-1]) + "…"
	}
	return slackMessage{
		Text: title + "\n" + text,
		Blocks: []slackBlock{
			{Type: "header", Text: slackText{Type: "plain_text", Text: header}},
			{Type: "section", Text: slackText{Type: "mrkdwn", Text: "```" + text + "```"}},
		},
	}
}

func (s *Slack) Send(ctx context.Context, title, text string) error {
	if s == nil || s.Webhook == "" {
		return errors.New("slack disabled")
	}
	body, err := json.Marshal(slackPayload(title, text))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		// Slack answers errors with a short plain-text reason, e.g. "invalid_blocks"
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack: webhook returned %d %s", resp.StatusCode, bytes.TrimSpace(reason))
	}
	return nil
}
