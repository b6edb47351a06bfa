package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

// Discord rejects webhook content longer than this.
const discordMaxContent = 2000

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. It uses a
// default HTTP client with a 10-second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

var htmlToMarkdown = strings.NewReplacer(
	"<b>", "**", "</b>", "**",
	"<i>", "_", "</i>", "_",
	"<code>", "`", "</code>", "`",
)

// Send posts a message to the Discord webhook. The HTML body is converted to
// Discord markdown and truncated to the webhook limit.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	content := html.UnescapeString(htmlToMarkdown.Replace(message))
	if title != "" {
		content = fmt.Sprintf("**%s**\n%s", title, content)
	}
	if r := []rune(content); len(r) > discordMaxContent {
		content = string(r[:discordMaxContent-1]) + "…"
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
