package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender delivers notifications via the Telegram Bot API in HTML
// parse mode with link previews disabled.
type TelegramSender struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat
// ID. It uses a default HTTP client with a 25-second timeout.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: 25 * time.Second},
	}
}

// WithBaseURL points the sender at a different Bot API host.
func (t *TelegramSender) WithBaseURL(u string) *TelegramSender {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send posts a message to the configured chat using sendMessage. A non-empty
// title is escaped and rendered in bold above the message.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	text := message
	if title != "" {
		text = "<b>" + html.EscapeString(title) + "</b>\n" + message
	}

	body, err := json.Marshal(telegramMessage{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the bot token.
		var ue *neturl.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
