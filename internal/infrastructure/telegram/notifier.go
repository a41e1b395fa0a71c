package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"CaseScanner/internal/config"
	"CaseScanner/internal/ports"
)

const (
	defaultAPIURL = "https://api.telegram.org"
	// Telegram rejects messages above this many characters.
	maxMessageLen = 4096
)

// Notifier sends run summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *resty.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token, chat identifier and API endpoint.
func NewNotifier(cfg config.TelegramConfig) *Notifier {
	apiURL := strings.TrimSuffix(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Notifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   resty.New().SetBaseURL(apiURL).SetTimeout(5 * time.Second),
	}
}

// Enabled reports whether both the token and the chat are set.
func (n *Notifier) Enabled() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// PublishSummary posts a plain-text message to Telegram.
func (n *Notifier) PublishSummary(ctx context.Context, summary string) error {
	if !n.Enabled() {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	if len(summary) > maxMessageLen {
		summary = truncate(summary, maxMessageLen)
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": n.chatID,
			"text":    summary,
		}).
		Post("/bot" + n.botToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status())
	}

	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
