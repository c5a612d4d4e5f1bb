package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/aniversariantes/api/internal/models"
)

// Notifier sends one celebratory message for a birthday record.
type Notifier interface {
	Send(ctx context.Context, birthday models.Birthday) error
}

// DiscordConfig holds webhook delivery settings.
type DiscordConfig struct {
	// WebhookURL is the Discord webhook endpoint.
	WebhookURL string

	// MaxRetries is the number of additional attempts after a transient
	// failure (default: 3).
	MaxRetries int

	// BaseDelay is the first backoff delay; it doubles per attempt
	// (default: 500ms).
	BaseDelay time.Duration

	// Timeout bounds each HTTP attempt (default: 30s).
	Timeout time.Duration
}

// DiscordNotifier delivers birthday announcements via a Discord webhook.
// The webhook response body is never parsed.
type DiscordNotifier struct {
	cfg    DiscordConfig
	client *http.Client
	logger zerolog.Logger
}

// Ensure DiscordNotifier satisfies Notifier at compile time.
var _ Notifier = (*DiscordNotifier)(nil)

// NewDiscordNotifier creates a notifier, filling config defaults.
func NewDiscordNotifier(cfg DiscordConfig, logger *zerolog.Logger) *DiscordNotifier {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &DiscordNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "discord-notifier").Logger(),
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Send posts the celebratory message, retrying transient failures (network
// errors, 429, 5xx) with exponential backoff. Other 4xx responses are
// permanent and returned immediately.
func (n *DiscordNotifier) Send(ctx context.Context, birthday models.Birthday) error {
	content := fmt.Sprintf("🎉 Hoje é aniversário de %s (%s)! Parabéns, %s! 🎂",
		birthday.DisplayName, birthday.RealName, birthday.ChatHandle)

	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := n.cfg.BaseDelay * (1 << (attempt - 1))
			n.logger.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying webhook delivery after delay")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		retryable, err := n.post(ctx, body)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", n.cfg.MaxRetries+1, lastErr)
}

func (n *DiscordNotifier) post(ctx context.Context, body []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
