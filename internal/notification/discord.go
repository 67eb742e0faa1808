package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Discord allows 30 webhook requests per 60 seconds. A fixed pause before
	// every send keeps a burst of alerts well under that limit; it is a
	// throughput throttle, not a retry backoff.
	sendThrottle = time.Second

	deliveryTimeout = 10 * time.Second
)

// DiscordNotifier posts embed messages to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	username   string
	client     *http.Client
	logger     zerolog.Logger
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []Field        `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordPayload struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

func NewDiscordNotifier(webhookURL string, logger zerolog.Logger) (*DiscordNotifier, error) {
	url := strings.TrimSpace(webhookURL)
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required for discord notifier")
	}

	return &DiscordNotifier{
		webhookURL: url,
		username:   "HomeSentry",
		client:     &http.Client{Timeout: deliveryTimeout},
		logger:     logger.With().Str("notifier", "discord").Logger(),
	}, nil
}

// Send posts the message to the webhook after the rate-limit pause. Network
// failures and non-2xx responses come back as errors; nothing is retried here.
func (n *DiscordNotifier) Send(ctx context.Context, msg Message) error {
	select {
	case <-time.After(sendThrottle):
	case <-ctx.Done():
		return ctx.Err()
	}

	footer := &discordFooter{Text: msg.Footer}
	if msg.Footer == "" {
		footer = nil
	}

	payload := discordPayload{
		Username: n.username,
		Embeds: []discordEmbed{{
			Title:       msg.Title,
			Description: msg.Description,
			Color:       msg.Color,
			Fields:      msg.Fields,
			Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339),
			Footer:      footer,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	n.logger.Info().
		Str("title", msg.Title).
		Msg("webhook message sent")
	return nil
}

func (n *DiscordNotifier) String() string {
	return "DiscordNotifier"
}
