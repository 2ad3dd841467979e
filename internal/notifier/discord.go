package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/property-scanner/internal/models"
)

const (
	colorRightmove   = 0x00DEB6
	colorZoopla      = 0x8046F1
	colorOnTheMarket = 0x2C3E50
	colorSpareroom   = 0x5AB031
	colorOpenRent    = 0xE74C3C
	colorDefault     = 0x2F3136

	// Discord accepts at most ten embeds per webhook message.
	maxEmbedsPerMessage = 10
	maxDiscordRetries   = 3
)

var sourceColors = map[models.Source]int{
	models.SourceRightmove:   colorRightmove,
	models.SourceZoopla:      colorZoopla,
	models.SourceOnTheMarket: colorOnTheMarket,
	models.SourceSpareroom:   colorSpareroom,
	models.SourceOpenRent:    colorOpenRent,
}

// Discord posts listings to a webhook, one embed per listing.
type Discord struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Webhooks allow 5 requests per 2 seconds.
		rateLimiter: rate.NewLimiter(rate.Every(400*time.Millisecond), 1),
	}
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedImage struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Thumbnail   *discordEmbedImage  `json:"thumbnail,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

// Notify posts the batch in messages of up to ten embeds.
func (d *Discord) Notify(ctx context.Context, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	for start := 0; start < len(listings); start += maxEmbedsPerMessage {
		end := min(start+maxEmbedsPerMessage, len(listings))
		embeds := make([]discordEmbed, 0, end-start)
		for _, l := range listings[start:end] {
			embeds = append(embeds, formatListingEmbed(l))
		}
		payload := discordWebhookPayload{Embeds: embeds}
		if start == 0 {
			payload.Content = fmt.Sprintf("%d new properties found", len(listings))
		}
		if err := d.post(ctx, payload); err != nil {
			return &models.NotificationError{Method: MethodDiscord, Err: err}
		}
	}
	slog.Info("Discord notification sent", "listings", len(listings))
	return nil
}

func formatListingEmbed(l models.Listing) discordEmbed {
	embed := discordEmbed{
		Title:  displayTitle(l),
		URL:    l.Link,
		Color:  colorDefault,
		Footer: discordEmbedFooter{Text: string(l.Source)},
	}
	if c, ok := sourceColors[l.Source]; ok {
		embed.Color = c
	}
	if l.Address != "" {
		embed.Description = l.Address
	}
	if !l.AddedOn.IsZero() {
		embed.Timestamp = l.AddedOn.Format(time.RFC3339)
	}
	if len(l.Images) > 0 {
		embed.Thumbnail = &discordEmbedImage{URL: l.Images[0]}
	}
	if l.PriceText != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Price", Value: l.PriceText, Inline: true})
	}
	if l.Bedrooms != nil {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Bedrooms", Value: strconv.Itoa(*l.Bedrooms), Inline: true})
	}
	return embed
}

func (d *Discord) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxDiscordRetries; attempt++ {
		if err := d.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook request failed: %w", err)
			if !sleepCtx(ctx, time.Duration(1<<attempt)*time.Second) {
				return ctx.Err()
			}
			continue
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("discord status: %s, body: %s", resp.Status, string(respBody))

		backoff := retryBackoff(resp, attempt)
		if backoff == 0 {
			return lastErr
		}
		slog.Warn("Discord webhook failed, retrying", "status", resp.StatusCode, "attempt", attempt+1, "backoff", backoff)
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = errors.New("webhook retries exhausted")
	}
	return fmt.Errorf("failed after %d retries: %w", maxDiscordRetries, lastErr)
}

// retryBackoff returns how long to wait before retrying resp, or zero when
// the request should not be retried.
func retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 0 {
				return time.Duration(secs * float64(time.Second))
			}
		}
		return time.Duration(1<<attempt) * time.Second
	case resp.StatusCode >= 500:
		return time.Duration(1<<attempt) * 500 * time.Millisecond
	default:
		return 0
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
