// Package notifier delivers batches of new listings to the configured channel.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pauljones0/property-scanner/internal/models"
)

// Notification methods accepted in configuration.
const (
	MethodEmail   = "email"
	MethodDiscord = "discord"
	MethodLog     = "log"
	MethodNone    = "none"
)

// Notifier sends one batch of listings. Implementations treat an empty batch
// as a no-op and report transport failures as *models.NotificationError.
type Notifier interface {
	Notify(ctx context.Context, listings []models.Listing) error
}

// Settings selects and configures a notifier.
type Settings struct {
	Method            string
	Email             EmailConfig
	DiscordWebhookURL string
}

// New builds the notifier for s.Method. Email and Discord fall back to
// logging the batch when delivery fails.
func New(s Settings) (Notifier, error) {
	switch s.Method {
	case MethodEmail:
		return &Fallback{Primary: NewEmail(s.Email), Secondary: NewLog(), method: MethodEmail}, nil
	case MethodDiscord:
		if s.DiscordWebhookURL == "" {
			return nil, errors.New("discord notifications need a webhook URL")
		}
		return &Fallback{Primary: NewDiscord(s.DiscordWebhookURL), Secondary: NewLog(), method: MethodDiscord}, nil
	case MethodLog:
		return NewLog(), nil
	case MethodNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown notification method %q", s.Method)
	}
}

// Fallback hands the batch to Secondary when Primary fails. The primary
// error is still returned so the run report records it.
type Fallback struct {
	Primary   Notifier
	Secondary Notifier
	method    string
}

func (f *Fallback) Notify(ctx context.Context, listings []models.Listing) error {
	err := f.Primary.Notify(ctx, listings)
	if err == nil {
		return nil
	}
	slog.Error("Notification failed, falling back", "method", f.method, "error", err)
	if fbErr := f.Secondary.Notify(ctx, listings); fbErr != nil {
		slog.Error("Fallback notification failed", "error", fbErr)
	}
	return err
}

// Nop discards every batch.
type Nop struct{}

func (Nop) Notify(context.Context, []models.Listing) error { return nil }
