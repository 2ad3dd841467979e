package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/pauljones0/property-scanner/internal/models"
)

// EmailConfig is the SMTP endpoint and envelope. Port 465 uses implicit TLS
// unless StartTLS is set.
type EmailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Sender    string
	Recipient string
	StartTLS  bool
}

type Email struct {
	cfg  EmailConfig
	send func(ctx context.Context, msg *mail.Msg) error
	now  func() time.Time
}

func NewEmail(cfg EmailConfig) *Email {
	e := &Email{cfg: cfg, now: time.Now}
	e.send = e.dialAndSend
	return e
}

// Notify sends one plain-text email summarising every listing.
func (e *Email) Notify(ctx context.Context, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(e.cfg.Sender); err != nil {
		return &models.NotificationError{Method: MethodEmail, Err: fmt.Errorf("invalid sender %q: %w", e.cfg.Sender, err)}
	}
	if err := msg.To(e.cfg.Recipient); err != nil {
		return &models.NotificationError{Method: MethodEmail, Err: fmt.Errorf("invalid recipient %q: %w", e.cfg.Recipient, err)}
	}
	msg.Subject(composeSubject(len(listings), e.now()))
	msg.SetBodyString(mail.TypeTextPlain, composeBody(listings))

	if err := e.send(ctx, msg); err != nil {
		return &models.NotificationError{Method: MethodEmail, Err: err}
	}
	slog.Info("Email notification sent", "listings", len(listings), "recipient", e.cfg.Recipient)
	return nil
}

func (e *Email) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.cfg.Username),
		mail.WithPassword(e.cfg.Password),
		mail.WithTimeout(30 * time.Second),
	}
	if e.cfg.StartTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithSSL())
	}

	client, err := mail.NewClient(e.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email via %s:%d: %w", e.cfg.Host, e.cfg.Port, err)
	}
	return nil
}

func composeSubject(n int, at time.Time) string {
	return fmt.Sprintf("New Properties Found: %d at %s", n, at.Format(time.DateTime))
}

func composeBody(listings []models.Listing) string {
	var b strings.Builder
	b.WriteString("New properties found:\n\n")
	for _, l := range listings {
		fmt.Fprintf(&b, "%s - %s - %s - [%s]\n", displayTitle(l), l.PriceText, l.Address, l.Source)
		fmt.Fprintf(&b, "Link: %s\n\n", l.Link)
	}
	return b.String()
}

func displayTitle(l models.Listing) string {
	if l.Title == "" {
		return "Property"
	}
	return l.Title
}
