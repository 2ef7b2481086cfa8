// Package mail delivers digest messages over SMTP. Like the other adapters it
// fails open: a missing template or an SMTP failure is logged and the send is
// skipped, so one dead mail server never halts the recipient loop.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"

	"cctnotify/internal/domain"
)

type Config struct {
	Host         string
	Port         int
	Sender       string // also the SMTP username when Password is set
	Password     string
	TemplatePath string

	// RatePerSec paces deliveries; the mail relay is a shared resource.
	RatePerSec float64
}

type Mailer struct {
	client       *gomail.Client
	sender       string
	templatePath string
	limiter      *rate.Limiter
	log          *slog.Logger
}

// New validates the transport parameters and builds the SMTP client. Missing
// host/port/sender is a construction-time fatal.
func New(cfg Config, logger *slog.Logger) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.Sender == "" {
		return nil, fmt.Errorf("mail: SMTP host, port and sender are required")
	}
	if cfg.TemplatePath == "" {
		return nil, fmt.Errorf("mail: template path is required")
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Sender),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: build client: %w", err)
	}

	return &Mailer{
		client:       client,
		sender:       cfg.Sender,
		templatePath: cfg.TemplatePath,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		log:          logger,
	}, nil
}

// Send renders the digest into the HTML template and delivers it. The error
// return is always nil; failures are logged here.
func (m *Mailer) Send(ctx context.Context, toEmail, subject string, digest domain.Digest) error {
	template, err := os.ReadFile(m.templatePath)
	if err != nil {
		m.log.Error("mail template not readable", "path", m.templatePath, "error", err)
		return nil
	}

	body := Render(string(template), digestContext(digest))

	msg := gomail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		m.log.Error("bad sender address", "from", m.sender, "error", err)
		return nil
	}
	if err := msg.To(toEmail); err != nil {
		m.log.Error("bad recipient address", "to", toEmail, "error", err)
		return nil
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	if err := m.limiter.Wait(ctx); err != nil {
		m.log.Error("send cancelled", "to", toEmail, "error", err)
		return nil
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.log.Error("smtp send failed", "to", toEmail, "error", err)
		return nil
	}

	m.log.Info("digest sent", "to", toEmail)
	return nil
}

// digestContext flattens a digest into the template context shape:
// { name, agreementCode, posts: [{id, title}] }.
func digestContext(d domain.Digest) map[string]any {
	posts := make([]map[string]any, len(d.Posts))
	for i, p := range d.Posts {
		posts[i] = map[string]any{"id": p.ID, "title": p.Title}
	}
	return map[string]any{
		"name":          d.Name,
		"agreementCode": d.AgreementCode,
		"posts":         posts,
	}
}
