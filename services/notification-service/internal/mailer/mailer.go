package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/keighl/postmark"
	"github.com/rs/zerolog"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Postmark sends through the Postmark server API.
type Postmark struct {
	client *postmark.Client
	from   string
}

func NewPostmark(serverToken, from string) *Postmark {
	c := postmark.NewClient(serverToken, "")
	c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	return &Postmark{client: c, from: from}
}

func (p *Postmark) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := p.client.SendEmail(postmark.Email{
		From:     p.from,
		To:       m.To,
		Subject:  m.Subject,
		HtmlBody: m.HTML,
		TextBody: m.Text,
		Tag:      "order",
	})
	if err != nil {
		return fmt.Errorf("postmark send to %s: %w", m.To, err)
	}
	if res.ErrorCode != 0 {
		return fmt.Errorf("postmark send to %s: code %d: %s", m.To, res.ErrorCode, res.Message)
	}
	return nil
}

// Log only records the message. Used when no Postmark token is configured.
type Log struct {
	Log zerolog.Logger
}

func (l Log) Send(_ context.Context, m Message) error {
	l.Log.Info().Str("to", m.To).Str("subject", m.Subject).Msg("mail (log only)")
	return nil
}
