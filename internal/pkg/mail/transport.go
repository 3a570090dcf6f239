package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gopkg.in/gomail.v2"
)

// NoopTransport drops every message. Used when mail is disabled.
type NoopTransport struct{}

func (NoopTransport) Deliver(context.Context, Message) error { return nil }

// SMTPTransport sends through gomail.
type SMTPTransport struct {
	dialer *gomail.Dialer
}

func NewSMTPTransport(cfg Config) *SMTPTransport {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	d := gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Pass)
	d.SSL = cfg.SSL || port == 465
	return &SMTPTransport{dialer: d}
}

// Deliver opens a connection per message. gomail has no context support, so
// cancellation is only honored before dialing.
func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}
	return t.dialer.DialAndSend(m)
}

const resendEndpoint = "https://api.resend.com/emails"

// ResendTransport sends via the Resend HTTP API.
type ResendTransport struct {
	key      string
	endpoint string
	client   *http.Client
}

func NewResendTransport(key string) *ResendTransport {
	return &ResendTransport{
		key:      key,
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *ResendTransport) Deliver(ctx context.Context, msg Message) error {
	body := map[string]any{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if msg.Text != "" {
		body["text"] = msg.Text
	}
	if msg.ReplyTo != "" {
		body["reply_to"] = msg.ReplyTo
	}
	if len(msg.Headers) > 0 {
		body["headers"] = msg.Headers
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}
