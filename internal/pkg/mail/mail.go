package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/noticias/core/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBulkConcurrency caps in-flight sends in SendBulk when the config
// leaves it unset.
const DefaultBulkConcurrency = 8

// Config holds mail provider settings.
type Config struct {
	Enable          bool
	Host            string
	Port            int
	User            string
	Pass            string
	SSL             bool
	From            string
	FromName        string
	ReplyTo         string
	UseResend       bool
	ResendKey       string
	BulkConcurrency int
}

// Priority maps to the X-Priority family of headers.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Options describes one email. Template names a registered template that is
// executed with Context; when Template is empty HTML is sent as is.
type Options struct {
	To       string
	Subject  string
	Template string
	Context  map[string]any
	HTML     string
	Text     string
	Priority Priority
	Headers  map[string]string
}

// Message is a rendered email ready for a transport.
type Message struct {
	From    string
	ReplyTo string
	To      []string
	Subject string
	HTML    string
	Text    string
	Headers map[string]string
}

// Transport delivers rendered messages.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Sender is the contract consumed by the services.
type Sender interface {
	Send(ctx context.Context, opts Options) error
	SendBulk(ctx context.Context, batch []Options) []Result
}

// Result is the outcome for one entry of a SendBulk batch.
type Result struct {
	To  string
	Err error
}

// Mailer renders templates and hands messages to a transport.
type Mailer struct {
	cfg       Config
	transport Transport
	templates *Templates
	logger    *zap.Logger
}

type Option func(*Mailer)

func WithLogger(l *zap.Logger) Option {
	return func(m *Mailer) {
		if l != nil {
			m.logger = l.Named("Mailer")
		}
	}
}

// WithTransport overrides the transport chosen from Config.
func WithTransport(t Transport) Option {
	return func(m *Mailer) { m.transport = t }
}

// WithTemplates overrides the built-in template set.
func WithTemplates(t *Templates) Option {
	return func(m *Mailer) { m.templates = t }
}

// New builds a mailer. Disabled mail gets a transport that drops messages;
// otherwise Resend is used when configured, SMTP otherwise.
func New(cfg Config, opts ...Option) *Mailer {
	if cfg.BulkConcurrency <= 0 {
		cfg.BulkConcurrency = DefaultBulkConcurrency
	}
	m := &Mailer{cfg: cfg, logger: zap.NewNop(), templates: DefaultTemplates()}
	switch {
	case !cfg.Enable:
		m.transport = NoopTransport{}
	case cfg.UseResend && cfg.ResendKey != "":
		m.transport = NewResendTransport(cfg.ResendKey)
	default:
		m.transport = NewSMTPTransport(cfg)
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Send renders and delivers a single email.
func (m *Mailer) Send(ctx context.Context, opts Options) error {
	msg, err := m.render(opts)
	if err != nil {
		metrics.MailsSent.WithLabelValues(templateLabel(opts), "error").Inc()
		return err
	}
	err = m.transport.Deliver(ctx, msg)
	metrics.MailsSent.WithLabelValues(templateLabel(opts), metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("deliver mail to %s: %w", opts.To, err)
	}
	m.logger.Debug("mail sent", zap.String("to", opts.To), zap.String("template", opts.Template))
	return nil
}

// SendBulk sends every entry and waits for all of them. A failure never
// stops the others; results are index-aligned with batch. At most
// Config.BulkConcurrency sends are in flight.
func (m *Mailer) SendBulk(ctx context.Context, batch []Options) []Result {
	results := make([]Result, len(batch))
	var g errgroup.Group
	g.SetLimit(m.cfg.BulkConcurrency)
	for i, opts := range batch {
		g.Go(func() error {
			results[i] = Result{To: opts.To}
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Err = m.Send(ctx, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Mailer) render(opts Options) (Message, error) {
	if strings.TrimSpace(opts.To) == "" {
		return Message{}, fmt.Errorf("mail: empty recipient")
	}
	html := opts.HTML
	if opts.Template != "" {
		var err error
		html, err = m.templates.Render(opts.Template, opts.Context)
		if err != nil {
			return Message{}, err
		}
	}

	headers := priorityHeaders(opts.Priority)
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return Message{
		From:    m.from(),
		ReplyTo: m.cfg.ReplyTo,
		To:      []string{opts.To},
		Subject: opts.Subject,
		HTML:    html,
		Text:    opts.Text,
		Headers: headers,
	}, nil
}

func (m *Mailer) from() string {
	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}
	if m.cfg.FromName != "" {
		return fmt.Sprintf("%s <%s>", m.cfg.FromName, from)
	}
	return from
}

func priorityHeaders(p Priority) map[string]string {
	switch p {
	case PriorityHigh:
		return map[string]string{"X-Priority": "1", "X-MSMail-Priority": "High", "Importance": "high"}
	case PriorityLow:
		return map[string]string{"X-Priority": "5", "X-MSMail-Priority": "Low", "Importance": "low"}
	default:
		return map[string]string{"X-Priority": "3", "X-MSMail-Priority": "Normal"}
	}
}

func templateLabel(opts Options) string {
	if opts.Template == "" {
		return "raw"
	}
	return opts.Template
}
