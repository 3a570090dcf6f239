// Package contact stores contact form submissions and notifies the
// newsroom.
package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noticias/core/internal/database"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/mail"
	"github.com/noticias/core/internal/pkg/metrics"
	"github.com/noticias/core/internal/pkg/tenant"
	"go.uber.org/zap"
)

// DefaultThreshold is the spam score at which a message is quarantined.
const DefaultThreshold = 5

// Repeated submissions from one address within floodWindow add to the
// spam score.
const (
	floodWindow = time.Hour
	floodLimit  = 3
)

type Input struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

type Service struct {
	contacts   database.ContactStore
	mailer     mail.Sender
	scorer     *Scorer
	threshold  int
	adminEmail string
	siteName   func(site string) string
	now        func() time.Time
	logger     *zap.Logger
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("ContactService")
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.threshold = n
		}
	}
}

func WithScorer(sc *Scorer) Option {
	return func(s *Service) { s.scorer = sc }
}

// WithSiteNames sets the display name lookup used in email copy.
func WithSiteNames(fn func(site string) string) Option {
	return func(s *Service) { s.siteName = fn }
}

func NewService(contacts database.ContactStore, mailer mail.Sender, adminEmail string, opts ...Option) *Service {
	s := &Service{
		contacts:   contacts,
		mailer:     mailer,
		scorer:     NewScorer(nil, nil),
		threshold:  DefaultThreshold,
		adminEmail: adminEmail,
		siteName:   func(site string) string { return site },
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit sanitizes, scores and stores a message. Messages below the spam
// threshold notify the newsroom, which must succeed, and then thank the
// sender, which may fail silently.
func (s *Service) Submit(ctx context.Context, in Input, origin models.ContactOrigin) (*models.ContactMessage, error) {
	site := tenant.Site(ctx)
	msg := &models.ContactMessage{
		Site:    site,
		Name:    plain(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:   plain(in.Phone),
		Subject: plain(in.Subject),
		Message: plain(in.Message),
		Status:  models.ContactPending,
		Origin:  origin,
	}
	if msg.Name == "" || msg.Subject == "" || msg.Message == "" {
		return nil, fmt.Errorf("%w: nombre, asunto y mensaje son requeridos", models.ErrInvalidInput)
	}

	msg.SpamScore, msg.SpamReasons = s.scorer.Score(msg.Subject, msg.Message, origin.IP)
	if n, err := s.contacts.CountRecentByEmail(ctx, site, msg.Email, s.now().Add(-floodWindow)); err != nil {
		s.logger.Warn("count recent contacts", zap.Error(err))
	} else if n >= floodLimit {
		msg.SpamScore += 3
		msg.SpamReasons = append(msg.SpamReasons, "flood")
	}
	if msg.SpamScore >= s.threshold {
		msg.Status = models.ContactSpam
	}

	if err := s.contacts.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("store contact message: %w", err)
	}
	metrics.ContactMessages.WithLabelValues(site, string(msg.Status)).Inc()
	if msg.Status == models.ContactSpam {
		s.logger.Info("contact message flagged as spam",
			zap.String("id", msg.ID),
			zap.Int("score", msg.SpamScore),
			zap.Strings("reasons", msg.SpamReasons),
		)
		return msg, nil
	}

	if err := s.notifyAdmin(ctx, msg); err != nil {
		s.logger.Error("contact message stored but newsroom not notified", zap.String("id", msg.ID), zap.Error(err))
		return nil, fmt.Errorf("contact message %s: %w", msg.ID, err)
	}

	if err := s.mailer.Send(ctx, mail.Options{
		To:       msg.Email,
		Subject:  "Recibimos tu mensaje",
		Template: mail.TemplateContactConfirm,
		Context: map[string]any{
			"Name":     msg.Name,
			"Subject":  msg.Subject,
			"SiteName": s.siteName(site),
		},
	}); err != nil {
		s.logger.Warn("contact confirmation failed", zap.String("email", msg.Email), zap.Error(err))
	}
	return msg, nil
}

func (s *Service) notifyAdmin(ctx context.Context, msg *models.ContactMessage) error {
	if s.adminEmail == "" {
		s.logger.Warn("contact.admin_email not configured, skipping notification", zap.String("id", msg.ID))
		return nil
	}
	body, err := renderMessage(msg.Message)
	if err != nil {
		return fmt.Errorf("render contact message: %w", err)
	}
	err = s.mailer.Send(ctx, mail.Options{
		To:       s.adminEmail,
		Subject:  "[Contacto] " + msg.Subject,
		Template: mail.TemplateContactAdmin,
		Priority: mail.PriorityHigh,
		Headers:  map[string]string{"Reply-To": msg.Email},
		Context: map[string]any{
			"Name":        msg.Name,
			"Email":       msg.Email,
			"Phone":       msg.Phone,
			"Subject":     msg.Subject,
			"MessageHTML": body,
			"IP":          msg.Origin.IP,
			"UserAgent":   msg.Origin.UserAgent,
			"Referer":     msg.Origin.Referer,
			"SpamScore":   msg.SpamScore,
			"SiteName":    s.siteName(msg.Site),
		},
	})
	if err != nil {
		return fmt.Errorf("notify newsroom: %w", err)
	}
	return nil
}
