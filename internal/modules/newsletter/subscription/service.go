package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noticias/core/internal/database"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/modules/newsletter/links"
	"github.com/noticias/core/internal/pkg/eventbus"
	"github.com/noticias/core/internal/pkg/mail"
	"github.com/noticias/core/internal/pkg/metrics"
	"github.com/noticias/core/internal/pkg/pagination"
	"github.com/noticias/core/internal/pkg/response"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/noticias/core/internal/pkg/token"
	"go.uber.org/zap"
)

// DefaultConfirmTTL is how long a confirmation link stays valid.
const DefaultConfirmTTL = 24 * time.Hour

// DefaultPreferences apply when a signup carries no preference at all.
var DefaultPreferences = models.Preferences{Morning: true, Weekly: true}

// SubscribeInput is a signup request. Email is normalized by Subscribe.
type SubscribeInput struct {
	Email       string
	Name        string
	Preferences models.PreferencesPatch
	Source      string
}

// StatIncrementer bumps a bulletin stat. Unsubscribes coming from a bulletin
// link are attributed to it.
type StatIncrementer interface {
	IncrementStat(ctx context.Context, id, stat string, n int64) error
}

// ChangedEvent is the payload of subscriber.changed.
type ChangedEvent struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Action string `json:"action"`
}

// Service implements double opt-in subscriptions.
type Service struct {
	subscribers database.SubscriberStore
	bulletins   StatIncrementer
	mailer      mail.Sender
	links       *links.Builder
	bus         eventbus.Bus
	ttl         time.Duration
	now         func() time.Time
	newToken    func() (string, error)
	logger      *zap.Logger
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("SubscriptionService")
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithConfirmTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTokens replaces the random token generator.
func WithTokens(gen func() (string, error)) Option {
	return func(s *Service) { s.newToken = gen }
}

func WithEventBus(bus eventbus.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

func WithBulletinStats(b StatIncrementer) Option {
	return func(s *Service) { s.bulletins = b }
}

func NewService(subscribers database.SubscriberStore, mailer mail.Sender, lb *links.Builder, opts ...Option) *Service {
	s := &Service{
		subscribers: subscribers,
		mailer:      mailer,
		links:       lb,
		ttl:         DefaultConfirmTTL,
		now:         time.Now,
		newToken:    token.New,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func resolvePreferences(patch models.PreferencesPatch) models.Preferences {
	if patch.Empty() {
		return DefaultPreferences
	}
	var p models.Preferences
	patch.Apply(&p)
	return p
}

// Subscribe registers email on the request's site or moves an existing
// record along the opt-in flow. A failure to send the confirmation email is
// returned.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (*models.Subscriber, error) {
	site := tenant.Site(ctx)
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email requerido", models.ErrInvalidInput)
	}
	now := s.now()

	existing, err := s.subscribers.GetByEmail(ctx, site, email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return s.create(ctx, site, email, in, now)
	case err != nil:
		return nil, fmt.Errorf("lookup subscriber: %w", err)
	}

	switch {
	case existing.IsActive && existing.IsConfirmed:
		if !in.Preferences.Empty() {
			existing.Preferences = resolvePreferences(in.Preferences)
			if err := s.subscribers.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("update preferences: %w", err)
			}
		}
		metrics.SubscriptionsTotal.WithLabelValues(site, "updated").Inc()
		return existing, nil

	case !existing.IsConfirmed:
		if existing.ConfirmationToken == nil {
			tok, err := s.newToken()
			if err != nil {
				return nil, err
			}
			existing.SetConfirmationToken(tok, now.Add(s.ttl))
		} else if !existing.ConfirmationTokenExpires.After(now) {
			existing.SetConfirmationToken(*existing.ConfirmationToken, now.Add(s.ttl))
		}
		if err := s.subscribers.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("refresh confirmation: %w", err)
		}
		if err := s.sendConfirmation(ctx, existing); err != nil {
			return nil, err
		}
		metrics.SubscriptionsTotal.WithLabelValues(site, "resent").Inc()
		return existing, nil
	}

	// Confirmed once, unsubscribed since.
	tok, err := s.newToken()
	if err != nil {
		return nil, err
	}
	existing.IsActive = true
	existing.IsConfirmed = false
	existing.ConfirmedAt = nil
	existing.UnsubscribedAt = nil
	existing.UnsubscribeReason = ""
	existing.SubscribedAt = now
	existing.Preferences = resolvePreferences(in.Preferences)
	if in.Name != "" {
		existing.Name = in.Name
	}
	existing.SetConfirmationToken(tok, now.Add(s.ttl))
	if err := s.subscribers.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("reactivate subscriber: %w", err)
	}
	if err := s.sendConfirmation(ctx, existing); err != nil {
		return nil, err
	}
	metrics.SubscriptionsTotal.WithLabelValues(site, "reactivated").Inc()
	s.publish(ctx, existing, "reactivated")
	return existing, nil
}

func (s *Service) create(ctx context.Context, site, email string, in SubscribeInput, now time.Time) (*models.Subscriber, error) {
	confirm, err := s.newToken()
	if err != nil {
		return nil, err
	}
	unsub, err := s.newToken()
	if err != nil {
		return nil, err
	}
	sub := &models.Subscriber{
		Site:             site,
		Email:            email,
		Name:             strings.TrimSpace(in.Name),
		Preferences:      resolvePreferences(in.Preferences),
		Source:           in.Source,
		IsActive:         true,
		SubscribedAt:     now,
		UnsubscribeToken: unsub,
	}
	sub.SetConfirmationToken(confirm, now.Add(s.ttl))
	if err := s.subscribers.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	if err := s.sendConfirmation(ctx, sub); err != nil {
		return nil, err
	}
	metrics.SubscriptionsTotal.WithLabelValues(site, "created").Inc()
	s.publish(ctx, sub, "created")
	return sub, nil
}

func (s *Service) sendConfirmation(ctx context.Context, sub *models.Subscriber) error {
	err := s.mailer.Send(ctx, mail.Options{
		To:       sub.Email,
		Subject:  "Confirma tu suscripción a " + s.links.SiteName(sub.Site),
		Template: mail.TemplateSubscriptionConfirm,
		Priority: mail.PriorityHigh,
		Context: map[string]any{
			"Name":         sub.Name,
			"ConfirmURL":   s.links.Confirm(*sub.ConfirmationToken),
			"ExpiresHours": int(s.ttl.Hours()),
			"SiteName":     s.links.SiteName(sub.Site),
		},
	})
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

// ConfirmSubscription activates the subscriber holding token. Unknown,
// expired and already used tokens all fail with ErrExpiredOrInvalidToken.
func (s *Service) ConfirmSubscription(ctx context.Context, tok string) (*models.Subscriber, error) {
	now := s.now()
	sub, err := s.subscribers.GetByConfirmationToken(ctx, tok, now)
	if errors.Is(err, models.ErrNotFound) {
		metrics.ConfirmationsTotal.WithLabelValues("invalid").Inc()
		return nil, models.ErrExpiredOrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup confirmation token: %w", err)
	}

	sub.IsConfirmed = true
	sub.IsActive = true
	sub.ConfirmedAt = &now
	sub.ClearConfirmationToken()
	if err := s.subscribers.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("confirm subscriber: %w", err)
	}
	metrics.ConfirmationsTotal.WithLabelValues("success").Inc()
	s.publish(ctx, sub, "confirmed")

	if err := s.mailer.Send(ctx, mail.Options{
		To:       sub.Email,
		Subject:  "Bienvenido a los boletines de " + s.links.SiteName(sub.Site),
		Template: mail.TemplateSubscriptionWelcome,
		Context: map[string]any{
			"Name":           sub.Name,
			"SiteName":       s.links.SiteName(sub.Site),
			"PreferencesURL": s.links.Preferences(sub.Site, sub.UnsubscribeToken),
			"UnsubscribeURL": s.links.Unsubscribe(sub.Site, sub.UnsubscribeToken, ""),
		},
	}); err != nil {
		s.logger.Warn("welcome email failed", zap.String("email", sub.Email), zap.Error(err))
	}
	return sub, nil
}

// Unsubscribe deactivates the subscriber holding token. Calling it again is
// a no-op that still succeeds. bulletinID, when set, names the bulletin the
// link came from.
func (s *Service) Unsubscribe(ctx context.Context, tok, reason, bulletinID string) error {
	sub, err := s.byUnsubscribeToken(ctx, tok)
	if err != nil {
		return err
	}
	wasActive := sub.IsActive
	sub.IsActive = false
	if wasActive {
		now := s.now()
		sub.UnsubscribedAt = &now
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		sub.UnsubscribeReason = reason
	}
	if err := s.subscribers.Update(ctx, sub); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	if !wasActive {
		return nil
	}
	metrics.UnsubscribesTotal.WithLabelValues(sub.Site).Inc()
	s.publish(ctx, sub, "unsubscribed")

	if bulletinID != "" && s.bulletins != nil {
		if err := s.bulletins.IncrementStat(ctx, bulletinID, models.StatUnsubscribed, 1); err != nil {
			s.logger.Debug("attribute unsubscribe", zap.String("bulletin", bulletinID), zap.Error(err))
		}
	}
	return nil
}

// GetPreferences returns the subscriber holding the unsubscribe token.
func (s *Service) GetPreferences(ctx context.Context, tok string) (*models.Subscriber, error) {
	return s.byUnsubscribeToken(ctx, tok)
}

// UpdatePreferences applies only the fields present in patch.
func (s *Service) UpdatePreferences(ctx context.Context, tok string, patch models.PreferencesPatch) (*models.Subscriber, error) {
	sub, err := s.byUnsubscribeToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return sub, nil
	}
	patch.Apply(&sub.Preferences)
	if err := s.subscribers.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	s.publish(ctx, sub, "preferences")
	return sub, nil
}

// GetSubscriber looks a subscriber up by email on the request's site.
func (s *Service) GetSubscriber(ctx context.Context, email string) (*models.Subscriber, error) {
	sub, err := s.subscribers.GetByEmail(ctx, tenant.Site(ctx), NormalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup subscriber: %w", err)
	}
	return sub, nil
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	Active    *bool
	Confirmed *bool
}

func (s *Service) List(ctx context.Context, f ListFilter, pq pagination.Query) ([]models.Subscriber, response.Pagination, error) {
	items, total, err := s.subscribers.List(ctx, models.SubscriberQuery{
		Site:      tenant.Site(ctx),
		Active:    f.Active,
		Confirmed: f.Confirmed,
		Skip:      pq.Skip(),
		Limit:     pq.Limit,
	})
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("list subscribers: %w", err)
	}
	return items, pq.Meta(total), nil
}

func (s *Service) Stats(ctx context.Context) (*models.SubscriberStats, error) {
	st, err := s.subscribers.Stats(ctx, tenant.Site(ctx))
	if err != nil {
		return nil, fmt.Errorf("subscriber stats: %w", err)
	}
	return st, nil
}

func (s *Service) byUnsubscribeToken(ctx context.Context, tok string) (*models.Subscriber, error) {
	if tok == "" {
		return nil, models.ErrSubscriberNotFound
	}
	sub, err := s.subscribers.GetByUnsubscribeToken(ctx, tok)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup unsubscribe token: %w", err)
	}
	return sub, nil
}

func (s *Service) publish(ctx context.Context, sub *models.Subscriber, action string) {
	if s.bus == nil {
		return
	}
	e, err := eventbus.NewEvent(eventbus.TopicSubscriberChanged, sub.Site, ChangedEvent{ID: sub.ID, Email: sub.Email, Action: action})
	if err == nil {
		err = s.bus.Publish(ctx, e)
	}
	if err != nil {
		s.logger.Warn("publish subscriber event", zap.String("action", action), zap.Error(err))
	}
}
