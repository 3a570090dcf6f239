package bulletin

import (
	"context"
	"errors"
	"fmt"
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
	"go.uber.org/zap"
)

// Archiver stores rendered bulletins and returns their public URL.
type Archiver interface {
	Key(parts ...string) string
	PutHTML(ctx context.Context, key string, body []byte) (string, error)
}

// SentEvent is the payload of bulletin.sent.
type SentEvent struct {
	ID     string                `json:"id"`
	Type   models.BulletinType   `json:"type"`
	Status models.BulletinStatus `json:"status"`
	Sent   int64                 `json:"sent"`
	Failed int64                 `json:"failed"`
}

// Dispatcher persists generated bulletins and delivers them.
type Dispatcher struct {
	gen         *Generator
	bulletins   database.BulletinStore
	subscribers database.SubscriberStore
	mailer      mail.Sender
	links       *links.Builder
	archive     Archiver
	bus         eventbus.Bus
	staleAfter  time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// DefaultStaleAfter is how long a bulletin may stay sending before another
// run may take it over.
const DefaultStaleAfter = 2 * time.Hour

type DispatcherOption func(*Dispatcher)

func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l.Named("BulletinDispatcher")
		}
	}
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// WithStaleAfter overrides DefaultStaleAfter.
func WithStaleAfter(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.staleAfter = d
		}
	}
}

func WithArchive(a Archiver) DispatcherOption {
	return func(d *Dispatcher) { d.archive = a }
}

func WithEventBus(bus eventbus.Bus) DispatcherOption {
	return func(d *Dispatcher) { d.bus = bus }
}

func NewDispatcher(gen *Generator, bulletins database.BulletinStore, subscribers database.SubscriberStore, mailer mail.Sender, lb *links.Builder, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		gen:         gen,
		bulletins:   bulletins,
		subscribers: subscribers,
		mailer:      mailer,
		links:       lb,
		staleAfter:  DefaultStaleAfter,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Preview generates and renders a bulletin without saving or sending it.
func (d *Dispatcher) Preview(ctx context.Context, t models.BulletinType) (*models.Bulletin, error) {
	b, err := d.gen.Generate(ctx, t)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, models.ErrNoContent
	}
	return b, nil
}

// Dispatch generates today's bulletin of type t for the request's site and
// sends it to every subscriber who opted in. A bulletin already sent today
// fails with ErrAlreadySent, and one that another run is sending fails with
// ErrDispatchInProgress. An earlier failed or stale run is retried in place.
func (d *Dispatcher) Dispatch(ctx context.Context, t models.BulletinType) (*models.Bulletin, error) {
	site := tenant.Site(ctx)
	generated, err := d.gen.Generate(ctx, t)
	if err != nil {
		return nil, err
	}
	if generated == nil || len(generated.ArticleIDs) == 0 {
		metrics.BulletinsDispatched.WithLabelValues(site, string(t), "empty").Inc()
		return nil, models.ErrNoContent
	}

	b, err := d.claim(ctx, generated)
	if err != nil {
		return nil, err
	}

	recipients, err := d.subscribers.ListRecipients(ctx, site, t)
	if err != nil {
		d.abort(ctx, b)
		return nil, fmt.Errorf("list recipients: %w", err)
	}

	batch := make([]mail.Options, 0, len(recipients))
	for _, sub := range recipients {
		opts, err := d.personalize(b, sub)
		if err != nil {
			d.abort(ctx, b)
			return nil, err
		}
		batch = append(batch, opts)
	}

	var sent, failed int64
	for _, r := range d.mailer.SendBulk(ctx, batch) {
		if r.Err != nil {
			failed++
			d.logger.Warn("bulletin delivery failed", zap.String("bulletin", b.ID), zap.String("to", r.To), zap.Error(r.Err))
			continue
		}
		sent++
	}
	b.Stats.Sent, b.Stats.Bounced = sent, failed

	status := models.BulletinSent
	if failed > 0 && sent == 0 {
		status = models.BulletinFailed
	}
	if status == models.BulletinSent {
		d.archiveHTML(ctx, b)
	}
	if err := d.finish(ctx, b, status); err != nil {
		return nil, err
	}
	d.logger.Info("bulletin dispatched",
		zap.String("site", site),
		zap.String("type", string(t)),
		zap.String("status", string(status)),
		zap.Int64("sent", sent),
		zap.Int64("failed", failed),
	)
	d.publish(ctx, b, failed)
	return b, nil
}

// claim stores generated as today's bulletin, or reuses the record of an
// earlier run, and takes it over for this run. Only one run can hold a
// bulletin at a time.
func (d *Dispatcher) claim(ctx context.Context, generated *models.Bulletin) (*models.Bulletin, error) {
	existing, err := d.bulletins.GetByTypeAndDate(ctx, generated.Site, generated.Type, generated.PublishDate)
	if errors.Is(err, models.ErrNotFound) {
		generated.Status = models.BulletinDraft
		err = d.bulletins.Create(ctx, generated)
		switch {
		case err == nil:
			existing = generated
		case errors.Is(err, models.ErrDuplicate):
			existing, err = d.bulletins.GetByTypeAndDate(ctx, generated.Site, generated.Type, generated.PublishDate)
		default:
			return nil, fmt.Errorf("create bulletin: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup bulletin: %w", err)
	}
	if existing.Status == models.BulletinSent {
		return nil, alreadySent(existing)
	}

	ok, err := d.bulletins.Claim(ctx, existing.ID, d.now().Add(-d.staleAfter))
	if err != nil {
		return nil, fmt.Errorf("claim bulletin: %w", err)
	}
	if !ok {
		if current, err := d.bulletins.GetByID(ctx, existing.ID); err == nil && current.Status == models.BulletinSent {
			return nil, alreadySent(current)
		}
		return nil, fmt.Errorf("%w: %s %s", models.ErrDispatchInProgress, existing.Type, existing.PublishDate.Format(time.DateOnly))
	}

	existing.Subject = generated.Subject
	existing.Content = generated.Content
	existing.ArticleIDs = generated.ArticleIDs
	existing.Snapshots = generated.Snapshots
	existing.Stats = models.BulletinStats{}
	existing.ArchiveURL = ""
	existing.SentAt = nil
	existing.Status = models.BulletinSending
	if err := d.bulletins.Update(ctx, existing); err != nil {
		d.abort(ctx, existing)
		return nil, fmt.Errorf("prepare bulletin: %w", err)
	}
	return existing, nil
}

func alreadySent(b *models.Bulletin) error {
	return fmt.Errorf("%w: %s %s", models.ErrAlreadySent, b.Type, b.PublishDate.Format(time.DateOnly))
}

// abort releases a claimed bulletin as failed so a later run can retry it.
func (d *Dispatcher) abort(ctx context.Context, b *models.Bulletin) {
	if err := d.finish(ctx, b, models.BulletinFailed); err != nil {
		d.logger.Error("release bulletin", zap.String("bulletin", b.ID), zap.Error(err))
	}
}

func (d *Dispatcher) personalize(b *models.Bulletin, sub models.Subscriber) (mail.Options, error) {
	content, err := Render(b, Links{
		SiteName:       d.links.SiteName(b.Site),
		SiteURL:        d.links.SiteURL(b.Site),
		UnsubscribeURL: d.links.Unsubscribe(b.Site, sub.UnsubscribeToken, b.ID),
		PreferencesURL: d.links.Preferences(b.Site, sub.UnsubscribeToken),
		OpenPixelURL:   d.links.TrackOpen(b.ID),
		Article: func(s string) string {
			return d.links.TrackClick(b.ID, d.links.Article(b.Site, s))
		},
	})
	if err != nil {
		return mail.Options{}, err
	}
	return mail.Options{
		To:       sub.Email,
		Subject:  b.Subject,
		HTML:     content.HTML,
		Text:     content.Text,
		Priority: mail.PriorityLow,
		Headers: map[string]string{
			"List-Unsubscribe": "<" + d.links.Unsubscribe(b.Site, sub.UnsubscribeToken, b.ID) + ">",
			"X-Bulletin-Id":    b.ID,
		},
	}, nil
}

func (d *Dispatcher) archiveHTML(ctx context.Context, b *models.Bulletin) {
	if d.archive == nil {
		return
	}
	key := d.archive.Key(b.Site, string(b.Type), b.PublishDate.Format(time.DateOnly)+".html")
	u, err := d.archive.PutHTML(ctx, key, []byte(b.Content.HTML))
	if err != nil {
		d.logger.Warn("archive bulletin", zap.String("bulletin", b.ID), zap.Error(err))
		return
	}
	b.ArchiveURL = u
}

// finish records the final status. Counters bumped by tracking while the
// batch was in flight are kept.
func (d *Dispatcher) finish(ctx context.Context, b *models.Bulletin, status models.BulletinStatus) error {
	if current, err := d.bulletins.GetByID(ctx, b.ID); err == nil {
		b.Stats.Opened = current.Stats.Opened
		b.Stats.Clicked = current.Stats.Clicked
		b.Stats.Unsubscribed = current.Stats.Unsubscribed
	}
	b.Status = status
	if status == models.BulletinSent {
		now := d.now()
		b.SentAt = &now
	}
	metrics.BulletinsDispatched.WithLabelValues(b.Site, string(b.Type), string(status)).Inc()
	if err := d.bulletins.Update(ctx, b); err != nil {
		return fmt.Errorf("finish bulletin: %w", err)
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, b *models.Bulletin, failed int64) {
	if d.bus == nil {
		return
	}
	e, err := eventbus.NewEvent(eventbus.TopicBulletinSent, b.Site, SentEvent{
		ID: b.ID, Type: b.Type, Status: b.Status, Sent: b.Stats.Sent, Failed: failed,
	})
	if err == nil {
		err = d.bus.Publish(ctx, e)
	}
	if err != nil {
		d.logger.Warn("publish bulletin event", zap.Error(err))
	}
}

// TrackOpen counts an open of bulletin id.
func (d *Dispatcher) TrackOpen(ctx context.Context, id string) error {
	if err := d.bulletins.IncrementStat(ctx, id, models.StatOpened, 1); err != nil {
		return fmt.Errorf("track open: %w", err)
	}
	return nil
}

// TrackClick counts a click and returns the redirect target. Targets outside
// the configured site hosts are rejected.
func (d *Dispatcher) TrackClick(ctx context.Context, id, target string) (string, error) {
	if !d.links.AllowedRedirect(target) {
		return "", fmt.Errorf("%w: destino no permitido", models.ErrInvalidInput)
	}
	if err := d.bulletins.IncrementStat(ctx, id, models.StatClicked, 1); err != nil {
		d.logger.Debug("track click", zap.String("bulletin", id), zap.Error(err))
	}
	return target, nil
}

func (d *Dispatcher) Get(ctx context.Context, id string) (*models.Bulletin, error) {
	b, err := d.bulletins.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get bulletin: %w", err)
	}
	return b, nil
}

func (d *Dispatcher) List(ctx context.Context, pq pagination.Query) ([]models.Bulletin, response.Pagination, error) {
	items, total, err := d.bulletins.List(ctx, tenant.Site(ctx), pq.Skip(), pq.Limit)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("list bulletins: %w", err)
	}
	return items, pq.Meta(total), nil
}
