package bulletin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/noticias/core/internal/database"
	"github.com/noticias/core/internal/database/memstore"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/eventbus"
	"github.com/noticias/core/internal/pkg/mail"
	"github.com/noticias/core/internal/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeMailer struct {
	mu     sync.Mutex
	sent   []mail.Options
	failTo map[string]bool
	// beforeBulk runs once at the start of the next SendBulk.
	beforeBulk func()
}

func (m *fakeMailer) Send(_ context.Context, o mail.Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[o.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, o)
	return nil
}

func (m *fakeMailer) SendBulk(ctx context.Context, batch []mail.Options) []mail.Result {
	if hook := m.beforeBulk; hook != nil {
		m.beforeBulk = nil
		hook()
	}
	out := make([]mail.Result, len(batch))
	for i, o := range batch {
		out[i] = mail.Result{To: o.To, Err: m.Send(ctx, o)}
	}
	return out
}

type fakeArchive struct {
	keys []string
	err  error
}

func (a *fakeArchive) Key(parts ...string) string { return "boletines/" + strings.Join(parts, "/") }

func (a *fakeArchive) PutHTML(_ context.Context, key string, _ []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.keys = append(a.keys, key)
	return "https://cdn.test/" + key, nil
}

type dispatchFixture struct {
	d       *Dispatcher
	store   *memstore.Store
	mailer  *fakeMailer
	archive *fakeArchive
	bus     *eventbus.Local
}

func newDispatcher(t *testing.T) *dispatchFixture {
	t.Helper()
	store := memstore.New(memstore.WithClock(func() time.Time { return now }))
	f := &dispatchFixture{
		store:   store,
		mailer:  &fakeMailer{failTo: map[string]bool{}},
		archive: &fakeArchive{},
		bus:     eventbus.NewLocal(),
	}
	f.d = NewDispatcher(newGenerator(store), store.Bulletins(), store.Subscribers(), f.mailer, testLinks(),
		WithClock(func() time.Time { return now }),
		WithArchive(f.archive),
		WithEventBus(f.bus),
	)
	return f
}

func (f *dispatchFixture) subscriber(t *testing.T, email string, confirmed, active bool, prefs models.Preferences) {
	t.Helper()
	require.NoError(t, f.store.Subscribers().Create(context.Background(), &models.Subscriber{
		Site:             "hidalgo",
		Email:            email,
		IsConfirmed:      confirmed,
		IsActive:         active,
		Preferences:      prefs,
		UnsubscribeToken: "unsub-" + email,
	}))
}

func TestDispatchSendsToOptedInRecipients(t *testing.T) {
	f := newDispatcher(t)
	put(f.store, "nota", time.Hour, 0)
	f.subscriber(t, "si@b.com", true, true, models.Preferences{Morning: true})
	f.subscriber(t, "no-pref@b.com", true, true, models.Preferences{Weekly: true})
	f.subscriber(t, "sin-confirmar@b.com", false, true, models.Preferences{Morning: true})
	f.subscriber(t, "baja@b.com", true, false, models.Preferences{Morning: true})

	var events []eventbus.Event
	_, err := f.bus.Subscribe(eventbus.TopicBulletinSent, func(_ context.Context, e eventbus.Event) { events = append(events, e) })
	require.NoError(t, err)

	b, err := f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	assert.Equal(t, models.BulletinSent, b.Status)
	assert.EqualValues(t, 1, b.Stats.Sent)
	assert.EqualValues(t, 0, b.Stats.Bounced)
	require.NotNil(t, b.SentAt)
	assert.Equal(t, "https://cdn.test/boletines/hidalgo/morning/2026-05-04.html", b.ArchiveURL)

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, "si@b.com", msg.To)
	assert.Contains(t, msg.HTML, "/newsletter/baja?b="+b.ID+"&amp;token=unsub-si%40b.com")
	assert.Contains(t, msg.HTML, "/public-content/newsletter/track/open/"+b.ID)
	assert.Contains(t, msg.HTML, "/public-content/newsletter/track/click/"+b.ID+"?u=")
	assert.Contains(t, msg.Headers["List-Unsubscribe"], "token=unsub-si%40b.com")
	assert.NotContains(t, b.Content.HTML, "track/open", "stored content is the generic rendering")

	stored, err := f.store.Bulletins().GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BulletinSent, stored.Status)
	require.Len(t, events, 1)
	assert.Equal(t, "hidalgo", events[0].Site)
}

func TestDispatchTwiceSameDayIsRejected(t *testing.T) {
	f := newDispatcher(t)
	put(f.store, "nota", time.Hour, 0)
	_, err := f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)

	_, err = f.d.Dispatch(siteCtx(), models.BulletinMorning)
	assert.ErrorIs(t, err, models.ErrAlreadySent)
}

func TestDispatchAllFailuresMarksFailedAndRetries(t *testing.T) {
	f := newDispatcher(t)
	put(f.store, "nota", time.Hour, 0)
	f.subscriber(t, "a@b.com", true, true, models.Preferences{Morning: true})
	f.mailer.failTo["a@b.com"] = true

	b, err := f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	assert.Equal(t, models.BulletinFailed, b.Status)
	assert.EqualValues(t, 1, b.Stats.Bounced)
	assert.Empty(t, f.archive.keys)

	f.mailer.failTo["a@b.com"] = false
	retried, err := f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	assert.Equal(t, b.ID, retried.ID)
	assert.Equal(t, models.BulletinSent, retried.Status)
	assert.EqualValues(t, 1, retried.Stats.Sent)
	assert.EqualValues(t, 0, retried.Stats.Bounced)
}

func TestDispatchPartialFailureStillSent(t *testing.T) {
	f := newDispatcher(t)
	put(f.store, "nota", time.Hour, 0)
	f.subscriber(t, "a@b.com", true, true, models.Preferences{Morning: true})
	f.subscriber(t, "c@d.com", true, true, models.Preferences{Morning: true})
	f.mailer.failTo["c@d.com"] = true

	b, err := f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	assert.Equal(t, models.BulletinSent, b.Status)
	assert.EqualValues(t, 1, b.Stats.Sent)
	assert.EqualValues(t, 1, b.Stats.Bounced)
}

func TestDispatchEmptySportsIsNoContent(t *testing.T) {
	f := newDispatcher(t)
	_, err := f.d.Dispatch(siteCtx(), models.BulletinSports)
	assert.ErrorIs(t, err, models.ErrNoContent)
	_, total, err := f.store.Bulletins().List(context.Background(), "hidalgo", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestArchiveFailureIsNotFatal(t *testing.T) {
	f := newDispatcher(t)
	f.archive.err = errors.New("s3 unavailable")
	put(f.store, "nota", time.Hour, 0)

	b, err := f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	assert.Equal(t, models.BulletinSent, b.Status)
	assert.Empty(t, b.ArchiveURL)
}

func TestTracking(t *testing.T) {
	f := newDispatcher(t)
	put(f.store, "nota", time.Hour, 0)
	b, err := f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)

	require.NoError(t, f.d.TrackOpen(siteCtx(), b.ID))
	target, err := f.d.TrackClick(siteCtx(), b.ID, "https://hidalgo.test/noticias/nota")
	require.NoError(t, err)
	assert.Equal(t, "https://hidalgo.test/noticias/nota", target)

	_, err = f.d.TrackClick(siteCtx(), b.ID, "https://phishing.test/")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.ErrorIs(t, f.d.TrackOpen(siteCtx(), "missing"), models.ErrNotFound)

	got, err := f.d.Get(siteCtx(), b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Stats.Opened)
	assert.EqualValues(t, 1, got.Stats.Clicked)

	items, pag, err := f.d.List(siteCtx(), pagination.New(1, 10))
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.EqualValues(t, 1, pag.Total)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	f := newDispatcher(t)
	put(f.store, "nota", time.Hour, 0)
	b, err := f.d.Preview(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	assert.Empty(t, b.ID)
	_, total, err := f.store.Bulletins().List(context.Background(), "", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = f.d.Preview(siteCtx(), models.BulletinSports)
	assert.ErrorIs(t, err, models.ErrNoContent)
}

func (m *fakeMailer) countTo(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.sent {
		if o.To == email {
			n++
		}
	}
	return n
}

func TestConcurrentDispatchSendsOnce(t *testing.T) {
	f := newDispatcher(t)
	put(f.store, "nota", time.Hour, 0)
	f.subscriber(t, "si@b.com", true, true, models.Preferences{Morning: true})

	var secondErr error
	f.mailer.beforeBulk = func() {
		_, secondErr = f.d.Dispatch(siteCtx(), models.BulletinMorning)
	}
	b, err := f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	assert.Equal(t, models.BulletinSent, b.Status)
	assert.ErrorIs(t, secondErr, models.ErrDispatchInProgress)
	assert.Equal(t, 1, f.mailer.countTo("si@b.com"))

	_, err = f.d.Dispatch(siteCtx(), models.BulletinMorning)
	assert.ErrorIs(t, err, models.ErrAlreadySent)
	assert.Equal(t, 1, f.mailer.countTo("si@b.com"))
}

func TestStaleSendingIsTakenOver(t *testing.T) {
	f := newDispatcher(t)
	put(f.store, "nota", time.Hour, 0)
	f.subscriber(t, "si@b.com", true, true, models.Preferences{Morning: true})

	preview, err := f.d.Preview(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	preview.Status = models.BulletinSending
	require.NoError(t, f.store.Bulletins().Create(context.Background(), preview))

	_, err = f.d.Dispatch(siteCtx(), models.BulletinMorning)
	require.ErrorIs(t, err, models.ErrDispatchInProgress)
	assert.Zero(t, f.mailer.countTo("si@b.com"))

	later := NewDispatcher(newGenerator(f.store), f.store.Bulletins(), f.store.Subscribers(), f.mailer, testLinks(),
		WithClock(func() time.Time { return now.Add(DefaultStaleAfter + time.Minute) }),
	)
	b, err := later.Dispatch(siteCtx(), models.BulletinMorning)
	require.NoError(t, err)
	assert.Equal(t, preview.ID, b.ID)
	assert.Equal(t, models.BulletinSent, b.Status)
	assert.Equal(t, 1, f.mailer.countTo("si@b.com"))
}

type brokenBulletins struct {
	database.BulletinStore
	updates int
}

// Update succeeds for the claim preparation and fails afterwards.
func (b *brokenBulletins) Update(ctx context.Context, bl *models.Bulletin) error {
	b.updates++
	if b.updates > 1 {
		return errors.New("write conflict")
	}
	return b.BulletinStore.Update(ctx, bl)
}

type brokenRecipients struct{ database.SubscriberStore }

func (brokenRecipients) ListRecipients(context.Context, string, models.BulletinType) ([]models.Subscriber, error) {
	return nil, errors.New("connection reset")
}

func TestFailedReleaseIsLogged(t *testing.T) {
	store := memstore.New(memstore.WithClock(func() time.Time { return now }))
	put(store, "nota", time.Hour, 0)
	core, logs := observer.New(zapcore.ErrorLevel)
	d := NewDispatcher(newGenerator(store), &brokenBulletins{BulletinStore: store.Bulletins()}, brokenRecipients{store.Subscribers()},
		&fakeMailer{failTo: map[string]bool{}}, testLinks(),
		WithClock(func() time.Time { return now }),
		WithLogger(zap.New(core)),
	)

	_, err := d.Dispatch(siteCtx(), models.BulletinMorning)
	require.ErrorContains(t, err, "list recipients")
	entries := logs.FilterMessage("release bulletin").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "write conflict", entries[0].ContextMap()["error"])
}
