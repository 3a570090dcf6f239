package contact

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/noticias/core/internal/database/memstore"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/mail"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Options
	fail map[string]error
}

func (m *fakeMailer) Send(_ context.Context, o mail.Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[o.Template]; err != nil {
		return err
	}
	m.sent = append(m.sent, o)
	return nil
}

func (m *fakeMailer) SendBulk(ctx context.Context, batch []mail.Options) []mail.Result {
	out := make([]mail.Result, len(batch))
	for i, o := range batch {
		out[i] = mail.Result{To: o.To, Err: m.Send(ctx, o)}
	}
	return out
}

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, blocked ...string) (*Service, *memstore.Store, *fakeMailer) {
	t.Helper()
	store := memstore.New(memstore.WithClock(func() time.Time { return now }))
	m := &fakeMailer{fail: map[string]error{}}
	svc := NewService(store.Contacts(), m, "redaccion@noticias.test",
		WithClock(func() time.Time { return now }),
		WithScorer(NewScorer(nil, blocked)),
	)
	return svc, store, m
}

func ctx() context.Context { return tenant.WithSite(context.Background(), "hidalgo") }

func valid() Input {
	return Input{
		Name:    "Ana <b>López</b>",
		Email:   " Ana@Example.com ",
		Subject: "Corrección en nota",
		Message: "Hola, en la nota de ayer el **nombre** del alcalde está mal escrito. <script>alert(1)</script>",
	}
}

func TestSubmitStoresSanitizedAndNotifies(t *testing.T) {
	svc, store, m := setup(t)
	msg, err := svc.Submit(ctx(), valid(), models.ContactOrigin{IP: "201.1.1.1", UserAgent: "ua"})
	require.NoError(t, err)

	assert.Equal(t, models.ContactPending, msg.Status)
	assert.Equal(t, "Ana López", msg.Name)
	assert.Equal(t, "ana@example.com", msg.Email)
	assert.NotContains(t, msg.Message, "<script>")
	assert.Equal(t, "hidalgo", msg.Site)
	require.Len(t, store.Contacts().All(), 1)

	require.Len(t, m.sent, 2)
	admin := m.sent[0]
	assert.Equal(t, mail.TemplateContactAdmin, admin.Template)
	assert.Equal(t, "redaccion@noticias.test", admin.To)
	assert.Equal(t, "ana@example.com", admin.Headers["Reply-To"])
	body := string(admin.Context["MessageHTML"].(template.HTML))
	assert.Contains(t, body, "<strong>nombre</strong>")
	assert.Equal(t, mail.TemplateContactConfirm, m.sent[1].Template)
	assert.Equal(t, "ana@example.com", m.sent[1].To)
}

func TestSpamIsStoredWithoutEmail(t *testing.T) {
	svc, store, m := setup(t)
	in := valid()
	in.Message = "Gana dinero con BITCOIN y casino: http://a.test http://b.test http://c.test"
	msg, err := svc.Submit(ctx(), in, models.ContactOrigin{})
	require.NoError(t, err)

	assert.Equal(t, models.ContactSpam, msg.Status)
	assert.GreaterOrEqual(t, msg.SpamScore, DefaultThreshold)
	assert.Contains(t, msg.SpamReasons, "links")
	assert.Empty(t, m.sent)
	require.Len(t, store.Contacts().All(), 1)
}

func TestBlockedIPIsSpam(t *testing.T) {
	svc, _, m := setup(t, "10.0.0.0/8", "203.0.113.7")
	for _, ip := range []string{"10.2.3.4", "203.0.113.7", "::ffff:10.9.9.9"} {
		msg, err := svc.Submit(ctx(), valid(), models.ContactOrigin{IP: ip})
		require.NoError(t, err)
		assert.Equal(t, models.ContactSpam, msg.Status, ip)
		assert.Contains(t, msg.SpamReasons, "blocked-ip")
	}
	assert.Empty(t, m.sent)
}

func TestFloodFromOneAddress(t *testing.T) {
	svc, _, _ := setup(t)
	var last *models.ContactMessage
	for range 4 {
		var err error
		last, err = svc.Submit(ctx(), valid(), models.ContactOrigin{})
		require.NoError(t, err)
	}
	assert.Contains(t, last.SpamReasons, "flood")
}

func TestAdminFailureFailsSubmission(t *testing.T) {
	svc, store, m := setup(t)
	m.fail[mail.TemplateContactAdmin] = errors.New("smtp down")
	_, err := svc.Submit(ctx(), valid(), models.ContactOrigin{})
	assert.ErrorContains(t, err, "smtp down")

	stored := store.Contacts().All()
	require.Len(t, stored, 1)
	assert.ErrorContains(t, err, stored[0].ID, "the error names the stored record")
}

func TestConfirmationFailureIsSwallowed(t *testing.T) {
	svc, _, m := setup(t)
	m.fail[mail.TemplateContactConfirm] = errors.New("smtp down")
	msg, err := svc.Submit(ctx(), valid(), models.ContactOrigin{})
	require.NoError(t, err)
	assert.Equal(t, models.ContactPending, msg.Status)
	require.Len(t, m.sent, 1)
}

func TestEmptyAfterSanitizing(t *testing.T) {
	svc, _, _ := setup(t)
	in := valid()
	in.Subject = "<img src=x onerror=alert(1)>"
	_, err := svc.Submit(ctx(), in, models.ContactOrigin{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestScorerRules(t *testing.T) {
	s := NewScorer([]string{"Préstamo"}, []string{"bogus", "192.168.1.0/24"})

	score, reasons := s.Score("hola", "quiero un prestamo", "1.1.1.1")
	assert.Equal(t, 3, score)
	assert.Equal(t, []string{"keyword:prestamo"}, reasons)

	score, reasons = s.Score("URGENTE", strings.Repeat("LEAN ESTO AHORA ", 3), "192.168.1.20")
	assert.Equal(t, 12, score)
	assert.Equal(t, []string{"uppercase", "blocked-ip"}, reasons)

	score, _ = s.Score("", "www.a.test www.b.test www.c.test www.d.test www.e.test www.f.test", "")
	assert.Equal(t, 5, score)
}
