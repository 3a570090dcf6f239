package app

import (
	"context"
	"errors"
	"testing"

	"github.com/noticias/core/internal/config"
	"github.com/noticias/core/internal/models"
	pkgcron "github.com/noticias/core/internal/pkg/cron"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	calls []string
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, t models.BulletinType) (*models.Bulletin, error) {
	f.calls = append(f.calls, tenant.Site(ctx)+"/"+string(t))
	if f.err != nil {
		return nil, f.err
	}
	return &models.Bulletin{Type: t, Status: models.BulletinSent}, nil
}

func yamlConfig(t *testing.T, yml string) *config.AppConfig {
	t.Helper()
	cfg, err := config.LoadBytes([]byte(yml), nil)
	require.NoError(t, err)
	return cfg
}

func TestRegisterCronJobsPerSite(t *testing.T) {
	cfg := yamlConfig(t, `
sites:
  default: hidalgo
  urls:
    hidalgo: https://example.mx
    deportes: https://deportes.example.mx
`)
	cfg.Newsletter.Schedules = map[string]string{"morning": "07:00", "sports": "mon 08:30"}

	sched := pkgcron.New()
	d := &fakeDispatcher{}
	require.NoError(t, registerCronJobs(sched, cfg, d, zap.NewNop()))

	var names []string
	for _, item := range sched.List() {
		names = append(names, item.Name)
	}
	assert.ElementsMatch(t, []string{
		"bulletin:hidalgo:morning",
		"bulletin:deportes:morning",
		"bulletin:hidalgo:sports",
		"bulletin:deportes:sports",
	}, names)

	require.NoError(t, sched.Run(t.Context(), "bulletin:deportes:sports"))
	assert.Equal(t, []string{"deportes/sports"}, d.calls)
}

func TestRegisterCronJobsRejectsUnknownType(t *testing.T) {
	cfg := yamlConfig(t, "")
	cfg.Newsletter.Schedules = map[string]string{"hourly": "07:00"}
	assert.Error(t, registerCronJobs(pkgcron.New(), cfg, &fakeDispatcher{}, zap.NewNop()))
}

func TestDispatchJobSwallowsExpectedOutcomes(t *testing.T) {
	for _, err := range []error{models.ErrNoContent, models.ErrAlreadySent, models.ErrDispatchInProgress} {
		job := dispatchJob(&fakeDispatcher{err: err}, "hidalgo", models.BulletinMorning, zap.NewNop())
		assert.NoError(t, job(t.Context()))
	}

	boom := errors.New("smtp down")
	job := dispatchJob(&fakeDispatcher{err: boom}, "hidalgo", models.BulletinMorning, zap.NewNop())
	assert.ErrorIs(t, job(t.Context()), boom)
}
