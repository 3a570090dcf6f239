package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadBytes(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Newsletter.ConfirmTTL)
	assert.Equal(t, "America/Mexico_City", cfg.Location.String())
	assert.Equal(t, 8, cfg.Mail.BulkConcurrency)
	assert.Equal(t, "sun 09:00", cfg.Newsletter.Schedules["weekly"])
	assert.True(t, cfg.IsDev())
}

func TestLoadYAML(t *testing.T) {
	yml := `
port: 8080
env: prod
database:
  driver: mysql
  mysql:
    host: db
    username: app
    password: secret
    db_name: news
redis:
  url: redis://cache:6379/1
events:
  driver: redis
sites:
  default: criterio
  domains:
    criteriohidalgo.com: criterio
  urls:
    criterio: https://www.criteriohidalgo.com/
newsletter:
  confirm_ttl: 48h
  schedules:
    Morning: "06:30"
mail:
  enable: true
  password: mailpass
  bulk_concurrency: 4
rate_limit:
  window: 30s
`
	cfg, err := LoadBytes([]byte(yml), nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "app", cfg.Database.MySQL.User)
	assert.True(t, cfg.Redis.Enable)
	assert.Equal(t, EventsRedis, cfg.Events.Driver)
	assert.Equal(t, "https://www.criteriohidalgo.com", cfg.Sites.URL("criterio"))
	assert.Equal(t, "https://www.criteriohidalgo.com", cfg.Sites.URL("unknown"))
	assert.Equal(t, 48*time.Hour, cfg.Newsletter.ConfirmTTL)
	assert.Equal(t, "06:30", cfg.Newsletter.Schedules["morning"])
	assert.Equal(t, "19:00", cfg.Newsletter.Schedules["evening"])
	assert.Equal(t, "mailpass", cfg.Mail.Pass)
	assert.Equal(t, 4, cfg.Mail.BulkConcurrency)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Contains(t, cfg.Database.MySQL.DSNValue(), "app:secret@tcp(db:3306)/news")
}

func TestUnknownFieldRejected(t *testing.T) {
	_, err := LoadBytes([]byte("prot: 80\n"), nil)
	assert.ErrorContains(t, err, "field prot not found")
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"port":     "port: 70000\n",
		"driver":   "database:\n  driver: sqlite\n",
		"redisbus": "events:\n  driver: redis\n",
		"natsbus":  "events:\n  driver: nats\n",
		"archive":  "archive:\n  enable: true\n",
		"timezone": "timezone: Mars/Olympus\n",
	}
	for name, yml := range cases {
		_, err := LoadBytes([]byte(yml), nil)
		assert.Error(t, err, name)
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := LoadBytes([]byte("port: 8080\n"), env(map[string]string{
		"NOTICIAS_PORT": "9090",
		"MONGO_URI":     "mongodb://mongo:27017",
		"REDIS_URL":     "redis://r:6379/0",
		"JWT_SECRET":    "from-env",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Database.Mongo.URI)
	assert.True(t, cfg.Redis.Enable)
	assert.Equal(t, "from-env", cfg.Admin.JWTSecret)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestLoadDotEnvIgnoresMissing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestSiteKeys(t *testing.T) {
	s := SitesConfig{
		Default: "hidalgo",
		Domains: map[string]string{"deportes.example.mx": "deportes", "example.mx": "hidalgo"},
		URLs:    map[string]string{"hidalgo": "https://example.mx", "tulancingo": "https://tulancingo.example.mx"},
	}
	assert.Equal(t, []string{"hidalgo", "deportes", "tulancingo"}, s.Keys())
}
