package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// applyEnv overrides secrets and endpoints from the environment. Only the
// values that differ between deployments are exposed here.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("NOTICIAS_PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Port = port
		}
	}
	str("NOTICIAS_ENV", &cfg.Env)
	str("NOTICIAS_DB_DRIVER", &cfg.Database.Driver)
	str("MONGO_URI", &cfg.Database.Mongo.URI)
	str("MONGO_DB", &cfg.Database.Mongo.Name)
	str("MYSQL_DSN", &cfg.Database.MySQL.DSN)
	if v, ok := lookup("REDIS_URL"); ok && strings.TrimSpace(v) != "" {
		cfg.Redis.URL = strings.TrimSpace(v)
		cfg.Redis.Enable = true
	}
	str("NATS_URL", &cfg.Events.NATSURL)
	str("JWT_SECRET", &cfg.Admin.JWTSecret)
	str("ADMIN_PASSWORD_HASH", &cfg.Admin.PasswordHash)
	str("MAIL_PASS", &cfg.Mail.Pass)
	str("RESEND_API_KEY", &cfg.Mail.ResendKey)
	str("S3_ACCESS_KEY_ID", &cfg.Archive.AccessKey)
	str("S3_SECRET_ACCESS_KEY", &cfg.Archive.SecretKey)
}
