package database

import (
	"context"
	"fmt"

	"github.com/noticias/core/internal/config"
	"github.com/noticias/core/internal/database/memstore"
	"github.com/noticias/core/internal/database/mongostore"
	"github.com/noticias/core/internal/database/sqlstore"
	"go.uber.org/zap"
)

// Open connects the backend named by cfg.Database.Driver. With setup set,
// indexes and tables are created before returning.
func Open(ctx context.Context, cfg *config.AppConfig, log *zap.Logger, setup bool) (*Stores, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Database.Driver {
	case config.DriverMongo:
		s, err := mongostore.Connect(ctx, cfg.Database.Mongo.URI, cfg.Database.Mongo.Name, log)
		if err != nil {
			return nil, err
		}
		if setup {
			if err := s.EnsureIndexes(ctx); err != nil {
				_ = s.Close(ctx)
				return nil, err
			}
		}
		return &Stores{
			Articles:    s.Articles(),
			Categories:  s.Categories(),
			Subscribers: s.Subscribers(),
			Bulletins:   s.Bulletins(),
			Contacts:    s.Contacts(),
			Driver:      config.DriverMongo,
			ping:        s.Ping,
			close:       s.Close,
		}, nil

	case config.DriverMySQL:
		s, err := sqlstore.Open(ctx, cfg.Database.MySQL.DSNValue(), cfg.IsDev(), log)
		if err != nil {
			return nil, err
		}
		if setup {
			if err := s.Migrate(ctx); err != nil {
				_ = s.Close(ctx)
				return nil, err
			}
		}
		return &Stores{
			Articles:    s.Articles(),
			Categories:  s.Categories(),
			Subscribers: s.Subscribers(),
			Bulletins:   s.Bulletins(),
			Contacts:    s.Contacts(),
			Driver:      config.DriverMySQL,
			ping:        s.Ping,
			close:       s.Close,
		}, nil

	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return Memory(memstore.New()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// Memory wraps an in-process store.
func Memory(s *memstore.Store) *Stores {
	return &Stores{
		Articles:    s.Articles(),
		Categories:  s.Categories(),
		Subscribers: s.Subscribers(),
		Bulletins:   s.Bulletins(),
		Contacts:    s.Contacts(),
		Driver:      config.DriverMemory,
		ping:        s.Ping,
		close:       s.Close,
	}
}

// EnsureSchema applies indexes or migrations in a short-lived connection.
func EnsureSchema(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) error {
	s, err := Open(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	return s.Close(ctx)
}
