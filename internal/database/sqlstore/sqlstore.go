// Package sqlstore is the MySQL backend built on gorm.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/noticias/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// Open connects to MySQL. Dev mode logs every statement.
func Open(ctx context.Context, dsn string, dev bool, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	level := logger.Warn
	if dev {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               dsn,
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return newStore(db, sqlDB, log), nil
}

func newStore(db *gorm.DB, sqlDB *sql.DB, log *zap.Logger) *Store {
	return &Store{db: db, sqlDB: sqlDB, now: time.Now, logger: log.Named("SQLStore")}
}

// Migrate creates or updates every table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allRecords...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	s.logger.Info("schema migrated")
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.sqlDB.PingContext(ctx) }

func (s *Store) Close(context.Context) error { return s.sqlDB.Close() }

func (s *Store) Articles() *Articles       { return &Articles{db: s.db} }
func (s *Store) Categories() *Categories   { return &Categories{db: s.db} }
func (s *Store) Subscribers() *Subscribers { return &Subscribers{db: s.db, now: s.now} }
func (s *Store) Bulletins() *Bulletins     { return &Bulletins{db: s.db, now: s.now} }
func (s *Store) Contacts() *Contacts       { return &Contacts{db: s.db, now: s.now} }

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.ErrDuplicate
	}
	return err
}

// updateRow writes every column of rec except id and created_at. MySQL
// reports zero affected rows for unchanged values, so a miss is confirmed
// with a count before reporting ErrNotFound.
func updateRow(ctx context.Context, db *gorm.DB, model any, id string) error {
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).
		Select("*").Omit("id", "created_at").Updates(model)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return ensureExists(ctx, db, model, id)
}

func ensureExists(ctx context.Context, db *gorm.DB, model any, id string) error {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func paginate(skip, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if skip > 0 {
			db = db.Offset(skip)
		}
		if limit > 0 {
			db = db.Limit(limit)
		}
		return db
	}
}
