// Package gormstore is the Postgres backend, built on gorm with the pgx
// driver underneath.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/models"
	"fintrack/pkg/apperr"
	"fintrack/pkg/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	DSN         string
	AutoMigrate bool
	// MaxOpenConns caps the pool; zero keeps database/sql's default.
	MaxOpenConns int
	Log          zerolog.Logger
}

type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to Postgres and, when cfg.AutoMigrate is set, migrates the
// users and transactions tables. Migration failures are logged and do not
// abort startup, since the role may lack DDL permissions on a managed schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("gormstore: DB_DSN is not set")
	}
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("gormstore: parse dsn: %w", err)
	}
	sqlDB := stdlib.OpenDB(*connCfg)
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("gormstore: open: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("gormstore: ping: %w", err)
	}
	s := &Store{db: db, log: cfg.Log}
	if cfg.AutoMigrate {
		s.migrate()
	}
	return s, nil
}

// migrate runs each model separately so one failure does not block the rest.
func (s *Store) migrate() {
	if err := s.db.AutoMigrate(&models.User{}); err != nil {
		s.log.Warn().Err(err).Str("table", "users").Msg("migration warning")
	}
	if err := s.db.AutoMigrate(&models.Transaction{}); err != nil {
		s.log.Warn().Err(err).Str("table", "transactions").Msg("migration warning")
	}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.StorageErr("find user", err)
	}
	return &u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueConstraintError(err) {
			return apperr.New(apperr.Conflict, "username already exists")
		}
		return apperr.StorageErr("insert user", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, id uint, upd store.UserUpdate) (*models.User, error) {
	fields := map[string]any{}
	if upd.MonthlyBudget != nil {
		fields["monthly_budget"] = *upd.MonthlyBudget
	}
	if upd.BudgetAlertThreshold != nil {
		fields["budget_alert_threshold"] = *upd.BudgetAlertThreshold
	}
	if upd.HashedPassword != nil {
		fields["hashed_password"] = upd.HashedPassword
	}
	if len(fields) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, apperr.StorageErr("update user", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
	}
	return s.FindUserByID(ctx, id)
}

func (s *Store) FindTransactions(ctx context.Context, ownerID uint, f store.Filter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	items := make([]models.Transaction, 0)
	if err := q.Order("date desc, id asc").Find(&items).Error; err != nil {
		return nil, apperr.StorageErr("list transactions", err)
	}
	return items, nil
}

func (s *Store) FindTransaction(ctx context.Context, ownerID, id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.StorageErr("find transaction", err)
	}
	return &t, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return apperr.StorageErr("insert transaction", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, ownerID, id uint, fields store.TransactionFields) (*models.Transaction, error) {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]any{
			"title":    fields.Title,
			"amount":   fields.Amount,
			"type":     fields.Type,
			"category": fields.Category,
			"date":     fields.Date,
		})
	if res.Error != nil {
		return nil, apperr.StorageErr("update transaction", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.FindTransaction(ctx, ownerID, id)
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Transaction{})
	if res.Error != nil {
		return false, apperr.StorageErr("delete transaction", res.Error)
	}
	return res.RowsAffected > 0, nil
}
