// Package sqlstore keeps the signed-in session and the last reconciled cart
// of each user in SQLite or Postgres.
package sqlstore

import (
	databaseerrors "cartsync/internal/database"
	"cartsync/internal/database/sqlstore/migrations"
	"cartsync/internal/models"
	"cartsync/pkg/config"
	"cartsync/pkg/lib/logger/sl"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver(config.DriverSqlite, sqlx.QUESTION)
}

type Storage struct {
	log *slog.Logger
	db  *sqlx.DB
}

type sessionRow struct {
	Email     string `db:"email"`
	Role      string `db:"role"`
	Token     string `db:"token"`
	CreatedAt int64  `db:"created_at"`
}

type snapshotRow struct {
	Email     string `db:"email"`
	Payload   string `db:"payload"`
	UpdatedAt int64  `db:"updated_at"`
}

func New(log *slog.Logger, driver, connStr string) (*Storage, error) {
	const op = "database.sqlstore.New"
	log = log.With("op", op, "driver", driver)

	dialect, err := gooseDialect(driver)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := sqlx.Connect(driver, connStr)
	if err != nil {
		log.Error("Error connect to database", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := goose.Up(db.DB, "."); err != nil {
		log.Error("Error applying migrations", sl.Err(err))
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithParams(log, db), nil
}

func NewWithParams(log *slog.Logger, db *sqlx.DB) *Storage {
	return &Storage{
		log: log,
		db:  db,
	}
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveSession(ctx context.Context, session models.Session) error {
	const op = "database.sqlstore.SaveSession"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO sessions (id, email, role, token, created_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			role = excluded.role,
			token = excluded.token,
			created_at = excluded.created_at;
	`), session.Email, session.Role, session.Token, toMillis(session.CreatedAt)); err != nil {
		log.Error("Failed to save session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) LoadSession(ctx context.Context) (models.Session, error) {
	const op = "database.sqlstore.LoadSession"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return models.Session{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var row sessionRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT email, role, token, created_at FROM sessions
		WHERE id = 1;
	`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrNotFound)
		}
		log.Error("Failed to load session", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Session{
		Email:     row.Email,
		Role:      row.Role,
		Token:     row.Token,
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}

func (s *Storage) DeleteSession(ctx context.Context) error {
	const op = "database.sqlstore.DeleteSession"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = 1;`); err != nil {
		log.Error("Failed to delete session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) SaveSnapshot(ctx context.Context, email string, cart models.Cart) error {
	const op = "database.sqlstore.SaveSnapshot"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO cart_snapshots (email, payload, total, item_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			payload = excluded.payload,
			total = excluded.total,
			item_count = excluded.item_count,
			updated_at = excluded.updated_at;
	`), email, string(payload), int64(cart.Total), cart.ItemCount(), toMillis(time.Now())); err != nil {
		log.Error("Failed to save cart snapshot", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) LoadSnapshot(ctx context.Context, email string) (models.CartSnapshot, error) {
	const op = "database.sqlstore.LoadSnapshot"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return models.CartSnapshot{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var row snapshotRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT email, payload, updated_at FROM cart_snapshots
		WHERE email = ?;
	`), email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CartSnapshot{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrNotFound)
		}
		log.Error("Failed to load cart snapshot", sl.Err(err))
		return models.CartSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	cart := models.EmptyCart()
	if err := json.Unmarshal([]byte(row.Payload), &cart); err != nil {
		log.Error("Corrupt cart snapshot", sl.Err(err))
		return models.CartSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.CartSnapshot{
		Email:     row.Email,
		Cart:      cart,
		UpdatedAt: fromMillis(row.UpdatedAt),
	}, nil
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case config.DriverSqlite:
		return "sqlite3", nil
	case config.DriverPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported storage driver %q", driver)
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
