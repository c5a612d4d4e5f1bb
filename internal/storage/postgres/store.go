package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aniversariantes/api/internal/models"
	"github.com/aniversariantes/api/internal/storage"
)

// Ensure Store satisfies the storage.BirthdayStore interface at compile time.
var _ storage.BirthdayStore = (*Store)(nil)

// Store provides Postgres-backed persistence for birthdays.
type Store struct {
	pool *pgxpool.Pool
}

// NewBirthdayStore creates a new Store and runs migrations.
func NewBirthdayStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS birthdays (
			id UUID PRIMARY KEY,
			seq BIGSERIAL,
			real_name TEXT NOT NULL,
			display_name TEXT NOT NULL,
			chat_handle TEXT NOT NULL,
			birth_date TEXT NOT NULL,
			last_notified_on TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`ALTER TABLE birthdays ADD COLUMN IF NOT EXISTS last_notified_on TEXT;`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// Create inserts a new birthday row and assigns its ID.
func (s *Store) Create(ctx context.Context, birthday models.Birthday) (models.Birthday, error) {
	const query = `
	INSERT INTO birthdays (id, real_name, display_name, chat_handle, birth_date)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, real_name, display_name, chat_handle, birth_date, COALESCE(last_notified_on, ''), created_at;
	`
	row := s.pool.QueryRow(ctx, query,
		uuid.NewString(), birthday.RealName, birthday.DisplayName, birthday.ChatHandle, birthday.BirthDate)
	return scanBirthday(row)
}

// ListAll returns every birthday in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]models.Birthday, error) {
	const query = `
	SELECT id, real_name, display_name, chat_handle, birth_date, COALESCE(last_notified_on, ''), created_at
	FROM birthdays
	ORDER BY seq;
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list birthdays: %w", err)
	}
	defer rows.Close()

	birthdays := make([]models.Birthday, 0)
	for rows.Next() {
		b, err := scanBirthday(rows)
		if err != nil {
			return nil, err
		}
		birthdays = append(birthdays, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list birthdays: %w", err)
	}
	return birthdays, nil
}

// FindByHandle fetches the first birthday with the given chat handle.
func (s *Store) FindByHandle(ctx context.Context, handle string) (models.Birthday, error) {
	const query = `
	SELECT id, real_name, display_name, chat_handle, birth_date, COALESCE(last_notified_on, ''), created_at
	FROM birthdays
	WHERE chat_handle = $1
	ORDER BY seq
	LIMIT 1;
	`
	row := s.pool.QueryRow(ctx, query, handle)
	return scanBirthday(row)
}

// MarkNotified claims the per-day announcement marker with a conditional
// update; the row count tells whether this caller won the claim.
func (s *Store) MarkNotified(ctx context.Context, id, day string) (bool, error) {
	const query = `
	UPDATE birthdays
	SET last_notified_on = $2
	WHERE id = $1 AND (last_notified_on IS NULL OR last_notified_on <> $2);
	`
	tag, err := s.pool.Exec(ctx, query, id, day)
	if err != nil {
		return false, fmt.Errorf("mark notified: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanBirthday(row pgx.Row) (models.Birthday, error) {
	var b models.Birthday
	if err := row.Scan(&b.ID, &b.RealName, &b.DisplayName, &b.ChatHandle, &b.BirthDate, &b.LastNotifiedOn, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Birthday{}, storage.ErrNotFound
		}
		return models.Birthday{}, err
	}
	return b, nil
}
