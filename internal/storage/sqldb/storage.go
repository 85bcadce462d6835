// Package sqldb is a database/sql implementation of the storage interface.
// The same queries run on SQLite (mattn/go-sqlite3) and PostgreSQL (lib/pq);
// only placeholder syntax differs.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage"
)

// Storage is a SQL-backed implementation of the storage interface
type Storage struct {
	db     *sql.DB
	driver string
}

// New opens the database, applies migrations and returns the store
func New(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Driver != DriverSQLite && cfg.Driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Storage{db: db, driver: cfg.Driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *Storage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, username, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			password_hash = excluded.password_hash,
			role = excluded.role,
			updated_at = excluded.updated_at`),
		string(user.ID), user.Username, user.PasswordHash, string(user.Role),
		user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, username, password_hash, role, created_at, updated_at
		FROM users WHERE id = ?`), string(id))
	return scanUser(row)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, username, password_hash, role, created_at, updated_at
		FROM users WHERE username = ?`), username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		user     model.User
		id, role string
	)
	err := row.Scan(&id, &user.Username, &user.PasswordHash, &role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	user.ID = model.UserID(id)
	user.Role = model.Role(role)
	return &user, nil
}

func (s *Storage) UserExists(ctx context.Context, id model.UserID) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM users WHERE id = ?`), string(id)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = ?`), string(id))
	return err
}

// Response operations

func (s *Storage) SaveResponse(ctx context.Context, response *model.Response) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO responses (user_id, question_id, correct, answered_at)
		VALUES (?, ?, ?, ?)`),
		string(response.UserID), response.QuestionID, response.Correct, response.AnsweredAt.UTC())
	return err
}

func (s *Storage) GetResponsesForUser(ctx context.Context, id model.UserID) ([]*model.Response, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT question_id, correct, answered_at
		FROM responses WHERE user_id = ?`), string(id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	responses := []*model.Response{}
	for rows.Next() {
		r := &model.Response{UserID: id}
		if err := rows.Scan(&r.QuestionID, &r.Correct, &r.AnsweredAt); err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// Score operations

func (s *Storage) SaveScore(ctx context.Context, record *model.ScoreRecord) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO scores (user_id, score, computed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			score = excluded.score,
			computed_at = excluded.computed_at`),
		string(record.UserID), record.Score, record.ComputedAt.UTC())
	return err
}

func (s *Storage) GetScore(ctx context.Context, id model.UserID) (*model.ScoreRecord, error) {
	record := &model.ScoreRecord{UserID: id}
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT score, computed_at FROM scores WHERE user_id = ?`), string(id)).
		Scan(&record.Score, &record.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrScoreNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListScores returns every score record, highest score first
func (s *Storage) ListScores(ctx context.Context) ([]*model.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, score, computed_at
		FROM scores ORDER BY score DESC, user_id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := []*model.ScoreRecord{}
	for rows.Next() {
		var (
			r  model.ScoreRecord
			id string
		)
		if err := rows.Scan(&id, &r.Score, &r.ComputedAt); err != nil {
			return nil, err
		}
		r.UserID = model.UserID(id)
		records = append(records, &r)
	}
	return records, rows.Err()
}
