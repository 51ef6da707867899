package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SigNoz/storefront-go-app/internal/db"
	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"github.com/google/uuid"
)

// SQLStore keeps sessions in the MySQL sessions table (see schema.sql)
type SQLStore struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	config  Config
}

// NewSQLStore creates a store on database
func NewSQLStore(database *db.DB, m *metrics.AppMetrics, config Config) *SQLStore {
	return &SQLStore{
		db:      database,
		metrics: m,
		config:  config,
	}
}

const (
	upsertSessionQuery = "INSERT INTO sessions (id, data, expires_at, updated_at) VALUES (?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE data = VALUES(data), expires_at = VALUES(expires_at), updated_at = VALUES(updated_at)"
	selectSessionQuery = "SELECT data, expires_at FROM sessions WHERE id = ?"
	deleteSessionQuery = "DELETE FROM sessions WHERE id = ?"
	countSessionsQuery = "SELECT COUNT(*) FROM sessions WHERE expires_at > ?"
	purgeSessionsQuery = "DELETE FROM sessions WHERE expires_at <= ?"
)

// Create creates a new anonymous session
func (s *SQLStore) Create(ctx context.Context) (*Session, error) {
	sess := newSession(uuid.New().String(), s.config.TTL)
	if err := s.upsert(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by id
func (s *SQLStore) Get(ctx context.Context, id string) (*Session, error) {
	start := time.Now()

	var data []byte
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, selectSessionQuery, id).Scan(&data, &expiresAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "sessions", selectSessionQuery, start, err == nil || errors.Is(err, sql.ErrNoRows))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if time.Now().After(expiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrExpired, id)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	sess.ExpiresAt = expiresAt
	return &sess, nil
}

// Save writes s and extends its expiry
func (s *SQLStore) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()
	sess.ExpiresAt = sess.UpdatedAt.Add(s.config.TTL)
	if err := s.upsert(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLStore) upsert(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, upsertSessionQuery, sess.ID, data, sess.ExpiresAt, sess.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "INSERT", "sessions", upsertSessionQuery, start, err == nil)
	return err
}

// Delete removes a session
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, deleteSessionQuery, id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "sessions", deleteSessionQuery, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Count returns the number of unexpired sessions
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := s.db.QueryRowContext(ctx, countSessionsQuery, time.Now()).Scan(&n)
	s.metrics.RecordDBQuery(ctx, "SELECT", "sessions", countSessionsQuery, start, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// Prune deletes expired rows and returns how many were removed
func (s *SQLStore) Prune(ctx context.Context) (int64, error) {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, purgeSessionsQuery, time.Now())
	s.metrics.RecordDBQuery(ctx, "DELETE", "sessions", purgeSessionsQuery, start, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
