// Package postgres implements storage.Store against PostgreSQL using
// database/sql and sqlx, following the same repository-layer
// (infrastructure/database): the same error taxonomy and generic CRUD
// shape, rewired here onto real SQL instead of a PostgREST client.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

const (
	pqCodeUniqueViolation   = "23505"
	pqCodeSerializationFail = "40001"
)

// sessionKeyType distinguishes the context key carrying an in-flight
// transaction from anything else a caller might store.
type sessionKeyType struct{}

var sessionKey = sessionKeyType{}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx, letting repository
// methods run unmodified whether or not they're inside WithSession.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Store is the PostgreSQL-backed storage.Store implementation.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New wraps an already-opened *sql.DB (see internal/platform/database)
// with sqlx and returns a ready Store.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// q returns the active queryer for ctx: the transaction started by
// WithSession if one is in flight, otherwise the pooled *sqlx.DB.
func (s *Store) q(ctx context.Context) queryer {
	if tx, ok := ctx.Value(sessionKey).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// WithSession runs fn inside a serializable transaction. A serialization
// failure (pq code 40001) is retried exactly once and, if it recurs,
// surfaces as a storeerr.ConflictError; any other failure rolls back
// and is returned through translatePgError.
func (s *Store) WithSession(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; attempt < 2; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if attempt == 0 && isSerializationFailure(err) {
			continue
		}
		return err
	}
	return s.runOnce(ctx, fn)
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return storeerr.ErrTransient
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	txCtx := context.WithValue(ctx, sessionKey, tx)
	if err = fn(txCtx); err != nil {
		tx.Rollback()
		return translatePgError(err)
	}
	if err = tx.Commit(); err != nil {
		return translatePgError(err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqCodeSerializationFail
	}
	return false
}

// translatePgError maps a raw pq driver error onto the storeerr
// taxonomy; errors already in that taxonomy pass through unchanged.
func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqCodeUniqueViolation:
			return storeerr.NewConflict(pqErr.Table, pqErr.Detail)
		case pqCodeSerializationFail:
			// Keep the pq error reachable so WithSession can still
			// detect the serialization failure and retry.
			return errors.Join(storeerr.NewConflict(pqErr.Table, "serialization failure"), pqErr)
		}
	}
	return err
}

// HealthCheck pings the underlying connection pool.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeerr.ErrTransient
	}
	return nil
}

func (s *Store) Events() storage.EventRepository       { return &eventRepo{s} }
func (s *Store) Users() storage.UserRepository          { return &userRepo{s} }
func (s *Store) Sessions() storage.SessionRepository    { return &sessionRepo{s} }
func (s *Store) Funnels() storage.FunnelRepository      { return &funnelRepo{s} }
func (s *Store) Cohorts() storage.CohortRepository      { return &cohortRepo{s} }
func (s *Store) Goals() storage.GoalRepository          { return &goalRepo{s} }
func (s *Store) ABTests() storage.ABTestRepository      { return &abTestRepo{s} }
func (s *Store) Metrics() storage.MetricRepository      { return &metricRepo{s} }
func (s *Store) ExportJobs() storage.ExportJobRepository { return &exportRepo{s} }
