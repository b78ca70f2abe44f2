package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/user"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
)

type userRepo struct{ s *Store }

type userRow struct {
	ID               string    `db:"id"`
	ExternalID       string    `db:"external_id"`
	Email            string    `db:"email"`
	Name             string    `db:"name"`
	Properties       jsonMap   `db:"properties"`
	FirstSeenAt      time.Time `db:"first_seen_at"`
	LastSeenAt       time.Time `db:"last_seen_at"`
	TotalSessions    int       `db:"total_sessions"`
	TotalEvents      int       `db:"total_events"`
	TotalConversions int       `db:"total_conversions"`
	LifetimeValue    float64   `db:"lifetime_value"`
}

func (r userRow) toDomain() *user.User {
	return &user.User{
		ID: r.ID, ExternalID: r.ExternalID, Email: r.Email, Name: r.Name,
		Properties: map[string]any(r.Properties),
		FirstSeenAt: r.FirstSeenAt, LastSeenAt: r.LastSeenAt,
		TotalSessions: r.TotalSessions, TotalEvents: r.TotalEvents,
		TotalConversions: r.TotalConversions, LifetimeValue: r.LifetimeValue,
	}
}

const userColumns = `id, external_id, email, name, properties,
	first_seen_at, last_seen_at, total_sessions, total_events, total_conversions, lifetime_value`

func (r *userRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.ExternalID, u.Email, u.Name, jsonMap(u.Properties),
		u.FirstSeenAt, u.LastSeenAt, u.TotalSessions, u.TotalEvents, u.TotalConversions, u.LifetimeValue,
	)
	if err != nil {
		return nil, translatePgError(err)
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	var row userRow
	err := r.s.q(ctx).GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return row.toDomain(), nil
}

func (r *userRepo) GetByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	var row userRow
	err := r.s.q(ctx).GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID)
	if err != nil {
		return nil, notFoundOr(err, "user", externalID)
	}
	return row.toDomain(), nil
}

func (r *userRepo) Update(ctx context.Context, id string, patch map[string]any) error {
	if v, ok := patch["email"].(string); ok {
		if _, err := r.s.q(ctx).ExecContext(ctx, `UPDATE users SET email = $1 WHERE id = $2`, v, id); err != nil {
			return translatePgError(err)
		}
	}
	if v, ok := patch["name"].(string); ok {
		if _, err := r.s.q(ctx).ExecContext(ctx, `UPDATE users SET name = $1 WHERE id = $2`, v, id); err != nil {
			return translatePgError(err)
		}
	}
	return nil
}

func (r *userRepo) Count(ctx context.Context, f storage.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE 1=1`
	var args []any
	if v, ok := f["firstSeenAtGte"]; ok {
		args = append(args, v)
		query += ` AND first_seen_at >= ` + placeholder(len(args))
	}
	if v, ok := f["firstSeenAtLt"]; ok {
		args = append(args, v)
		query += ` AND first_seen_at < ` + placeholder(len(args))
	}
	var n int
	if err := r.s.q(ctx).GetContext(ctx, &n, query, args...); err != nil {
		return 0, translatePgError(err)
	}
	return n, nil
}

func (r *userRepo) IncrementStats(ctx context.Context, userID string, delta user.StatsDelta, now time.Time) error {
	res, err := r.s.q(ctx).ExecContext(ctx, `
		UPDATE users SET
			total_sessions = total_sessions + $1,
			total_events = total_events + $2,
			total_conversions = total_conversions + $3,
			lifetime_value = lifetime_value + $4,
			last_seen_at = $5
		WHERE id = $6`,
		delta.Sessions, delta.Events, delta.Conversions, delta.Value, now, userID)
	if err != nil {
		return translatePgError(err)
	}
	return assertRowAffected(res, "user", userID)
}

func (r *userRepo) GetByFirstSeenRange(ctx context.Context, start, end time.Time) ([]*user.User, error) {
	var rows []userRow
	err := r.s.q(ctx).SelectContext(ctx, &rows, `
		SELECT `+userColumns+` FROM users
		WHERE first_seen_at >= $1 AND first_seen_at < $2
		ORDER BY first_seen_at ASC`, start, end)
	if err != nil {
		return nil, translatePgError(err)
	}
	out := make([]*user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
