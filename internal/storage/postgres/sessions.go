package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/session"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
)

type sessionRepo struct{ s *Store }

type sessionRow struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	StartedAt      time.Time  `db:"started_at"`
	LastActivityAt time.Time  `db:"last_activity_at"`
	EndedAt        *time.Time `db:"ended_at"`
	DurationSecs   int        `db:"duration_seconds"`
	PageViews      int        `db:"page_views"`
	EventsCount    int        `db:"events_count"`
	IsBounce       bool       `db:"is_bounce"`
	Converted      bool       `db:"converted"`
	ConvValue      float64    `db:"conversion_value"`
	UTMSource      string     `db:"utm_source"`
	UTMMedium      string     `db:"utm_medium"`
	UTMCampaign    string     `db:"utm_campaign"`
	Referrer       string     `db:"referrer"`
	LandingPage    string     `db:"landing_page"`
}

func (r sessionRow) toDomain() *session.Session {
	return &session.Session{
		ID: r.ID, UserID: r.UserID, StartedAt: r.StartedAt, LastActivityAt: r.LastActivityAt,
		EndedAt: r.EndedAt, DurationSecs: r.DurationSecs,
		PageViews: r.PageViews, EventsCount: r.EventsCount, IsBounce: r.IsBounce,
		Converted: r.Converted, ConvValue: r.ConvValue,
		UTMSource: r.UTMSource, UTMMedium: r.UTMMedium, UTMCampaign: r.UTMCampaign,
		Referrer: r.Referrer, LandingPage: r.LandingPage,
	}
}

func rowFromSession(sess *session.Session) sessionRow {
	return sessionRow{
		ID: sess.ID, UserID: sess.UserID, StartedAt: sess.StartedAt, LastActivityAt: sess.LastActivityAt,
		EndedAt: sess.EndedAt, DurationSecs: sess.DurationSecs,
		PageViews: sess.PageViews, EventsCount: sess.EventsCount, IsBounce: sess.IsBounce,
		Converted: sess.Converted, ConvValue: sess.ConvValue,
		UTMSource: sess.UTMSource, UTMMedium: sess.UTMMedium, UTMCampaign: sess.UTMCampaign,
		Referrer: sess.Referrer, LandingPage: sess.LandingPage,
	}
}

const sessionColumns = `id, user_id, started_at, last_activity_at, ended_at, duration_seconds,
	page_views, events_count, is_bounce, converted, conversion_value,
	utm_source, utm_medium, utm_campaign, referrer, landing_page`

func (r *sessionRepo) Create(ctx context.Context, sess *session.Session) (*session.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	row := rowFromSession(sess)
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		row.ID, row.UserID, row.StartedAt, row.LastActivityAt, row.EndedAt, row.DurationSecs,
		row.PageViews, row.EventsCount, row.IsBounce, row.Converted, row.ConvValue,
		row.UTMSource, row.UTMMedium, row.UTMCampaign, row.Referrer, row.LandingPage,
	)
	if err != nil {
		return nil, translatePgError(err)
	}
	return row.toDomain(), nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*session.Session, error) {
	var row sessionRow
	err := r.s.q(ctx).GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "session", id)
	}
	return row.toDomain(), nil
}

func (r *sessionRepo) Update(ctx context.Context, sess *session.Session) error {
	row := rowFromSession(sess)
	res, err := r.s.q(ctx).ExecContext(ctx, `
		UPDATE sessions SET
			last_activity_at = $1, ended_at = $2, duration_seconds = $3,
			page_views = $4, events_count = $5, is_bounce = $6,
			converted = $7, conversion_value = $8
		WHERE id = $9`,
		row.LastActivityAt, row.EndedAt, row.DurationSecs,
		row.PageViews, row.EventsCount, row.IsBounce,
		row.Converted, row.ConvValue, row.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	return assertRowAffected(res, "session", sess.ID)
}

func (r *sessionRepo) GetOpenIdleBefore(ctx context.Context, cutoff time.Time, limit int) ([]*session.Session, error) {
	var rows []sessionRow
	err := r.s.q(ctx).SelectContext(ctx, &rows, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE ended_at IS NULL AND last_activity_at < $1
		ORDER BY last_activity_at ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, translatePgError(err)
	}
	return toSessions(rows), nil
}

func (r *sessionRepo) GetByUserInRange(ctx context.Context, userIDs []string, start, end time.Time) ([]*session.Session, error) {
	var rows []sessionRow
	err := r.s.q(ctx).SelectContext(ctx, &rows, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ANY($1) AND started_at >= $2 AND started_at < $3
		ORDER BY started_at ASC`, pq.Array(userIDs), start, end)
	if err != nil {
		return nil, translatePgError(err)
	}
	return toSessions(rows), nil
}

func (r *sessionRepo) CountByFilters(ctx context.Context, f storage.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE 1=1`
	var args []any
	if v, ok := f["startedAtGte"]; ok {
		args = append(args, v)
		query += ` AND started_at >= ` + placeholder(len(args))
	}
	if v, ok := f["startedAtLt"]; ok {
		args = append(args, v)
		query += ` AND started_at < ` + placeholder(len(args))
	}
	var n int
	if err := r.s.q(ctx).GetContext(ctx, &n, query, args...); err != nil {
		return 0, translatePgError(err)
	}
	return n, nil
}

func toSessions(rows []sessionRow) []*session.Session {
	out := make([]*session.Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
