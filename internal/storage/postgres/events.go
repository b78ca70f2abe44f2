package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

type eventRepo struct{ s *Store }

// eventRow mirrors event.Event for sqlx scanning, swapping the
// free-form Properties bag for the jsonMap Scanner/Valuer adapter.
type eventRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Type        string     `db:"type"`
	UserID      string     `db:"user_id"`
	SessionID   string     `db:"session_id"`
	Module      string     `db:"module"`
	Properties  jsonMap    `db:"properties"`
	PageURL     string     `db:"page_url"`
	PageTitle   string     `db:"page_title"`
	Referrer    string     `db:"referrer"`
	UserAgent   string     `db:"user_agent"`
	IPAddress   string     `db:"ip_address"`
	Country     string     `db:"country"`
	City        string     `db:"city"`
	DeviceType  string     `db:"device_type"`
	Browser     string     `db:"browser"`
	OS          string     `db:"os"`
	UTMSource   string     `db:"utm_source"`
	UTMMedium   string     `db:"utm_medium"`
	UTMCampaign string     `db:"utm_campaign"`
	Timestamp   time.Time  `db:"timestamp"`
	CreatedAt   time.Time  `db:"created_at"`
	Processed   bool       `db:"processed"`
	ProcessedAt *time.Time `db:"processed_at"`
}

func (r eventRow) toDomain() *event.Event {
	return &event.Event{
		ID: r.ID, Name: r.Name, Type: event.Type(r.Type),
		UserID: r.UserID, SessionID: r.SessionID, Module: r.Module,
		Properties: event.Properties(r.Properties),
		PageURL:    r.PageURL, PageTitle: r.PageTitle, Referrer: r.Referrer,
		UserAgent: r.UserAgent, IPAddress: r.IPAddress,
		Country: r.Country, City: r.City, DeviceType: r.DeviceType,
		Browser: r.Browser, OS: r.OS,
		UTMSource: r.UTMSource, UTMMedium: r.UTMMedium, UTMCampaign: r.UTMCampaign,
		Timestamp: r.Timestamp, CreatedAt: r.CreatedAt,
		Processed: r.Processed, ProcessedAt: r.ProcessedAt,
	}
}

func rowFromEvent(e *event.Event) eventRow {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return eventRow{
		ID: e.ID, Name: e.Name, Type: string(e.Type),
		UserID: e.UserID, SessionID: e.SessionID, Module: e.Module,
		Properties: jsonMap(e.Properties),
		PageURL:    e.PageURL, PageTitle: e.PageTitle, Referrer: e.Referrer,
		UserAgent: e.UserAgent, IPAddress: e.IPAddress,
		Country: e.Country, City: e.City, DeviceType: e.DeviceType,
		Browser: e.Browser, OS: e.OS,
		UTMSource: e.UTMSource, UTMMedium: e.UTMMedium, UTMCampaign: e.UTMCampaign,
		Timestamp: e.Timestamp, CreatedAt: e.CreatedAt,
		Processed: e.Processed, ProcessedAt: e.ProcessedAt,
	}
}

const eventColumns = `id, name, type, user_id, session_id, module, properties,
	page_url, page_title, referrer, user_agent, ip_address,
	country, city, device_type, browser, os,
	utm_source, utm_medium, utm_campaign,
	timestamp, created_at, processed, processed_at`

func (r *eventRepo) Create(ctx context.Context, e *event.Event) (*event.Event, error) {
	row := rowFromEvent(e)
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		row.ID, row.Name, row.Type, row.UserID, row.SessionID, row.Module, row.Properties,
		row.PageURL, row.PageTitle, row.Referrer, row.UserAgent, row.IPAddress,
		row.Country, row.City, row.DeviceType, row.Browser, row.OS,
		row.UTMSource, row.UTMMedium, row.UTMCampaign,
		row.Timestamp, row.CreatedAt, row.Processed, row.ProcessedAt,
	)
	if err != nil {
		return nil, translatePgError(err)
	}
	return row.toDomain(), nil
}

func (r *eventRepo) BulkCreate(ctx context.Context, events []*event.Event) (int, error) {
	n := 0
	for _, e := range events {
		if _, err := r.Create(ctx, e); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*event.Event, error) {
	var row eventRow
	err := r.s.q(ctx).GetContext(ctx, &row, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "event", id)
	}
	return row.toDomain(), nil
}

func (r *eventRepo) GetByFilters(ctx context.Context, f storage.Filter, limit, offset int) ([]*event.Event, error) {
	query, args := buildEventFilterQuery(f, limit, offset)
	var rows []eventRow
	if err := r.s.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translatePgError(err)
	}
	return toEvents(rows), nil
}

func buildEventFilterQuery(f storage.Filter, limit, offset int) (string, []any) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}
	if v, ok := f["userId"]; ok {
		query += ` AND user_id = ` + arg(v)
	}
	if v, ok := f["sessionId"]; ok {
		query += ` AND session_id = ` + arg(v)
	}
	if v, ok := f["type"]; ok {
		query += ` AND type = ` + arg(v)
	}
	if v, ok := f["processed"]; ok {
		query += ` AND processed = ` + arg(v)
	}
	query += ` ORDER BY timestamp ASC`
	if limit > 0 {
		query += ` LIMIT ` + arg(limit)
	}
	if offset > 0 {
		query += ` OFFSET ` + arg(offset)
	}
	return query, args
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func toEvents(rows []eventRow) []*event.Event {
	out := make([]*event.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

func (r *eventRepo) Count(ctx context.Context, f storage.Filter) (int, error) {
	query, args := buildEventFilterQuery(f, 0, 0)
	query = `SELECT COUNT(*) FROM (` + query + `) AS counted`
	var n int
	if err := r.s.q(ctx).GetContext(ctx, &n, query, args...); err != nil {
		return 0, translatePgError(err)
	}
	return n, nil
}

func (r *eventRepo) Delete(ctx context.Context, id string) error {
	res, err := r.s.q(ctx).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return translatePgError(err)
	}
	return assertRowAffected(res, "event", id)
}

func assertRowAffected(res interface {
	RowsAffected() (int64, error)
}, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translatePgError(err)
	}
	if n == 0 {
		return storeerr.NewNotFound(entity, id)
	}
	return nil
}

func (r *eventRepo) GetUnprocessed(ctx context.Context, limit int) ([]*event.Event, error) {
	var rows []eventRow
	err := r.s.q(ctx).SelectContext(ctx, &rows, `
		SELECT `+eventColumns+` FROM events
		WHERE processed = false
		ORDER BY timestamp ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, translatePgError(err)
	}
	return toEvents(rows), nil
}

func (r *eventRepo) MarkProcessed(ctx context.Context, ids []string, now time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.s.q(ctx).ExecContext(ctx, `
		UPDATE events SET processed = true, processed_at = $1
		WHERE id = ANY($2) AND processed = false`, now, pq.Array(ids))
	if err != nil {
		return 0, translatePgError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translatePgError(err)
	}
	return int(n), nil
}

func (r *eventRepo) GetByDateRange(ctx context.Context, start, end time.Time, eventTypes []event.Type) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE timestamp >= $1 AND timestamp < $2`
	args := []any{start, end}
	if len(eventTypes) > 0 {
		types := make([]string, len(eventTypes))
		for i, t := range eventTypes {
			types[i] = string(t)
		}
		query += ` AND type = ANY($3)`
		args = append(args, pqStringArray(types))
	}
	query += ` ORDER BY timestamp ASC`
	var rows []eventRow
	if err := r.s.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translatePgError(err)
	}
	return toEvents(rows), nil
}

func notFoundOr(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storeerr.NewNotFound(entity, id)
	}
	return translatePgError(err)
}
