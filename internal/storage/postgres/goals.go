package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/goal"
)

type goalRepo struct{ s *Store }

type goalRow struct {
	ID               string     `db:"id"`
	Enabled          bool       `db:"enabled"`
	EventType        string     `db:"event_type"`
	Conditions       jsonStrMap `db:"conditions"`
	Value            *float64   `db:"value"`
	TotalConversions int        `db:"total_conversions"`
	TotalValue       float64    `db:"total_value"`
}

func (r goalRow) toDomain() *goal.Goal {
	return &goal.Goal{
		ID: r.ID, Enabled: r.Enabled, EventType: event.Type(r.EventType),
		Conditions: map[string]string(r.Conditions), Value: r.Value,
		TotalConversions: r.TotalConversions, TotalValue: r.TotalValue,
	}
}

func (r *goalRepo) Create(ctx context.Context, g *goal.Goal) (*goal.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO goals (id, enabled, event_type, conditions, value, total_conversions, total_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.Enabled, string(g.EventType), jsonStrMap(g.Conditions), g.Value, g.TotalConversions, g.TotalValue)
	if err != nil {
		return nil, translatePgError(err)
	}
	cp := *g
	return &cp, nil
}

func (r *goalRepo) GetByID(ctx context.Context, id string) (*goal.Goal, error) {
	var row goalRow
	err := r.s.q(ctx).GetContext(ctx, &row, `
		SELECT id, enabled, event_type, conditions, value, total_conversions, total_value
		FROM goals WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "goal", id)
	}
	return row.toDomain(), nil
}

func (r *goalRepo) GetEnabledByEventType(ctx context.Context, t event.Type) ([]*goal.Goal, error) {
	var rows []goalRow
	err := r.s.q(ctx).SelectContext(ctx, &rows, `
		SELECT id, enabled, event_type, conditions, value, total_conversions, total_value
		FROM goals WHERE enabled = true AND event_type = $1`, string(t))
	if err != nil {
		return nil, translatePgError(err)
	}
	out := make([]*goal.Goal, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *goalRepo) IncrementConversions(ctx context.Context, goalID string, value float64) error {
	res, err := r.s.q(ctx).ExecContext(ctx, `
		UPDATE goals SET total_conversions = total_conversions + 1, total_value = total_value + $1
		WHERE id = $2`, value, goalID)
	if err != nil {
		return translatePgError(err)
	}
	return assertRowAffected(res, "goal", goalID)
}

func (r *goalRepo) CreateConversion(ctx context.Context, c *goal.Conversion) (*goal.Conversion, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO goal_conversions (id, goal_id, user_id, session_id, event_id, value, properties, converted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.GoalID, c.UserID, c.SessionID, c.EventID, c.Value, jsonMap(c.Properties), c.ConvertedAt)
	if err != nil {
		return nil, translatePgError(err)
	}
	cp := *c
	return &cp, nil
}

func (r *goalRepo) ConversionExists(ctx context.Context, goalID, eventID string) (bool, error) {
	var n int
	err := r.s.q(ctx).GetContext(ctx, &n, `
		SELECT COUNT(*) FROM goal_conversions WHERE goal_id = $1 AND event_id = $2`, goalID, eventID)
	if err != nil {
		return false, translatePgError(err)
	}
	return n > 0, nil
}

func (r *goalRepo) GetConversionByID(ctx context.Context, id string) (*goal.Conversion, error) {
	var row struct {
		ID          string    `db:"id"`
		GoalID      string    `db:"goal_id"`
		UserID      string    `db:"user_id"`
		SessionID   string    `db:"session_id"`
		EventID     string    `db:"event_id"`
		Value       float64   `db:"value"`
		Properties  jsonMap   `db:"properties"`
		ConvertedAt time.Time `db:"converted_at"`
	}
	err := r.s.q(ctx).GetContext(ctx, &row, `
		SELECT id, goal_id, user_id, session_id, event_id, value, properties, converted_at
		FROM goal_conversions WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "goal_conversion", id)
	}
	return &goal.Conversion{
		ID: row.ID, GoalID: row.GoalID, UserID: row.UserID, SessionID: row.SessionID,
		EventID: row.EventID, Value: row.Value, Properties: map[string]any(row.Properties),
		ConvertedAt: row.ConvertedAt,
	}, nil
}
