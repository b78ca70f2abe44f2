package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/metric"
)

type metricRepo struct{ s *Store }

type metricRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Type      string    `db:"metric_type"`
	Value     float64   `db:"value"`
	Period    string    `db:"period"`
	Module    string    `db:"module"`
	Timestamp time.Time `db:"timestamp"`
}

func (r *metricRepo) Create(ctx context.Context, m *metric.Metric) (*metric.Metric, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO metrics (id, name, metric_type, value, period, dimensions, module, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.Name, string(m.Type), m.Value, string(m.Period), jsonMap(m.Dimensions), m.Module, m.Timestamp)
	if err != nil {
		return nil, translatePgError(err)
	}
	cp := *m
	return &cp, nil
}

// BulkUpsert replaces the row identified by (name, period, timestamp,
// module) so re-aggregating a bucket never produces duplicates, per
// the ON CONFLICT clause matching that composite unique index.
func (r *metricRepo) BulkUpsert(ctx context.Context, rows []*metric.Metric) (int, error) {
	n := 0
	for _, m := range rows {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		_, err := r.s.q(ctx).ExecContext(ctx, `
			INSERT INTO metrics (id, name, metric_type, value, period, dimensions, module, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (name, period, module, timestamp)
			DO UPDATE SET value = EXCLUDED.value, dimensions = EXCLUDED.dimensions, metric_type = EXCLUDED.metric_type`,
			m.ID, m.Name, string(m.Type), m.Value, string(m.Period), jsonMap(m.Dimensions), m.Module, m.Timestamp)
		if err != nil {
			return n, translatePgError(err)
		}
		n++
	}
	return n, nil
}

func (r *metricRepo) GetTimeSeries(ctx context.Context, name string, start, end time.Time, period metric.Period) ([]metric.Point, error) {
	query := `SELECT timestamp, value FROM metrics WHERE name = $1 AND timestamp >= $2 AND timestamp <= $3`
	args := []any{name, start, end}
	if period != "" {
		args = append(args, string(period))
		query += ` AND period = ` + placeholder(len(args))
	}
	query += ` ORDER BY timestamp ASC`
	var points []metric.Point
	if err := r.s.q(ctx).SelectContext(ctx, &points, query, args...); err != nil {
		return nil, translatePgError(err)
	}
	return points, nil
}
