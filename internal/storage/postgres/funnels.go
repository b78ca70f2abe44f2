package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/funnel"
)

type funnelRepo struct{ s *Store }

type funnelStepRow struct {
	FunnelID  string `db:"funnel_id"`
	StepOrder int    `db:"step_order"`
	EventType string `db:"event_type"`
	Name      string `db:"name"`
}

func (r *funnelRepo) Create(ctx context.Context, f *funnel.Funnel) (*funnel.Funnel, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	err := r.s.WithSession(ctx, func(ctx context.Context) error {
		if _, err := r.s.q(ctx).ExecContext(ctx, `
			INSERT INTO funnels (id, name, enabled) VALUES ($1, $2, $3)`,
			f.ID, f.Name, f.Enabled); err != nil {
			return err
		}
		for _, step := range f.Steps {
			if _, err := r.s.q(ctx).ExecContext(ctx, `
				INSERT INTO funnel_steps (funnel_id, step_order, event_type, name)
				VALUES ($1, $2, $3, $4)`,
				f.ID, step.Order, step.EventType, step.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translatePgError(err)
	}
	cp := *f
	return &cp, nil
}

func (r *funnelRepo) GetByID(ctx context.Context, id string) (*funnel.Funnel, error) {
	var f funnel.Funnel
	err := r.s.q(ctx).GetContext(ctx, &f, `SELECT id, name, enabled FROM funnels WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "funnel", id)
	}
	var stepRows []funnelStepRow
	if err := r.s.q(ctx).SelectContext(ctx, &stepRows, `
		SELECT funnel_id, step_order, event_type, name FROM funnel_steps
		WHERE funnel_id = $1 ORDER BY step_order ASC`, id); err != nil {
		return nil, translatePgError(err)
	}
	for _, sr := range stepRows {
		f.Steps = append(f.Steps, funnel.Step{
			FunnelID: sr.FunnelID, Order: sr.StepOrder, EventType: sr.EventType, Name: sr.Name,
		})
	}
	return &f, nil
}
