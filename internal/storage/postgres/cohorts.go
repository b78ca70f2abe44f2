package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/cohort"
)

type cohortRepo struct{ s *Store }

type cohortRow struct {
	ID         string     `db:"id"`
	Name       string     `db:"name"`
	Criteria   jsonMap    `db:"criteria"`
	PeriodUnit string     `db:"period_unit"`
}

func (r cohortRow) toDomain() *cohort.Cohort {
	return &cohort.Cohort{
		ID: r.ID, Name: r.Name, Criteria: map[string]any(r.Criteria), PeriodUnit: cohort.PeriodUnit(r.PeriodUnit),
	}
}

func (r *cohortRepo) Create(ctx context.Context, c *cohort.Cohort) (*cohort.Cohort, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO cohorts (id, name, criteria, period_unit) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, jsonMap(c.Criteria), string(c.PeriodUnit))
	if err != nil {
		return nil, translatePgError(err)
	}
	cp := *c
	return &cp, nil
}

func (r *cohortRepo) GetByID(ctx context.Context, id string) (*cohort.Cohort, error) {
	var row cohortRow
	err := r.s.q(ctx).GetContext(ctx, &row, `
		SELECT id, name, criteria, period_unit FROM cohorts WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "cohort", id)
	}
	return row.toDomain(), nil
}
