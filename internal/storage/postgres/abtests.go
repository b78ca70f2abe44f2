package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/abtest"
)

type abTestRepo struct{ s *Store }

type abTestRow struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Enabled bool   `db:"enabled"`
}

func (r *abTestRepo) Create(ctx context.Context, t *abtest.Test) (*abtest.Test, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO ab_tests (id, name, enabled) VALUES ($1, $2, $3)`, t.ID, t.Name, t.Enabled)
	if err != nil {
		return nil, translatePgError(err)
	}
	for _, v := range t.Variants {
		if _, err := r.s.q(ctx).ExecContext(ctx, `
			INSERT INTO ab_test_variants (test_id, variant) VALUES ($1, $2)`, t.ID, v); err != nil {
			return nil, translatePgError(err)
		}
	}
	cp := *t
	return &cp, nil
}

func (r *abTestRepo) GetByID(ctx context.Context, id string) (*abtest.Test, error) {
	var row abTestRow
	err := r.s.q(ctx).GetContext(ctx, &row, `SELECT id, name, enabled FROM ab_tests WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "ab_test", id)
	}
	var variants []string
	if err := r.s.q(ctx).SelectContext(ctx, &variants, `
		SELECT variant FROM ab_test_variants WHERE test_id = $1 ORDER BY variant ASC`, id); err != nil {
		return nil, translatePgError(err)
	}
	return &abtest.Test{ID: row.ID, Name: row.Name, Enabled: row.Enabled, Variants: variants}, nil
}

func (r *abTestRepo) GetAssignment(ctx context.Context, testID, userID string) (*abtest.Assignment, error) {
	var a abtest.Assignment
	err := r.s.q(ctx).GetContext(ctx, &a, `
		SELECT test_id, user_id, variant, assigned_at
		FROM ab_test_assignments WHERE test_id = $1 AND user_id = $2`, testID, userID)
	if err != nil {
		return nil, notFoundOr(err, "ab_test_assignment", testID+"/"+userID)
	}
	return &a, nil
}

func (r *abTestRepo) CreateAssignment(ctx context.Context, a *abtest.Assignment) error {
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO ab_test_assignments (test_id, user_id, variant, assigned_at)
		VALUES ($1, $2, $3, $4)`, a.TestID, a.UserID, a.Variant, a.AssignedAt)
	return translatePgError(err)
}
