package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/export"
)

type exportRepo struct{ s *Store }

func (r *exportRepo) Create(ctx context.Context, j *export.Job) (*export.Job, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	_, err := r.s.q(ctx).ExecContext(ctx, `
		INSERT INTO export_jobs (id, status, file_path, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		j.ID, string(j.Status), j.FilePath, j.CreatedAt, j.ExpiresAt)
	if err != nil {
		return nil, translatePgError(err)
	}
	cp := *j
	return &cp, nil
}

func (r *exportRepo) GetExpired(ctx context.Context, now time.Time) ([]*export.Job, error) {
	var rows []struct {
		ID        string    `db:"id"`
		Status    string    `db:"status"`
		FilePath  string    `db:"file_path"`
		CreatedAt time.Time `db:"created_at"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	err := r.s.q(ctx).SelectContext(ctx, &rows, `
		SELECT id, status, file_path, created_at, expires_at
		FROM export_jobs WHERE status = 'completed' AND expires_at <= $1`, now)
	if err != nil {
		return nil, translatePgError(err)
	}
	out := make([]*export.Job, 0, len(rows))
	for _, row := range rows {
		out = append(out, &export.Job{
			ID: row.ID, Status: export.Status(row.Status), FilePath: row.FilePath,
			CreatedAt: row.CreatedAt, ExpiresAt: row.ExpiresAt,
		})
	}
	return out, nil
}

func (r *exportRepo) Delete(ctx context.Context, id string) error {
	res, err := r.s.q(ctx).ExecContext(ctx, `DELETE FROM export_jobs WHERE id = $1`, id)
	if err != nil {
		return translatePgError(err)
	}
	return assertRowAffected(res, "export_job", id)
}
