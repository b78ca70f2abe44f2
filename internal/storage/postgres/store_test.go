package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

func TestTranslatePgErrorMapsUniqueViolationToConflict(t *testing.T) {
	err := &pq.Error{Code: pqCodeUniqueViolation, Table: "users", Detail: "Key (external_id)=(ext-1) already exists."}
	got := translatePgError(err)
	if !storeerr.IsConflict(got) {
		t.Fatalf("expected Conflict, got %v", got)
	}
}

func TestIsSerializationFailureDetectsCode40001(t *testing.T) {
	err := &pq.Error{Code: pqCodeSerializationFail}
	if !isSerializationFailure(err) {
		t.Fatal("expected serialization failure to be detected")
	}
	if isSerializationFailure(nil) {
		t.Fatal("nil error must not be a serialization failure")
	}
}

func TestWithSessionCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := New(db)
	err = s.WithSession(context.Background(), func(ctx context.Context) error {
		_, execErr := s.q(ctx).ExecContext(ctx, "UPDATE users SET email = $1 WHERE id = $2", "a@b.com", "u1")
		return execErr
	})
	if err != nil {
		t.Fatalf("WithSession: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithSessionRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnError(&pq.Error{Code: "42P01"})
	mock.ExpectRollback()

	s := New(db)
	err = s.WithSession(context.Background(), func(ctx context.Context) error {
		_, execErr := s.q(ctx).ExecContext(ctx, "UPDATE users SET email = $1 WHERE id = $2", "a@b.com", "u1")
		return execErr
	})
	if err == nil {
		t.Fatal("expected error from WithSession")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithSessionRetriesOnceOnSerializationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnError(&pq.Error{Code: pqCodeSerializationFail})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := New(db)
	attempts := 0
	err = s.WithSession(context.Background(), func(ctx context.Context) error {
		attempts++
		_, execErr := s.q(ctx).ExecContext(ctx, "UPDATE users SET email = $1 WHERE id = $2", "a@b.com", "u1")
		return execErr
	})
	if err != nil {
		t.Fatalf("WithSession: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
