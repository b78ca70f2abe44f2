// Package abtest implements the read-model service layer over
// ABTest/Assignment rows: the data model defines the entities but names no
// operations over them. This package adds GetOrAssignVariant, built on
// the deterministic-hash bucketing in internal/domain/abtest plus the
// (testId, userId) unique-assignment rule expected of a unique
// (test_id, user_id) index.
package abtest

import (
	"context"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/abtest"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

// Service resolves a user's variant for a test, assigning and
// persisting one on first sight.
type Service struct {
	store storage.Store
	log   *logging.Logger
}

// New builds a Service bound to store.
func New(store storage.Store, log *logging.Logger) *Service {
	if log == nil {
		log = logging.New(logging.Config{Level: "info", Format: "text"})
	}
	return &Service{store: store, log: log}
}

// GetOrAssignVariant returns the user's existing assignment for test,
// or deterministically buckets and persists a new one. Concurrent
// callers racing to assign the same (testID, userID) pair converge on
// the same variant (VariantFor is a pure hash) and only one write
// survives; the loser's Conflict is swallowed and the now-persisted
// assignment is re-read.
func (s *Service) GetOrAssignVariant(ctx context.Context, testID, userID string) (string, error) {
	if existing, err := s.store.ABTests().GetAssignment(ctx, testID, userID); err == nil {
		return existing.Variant, nil
	} else if !storeerr.IsNotFound(err) {
		return "", err
	}

	test, err := s.store.ABTests().GetByID(ctx, testID)
	if err != nil {
		return "", err
	}
	if !test.Enabled {
		return "", storeerr.NewValidation("ab_test", "test is not enabled")
	}

	variant := test.VariantFor(userID)
	if variant == "" {
		return "", storeerr.NewValidation("ab_test", "test has no configured variants")
	}

	assignment := &abtest.Assignment{
		TestID:     testID,
		UserID:     userID,
		Variant:    variant,
		AssignedAt: time.Now().UTC(),
	}
	if err := s.store.ABTests().CreateAssignment(ctx, assignment); err != nil {
		if storeerr.IsConflict(err) {
			existing, getErr := s.store.ABTests().GetAssignment(ctx, testID, userID)
			if getErr != nil {
				return "", getErr
			}
			return existing.Variant, nil
		}
		return "", err
	}
	return variant, nil
}
