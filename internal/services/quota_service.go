// Package services – QuotaService
//
// This file implements the per-user-per-day request gate. The quota exists
// for cost control, so the orchestrator reserves a slot before incurring
// the cost of an upstream model call: a request that fails later does not
// refund its slot, matching the "one persisted write per accepted call"
// contract.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mindloom/support-backend/internal/domain"
	"github.com/mindloom/support-backend/internal/repo"
)

// QuotaRepo defines the storage contract required by QuotaService. The
// increment must be atomically conditioned on the limit so concurrent
// requests for the same key cannot race past it.
type QuotaRepo interface {
	// GetCount returns the current count for a quota key (0 when absent).
	GetCount(ctx context.Context, db *gorm.DB, key string) (int, error)

	// Increment bumps the count for key only while it is below limit,
	// returning the new count or repo.ErrLimitReached.
	Increment(ctx context.Context, db *gorm.DB, key string, limit int) (int, error)
}

// QuotaService enforces the daily request budget per user.
type QuotaService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the quota repository used by this service.
	Repo QuotaRepo

	// DailyLimit caps accepted requests per user per calendar day.
	DailyLimit int

	// Now is the clock used to derive the calendar day; overridable in tests.
	Now func() time.Time
}

// NewQuotaService constructs a QuotaService with the given limit.
func NewQuotaService(db *gorm.DB, r QuotaRepo, dailyLimit int) *QuotaService {
	return &QuotaService{DB: db, Repo: r, DailyLimit: dailyLimit, Now: time.Now}
}

// Reserve consumes one slot of the user's daily budget. It returns
// ErrQuotaExceeded without a write when the budget is already spent.
func (s *QuotaService) Reserve(ctx context.Context, userID string) error {
	key := domain.QuotaKey(userID, s.Now())
	_, err := s.Repo.Increment(ctx, s.DB, key, s.DailyLimit)
	if errors.Is(err, repo.ErrLimitReached) {
		return ErrQuotaExceeded
	}
	return err
}

// Remaining reports how many requests the user has left today.
func (s *QuotaService) Remaining(ctx context.Context, userID string) (int, error) {
	key := domain.QuotaKey(userID, s.Now())
	count, err := s.Repo.GetCount(ctx, s.DB, key)
	if err != nil {
		return 0, err
	}
	left := s.DailyLimit - count
	if left < 0 {
		left = 0
	}
	return left, nil
}
