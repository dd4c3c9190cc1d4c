package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mindloom/support-backend/internal/repo"
)

// ----- Fake quota repo -----

type fakeQuotaRepo struct {
	gotKey   string
	gotLimit int

	count    int
	getErr   error
	incCount int
	incErr   error
}

func (r *fakeQuotaRepo) GetCount(ctx context.Context, db *gorm.DB, key string) (int, error) {
	r.gotKey = key
	return r.count, r.getErr
}

func (r *fakeQuotaRepo) Increment(ctx context.Context, db *gorm.DB, key string, limit int) (int, error) {
	r.gotKey, r.gotLimit = key, limit
	return r.incCount, r.incErr
}

// ----- Tests -----

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestReserve_UsesDailyKey(t *testing.T) {
	r := &fakeQuotaRepo{incCount: 1}
	s := NewQuotaService(nil, r, 10)
	s.Now = fixedClock

	if err := s.Reserve(context.Background(), "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.gotKey != "alice:2025-03-14" {
		t.Fatalf("key = %q, want alice:2025-03-14", r.gotKey)
	}
	if r.gotLimit != 10 {
		t.Fatalf("limit = %d, want 10", r.gotLimit)
	}
}

func TestReserve_MapsLimitReached(t *testing.T) {
	r := &fakeQuotaRepo{incErr: repo.ErrLimitReached}
	s := NewQuotaService(nil, r, 10)
	s.Now = fixedClock

	err := s.Reserve(context.Background(), "alice")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestReserve_PropagatesOtherErrors(t *testing.T) {
	dbErr := errors.New("disk full")
	r := &fakeQuotaRepo{incErr: dbErr}
	s := NewQuotaService(nil, r, 10)
	s.Now = fixedClock

	if err := s.Reserve(context.Background(), "alice"); !errors.Is(err, dbErr) {
		t.Fatalf("err = %v, want %v", err, dbErr)
	}
}

func TestRemaining(t *testing.T) {
	r := &fakeQuotaRepo{count: 7}
	s := NewQuotaService(nil, r, 10)
	s.Now = fixedClock

	left, err := s.Remaining(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left != 3 {
		t.Fatalf("remaining = %d, want 3", left)
	}
}

func TestRemaining_ClampsAtZero(t *testing.T) {
	r := &fakeQuotaRepo{count: 25}
	s := NewQuotaService(nil, r, 10)
	s.Now = fixedClock

	left, err := s.Remaining(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left != 0 {
		t.Fatalf("remaining = %d, want 0", left)
	}
}
