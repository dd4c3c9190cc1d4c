// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the daily-quota repository.
//
// The quota row is keyed by "userID:YYYY-MM-DD"; a new calendar day starts
// a fresh row implicitly, so no reset job exists. Rows are never deleted.
//
// Concurrency: the increment is an atomically-conditioned UPDATE
// ("increment only while below the limit") executed inside a transaction,
// so concurrent requests from the same user cannot race past the limit.
//
// Error semantics:
//   - ErrLimitReached is returned when the row already sits at the limit;
//     the count is left untouched.
//   - Raw gorm errors are propagated for DB failures.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mindloom/support-backend/internal/domain"
)

// ErrLimitReached signals that the conditional increment was refused
// because the day's count already reached the configured limit.
var ErrLimitReached = errors.New("daily quota limit reached")

// GetQuotaCount returns the current count for a quota key, or 0 when no
// row exists yet.
func GetQuotaCount(ctx context.Context, db *gorm.DB, key string) (int, error) {
	var q domain.UserQuota
	err := db.WithContext(ctx).Where("key = ?", key).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return q.Count, nil
}

// IncrementQuota performs a conditional increment for key: the count grows
// by one only while it is strictly below limit. It returns the new count
// on success and ErrLimitReached when the budget is spent.
//
// The create-if-absent and increment paths both run inside one
// transaction so the read-modify-write cannot interleave with another
// request for the same key.
func IncrementQuota(ctx context.Context, db *gorm.DB, key string, limit int) (int, error) {
	var newCount int
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		// Guarded increment: a no-op when the row is absent or at the limit.
		res := tx.Model(&domain.UserQuota{}).
			Where("key = ? AND count < ?", key, limit).
			Updates(map[string]any{
				"count":      gorm.Expr("count + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			var q domain.UserQuota
			if err := tx.Where("key = ?", key).First(&q).Error; err != nil {
				return err
			}
			newCount = q.Count
			return nil
		}

		// No row updated: either first request of the day or budget spent.
		var q domain.UserQuota
		err := tx.Where("key = ?", key).First(&q).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			q = domain.UserQuota{Key: key, Count: 1, UpdatedAt: now}
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
			newCount = 1
			return nil
		}
		if err != nil {
			return err
		}
		return ErrLimitReached
	})
	if err != nil {
		return 0, err
	}
	return newCount, nil
}
