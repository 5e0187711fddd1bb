package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/urbanvac/invoicing/internal/models"
)

// counterName keys the single shared sequence row. Every document type draws
// from the same sequence, matching the business's historical numbering.
const counterName = "document_number"

// NumberAllocator hands out strictly increasing document numbers with no
// duplicates under concurrent callers, across server processes. The
// serialization point is the row lock taken by the atomic
// UPDATE ... SET value = value + 1; the process never caches the counter.
type NumberAllocator struct {
	db      *gorm.DB
	start   int64
	retries int
}

func NewNumberAllocator(db *gorm.DB, start int64, retries int) *NumberAllocator {
	if start <= 0 {
		start = 3000
	}
	if retries < 1 {
		retries = 1
	}
	return &NumberAllocator{db: db, start: start, retries: retries}
}

// Allocate reserves and returns the next document number. The increment
// commits in its own transaction before the caller persists the document; if
// the caller's insert later fails the number is skipped for good (gaps are
// accepted, numbers are never reused).
func (a *NumberAllocator) Allocate(ctx context.Context) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < a.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
		n, err := a.tryAllocate(ctx)
		if err == nil {
			return n, nil
		}
		lastErr = err
	}
	return 0, fmt.Errorf("%w (after %d attempts): %v", ErrAllocationConflict, a.retries, lastErr)
}

// Peek returns the number the next Allocate would produce, without reserving
// it. Purely informational (the create form shows it); the reserved number
// can differ under concurrency.
func (a *NumberAllocator) Peek(ctx context.Context) (int64, error) {
	var c models.SequenceCounter
	err := a.db.WithContext(ctx).Where("name = ?", counterName).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return a.start, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Value + 1, nil
}

func (a *NumberAllocator) tryAllocate(ctx context.Context) (int64, error) {
	var next int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SequenceCounter{}).
			Where("name = ?", counterName).
			Update("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Fresh store: seed the counter at the configured start. A
			// concurrent seeder loses on the unique index and the caller
			// retries into the UPDATE path.
			c := models.SequenceCounter{Name: counterName, Value: a.start}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			next = a.start
			return nil
		}
		// The UPDATE above holds the row lock until commit, so this read
		// observes our own increment and no one else's.
		var c models.SequenceCounter
		if err := tx.Where("name = ?", counterName).Take(&c).Error; err != nil {
			return err
		}
		next = c.Value
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func backoff(attempt int) time.Duration {
	base := time.Duration(10<<uint(attempt)) * time.Millisecond
	return base + time.Duration(rand.Int63n(int64(base)))
}
