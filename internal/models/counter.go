package models

import "time"

// SequenceCounter holds the highest document number ever issued. It is only
// ever read and incremented through the allocator's atomic UPDATE; never
// decremented, and it survives process restarts.
type SequenceCounter struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	Value     int64  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
