package domain

import "time"

// RefineCacheEntry is the DB-backed fallback for the refine dedup cache,
// used when Redis is not configured. Key collisions are last-write-wins.
type RefineCacheEntry struct {
	Key       string    `gorm:"column:key;primaryKey;size:64" json:"key"`
	Result    string    `gorm:"column:result;not null" json:"result"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

func (RefineCacheEntry) TableName() string { return "refine_cache" }
