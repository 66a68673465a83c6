package models

import (
	"time"
)

// AccessLog is an append-only record of one dispatch outcome. TargetID is nil
// when no target was eligible (backup or block path). Rows reference their
// link and target by id only, so they survive parent deletion.
type AccessLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LinkID    uint      `gorm:"index" json:"link_id"`
	TargetID  *uint     `gorm:"index" json:"target_id"`
	IP        string    `gorm:"index;size:45" json:"ip"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
	Country   string    `gorm:"size:8" json:"country"`
	Blocked   bool      `gorm:"index" json:"blocked"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
