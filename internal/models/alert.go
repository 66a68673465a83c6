package models

import (
	"time"
)

const (
	AlertTypeErrorRate    = "error_rate"
	AlertTypeResponseTime = "response_time"
	AlertTypeTrafficSpike = "traffic_spike"
	AlertTypeLinkCap      = "link_cap"
	AlertTypeSystemHealth = "system_health"

	AlertLevelInfo     = "info"
	AlertLevelWarning  = "warning"
	AlertLevelCritical = "critical"
)

// Alert lifecycle: open → acknowledged → resolved, or open → resolved
// directly. CreatedAt is never cleared by a transition.
type Alert struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Type         string     `gorm:"index;size:32" json:"type"`
	Level        string     `gorm:"size:16" json:"level"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Details      string     `json:"details"`
	Acknowledged bool       `json:"acknowledged"`
	ResolvedAt   *time.Time `gorm:"index" json:"resolved_at,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (a *Alert) Resolved() bool {
	return a.ResolvedAt != nil
}
