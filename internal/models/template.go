package models

import (
	"time"
)

// LinkTemplate is a reusable Link+Targets blueprint used to stamp out new
// links. Targets holds the JSON-encoded target definitions.
type LinkTemplate struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"uniqueIndex;size:64" json:"name"`
	Description  string    `json:"description"`
	BusinessUnit string    `gorm:"size:16" json:"business_unit"`
	Network      string    `gorm:"size:50" json:"network"`
	TotalCap     int       `json:"total_cap"`
	BackupURL    string    `json:"backup_url"`
	Targets      string    `json:"targets"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TemplateTarget is one target definition inside a template.
type TemplateTarget struct {
	URL          string            `json:"url"`
	Weight       int               `json:"weight"`
	Cap          int               `json:"cap"`
	Countries    []string          `json:"countries"`
	ParamMapping map[string]string `json:"param_mapping"`
	StaticParams map[string]string `json:"static_params"`
}
