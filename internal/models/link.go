package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Link is a short link that fans out to weighted Targets. CurrentHits is
// mutated only through repository.CapRepository.
type Link struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	LinkID       string         `gorm:"uniqueIndex;size:16" json:"link_id"`
	BusinessUnit string         `gorm:"size:16;index" json:"business_unit"`
	Network      string         `gorm:"size:50" json:"network"`
	TotalCap     int            `json:"total_cap"`
	CurrentHits  int            `json:"current_hits"`
	BackupURL    string         `json:"backup_url"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Targets []Target `gorm:"foreignKey:LinkID;references:ID" json:"targets,omitempty"`
}

// CapExhausted reports whether the link has used up its total cap.
// TotalCap == 0 means unlimited.
func (l *Link) CapExhausted() bool {
	return l.TotalCap > 0 && l.CurrentHits >= l.TotalCap
}

// Target is one weighted destination under a Link. Countries, ParamMapping and
// StaticParams are stored as JSON text columns; the typed accessors below are
// the only way the hot path reads them.
type Target struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LinkID       uint      `gorm:"index" json:"link_id"`
	URL          string    `json:"url"`
	Weight       int       `json:"weight"`
	Cap          int       `json:"cap"`
	CurrentHits  int       `json:"current_hits"`
	Countries    string    `json:"countries"`
	ParamMapping string    `json:"param_mapping"`
	StaticParams string    `json:"static_params"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t *Target) CapExhausted() bool {
	return t.Cap > 0 && t.CurrentHits >= t.Cap
}

// CountryList normalizes the Countries column into upper-cased ISO codes.
// The admin console historically wrote either a JSON array or a plain
// comma-separated string, so both shapes are accepted. An empty list means
// every country is allowed.
func (t *Target) CountryList() ([]string, error) {
	raw := strings.TrimSpace(t.Countries)
	if raw == "" || raw == "[]" || raw == "null" {
		return nil, nil
	}

	var codes []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &codes); err != nil {
			return nil, err
		}
	} else {
		codes = strings.Split(raw, ",")
	}

	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// AllowsCountry reports whether the target accepts traffic from the given
// country code. "ALL" in the list acts as a wildcard.
func (t *Target) AllowsCountry(country string) (bool, error) {
	codes, err := t.CountryList()
	if err != nil {
		return false, err
	}
	if len(codes) == 0 {
		return true, nil
	}
	for _, c := range codes {
		if c == "ALL" || strings.EqualFold(c, country) {
			return true, nil
		}
	}
	return false, nil
}

// ParamMappingMap parses the inbound→outbound query parameter rename table.
func (t *Target) ParamMappingMap() (map[string]string, error) {
	return parseParamJSON(t.ParamMapping)
}

// StaticParamsMap parses the constant query parameters appended on dispatch.
func (t *Target) StaticParamsMap() (map[string]string, error) {
	return parseParamJSON(t.StaticParams)
}

func parseParamJSON(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" || raw == "null" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
