package repository

import (
	"time"

	"dispatch-service/internal/models"

	"gorm.io/gorm"
)

type AccessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) *AccessLogRepository {
	return &AccessLogRepository{
		db: db,
	}
}

func (r *AccessLogRepository) Create(entry *models.AccessLog) error {
	return r.db.Create(entry).Error
}

// LogFilter narrows Query results. Zero values are ignored.
type LogFilter struct {
	LinkID  uint
	Country string
	Since   time.Time
	Until   time.Time
	Blocked *bool
}

func (r *AccessLogRepository) Query(filter LogFilter, offset, limit int) ([]models.AccessLog, int64, error) {
	q := r.db.Model(&models.AccessLog{})
	if filter.LinkID != 0 {
		q = q.Where("link_id = ?", filter.LinkID)
	}
	if filter.Country != "" {
		q = q.Where("country = ?", filter.Country)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at < ?", filter.Until)
	}
	if filter.Blocked != nil {
		q = q.Where("blocked = ?", *filter.Blocked)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.AccessLog
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error
	return logs, total, err
}

func (r *AccessLogRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.AccessLog{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

func (r *AccessLogRepository) CountBlockedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.AccessLog{}).
		Where("created_at >= ? AND blocked = ?", since, true).
		Count(&count).Error
	return count, err
}

func (r *AccessLogRepository) CountRange(from, to time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.AccessLog{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *AccessLogRepository) CountBlockedRange(from, to time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.AccessLog{}).
		Where("created_at >= ? AND created_at < ? AND blocked = ?", from, to, true).
		Count(&count).Error
	return count, err
}

func (r *AccessLogRepository) UniqueIPsRange(from, to time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.AccessLog{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Distinct("ip").
		Count(&count).Error
	return count, err
}

// CountryStats returns dispatch counts per country since the given time.
func (r *AccessLogRepository) CountryStats(since time.Time) (map[string]int64, error) {
	rows, err := r.db.Model(&models.AccessLog{}).
		Select("country, COUNT(*) as cnt").
		Where("created_at >= ? AND country <> ''", since).
		Group("country").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int64)
	var country string
	var cnt int64
	for rows.Next() {
		if err := rows.Scan(&country, &cnt); err != nil {
			return nil, err
		}
		stats[country] = cnt
	}
	return stats, nil
}

// TargetStats returns dispatch counts per target for one link.
func (r *AccessLogRepository) TargetStats(linkID uint) (map[uint]int64, error) {
	rows, err := r.db.Model(&models.AccessLog{}).
		Select("target_id, COUNT(*) as cnt").
		Where("link_id = ? AND target_id IS NOT NULL", linkID).
		Group("target_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[uint]int64)
	var targetID uint
	var cnt int64
	for rows.Next() {
		if err := rows.Scan(&targetID, &cnt); err != nil {
			return nil, err
		}
		stats[targetID] = cnt
	}
	return stats, nil
}

// LinkCount is one row of the top-links ranking.
type LinkCount struct {
	LinkID string `json:"link_id"`
	Count  int64  `json:"count"`
}

// TopLinks ranks links by dispatch volume since the given time.
func (r *AccessLogRepository) TopLinks(since time.Time, limit int) ([]LinkCount, error) {
	var out []LinkCount
	err := r.db.Model(&models.AccessLog{}).
		Select("links.link_id AS link_id, COUNT(*) AS count").
		Joins("JOIN links ON links.id = access_logs.link_id").
		Where("access_logs.created_at >= ?", since).
		Group("links.link_id").
		Order("count DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func (r *AccessLogRepository) CountByLink(linkID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.AccessLog{}).Where("link_id = ?", linkID).Count(&count).Error
	return count, err
}

// DeleteOlderThan purges aged rows. Used by the maintenance scheduler.
func (r *AccessLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&models.AccessLog{})
	return res.RowsAffected, res.Error
}
