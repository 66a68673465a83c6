package repository

import (
	"errors"
	"time"

	"dispatch-service/internal/models"

	"gorm.io/gorm"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{
		db: db,
	}
}

func (r *AlertRepository) Create(alert *models.Alert) error {
	return r.db.Create(alert).Error
}

func (r *AlertRepository) GetByID(id string) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.Where("id = ?", id).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// List returns alerts filtered by status: "open", "resolved" or "" for all.
func (r *AlertRepository) List(status string, limit int) ([]models.Alert, error) {
	q := r.db.Model(&models.Alert{}).Order("created_at DESC").Limit(limit)
	switch status {
	case "open":
		q = q.Where("resolved_at IS NULL")
	case "resolved":
		q = q.Where("resolved_at IS NOT NULL")
	}
	var alerts []models.Alert
	err := q.Find(&alerts).Error
	return alerts, err
}

// InCooldown reports whether a new alert of the given type should be
// suppressed: either one is still unresolved, or one was created within the
// cooldown window.
func (r *AlertRepository) InCooldown(alertType string, cooldown time.Duration) (bool, error) {
	var count int64
	err := r.db.Model(&models.Alert{}).
		Where("type = ?", alertType).
		Where("resolved_at IS NULL OR created_at > ?", time.Now().Add(-cooldown)).
		Count(&count).Error
	return count > 0, err
}

func (r *AlertRepository) Save(alert *models.Alert) error {
	return r.db.Save(alert).Error
}
