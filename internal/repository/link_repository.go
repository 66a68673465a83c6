package repository

import (
	"errors"

	"dispatch-service/internal/models"

	"gorm.io/gorm"
)

type LinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
	}
}

func (r *LinkRepository) Create(link *models.Link) error {
	return r.db.Create(link).Error
}

// GetActiveByLinkID loads an active link with its active targets. Returns
// (nil, nil) when no such link exists.
func (r *LinkRepository) GetActiveByLinkID(linkID string) (*models.Link, error) {
	var link models.Link
	err := r.db.
		Preload("Targets", "is_active = ?", true).
		Where("link_id = ? AND is_active = ?", linkID, true).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetByLinkID loads a link regardless of active state, for the admin console.
func (r *LinkRepository) GetByLinkID(linkID string) (*models.Link, error) {
	var link models.Link
	err := r.db.Preload("Targets").Where("link_id = ?", linkID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepository) List(offset, limit int) ([]models.Link, int64, error) {
	var total int64
	if err := r.db.Model(&models.Link{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var links []models.Link
	err := r.db.Preload("Targets").Offset(offset).Limit(limit).Order("id DESC").Find(&links).Error
	return links, total, err
}

func (r *LinkRepository) Save(link *models.Link) error {
	return r.db.Save(link).Error
}

func (r *LinkRepository) Delete(linkID string) (bool, error) {
	res := r.db.Where("link_id = ?", linkID).Delete(&models.Link{})
	return res.RowsAffected > 0, res.Error
}

func (r *LinkRepository) CreateTarget(target *models.Target) error {
	return r.db.Create(target).Error
}

func (r *LinkRepository) GetTarget(targetID uint) (*models.Target, error) {
	var target models.Target
	err := r.db.First(&target, targetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *LinkRepository) GetTargets(linkID uint) ([]models.Target, error) {
	var targets []models.Target
	err := r.db.Where("link_id = ?", linkID).Find(&targets).Error
	return targets, err
}

func (r *LinkRepository) SaveTarget(target *models.Target) error {
	return r.db.Save(target).Error
}

func (r *LinkRepository) DeleteTarget(targetID uint) (bool, error) {
	res := r.db.Delete(&models.Target{}, targetID)
	return res.RowsAffected > 0, res.Error
}

// LinksNearCap returns active capped links whose usage ratio is at or above
// the given threshold. Used by the alert evaluator.
func (r *LinkRepository) LinksNearCap(threshold float64) ([]models.Link, error) {
	var links []models.Link
	err := r.db.
		Where("is_active = ? AND total_cap > 0", true).
		Where("current_hits >= total_cap * ?", threshold).
		Find(&links).Error
	return links, err
}
