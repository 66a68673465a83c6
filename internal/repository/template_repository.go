package repository

import (
	"errors"

	"dispatch-service/internal/models"

	"gorm.io/gorm"
)

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{
		db: db,
	}
}

func (r *TemplateRepository) Create(tpl *models.LinkTemplate) error {
	return r.db.Create(tpl).Error
}

func (r *TemplateRepository) GetByID(id uint) (*models.LinkTemplate, error) {
	var tpl models.LinkTemplate
	err := r.db.First(&tpl, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *TemplateRepository) List(offset, limit int) ([]models.LinkTemplate, int64, error) {
	var total int64
	if err := r.db.Model(&models.LinkTemplate{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tpls []models.LinkTemplate
	err := r.db.Offset(offset).Limit(limit).Order("id DESC").Find(&tpls).Error
	return tpls, total, err
}

func (r *TemplateRepository) Save(tpl *models.LinkTemplate) error {
	return r.db.Save(tpl).Error
}

func (r *TemplateRepository) Delete(id uint) (bool, error) {
	res := r.db.Delete(&models.LinkTemplate{}, id)
	return res.RowsAffected > 0, res.Error
}
