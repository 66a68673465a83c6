package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"

	"go.uber.org/zap"
)

var ErrTemplateNotFound = errors.New("template not found")

// TemplateService stamps out Link+Targets sets from stored blueprints. Pure
// data transform, off the dispatch path.
type TemplateService struct {
	repo    *repository.TemplateRepository
	catalog *CatalogService
	log     *zap.Logger
}

func NewTemplateService(repo *repository.TemplateRepository, catalog *CatalogService, log *zap.Logger) *TemplateService {
	return &TemplateService{
		repo:    repo,
		catalog: catalog,
		log:     log,
	}
}

func (s *TemplateService) Create(tpl *models.LinkTemplate, targets []models.TemplateTarget) error {
	data, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("failed to encode template targets: %w", err)
	}
	tpl.Targets = string(data)
	return s.repo.Create(tpl)
}

func (s *TemplateService) Get(id uint) (*models.LinkTemplate, error) {
	return s.repo.GetByID(id)
}

func (s *TemplateService) List(offset, limit int) ([]models.LinkTemplate, int64, error) {
	return s.repo.List(offset, limit)
}

func (s *TemplateService) Update(tpl *models.LinkTemplate, targets []models.TemplateTarget) error {
	if targets != nil {
		data, err := json.Marshal(targets)
		if err != nil {
			return fmt.Errorf("failed to encode template targets: %w", err)
		}
		tpl.Targets = string(data)
	}
	return s.repo.Save(tpl)
}

func (s *TemplateService) Delete(id uint) error {
	ok, err := s.repo.Delete(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTemplateNotFound
	}
	return nil
}

// CreateLinks stamps out count links from the template, each with a fresh
// link_id and its own copies of the targets.
func (s *TemplateService) CreateLinks(ctx context.Context, templateID uint, count int) ([]models.Link, error) {
	tpl, err := s.repo.GetByID(templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, ErrTemplateNotFound
	}
	if count < 1 {
		count = 1
	}

	var targets []models.TemplateTarget
	if tpl.Targets != "" {
		if err := json.Unmarshal([]byte(tpl.Targets), &targets); err != nil {
			return nil, fmt.Errorf("template has malformed targets: %w", err)
		}
	}

	links := make([]models.Link, 0, count)
	for i := 0; i < count; i++ {
		link := models.Link{
			BusinessUnit: tpl.BusinessUnit,
			Network:      tpl.Network,
			TotalCap:     tpl.TotalCap,
			BackupURL:    tpl.BackupURL,
			IsActive:     true,
		}
		if err := s.catalog.CreateLink(ctx, &link); err != nil {
			return links, err
		}
		for _, tt := range targets {
			target := models.Target{
				URL:      tt.URL,
				Weight:   tt.Weight,
				Cap:      tt.Cap,
				IsActive: true,
			}
			if err := s.catalog.CreateTarget(ctx, &link, &target, tt.Countries, tt.ParamMapping, tt.StaticParams); err != nil {
				return links, err
			}
		}
		s.log.Info("link created from template",
			zap.Uint("template_id", tpl.ID), zap.String("link_id", link.LinkID))
		links = append(links, link)
	}
	return links, nil
}
