package handler

import (
	"errors"
	"net/http"
	"strconv"

	"dispatch-service/internal/models"
	"dispatch-service/internal/response"
	"dispatch-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TemplateHandler struct {
	service *service.TemplateService
	log     *zap.Logger
}

func NewTemplateHandler(service *service.TemplateService, log *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		service: service,
		log:     log,
	}
}

type TemplateRequest struct {
	Name         string          `json:"name" binding:"required,max=64"`
	Description  string          `json:"description"`
	BusinessUnit string          `json:"business_unit" binding:"required"`
	Network      string          `json:"network"`
	TotalCap     int             `json:"total_cap" binding:"min=0"`
	BackupURL    string          `json:"backup_url"`
	Targets      []TargetRequest `json:"targets" binding:"required,min=1,dive"`
}

func templateTargets(reqs []TargetRequest) []models.TemplateTarget {
	targets := make([]models.TemplateTarget, 0, len(reqs))
	for _, tr := range reqs {
		targets = append(targets, models.TemplateTarget{
			URL:          tr.URL,
			Weight:       tr.Weight,
			Cap:          tr.Cap,
			Countries:    tr.Countries,
			ParamMapping: tr.ParamMapping,
			StaticParams: tr.StaticParams,
		})
	}
	return targets
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	tpl := models.LinkTemplate{
		Name:         req.Name,
		Description:  req.Description,
		BusinessUnit: req.BusinessUnit,
		Network:      req.Network,
		TotalCap:     req.TotalCap,
		BackupURL:    req.BackupURL,
	}
	if err := h.service.Create(&tpl, templateTargets(req.Targets)); err != nil {
		h.log.Error("failed to create template", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to create template"})
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *TemplateHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	tpls, total, err := h.service.List(offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to list templates"})
		return
	}
	c.JSON(http.StatusOK, response.ListResponse[models.LinkTemplate]{
		Items: tpls, Total: total, Offset: offset, Limit: limit,
	})
}

func (h *TemplateHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid template ID"})
		return
	}
	tpl, err := h.service.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get template"})
		return
	}
	if tpl == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Template not found"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

type TemplateUpdateRequest struct {
	Name         *string         `json:"name"`
	Description  *string         `json:"description"`
	BusinessUnit *string         `json:"business_unit"`
	Network      *string         `json:"network"`
	TotalCap     *int            `json:"total_cap"`
	BackupURL    *string         `json:"backup_url"`
	Targets      []TargetRequest `json:"targets"`
}

func (h *TemplateHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid template ID"})
		return
	}
	var req TemplateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	tpl, err := h.service.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get template"})
		return
	}
	if tpl == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Template not found"})
		return
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.BusinessUnit != nil {
		tpl.BusinessUnit = *req.BusinessUnit
	}
	if req.Network != nil {
		tpl.Network = *req.Network
	}
	if req.TotalCap != nil {
		tpl.TotalCap = *req.TotalCap
	}
	if req.BackupURL != nil {
		tpl.BackupURL = *req.BackupURL
	}

	var targets []models.TemplateTarget
	if req.Targets != nil {
		targets = templateTargets(req.Targets)
	}
	if err := h.service.Update(tpl, targets); err != nil {
		h.log.Error("failed to update template", zap.Uint64("template_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to update template"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid template ID"})
		return
	}
	if err := h.service.Delete(uint(id)); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to delete template"})
		return
	}
	c.Status(http.StatusNoContent)
}

type CreateLinksRequest struct {
	Count int `json:"count" binding:"min=1,max=1000"`
}

// CreateLinks stamps out links from a template.
func (h *TemplateHandler) CreateLinks(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid template ID"})
		return
	}

	req := CreateLinksRequest{Count: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
			return
		}
	}

	links, err := h.service.CreateLinks(c.Request.Context(), uint(id), req.Count)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Template not found"})
			return
		}
		h.log.Error("failed to create links from template", zap.Uint64("template_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to create links"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"links": links})
}
