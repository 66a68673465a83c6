package handler

import (
	"net/http"
	"strconv"

	"dispatch-service/internal/models"
	"dispatch-service/internal/response"
	"dispatch-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	catalog *service.CatalogService
	log     *zap.Logger
}

func NewLinkHandler(catalog *service.CatalogService, log *zap.Logger) *LinkHandler {
	return &LinkHandler{
		catalog: catalog,
		log:     log,
	}
}

type TargetRequest struct {
	URL          string            `json:"url" binding:"required,url"`
	Weight       int               `json:"weight" binding:"required,min=1"`
	Cap          int               `json:"cap" binding:"min=0"`
	Countries    []string          `json:"countries"`
	ParamMapping map[string]string `json:"param_mapping"`
	StaticParams map[string]string `json:"static_params"`
	IsActive     *bool             `json:"is_active"`
}

type LinkCreateRequest struct {
	LinkID       string          `json:"link_id"`
	BusinessUnit string          `json:"business_unit" binding:"required"`
	Network      string          `json:"network"`
	TotalCap     int             `json:"total_cap" binding:"min=0"`
	BackupURL    string          `json:"backup_url"`
	Targets      []TargetRequest `json:"targets"`
}

func (h *LinkHandler) Create(c *gin.Context) {
	var req LinkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	link := models.Link{
		LinkID:       req.LinkID,
		BusinessUnit: req.BusinessUnit,
		Network:      req.Network,
		TotalCap:     req.TotalCap,
		BackupURL:    req.BackupURL,
		IsActive:     true,
	}
	if err := h.catalog.CreateLink(c.Request.Context(), &link); err != nil {
		h.log.Error("failed to create link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to create link"})
		return
	}

	for _, tr := range req.Targets {
		target := models.Target{
			URL:      tr.URL,
			Weight:   tr.Weight,
			Cap:      tr.Cap,
			IsActive: tr.IsActive == nil || *tr.IsActive,
		}
		if err := h.catalog.CreateTarget(c.Request.Context(), &link, &target, tr.Countries, tr.ParamMapping, tr.StaticParams); err != nil {
			h.log.Error("failed to create target", zap.String("link_id", link.LinkID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to create target"})
			return
		}
		link.Targets = append(link.Targets, target)
	}

	c.JSON(http.StatusCreated, link)
}

func (h *LinkHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	links, total, err := h.catalog.ListLinks(offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to list links"})
		return
	}
	c.JSON(http.StatusOK, response.ListResponse[models.Link]{
		Items: links, Total: total, Offset: offset, Limit: limit,
	})
}

func (h *LinkHandler) Get(c *gin.Context) {
	link, err := h.catalog.GetLink(c.Param("link_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get link"})
		return
	}
	if link == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Link not found"})
		return
	}
	c.JSON(http.StatusOK, link)
}

type LinkUpdateRequest struct {
	Network   *string `json:"network"`
	TotalCap  *int    `json:"total_cap"`
	BackupURL *string `json:"backup_url"`
	IsActive  *bool   `json:"is_active"`
}

func (h *LinkHandler) Update(c *gin.Context) {
	var req LinkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	link, err := h.catalog.GetLink(c.Param("link_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get link"})
		return
	}
	if link == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Link not found"})
		return
	}

	if req.Network != nil {
		link.Network = *req.Network
	}
	if req.TotalCap != nil {
		link.TotalCap = *req.TotalCap
	}
	if req.BackupURL != nil {
		link.BackupURL = *req.BackupURL
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}

	if err := h.catalog.UpdateLink(c.Request.Context(), link); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to update link"})
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *LinkHandler) Delete(c *gin.Context) {
	ok, err := h.catalog.DeleteLink(c.Request.Context(), c.Param("link_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to delete link"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Link not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LinkHandler) CreateTarget(c *gin.Context) {
	var req TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	link, err := h.catalog.GetLink(c.Param("link_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get link"})
		return
	}
	if link == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Link not found"})
		return
	}

	target := models.Target{
		URL:      req.URL,
		Weight:   req.Weight,
		Cap:      req.Cap,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := h.catalog.CreateTarget(c.Request.Context(), link, &target, req.Countries, req.ParamMapping, req.StaticParams); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to create target"})
		return
	}
	c.JSON(http.StatusCreated, target)
}

type TargetUpdateRequest struct {
	URL          *string            `json:"url"`
	Weight       *int               `json:"weight"`
	Cap          *int               `json:"cap"`
	Countries    *[]string          `json:"countries"`
	ParamMapping *map[string]string `json:"param_mapping"`
	StaticParams *map[string]string `json:"static_params"`
	IsActive     *bool              `json:"is_active"`
}

func (h *LinkHandler) UpdateTarget(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("target_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid target ID"})
		return
	}

	var req TargetUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	target, err := h.catalog.GetTarget(uint(targetID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get target"})
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Target not found"})
		return
	}

	if req.URL != nil {
		target.URL = *req.URL
	}
	if req.Weight != nil {
		target.Weight = *req.Weight
	}
	if req.Cap != nil {
		target.Cap = *req.Cap
	}
	if req.IsActive != nil {
		target.IsActive = *req.IsActive
	}

	if err := h.catalog.UpdateTargetFields(c.Request.Context(), c.Param("link_id"), target, req.Countries, req.ParamMapping, req.StaticParams); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to update target"})
		return
	}
	c.JSON(http.StatusOK, target)
}

func (h *LinkHandler) DeleteTarget(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("target_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid target ID"})
		return
	}
	ok, err := h.catalog.DeleteTarget(c.Request.Context(), c.Param("link_id"), uint(targetID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to delete target"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Target not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return offset, limit
}
