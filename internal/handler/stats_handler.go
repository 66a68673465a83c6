package handler

import (
	"net/http"
	"strconv"
	"time"

	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"
	"dispatch-service/internal/response"
	"dispatch-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatsHandler struct {
	stats   *service.StatsService
	logs    *service.AccessLogService
	catalog *service.CatalogService
	log     *zap.Logger
}

func NewStatsHandler(stats *service.StatsService, logs *service.AccessLogService, catalog *service.CatalogService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{
		stats:   stats,
		logs:    logs,
		catalog: catalog,
		log:     log,
	}
}

func (h *StatsHandler) System(c *gin.Context) {
	stats, err := h.stats.GetSystemStats(c.Request.Context())
	if err != nil {
		h.log.Error("failed to build system stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) Realtime(c *gin.Context) {
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if hours < 1 || hours > 168 {
		hours = 24
	}
	stats, err := h.stats.GetRealtimeStats(c.Request.Context(), hours)
	if err != nil {
		h.log.Error("failed to build realtime stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) Link(c *gin.Context) {
	stats, err := h.stats.GetLinkStats(c.Request.Context(), c.Param("link_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to get link stats"})
		return
	}
	if stats == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Link not found"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Logs queries the access log with optional link_id, country, blocked and
// time-range filters.
func (h *StatsHandler) Logs(c *gin.Context) {
	filter := repository.LogFilter{
		Country: c.Query("country"),
	}

	if linkID := c.Query("link_id"); linkID != "" {
		link, err := h.catalog.GetLink(linkID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to resolve link"})
			return
		}
		if link == nil {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Link not found"})
			return
		}
		filter.LinkID = link.ID
	}
	if blocked := c.Query("blocked"); blocked != "" {
		b := blocked == "true"
		filter.Blocked = &b
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid since timestamp"})
			return
		}
		filter.Since = t
	}
	if until := c.Query("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid until timestamp"})
			return
		}
		filter.Until = t
	}

	offset, limit := pagination(c)
	logs, total, err := h.logs.Query(filter, offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to query logs"})
		return
	}
	c.JSON(http.StatusOK, response.ListResponse[models.AccessLog]{
		Items: logs, Total: total, Offset: offset, Limit: limit,
	})
}
