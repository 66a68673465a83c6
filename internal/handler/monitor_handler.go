package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dispatch-service/internal/response"
	"dispatch-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MonitorHandler struct {
	monitor *service.MonitorService
	limiter *service.RateLimiter
	log     *zap.Logger
}

func NewMonitorHandler(monitor *service.MonitorService, limiter *service.RateLimiter, log *zap.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		limiter: limiter,
		log:     log,
	}
}

func (h *MonitorHandler) ListAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	alerts, err := h.monitor.ListAlerts(c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *MonitorHandler) AcknowledgeAlert(c *gin.Context) {
	if err := h.monitor.AcknowledgeAlert(c.Param("id")); err != nil {
		if errors.Is(err, service.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to acknowledge alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

func (h *MonitorHandler) ResolveAlert(c *gin.Context) {
	if err := h.monitor.ResolveAlert(c.Param("id")); err != nil {
		if errors.Is(err, service.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to resolve alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": true})
}

func (h *MonitorHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Config())
}

type MonitorConfigRequest struct {
	CheckInterval         *string  `json:"check_interval"`
	AlertCooldown         *string  `json:"alert_cooldown"`
	ErrorRateThreshold    *float64 `json:"error_rate_threshold"`
	TrafficSpikeThreshold *float64 `json:"traffic_spike_threshold"`
	LinkCapThreshold      *float64 `json:"link_cap_threshold"`
}

func (h *MonitorHandler) UpdateConfig(c *gin.Context) {
	var req MonitorConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	cfg := h.monitor.Config()
	if req.CheckInterval != nil {
		d, err := time.ParseDuration(*req.CheckInterval)
		if err != nil || d < time.Second {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid check_interval"})
			return
		}
		cfg.CheckInterval = d
	}
	if req.AlertCooldown != nil {
		d, err := time.ParseDuration(*req.AlertCooldown)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid alert_cooldown"})
			return
		}
		cfg.AlertCooldown = d
	}
	if req.ErrorRateThreshold != nil {
		cfg.ErrorRateThreshold = *req.ErrorRateThreshold
	}
	if req.TrafficSpikeThreshold != nil {
		cfg.TrafficSpikeThreshold = *req.TrafficSpikeThreshold
	}
	if req.LinkCapThreshold != nil {
		cfg.LinkCapThreshold = *req.LinkCapThreshold
	}

	h.monitor.UpdateConfig(cfg)
	h.log.Info("monitor config updated")
	c.JSON(http.StatusOK, cfg)
}

type BlockIPRequest struct {
	IP       string `json:"ip" binding:"required,ip"`
	Reason   string `json:"reason"`
	Duration string `json:"duration"`
}

func (h *MonitorHandler) BlockIP(c *gin.Context) {
	var req BlockIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}
	duration := 24 * time.Hour
	if req.Duration != "" {
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Invalid duration"})
			return
		}
		duration = d
	}
	if err := h.limiter.BlockIP(c.Request.Context(), req.IP, req.Reason, duration); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to block IP"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": req.IP})
}

func (h *MonitorHandler) UnblockIP(c *gin.Context) {
	if err := h.limiter.UnblockIP(c.Request.Context(), c.Param("ip")); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to unblock IP"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unblocked": c.Param("ip")})
}
