package handler

import (
	"net/http"

	"dispatch-service/internal/geoip"
	"dispatch-service/internal/middleware"
	"dispatch-service/internal/response"
	"dispatch-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RedirectHandler is the public dispatch endpoint. Everything else in the
// service exists to make this one handler answer fast and correctly.
type RedirectHandler struct {
	dispatch *service.DispatchService
	geo      geoip.Provider
	log      *zap.Logger
}

func NewRedirectHandler(dispatch *service.DispatchService, geo geoip.Provider, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		dispatch: dispatch,
		geo:      geo,
		log:      log,
	}
}

// Redirect resolves GET /:business_unit/:link_id into a 302, the backup URL,
// or an explicit block response.
func (h *RedirectHandler) Redirect(c *gin.Context) {
	ip := middleware.ClientIP(c)

	params := make(map[string]string)
	for key, vals := range c.Request.URL.Query() {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}

	// An explicit country override beats the geo lookup, mainly for testing
	// and for upstreams that already resolved the country.
	country := params["country"]
	delete(params, "country")
	if country == "" {
		resolved, err := h.geo.Country(c.Request.Context(), ip)
		if err != nil {
			h.log.Debug("geoip lookup failed", zap.String("ip", ip), zap.Error(err))
		}
		country = resolved
	}

	req := &service.DispatchRequest{
		LinkID:       c.Param("link_id"),
		BusinessUnit: c.Param("business_unit"),
		Params:       params,
		IP:           ip,
		Country:      country,
		UserAgent:    c.Request.UserAgent(),
		Referer:      c.Request.Referer(),
	}

	res, err := h.dispatch.Resolve(c.Request.Context(), req)
	if err != nil {
		h.log.Error("dispatch failed",
			zap.String("link_id", req.LinkID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Internal server error"})
		return
	}

	if res.Status == service.StatusBlocked {
		switch res.Reason {
		case service.ReasonNoSuchLink:
			c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "Link not found"})
		default:
			c.JSON(http.StatusTooManyRequests, response.BlockedResponse{Blocked: true, Reason: string(res.Reason)})
		}
		return
	}

	c.Redirect(http.StatusFound, res.URL)
}
