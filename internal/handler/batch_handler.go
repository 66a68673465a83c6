package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dispatch-service/internal/models"
	"dispatch-service/internal/response"
	"dispatch-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BatchHandler covers bulk link operations: CSV import/export and
// activate/deactivate/delete over a list of link IDs.
type BatchHandler struct {
	catalog *service.CatalogService
	log     *zap.Logger
}

func NewBatchHandler(catalog *service.CatalogService, log *zap.Logger) *BatchHandler {
	return &BatchHandler{
		catalog: catalog,
		log:     log,
	}
}

var csvHeader = []string{"link_id", "business_unit", "network", "total_cap", "backup_url", "target_url", "weight", "target_cap", "countries"}

// ImportCSV bulk-creates links from an uploaded CSV. One row per target;
// consecutive rows with the same link_id share a link. Bad rows are skipped
// and reported, not fatal.
func (h *BatchHandler) ImportCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Missing file upload"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Failed to read CSV header"})
		return
	}
	for i, col := range csvHeader {
		if i >= len(header) || strings.TrimSpace(header[i]) != col {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: fmt.Sprintf("Unexpected CSV header, want %s", strings.Join(csvHeader, ","))})
			return
		}
	}

	result := response.BatchResult{}
	var current *models.Link
	line := 1
	for {
		line++
		row, err := reader.Read()
		if err != nil {
			break
		}

		linkID := strings.TrimSpace(row[0])
		if current == nil || current.LinkID != linkID {
			totalCap, _ := strconv.Atoi(row[3])
			link := models.Link{
				LinkID:       linkID,
				BusinessUnit: strings.TrimSpace(row[1]),
				Network:      strings.TrimSpace(row[2]),
				TotalCap:     totalCap,
				BackupURL:    strings.TrimSpace(row[4]),
				IsActive:     true,
			}
			if link.BusinessUnit == "" {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing business_unit", line))
				current = nil
				continue
			}
			if err := h.catalog.CreateLink(c.Request.Context(), &link); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
				current = nil
				continue
			}
			current = &link
			result.Created++
		}

		targetURL := strings.TrimSpace(row[5])
		if targetURL == "" {
			continue
		}
		weight, _ := strconv.Atoi(row[6])
		if weight < 1 {
			weight = 1
		}
		targetCap, _ := strconv.Atoi(row[7])
		var countries []string
		if cs := strings.TrimSpace(row[8]); cs != "" {
			countries = strings.Split(cs, ";")
		}
		target := models.Target{
			URL:      targetURL,
			Weight:   weight,
			Cap:      targetCap,
			IsActive: true,
		}
		if err := h.catalog.CreateTarget(c.Request.Context(), current, &target, countries, nil, nil); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
		}
	}

	h.log.Info("csv import finished",
		zap.Int("created", result.Created), zap.Int("failed", result.Failed))
	c.JSON(http.StatusOK, result)
}

// ExportCSV streams all links and their targets in the import format.
func (h *BatchHandler) ExportCSV(c *gin.Context) {
	links, _, err := h.catalog.ListLinks(0, 10000)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "Failed to export links"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="links.csv"`)

	w := csv.NewWriter(c.Writer)
	w.Write(csvHeader)
	for i := range links {
		link := &links[i]
		targets, err := h.catalog.GetTargets(link.ID)
		if err != nil {
			continue
		}
		if len(targets) == 0 {
			w.Write([]string{link.LinkID, link.BusinessUnit, link.Network, strconv.Itoa(link.TotalCap), link.BackupURL, "", "", "", ""})
			continue
		}
		for _, t := range targets {
			codes, _ := t.CountryList()
			w.Write([]string{
				link.LinkID, link.BusinessUnit, link.Network,
				strconv.Itoa(link.TotalCap), link.BackupURL,
				t.URL, strconv.Itoa(t.Weight), strconv.Itoa(t.Cap),
				strings.Join(codes, ";"),
			})
		}
	}
	w.Flush()
}

type BatchOpRequest struct {
	LinkIDs []string `json:"link_ids" binding:"required,min=1"`
	Op      string   `json:"op" binding:"required,oneof=activate deactivate delete"`
}

// Apply runs one operation over a list of links.
func (h *BatchHandler) Apply(c *gin.Context) {
	var req BatchOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	succeeded := 0
	var errs []string
	for _, linkID := range req.LinkIDs {
		var err error
		switch req.Op {
		case "delete":
			var ok bool
			ok, err = h.catalog.DeleteLink(c.Request.Context(), linkID)
			if err == nil && !ok {
				err = fmt.Errorf("not found")
			}
		default:
			var link *models.Link
			link, err = h.catalog.GetLink(linkID)
			if err == nil && link == nil {
				err = fmt.Errorf("not found")
			}
			if err == nil {
				link.IsActive = req.Op == "activate"
				err = h.catalog.UpdateLink(c.Request.Context(), link)
			}
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", linkID, err))
			continue
		}
		succeeded++
	}

	c.JSON(http.StatusOK, gin.H{"succeeded": succeeded, "failed": len(errs), "errors": errs})
}
