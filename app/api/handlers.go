package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lysyi3m/crowd-list/app/database"
	"github.com/lysyi3m/crowd-list/app/feed"
	"github.com/lysyi3m/crowd-list/app/tasks"
)

// NewHandler builds the API handler. reader may be nil for backends that
// cannot list their records.
func NewHandler(configCache *feed.ConfigCache, reader database.OfferingReader,
	pipeline *tasks.Pipeline, defaultWatch, version string) *Handler {
	return &Handler{
		configCache:  configCache,
		reader:       reader,
		pipeline:     pipeline,
		generator:    feed.NewGenerator(),
		defaultWatch: defaultWatch,
		version:      version,
	}
}

type offeringResponse struct {
	ID                string              `json:"id"`
	CreatedAt         time.Time           `json:"created_at"`
	CompanyCIK        string              `json:"company_cik"`
	CompanyName       string              `json:"company_name"`
	CompanyURL        string              `json:"company_url,omitempty"`
	LiveStatus        string              `json:"live_status,omitempty"`
	FundingPortal     string              `json:"funding_portal,omitempty"`
	MaxOfferingAmount decimal.NullDecimal `json:"max_offering_amount"`
	PricePerShare     decimal.NullDecimal `json:"price_per_share"`
	CompanyState      string              `json:"company_state,omitempty"`
	DeadlineDate      string              `json:"deadline_date"`
	SignatureDate     string              `json:"signature_date,omitempty"`
	DocumentURL       string              `json:"document_url"`
	Summary           string              `json:"summary,omitempty"`
}

func toResponse(offering database.StoredOffering) offeringResponse {
	return offeringResponse{
		ID:                offering.ID,
		CreatedAt:         offering.CreatedAt,
		CompanyCIK:        offering.CompanyCIK,
		CompanyName:       offering.CompanyName,
		CompanyURL:        offering.CompanyURL,
		LiveStatus:        offering.LiveStatus,
		FundingPortal:     offering.FundingPortal,
		MaxOfferingAmount: offering.MaxOfferingAmount,
		PricePerShare:     offering.PricePerShare,
		CompanyState:      offering.CompanyState,
		DeadlineDate:      offering.DeadlineDate,
		SignatureDate:     offering.SignatureDate,
		DocumentURL:       offering.DocumentURL,
		Summary:           offering.Summary,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if h.reader != nil {
		if count, err := h.reader.Count(c.Request.Context()); err == nil {
			health["offerings"] = count
		}
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	if last := h.pipeline.LastResult(); last != nil {
		health["last_run_at"] = last.StartedAt
		health["last_run_errors"] = last.ErrorCount()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) parseLimit(c *gin.Context) (int, bool) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return 0, false
		}
		limit = min(parsed, maxListLimit)
	}
	return limit, true
}

func (h *Handler) ListOfferings(c *gin.Context) {
	if h.reader == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "The configured backend does not support listing offerings"})
		return
	}

	limit, ok := h.parseLimit(c)
	if !ok {
		return
	}

	offerings, err := h.reader.List(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_offerings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]offeringResponse, 0, len(offerings))
	for _, offering := range offerings {
		response = append(response, toResponse(offering))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"offerings": response,
		"total":     len(response),
	})
}

func (h *Handler) GetOfferingsFeed(c *gin.Context) {
	if h.reader == nil {
		c.Status(http.StatusNotImplemented)
		return
	}

	limit, ok := h.parseLimit(c)
	if !ok {
		return
	}

	offerings, err := h.reader.List(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_offerings", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s", scheme, c.Request.Host)

	rss, err := h.generator.Run(feed.Channel{
		Title:    "Crowd List",
		Link:     base + "/offerings",
		SelfLink: base + "/offerings/feed",
		Version:  h.version,
	}, offerings)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(offerings)))

	c.String(http.StatusOK, rss)
}

// APITriggerRun runs a watch synchronously and returns its Result.
func (h *Handler) APITriggerRun(c *gin.Context) {
	name := c.DefaultQuery("watch", h.defaultWatch)

	watchConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Watch configuration not found", "watch", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Watch configuration not found"})
		return
	}

	if !watchConfig.Settings.Enabled {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Watch is disabled"})
		return
	}

	ctx := c.Request.Context()
	if timeout := time.Duration(watchConfig.Settings.Timeout) * time.Second; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	task := tasks.NewIngestFilingsTask(watchConfig, h.pipeline)
	task.Start()

	result, err := task.Run(ctx)
	if err != nil {
		if errors.Is(err, tasks.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Another ingestion run is in progress"})
			return
		}

		var fetchErr *feed.FetchError
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		case errors.As(err, &fetchErr):
			status = http.StatusBadGateway
		}

		slog.Error("Triggered run failed", "watch", name, "error", err)
		c.JSON(status, gin.H{
			"error":  "Ingestion run failed",
			"detail": err.Error(),
			"result": result,
		})
		return
	}

	slog.Info("Triggered run completed", "watch", name, "duration", task.GetDuration(), "created", result.Created, "duplicates", result.Duplicates, "errors", result.ErrorCount())

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APILastRun(c *gin.Context) {
	last := h.pipeline.LastResult()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No run has completed yet"})
		return
	}

	c.JSON(http.StatusOK, last)
}

func (h *Handler) APIListWatches(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	watches := make([]map[string]interface{}, 0, len(configs))
	for _, watchConfig := range configs {
		watches = append(watches, map[string]interface{}{
			"name":             watchConfig.Name,
			"url":              watchConfig.URL,
			"marker":           watchConfig.Marker,
			"enabled":          watchConfig.Settings.Enabled,
			"max_items":        watchConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(watchConfig.Settings.RefreshInterval) * time.Second).String(),
			"timeout":          (time.Duration(watchConfig.Settings.Timeout) * time.Second).String(),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"watches": watches,
		"total":   len(watches),
	})
}
