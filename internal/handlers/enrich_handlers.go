package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/epeers/mfenrich/internal/middleware"
	"github.com/epeers/mfenrich/internal/models"
	"github.com/epeers/mfenrich/internal/repository"
	"github.com/epeers/mfenrich/internal/validators"
)

// BatchEnricher is the batch-runner dependency of the enrichment endpoint.
type BatchEnricher interface {
	EnrichBatch(ctx context.Context, fundNames []string) ([]*models.EnrichedFund, *models.QualityReport)
}

// EnrichHandler handles the enrichment endpoints.
type EnrichHandler struct {
	batchSvc       BatchEnricher
	runRepo        *repository.RunRepository // nil disables run persistence
	overallTimeout time.Duration
}

// NewEnrichHandler creates a new EnrichHandler. runRepo may be nil when the
// service runs without a database.
func NewEnrichHandler(batchSvc BatchEnricher, runRepo *repository.RunRepository, overallTimeout time.Duration) *EnrichHandler {
	return &EnrichHandler{
		batchSvc:       batchSvc,
		runRepo:        runRepo,
		overallTimeout: overallTimeout,
	}
}

// Enrich handles POST /etl/enrich
//
//	@Summary		Enrich parsed holdings
//	@Description	Resolves each holding's fund name and enriches it with scheme code, ISIN, NAV, holdings, and sector allocation.
//	@Tags			etl
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.EnrichmentRequest	true	"Parsed holdings to enrich"
//	@Success		200		{object}	models.EnrichmentResponse
//	@Failure		400		{object}	models.ErrorResponse
//	@Router			/etl/enrich [post]
func (h *EnrichHandler) Enrich(c *gin.Context) {
	var req models.EnrichmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return
	}

	started := time.Now()
	correlationID := middleware.GetCorrelationID(c)
	logger := log.WithFields(log.Fields{
		"correlation_id": correlationID,
		"upload_id":      req.UploadID,
	})
	logger.Infof("enriching %d holdings for user %s", len(req.ParsedHoldings), req.UserID)

	validHoldings, valWarnings, rejected := validators.ValidateHoldings(req.ParsedHoldings)

	names := make([]string, len(validHoldings))
	for i, holding := range validHoldings {
		names[i] = holding.FundName
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.overallTimeout)
	defer cancel()

	results, report := h.batchSvc.EnrichBatch(ctx, names)

	report.ValidationFailures = rejected
	for _, w := range valWarnings {
		report.AddWarning(string(w.Code) + ": " + w.Message)
		if w.Code == models.WarnInvalidHolding {
			report.CountError(models.ErrorValidation)
		}
	}

	duration := int(time.Since(started).Seconds())
	resp := models.EnrichmentResponse{
		UploadID:        req.UploadID,
		DurationSeconds: &duration,
		Quality:         *report,
	}

	// On overall timeout the batch is reported as failed without partial
	// results; the caller is expected to retry the whole upload.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warnf("enrichment timed out after %s", h.overallTimeout)
		resp.Status = "failed"
		resp.ErrorMessage = "enrichment timed out"
		resp.EnrichedFunds = []models.EnrichedFund{}
		h.persistRun(&req, &resp)
		c.JSON(http.StatusOK, resp)
		return
	}

	enriched := make([]models.EnrichedFund, 0, len(results))
	for _, fund := range results {
		if fund != nil {
			enriched = append(enriched, *fund)
		}
	}
	resp.Status = "completed"
	resp.EnrichedFunds = enriched

	logger.Infof("enriched %d/%d funds in %ds", report.SuccessfullyEnriched, len(names), duration)
	h.persistRun(&req, &resp)
	c.JSON(http.StatusOK, resp)
}

// persistRun saves the run for later retrieval. Persistence is best-effort;
// an unavailable database never fails the request.
func (h *EnrichHandler) persistRun(req *models.EnrichmentRequest, resp *models.EnrichmentResponse) {
	if h.runRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	run := &repository.EnrichmentRun{
		UploadID:      req.UploadID,
		UserID:        req.UserID,
		Status:        resp.Status,
		EnrichedFunds: resp.EnrichedFunds,
		Quality:       resp.Quality,
	}
	if resp.DurationSeconds != nil {
		run.DurationSeconds = *resp.DurationSeconds
	}
	if err := h.runRepo.Save(ctx, run); err != nil {
		log.Errorf("failed to persist enrichment run %s: %v", req.UploadID, err)
	}
}

// GetRun handles GET /etl/runs/:upload_id
//
//	@Summary		Fetch a past enrichment run
//	@Tags			etl
//	@Produce		json
//	@Param			upload_id	path		string	true	"Upload ID"
//	@Success		200			{object}	models.EnrichmentResponse
//	@Failure		404			{object}	models.ErrorResponse
//	@Failure		503			{object}	models.ErrorResponse
//	@Router			/etl/runs/{upload_id} [get]
func (h *EnrichHandler) GetRun(c *gin.Context) {
	if h.runRepo == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "persistence_disabled",
			Message: "run persistence requires a database",
		})
		return
	}

	run, err := h.runRepo.GetByUploadID(c.Request.Context(), c.Param("upload_id"))
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "no enrichment run for this upload",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.EnrichmentResponse{
		UploadID:        run.UploadID,
		Status:          run.Status,
		DurationSeconds: &run.DurationSeconds,
		EnrichedFunds:   run.EnrichedFunds,
		Quality:         run.Quality,
	})
}
