package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/competitiveedge/engine/internal/domain"
	"github.com/competitiveedge/engine/internal/templates"
	"github.com/competitiveedge/engine/internal/usecase"
)

// Version is reported by the health check
const Version = "1.0.0"

// Services are the usecases the handlers call. Extractor may be nil.
type Services struct {
	Normalizer *usecase.Normalizer
	Comparator *usecase.Comparator
	Matcher    *usecase.MatchingService
	Aggregator *usecase.AlertAggregator
	Extractor  domain.Extractor
	Templates  *templates.Registry
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	services Services
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler. Missing core services are created
// with defaults; Extractor and Templates stay optional.
func NewHandler(services Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if services.Normalizer == nil {
		services.Normalizer = usecase.NewNormalizer(logger)
	}
	if services.Comparator == nil {
		services.Comparator = usecase.NewComparator(logger)
	}
	if services.Matcher == nil {
		services.Matcher = usecase.NewMatchingService(nil, nil, usecase.MatchConfig{}, logger)
	}
	if services.Aggregator == nil {
		services.Aggregator = usecase.NewAlertAggregator(logger)
	}
	return &Handler{services: services, logger: logger}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "competitive-edge-engine",
		"version":   Version,
		"extractor": h.services.Extractor != nil,
	})
}

type schemaRequest struct {
	Schema *domain.ProductSchema `json:"schema" binding:"required"`
}

// ValidateSchema reports whether a schema is structurally valid
func (h *Handler) ValidateSchema(c *gin.Context) {
	var req schemaRequest
	if !h.bind(c, &req) {
		return
	}
	valid, errs := usecase.ValidateSchema(req.Schema)
	c.JSON(http.StatusOK, gin.H{"valid": valid, "errors": nonNil(errs)})
}

type recordRequest struct {
	Schema *domain.ProductSchema `json:"schema" binding:"required"`
	Record domain.Record         `json:"record"`
}

// ValidateRecord checks a record against its schema
func (h *Handler) ValidateRecord(c *gin.Context) {
	var req recordRequest
	if !h.bind(c, &req) || !h.validSchema(c, req.Schema) {
		return
	}
	valid, errs := usecase.ValidateData(req.Record, req.Schema)
	c.JSON(http.StatusOK, gin.H{"valid": valid, "errors": nonNil(errs)})
}

// NormalizeRecord converts a raw record to schema types, then validates it
func (h *Handler) NormalizeRecord(c *gin.Context) {
	var req recordRequest
	if !h.bind(c, &req) || !h.validSchema(c, req.Schema) {
		return
	}
	record, warnings := h.services.Normalizer.Normalize(req.Record, req.Schema)
	valid, errs := usecase.ValidateData(record, req.Schema)
	c.JSON(http.StatusOK, gin.H{
		"record":   record,
		"valid":    valid,
		"warnings": nonNil(warnings),
		"errors":   nonNil(errs),
	})
}

type compareRequest struct {
	Schema     *domain.ProductSchema `json:"schema" binding:"required"`
	User       domain.Record         `json:"user" binding:"required"`
	Competitor domain.Record         `json:"competitor" binding:"required"`
}

// Compare compares the user's record with a competitor's
func (h *Handler) Compare(c *gin.Context) {
	var req compareRequest
	if !h.bind(c, &req) || !h.validSchema(c, req.Schema) {
		return
	}
	c.JSON(http.StatusOK, h.services.Comparator.Compare(req.User, req.Competitor, req.Schema))
}

type metricRequest struct {
	Formula string        `json:"formula" binding:"required"`
	Record  domain.Record `json:"record"`
	Format  string        `json:"format"`
}

// EvaluateMetric evaluates a formula over a record
func (h *Handler) EvaluateMetric(c *gin.Context) {
	var req metricRequest
	if !h.bind(c, &req) {
		return
	}
	formula, err := usecase.CompileFormula(req.Formula)
	if err != nil {
		h.respondError(c, err)
		return
	}
	value, err := formula.Evaluate(req.Record)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"value":       value,
		"formatted":   usecase.FormatMetricValue(value, req.Format),
		"identifiers": formula.Identifiers(),
	})
}

type scoreRequest struct {
	Schema        *domain.ProductSchema `json:"schema" binding:"required"`
	UserName      string                `json:"user_name" binding:"required"`
	User          domain.Record         `json:"user"`
	CandidateName string                `json:"candidate_name" binding:"required"`
	Candidate     domain.Record         `json:"candidate"`
}

// ScoreMatch scores one candidate against the user's product
func (h *Handler) ScoreMatch(c *gin.Context) {
	var req scoreRequest
	if !h.bind(c, &req) || !h.validSchema(c, req.Schema) {
		return
	}
	score := h.services.Matcher.Score(c.Request.Context(), req.UserName, req.User, req.CandidateName, req.Candidate, req.Schema)
	c.JSON(http.StatusOK, gin.H{
		"score":           score,
		"below_threshold": score.ConfidenceScore < h.services.Matcher.MinConfidenceThreshold(),
	})
}

type rankRequest struct {
	Schema     *domain.ProductSchema   `json:"schema" binding:"required"`
	Target     domain.Product          `json:"target" binding:"required"`
	Candidates []domain.MatchCandidate `json:"candidates"`
}

// RankMatches scores and orders candidates
func (h *Handler) RankMatches(c *gin.Context) {
	var req rankRequest
	if !h.bind(c, &req) || !h.validSchema(c, req.Schema) {
		return
	}
	ranked, err := h.services.Matcher.RankCandidates(c.Request.Context(), req.Target, req.Candidates, req.Schema)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"candidates": ranked,
		"threshold":  h.services.Matcher.MinConfidenceThreshold(),
	})
}

// BestMatch returns the top candidate. A match below the threshold is still
// returned with low_confidence set.
func (h *Handler) BestMatch(c *gin.Context) {
	var req rankRequest
	if !h.bind(c, &req) || !h.validSchema(c, req.Schema) {
		return
	}
	best, err := h.services.Matcher.FindBestMatch(c.Request.Context(), req.Target, req.Candidates, req.Schema)
	if err != nil && !errors.Is(err, domain.ErrLowConfidence) {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"match":          best,
		"low_confidence": errors.Is(err, domain.ErrLowConfidence),
	})
}

type extractRequest struct {
	Schema    *domain.ProductSchema `json:"schema" binding:"required"`
	Page      domain.PageContent    `json:"page"`
	Normalize *bool                 `json:"normalize"`
}

// Extract turns fetched page content into a record, normalized unless the
// caller asks for the raw output
func (h *Handler) Extract(c *gin.Context) {
	if h.services.Extractor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "extraction is not configured"})
		return
	}
	var req extractRequest
	if !h.bind(c, &req) || !h.validSchema(c, req.Schema) {
		return
	}

	raw, err := h.services.Extractor.Extract(c.Request.Context(), req.Page, req.Schema)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if req.Normalize != nil && !*req.Normalize {
		c.JSON(http.StatusOK, gin.H{"record": raw})
		return
	}

	record, warnings := h.services.Normalizer.Normalize(raw, req.Schema)
	valid, errs := usecase.ValidateData(record, req.Schema)
	c.JSON(http.StatusOK, gin.H{
		"record":   record,
		"raw":      raw,
		"valid":    valid,
		"warnings": nonNil(warnings),
		"errors":   nonNil(errs),
	})
}

type summaryRequest struct {
	Comparisons  []domain.ListingComparison `json:"comparisons"`
	PriceHistory []domain.PriceHistoryEntry `json:"price_history"`
}

// DashboardSummary aggregates caller-supplied comparisons and price history
func (h *Handler) DashboardSummary(c *gin.Context) {
	var req summaryRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.services.Aggregator.Aggregate(req.Comparisons, req.PriceHistory))
}

type listing struct {
	ListingID string        `json:"listing_id" binding:"required"`
	Data      domain.Record `json:"data"`
}

type listingsRequest struct {
	Schema       *domain.ProductSchema      `json:"schema" binding:"required"`
	User         domain.Record              `json:"user" binding:"required"`
	Listings     []listing                  `json:"listings" binding:"dive"`
	PriceHistory []domain.PriceHistoryEntry `json:"price_history"`
}

// DashboardListings compares every listing against the user's product and
// aggregates the result
func (h *Handler) DashboardListings(c *gin.Context) {
	var req listingsRequest
	if !h.bind(c, &req) || !h.validSchema(c, req.Schema) {
		return
	}

	comparisons := make([]domain.ListingComparison, 0, len(req.Listings))
	for _, l := range req.Listings {
		result := h.services.Comparator.Compare(req.User, l.Data, req.Schema)
		comparisons = append(comparisons, domain.ListingComparison{ListingID: l.ListingID, Comparison: *result})
	}

	c.JSON(http.StatusOK, gin.H{
		"comparisons": comparisons,
		"summary":     h.services.Aggregator.Aggregate(comparisons, req.PriceHistory),
	})
}

// ListTemplates lists system and user templates
func (h *Handler) ListTemplates(c *gin.Context) {
	if !h.hasTemplates(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": h.services.Templates.List()})
}

// GetTemplate returns one template by id or name
func (h *Handler) GetTemplate(c *gin.Context) {
	if !h.hasTemplates(c) {
		return
	}
	tmpl, err := h.services.Templates.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

type templateRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Schema      domain.ProductSchema `json:"schema"`
}

// CreateTemplate adds a user template after validating its schema
func (h *Handler) CreateTemplate(c *gin.Context) {
	if !h.hasTemplates(c) {
		return
	}
	var req templateRequest
	if !h.bind(c, &req) {
		return
	}
	tmpl, err := h.services.Templates.Add(req.Name, req.Description, req.Schema)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

// DeleteTemplate removes a user template
func (h *Handler) DeleteTemplate(c *gin.Context) {
	if !h.hasTemplates(c) {
		return
	}
	if err := h.services.Templates.Remove(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) hasTemplates(c *gin.Context) bool {
	if h.services.Templates == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "templates are not configured"})
		return false
	}
	return true
}

// bind decodes the JSON body, answering 400 on failure
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large", "limit": tooLarge.Limit})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return false
	}
	return true
}

// validSchema answers 400 with the validation errors when schema is invalid
func (h *Handler) validSchema(c *gin.Context, schema *domain.ProductSchema) bool {
	if ok, errs := usecase.ValidateSchema(schema); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidSchema.Error(), "details": strings.Join(errs, "; "), "errors": errs})
		return false
	}
	return true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", c.GetString(requestIDKey),
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var formulaErr *usecase.FormulaError
	switch {
	case errors.As(err, &formulaErr),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidSchema),
		errors.Is(err, domain.ErrInvalidData):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSystemTemplate):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrEmbeddingFailure),
		errors.Is(err, domain.ErrJudgeFailure),
		errors.Is(err, domain.ErrExtractionFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
