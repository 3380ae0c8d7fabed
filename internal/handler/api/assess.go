package api

import (
	"context"
	"database/sql"
	"errors"
	"time"

	models "SepsisWatch/internal/domain/models"
	domrepo "SepsisWatch/internal/domain/repository"
	"SepsisWatch/internal/service/ratelimit"
	"SepsisWatch/internal/usecase"
	pkgcache "SepsisWatch/pkg/cache"
	xhttp "SepsisWatch/pkg/http"
	xlogger "SepsisWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AssessEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
// Synchronous assessment plus read-back endpoints for dashboards.
type AssessEchoHandler struct {
	logger   *xlogger.Logger
	proc     *usecase.EventProcessor
	results  domrepo.ResultStore
	storage  domrepo.Storage
	cache    ResultCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
}

// ResultCache is the subset of the cache service the handler needs.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

func NewAssessEchoHandler(logger *xlogger.Logger, proc *usecase.EventProcessor, results domrepo.ResultStore, storage domrepo.Storage) *AssessEchoHandler {
	return &AssessEchoHandler{
		logger:   logger,
		proc:     proc,
		results:  results,
		storage:  storage,
		cacheTTL: 15 * time.Second,
		rl:       ratelimit.New(),
	}
}

// SetCache enables read-back caching for the latest-assessment endpoint.
func (h *AssessEchoHandler) SetCache(c ResultCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

func (h *AssessEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/assess", h.Assess)
	g.GET("/patients/:patient_id/latest", h.Latest)
	g.GET("/assessments", h.History)
	g.GET("/health", h.Health)
	e.GET("/health", h.Health)
}

// Assess runs one observation through the full pipeline synchronously.
// Rejected events come back as 400 with the per-field error list; they are
// also quarantined by the processor, same as on the streaming path.
func (h *AssessEchoHandler) Assess(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":assess", 20, 10) {
		return xhttp.TooManyRequestsResponse(c)
	}

	ev := models.ObservationEvent{}
	if err := c.Bind(&ev); err != nil {
		return xhttp.BadRequestResponse(c, []models.ValidationError{{
			Code:    models.CodeInvalidType,
			Message: "body must be a JSON observation event",
		}})
	}

	res, verrs, err := h.proc.Process(c.Request().Context(), ev)
	if len(verrs) > 0 {
		return xhttp.BadRequestResponse(c, verrs)
	}
	if err != nil {
		h.logger.Error("assess usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Latest returns the most recent persisted assessment for one patient.
// n > 1 returns the last n assessments, newest first.
func (h *AssessEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestAssessmentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	if req.N > 1 {
		rows, err := h.results.History(ctx, req.PatientID, "", time.Time{}, time.Now().UTC(), req.N)
		if err != nil {
			h.logger.Error("latest usecase error",
				xlogger.String("patient_id", req.PatientID),
				xlogger.Error(err),
			)
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.ListResponse(c, rows, int64(len(rows)))
	}
	cacheKey := pkgcache.GenerateKey("latest", req.PatientID)
	if h.cache != nil {
		var cached models.RiskResult
		if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
			return xhttp.SuccessResponse(c, &cached)
		}
	}

	res, err := h.results.Latest(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return xhttp.NotFoundResponse(c, "no assessments for patient")
		}
		h.logger.Error("latest usecase error",
			xlogger.String("patient_id", req.PatientID),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, res, h.cacheTTL); err != nil {
			h.logger.Warn("latest cache_set error", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, res)
}

// History returns persisted assessments for a patient, optionally scoped to an
// admission and a time window.
func (h *AssessEchoHandler) History(c echo.Context) error {
	req := &models.AssessmentHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from := xhttp.ParseTimeDefault(req.From, time.Time{})
	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())

	rows, err := h.results.History(c.Request().Context(), req.PatientID, req.AdmissionID, from, to, req.Limit)
	if err != nil {
		h.logger.Error("history usecase error",
			xlogger.String("patient_id", req.PatientID),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Health pings the warehouse so load balancers can gate traffic.
func (h *AssessEchoHandler) Health(c echo.Context) error {
	if h.storage != nil {
		if err := h.storage.Health(c.Request().Context()); err != nil {
			h.logger.Warn("health storage ping failed", xlogger.Error(err))
			return xhttp.ServiceUnavailableResponse(c)
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
