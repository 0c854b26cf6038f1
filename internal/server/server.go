// Package server exposes booking flows over HTTP so the core can run as a
// service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inkbook/internal/cache"
	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/logger"
	"inkbook/internal/models"
	"inkbook/internal/recovery"
)

type SuggestionService interface {
	Suggest(ctx context.Context, kind models.SuggestionKind, query string) []models.Suggestion
	GetAvailableTimeSlots(ctx context.Context, artistID, date string) ([]models.TimeSlot, error)
}

type CacheStats interface {
	Stats() cache.Stats
}

type Config struct {
	Address         string
	ShutdownTimeout time.Duration
	RatePerSecond   float64
	RateBurst       int
}

type Deps struct {
	Flows       *FlowRegistry
	Suggestions SuggestionService
	Cache       CacheStats
	Boundary    *recovery.Boundary
	Logger      logger.Logger
}

type Server struct {
	cfg    Config
	deps   Deps
	log    logger.Logger
	errs   *apperrors.ErrorHandler
	engine *gin.Engine
	http   *http.Server
}

func New(cfg Config, deps Deps) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	log := logger.ForComponent(deps.Logger, "server")

	s := &Server{
		cfg:  cfg,
		deps: deps,
		log:  log,
		errs: apperrors.NewErrorHandler(log),
	}
	s.engine = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.log), gin.Recovery())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.POST("/recovery/retry", s.retry)
	api.POST("/recovery/reset", s.reset)
	api.GET("/cache/stats", s.cacheStats)

	limiter := newIPLimiter(s.cfg.RatePerSecond, s.cfg.RateBurst)
	lookups := api.Group("", rateLimit(limiter, s.log), guarded(s.deps.Boundary))
	{
		lookups.GET("/suggestions", s.suggest)
		lookups.GET("/availability", s.availability)
	}

	flows := api.Group("/flows", guarded(s.deps.Boundary))
	{
		flows.POST("", s.openFlow)
		flows.GET("/:id", s.getFlow)
		flows.PATCH("/:id/fields", s.updateField)
		flows.POST("/:id/next", s.nextStep)
		flows.POST("/:id/previous", s.previousStep)
		flows.POST("/:id/submit", s.submit)
		flows.POST("/:id/flush", s.flush)
		flows.DELETE("/:id", s.clearFlow)
	}
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", map[string]interface{}{"address": s.cfg.Address})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then saves and closes every flow.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(ctx)
	s.deps.Flows.CloseAll()
	s.deps.Boundary.Wait()
	return err
}

func statusFor(err *apperrors.StandardError) int {
	switch err.Code {
	case apperrors.ErrCodeFlowNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeSubmissionInProgress:
		return http.StatusConflict
	case apperrors.ErrCodeSubmissionInvalidPayload:
		return http.StatusBadRequest
	case apperrors.ErrCodeSubmissionFailed, apperrors.ErrCodeNetworkError, apperrors.ErrCodeAvailabilityFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	stdErr := apperrors.Normalize(err)
	status := statusFor(stdErr)
	if status >= http.StatusInternalServerError {
		s.errs.Report(op, err, map[string]interface{}{"path": c.FullPath()})
	}
	c.JSON(status, gin.H{
		"error":     string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "BAD_REQUEST", "message": message})
}

func (s *Server) health(c *gin.Context) {
	state := s.deps.Boundary.State()
	status := http.StatusOK
	if state != recovery.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":      state.String(),
		"activeFlows": s.deps.Flows.Len(),
		"time":        time.Now().Format(time.RFC3339),
	})
}

func (s *Server) retry(c *gin.Context) {
	s.startRecovery(c, s.deps.Boundary.Retry)
}

func (s *Server) reset(c *gin.Context) {
	s.startRecovery(c, s.deps.Boundary.Reset)
}

// startRecovery begins a retry or reset. With ?wait=true the response is
// held until the boundary is healthy again.
func (s *Server) startRecovery(c *gin.Context, start func() <-chan struct{}) {
	done := start()
	if c.Query("wait") == "true" {
		select {
		case <-done:
		case <-c.Request.Context().Done():
			return
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"state": s.deps.Boundary.State().String()})
}

func (s *Server) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Cache.Stats())
}

func (s *Server) suggest(c *gin.Context) {
	kind := models.SuggestionKind(c.Query("kind"))
	if !kind.Valid() {
		badRequest(c, "kind must be artist or studio")
		return
	}
	results := s.deps.Suggestions.Suggest(c.Request.Context(), kind, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"suggestions": results})
}

func (s *Server) availability(c *gin.Context) {
	artistID, date := c.Query("artistId"), c.Query("date")
	if artistID == "" || date == "" {
		badRequest(c, "artistId and date are required")
		return
	}
	slots, err := s.deps.Suggestions.GetAvailableTimeSlots(c.Request.Context(), artistID, date)
	if err != nil {
		s.fail(c, "availability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artistId": artistID, "date": date, "slots": slots})
}
