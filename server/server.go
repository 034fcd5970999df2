// Package server exposes the management API and the public feed surface
// over gin. Handlers stay thin: validation, service calls, JSON rendering.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/config"
	"github.com/papermux/papermux/fetcher"
	"github.com/papermux/papermux/server/middlewares"
	"github.com/papermux/papermux/store"
)

type Server struct {
	store   store.Store
	service *fetcher.Service
	live    *collector.LiveCollector
	cache   *FeedCache
	cfg     *config.Config
}

func New(st store.Store, service *fetcher.Service, live *collector.LiveCollector, cache *FeedCache, cfg *config.Config) *Server {
	return &Server{store: st, service: service, live: live, cache: cache, cfg: cfg}
}

// Router builds the gin engine with all routes attached. The /api group is
// guarded by the service api key, /health and /feeds stay public.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/health", s.handleHealth)
	router.GET("/feeds/:token", s.handleFeed)

	api := router.Group("/api", middlewares.APIKey(s.cfg.APIAccessKey))
	api.POST("/journals", s.handleCreateJournal)
	api.GET("/journals", s.handleListJournals)
	api.GET("/journals/:id", s.handleGetJournal)
	api.PATCH("/journals/:id", s.handleUpdateJournal)
	api.DELETE("/journals/:id", s.handleDeleteJournal)
	api.POST("/journals/:id/activate", s.handleActivateJournal)
	api.POST("/journals/:id/fetch", s.handleFetchJournal)
	api.POST("/journals/:id/regenerate", s.handleRegenerate)
	api.GET("/journals/:id/logs", s.handleListLogs)
	api.POST("/fetch", s.handleFetchAll)
	api.POST("/users/:id/fetch", s.handleFetchUser)
	api.POST("/test/feed", s.handleTestFeed)
	api.POST("/test/page", s.handleTestPage)
	api.GET("/stats", s.handleStats)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusForError maps engine errors onto HTTP statuses: validation 400,
// unknown records 404, non-listing pages 422, upstream and analysis
// trouble 503.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fetcher.ErrInvalidURL), errors.Is(err, fetcher.ErrWrongSourceType):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrNotAListingPage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, collector.ErrUnconfigured),
		errors.Is(err, collector.ErrSourceUnreadable),
		errors.Is(err, collector.ErrExtractionEmpty),
		errors.Is(err, analyzer.ErrAnalysisFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError renders the error string plus the debug fields analysis
// errors carry.
func (s *Server) abortWithError(c *gin.Context, err error) {
	payload := gin.H{"error": err.Error()}

	var analysisErr *analyzer.AnalysisError
	if errors.As(err, &analysisErr) && analysisErr.Excerpt != "" {
		payload["debug_excerpt"] = analysisErr.Excerpt
	}
	var notListing *analyzer.NotListingError
	if errors.As(err, &notListing) {
		payload["page_type"] = notListing.PageType
		if notListing.Suggestion != "" {
			payload["suggested_url"] = notListing.Suggestion
		}
	}

	c.JSON(statusForError(err), payload)
}
