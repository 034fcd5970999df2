package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/store"
	Logger "github.com/papermux/papermux/utils/log"
)

// handleFeed serves the public live rendition of an ai_generated journal.
// It re-extracts from the source page on every uncached request and never
// reads stored Paper rows, so the feed mirrors the current page state.
func (s *Server) handleFeed(c *gin.Context) {
	ctx := c.Request.Context()
	token := c.Param("token")

	feed, err := s.store.GetGeneratedFeedByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		c.String(http.StatusNotFound, "feed not found")
		return
	}
	if err != nil {
		c.String(http.StatusServiceUnavailable, "feed lookup failed")
		return
	}

	journal, err := s.store.GetJournal(ctx, feed.JournalID)
	if err != nil {
		c.String(http.StatusNotFound, "feed not found")
		return
	}

	extractionCfg, err := collector.ParseExtractionConfig(feed.ExtractionConfig)
	if err != nil || !extractionCfg.Selectors.Usable() {
		c.String(http.StatusServiceUnavailable, "feed not configured")
		return
	}

	if cached, ok := s.cache.Get(ctx, token); ok {
		s.writeFeed(c, cached)
		return
	}

	candidates, err := s.live.Collect(journal.SourceURL, extractionCfg)
	if errors.Is(err, collector.ErrUnconfigured) {
		c.String(http.StatusServiceUnavailable, "feed not configured")
		return
	}
	if err != nil {
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}

	rendered, err := RenderRSS(journal, candidates)
	if err != nil {
		Logger.Log.Errorf("rendering feed %s: %v", token, err)
		c.String(http.StatusServiceUnavailable, "feed rendering failed")
		return
	}

	s.cache.Set(ctx, token, rendered)
	s.writeFeed(c, rendered)
}

func (s *Server) writeFeed(c *gin.Context, rendered []byte) {
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", s.cfg.FeedCacheTTLSecond))
	c.Data(http.StatusOK, "text/xml; charset=utf-8", rendered)
}
