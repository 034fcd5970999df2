package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/papermux/papermux/analyzer"
)

type testURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleFetchJournal(c *gin.Context) {
	result, err := s.service.FetchJournalByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleFetchAll triggers a batch fetch of every active journal. The batch
// itself always answers 200, per-journal failures live in the result map.
func (s *Server) handleFetchAll(c *gin.Context) {
	batch, err := s.service.FetchAll(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (s *Server) handleFetchUser(c *gin.Context) {
	batch, err := s.service.FetchForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (s *Server) handleRegenerate(c *gin.Context) {
	result, err := s.service.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	// the cached rendition no longer matches the new recipe
	s.cache.Invalidate(c.Request.Context(), result.FeedToken)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTestFeed(c *gin.Context) {
	var req testURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body does not parse: " + err.Error()})
		return
	}
	papers, err := s.service.TestFeed(c.Request.Context(), req.URL)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":            req.URL,
		"papers_fetched": len(papers),
		"papers":         papers,
	})
}

// handleTestPage runs the analysis flow without persisting anything and
// reports whichever outcome it reached.
func (s *Server) handleTestPage(c *gin.Context) {
	var req testURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body does not parse: " + err.Error()})
		return
	}
	outcome, steps, err := s.service.TestPage(c.Request.Context(), req.URL)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeJSON(outcome, steps))
}

func outcomeJSON(outcome analyzer.Outcome, steps []analyzer.RedirectStep) gin.H {
	switch o := outcome.(type) {
	case *analyzer.Listing:
		return gin.H{
			"result":         "listing",
			"page_type":      o.PageType,
			"selectors":      o.Recipe,
			"sample_papers":  o.Samples,
			"base_url":       o.FinalURL,
			"provider":       o.Provider,
			"model":          o.Model,
			"redirect_steps": steps,
		}
	case *analyzer.Redirect:
		return gin.H{
			"result":         "redirect",
			"page_type":      o.PageType,
			"suggested_url":  o.URL,
			"reason":         o.Reason,
			"redirect_steps": steps,
		}
	case *analyzer.Unsupported:
		return gin.H{
			"result":         "unsupported",
			"page_type":      o.PageType,
			"reason":         o.Reason,
			"redirect_steps": steps,
		}
	default:
		return gin.H{"result": "unknown"}
	}
}
