package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/model"
	"github.com/papermux/papermux/utils"
	Logger "github.com/papermux/papermux/utils/log"
)

const defaultLogLimit = 50

type createJournalRequest struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	SourceURL  string `json:"source_url"`
	SourceType string `json:"source_type"`
	Color      string `json:"color"`
	Active     *bool  `json:"active"`
}

type updateJournalRequest struct {
	Name      *string `json:"name"`
	Color     *string `json:"color"`
	SourceURL *string `json:"source_url"`
	Active    *bool   `json:"active"`
}

type activateJournalRequest struct {
	Active *bool `json:"active"`
}

// handleCreateJournal validates the source before anything is stored: rss
// sources must parse as a feed, ai_generated sources must analyze into a
// confirmed listing.
func (s *Server) handleCreateJournal(c *gin.Context) {
	var req createJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body does not parse: " + err.Error()})
		return
	}
	if req.UserID == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and name are required"})
		return
	}
	if _, err := utils.ParseHTTPURL(req.SourceURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_url is not a valid http url: " + err.Error()})
		return
	}

	journal := &model.Journal{
		UserID:     req.UserID,
		Name:       req.Name,
		SourceURL:  req.SourceURL,
		SourceType: req.SourceType,
		Color:      req.Color,
		Active:     req.Active == nil || *req.Active,
	}

	switch req.SourceType {
	case model.SourceTypeRSS:
		papers, err := s.service.TestFeed(c.Request.Context(), req.SourceURL)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		if err := s.store.CreateJournal(c.Request.Context(), journal); err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"journal": journalJSON(journal), "papers_found": len(papers)})

	case model.SourceTypeAIGenerated:
		outcome, steps, err := s.service.TestPage(c.Request.Context(), req.SourceURL)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		listing, ok := outcome.(*analyzer.Listing)
		if !ok {
			s.abortWithError(c, notListingFromOutcome(outcome))
			return
		}
		if err := s.store.CreateJournal(c.Request.Context(), journal); err != nil {
			s.abortWithError(c, err)
			return
		}
		applied, err := s.service.ApplyListing(c.Request.Context(), journal.Id, listing, steps)
		if err != nil {
			// an ai_generated journal without its extraction config is
			// unusable, take the fresh row back out
			if delErr := s.store.DeleteJournal(c.Request.Context(), journal.Id); delErr != nil {
				Logger.Log.Errorf("rolling back journal %s after failed config store: %v", journal.Id, delErr)
			}
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"journal":       journalJSON(journal),
			"feed_token":    applied.FeedToken,
			"sample_papers": applied.Samples,
		})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_type must be rss or ai_generated"})
	}
}

func notListingFromOutcome(outcome analyzer.Outcome) error {
	switch o := outcome.(type) {
	case *analyzer.Redirect:
		return &analyzer.NotListingError{PageType: o.PageType, Suggestion: o.URL}
	case *analyzer.Unsupported:
		return &analyzer.NotListingError{PageType: o.PageType}
	default:
		return &analyzer.NotListingError{}
	}
}

func (s *Server) handleListJournals(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}
	journals, err := s.store.ListJournalsByUser(c.Request.Context(), userID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	rendered := make([]gin.H, 0, len(journals))
	for i := range journals {
		rendered = append(rendered, journalJSON(&journals[i]))
	}
	c.JSON(http.StatusOK, gin.H{"journals": rendered})
}

func (s *Server) handleGetJournal(c *gin.Context) {
	journal, err := s.store.GetJournal(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	payload := gin.H{"journal": journalJSON(journal)}

	if journal.IsAIGenerated() {
		if feed, err := s.store.GetGeneratedFeedByJournal(c.Request.Context(), journal.Id); err == nil {
			payload["feed"] = feedJSON(feed)
		}
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleUpdateJournal(c *gin.Context) {
	var req updateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body does not parse: " + err.Error()})
		return
	}

	journal, err := s.store.GetJournal(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	if req.Name != nil {
		journal.Name = *req.Name
	}
	if req.Color != nil {
		journal.Color = *req.Color
	}
	if req.SourceURL != nil {
		if _, err := utils.ParseHTTPURL(*req.SourceURL); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source_url is not a valid http url: " + err.Error()})
			return
		}
		journal.SourceURL = *req.SourceURL
	}
	if req.Active != nil {
		journal.Active = *req.Active
	}

	if err := s.store.UpdateJournal(c.Request.Context(), journal); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"journal": journalJSON(journal)})
}

func (s *Server) handleDeleteJournal(c *gin.Context) {
	if err := s.store.DeleteJournal(c.Request.Context(), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleActivateJournal(c *gin.Context) {
	var req activateJournalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body does not parse: " + err.Error()})
			return
		}
	}

	journal, err := s.store.GetJournal(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	journal.Active = req.Active == nil || *req.Active
	if err := s.store.UpdateJournal(c.Request.Context(), journal); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"journal": journalJSON(journal)})
}

func (s *Server) handleListLogs(c *gin.Context) {
	journalID := c.Param("id")
	if _, err := s.store.GetJournal(c.Request.Context(), journalID); err != nil {
		s.abortWithError(c, err)
		return
	}

	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	logs, err := s.store.ListFetchLogs(c.Request.Context(), journalID, limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	rendered := make([]gin.H, 0, len(logs))
	for i := range logs {
		rendered = append(rendered, logJSON(&logs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"logs": rendered})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"journals":        stats.Journals,
		"active_journals": stats.ActiveJournals,
		"papers":          stats.Papers,
		"fetch_logs":      stats.FetchLogs,
	})
}

func journalJSON(journal *model.Journal) gin.H {
	return gin.H{
		"id":              journal.Id,
		"user_id":         journal.UserID,
		"name":            journal.Name,
		"source_url":      journal.SourceURL,
		"source_type":     journal.SourceType,
		"color":           journal.Color,
		"active":          journal.Active,
		"last_fetched_at": journal.LastFetchedAt,
		"created_at":      journal.CreatedAt,
		"updated_at":      journal.UpdatedAt,
	}
}

func feedJSON(feed *model.GeneratedFeed) gin.H {
	return gin.H{
		"feed_token":        feed.FeedToken,
		"extraction_config": json.RawMessage(feed.ExtractionConfig),
		"provider":          feed.Provider,
		"model":             feed.Model,
		"updated_at":        feed.UpdatedAt,
	}
}

func logJSON(fetchLog *model.FetchLog) gin.H {
	return gin.H{
		"id":                fetchLog.Id,
		"journal_id":        fetchLog.JournalID,
		"status":            fetchLog.Status,
		"papers_fetched":    fetchLog.PapersFetched,
		"new_papers":        fetchLog.NewPapers,
		"error_message":     fetchLog.ErrorMessage,
		"execution_time_ms": fetchLog.ExecutionTimeMs,
		"created_at":        fetchLog.CreatedAt,
	}
}
