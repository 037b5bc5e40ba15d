package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coparentcal/internal/calendar"
	"coparentcal/internal/config"
	"coparentcal/internal/conflict"
	"coparentcal/internal/recur"
	"coparentcal/internal/storage"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleMonth renders one family's month grid as JSON.
func (s *Server) handleMonth(c *gin.Context) {
	familyID, ok := parseFamilyID(c)
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Param(config.ParamYear))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": config.HTTPMsgBadRequest})
		return
	}
	month, err := strconv.Atoi(c.Param(config.ParamMonth))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": config.HTTPMsgBadRequest})
		return
	}

	engine, ok := s.engineFor(c, familyID)
	if !ok {
		return
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	events, err := s.store.EventsInRange(c.Request.Context(), familyID, monthStart, monthEnd)
	if err != nil {
		s.internalError(c, err)
		return
	}
	events = recur.Expand(events, monthStart, monthEnd, recur.DefaultMaxPerEvent)

	requests, err := s.store.PendingRequests(c.Request.Context(), familyID)
	if err != nil {
		s.internalError(c, err)
		return
	}

	data := engine.MonthData(year, month, events, requests, s.clock.Now())
	c.JSON(http.StatusOK, data)
}

// handleConflicts reports scheduling conflicts over the configured
// horizon. An explicit ?window=N (minutes) overrides the configured
// buffer window.
func (s *Server) handleConflicts(c *gin.Context) {
	familyID, ok := parseFamilyID(c)
	if !ok {
		return
	}

	window := s.cfg.WindowMinutes
	if raw := c.Query(config.QueryWindow); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": config.HTTPMsgBadRequest})
			return
		}
		window = parsed
	}

	engine, ok := s.engineFor(c, familyID)
	if !ok {
		return
	}

	now := s.clock.Now().UTC()
	horizonEnd := now.AddDate(0, 0, s.cfg.HorizonDays)
	events, err := s.store.EventsInRange(c.Request.Context(), familyID, now, horizonEnd)
	if err != nil {
		s.internalError(c, err)
		return
	}
	events = recur.Expand(events, now, horizonEnd, recur.DefaultMaxPerEvent)

	conflicts := engine.DetectConflicts(events, window)
	if conflicts == nil {
		conflicts = []conflict.Conflict{}
	}
	c.JSON(http.StatusOK, gin.H{
		"window_minutes": window,
		"conflicts":      conflicts,
	})
}

// handleFeed serves a family's cached iCalendar feed with conditional
// request support. The cache is only populated by RefreshFeeds, so a
// family present in storage but not yet rendered gets 503 + Retry-After,
// matching what subscribed calendar clients expect during startup.
func (s *Server) handleFeed(c *gin.Context) {
	name := c.Param(config.ParamFile)
	if !strings.HasSuffix(name, config.FeedExtension) {
		c.JSON(http.StatusNotFound, gin.H{"error": config.HTTPMsgNotFound})
		return
	}
	familyID, err := uuid.Parse(strings.TrimSuffix(name, config.FeedExtension))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": config.HTTPMsgNotFound})
		return
	}

	item, ok := s.feedFor(familyID)
	if !ok {
		c.Header(config.HeaderRetryAfter, config.RetryAfterSeconds)
		c.String(http.StatusServiceUnavailable, config.HTTPMsgInitializing)
		return
	}

	c.Header(config.HeaderXContentType, config.MimeNoSniff)
	c.Header(config.HeaderCacheControl, config.CacheControlPrivate)
	c.Header(config.HeaderETag, item.etag)
	c.Header(config.HeaderLastModified, item.lastModified)

	if match := c.GetHeader(config.HeaderIfNoneMatch); match == item.etag {
		c.Status(http.StatusNotModified)
		return
	}
	if since := c.GetHeader(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil && !serverTime.After(clientTime) {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	if c.Request.Method == http.MethodHead {
		c.Header(config.HeaderContentType, config.MimeTextCalendar)
		c.Status(http.StatusOK)
		return
	}
	c.Data(http.StatusOK, config.MimeTextCalendar, item.data)
}

func parseFamilyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(config.ParamID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": config.HTTPMsgBadRequest})
		return uuid.Nil, false
	}
	return id, true
}

// engineFor loads the family and builds its calendar engine, writing the
// HTTP error response itself on failure.
func (s *Server) engineFor(c *gin.Context, familyID uuid.UUID) (*calendar.Engine, bool) {
	fam, err := s.store.Family(c.Request.Context(), familyID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": config.HTTPMsgNotFound})
		return nil, false
	}
	if err != nil {
		s.internalError(c, err)
		return nil, false
	}

	engine, err := calendar.New(fam, s.labels)
	if err != nil {
		s.internalError(c, err)
		return nil, false
	}
	return engine, true
}

func (s *Server) internalError(c *gin.Context, err error) {
	slog.Error(config.HTTPMsgInternalErr,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyPath, c.FullPath(),
		config.LogKeyError, err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": config.HTTPMsgInternalErr})
}
