// Package server exposes the calendar engine over HTTP: a JSON API for
// month grids and conflict reports, plus cached per-family iCalendar
// feeds regenerated on a cron schedule.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"coparentcal/internal/calendar"
	"coparentcal/internal/config"
	"coparentcal/internal/feed"
	"coparentcal/internal/recur"
	"coparentcal/internal/storage"
)

// feedItem stores one family's rendered feed and its HTTP caching
// metadata.
type feedItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// Server wires the store, engine, and label localizer behind a gin
// router.
type Server struct {
	cfg    *config.Config
	store  *storage.Store
	labels calendar.Labels
	clock  Clock

	// feeds holds the full family-to-feed map behind an atomic pointer.
	// Feeds are read on every subscriber poll but rebuilt only on the
	// cron tick, so lock-free reads beat a RWMutex on the hot path. The
	// refresh builds a fresh map and swaps it in whole.
	feeds atomic.Pointer[map[uuid.UUID]*feedItem]
}

// New creates a Server. The config must already be normalized.
func New(cfg *config.Config, store *storage.Store, labels calendar.Labels, clock Clock) *Server {
	if clock == nil {
		clock = RealClock{}
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		labels: labels,
		clock:  clock,
	}
}

// Router builds the gin handler tree. Split from Start so tests can
// drive it with httptest.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET(config.RouteHealth, s.handleHealth)

	protected := router.Group("/")
	if s.cfg.BasicAuth != nil {
		protected.Use(gin.BasicAuthForRealm(gin.Accounts{
			s.cfg.BasicAuth.Username: s.cfg.BasicAuth.Password,
		}, config.AuthRealm))
	}
	protected.GET(config.RouteMonth, s.handleMonth)
	protected.GET(config.RouteConflicts, s.handleConflicts)
	protected.GET(config.RouteFeed, s.handleFeed)
	protected.HEAD(config.RouteFeed, s.handleFeed)

	return router
}

// Start populates the feed cache, schedules refreshes, and serves HTTP
// until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	log := slog.With(slog.String(config.LogKeyComponent, config.CompServer))

	s.RefreshFeeds(ctx)

	scheduler := cron.New()
	_, err := scheduler.AddFunc(s.cfg.FeedCron, func() { s.RefreshFeeds(ctx) })
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrCronSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info(config.MsgFeedScheduled, config.LogKeyCron, s.cfg.FeedCron)

	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Router(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, 1)
	go func() {
		log.Info(config.MsgServerListen, config.LogKeyListen, s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info(config.MsgServerStop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// RefreshFeeds rebuilds every family's cached feed and atomically swaps
// the cache map. A failure on one family logs and skips that family; its
// previous feed (if any) is carried over so subscribers keep a valid
// calendar.
func (s *Server) RefreshFeeds(ctx context.Context) {
	log := slog.With(slog.String(config.LogKeyComponent, config.CompFeed))
	start := time.Now()

	ids, err := s.store.FamilyIDs(ctx)
	if err != nil {
		log.Error(config.ErrFeedRefresh, config.LogKeyError, err)
		return
	}

	now := s.clock.Now().UTC()
	previous := s.feeds.Load()
	next := make(map[uuid.UUID]*feedItem, len(ids))

	for _, id := range ids {
		item, err := s.buildFeed(ctx, id, now)
		if err != nil {
			log.Error(config.ErrFeedRefresh,
				config.LogKeyFamily, id.String(),
				config.LogKeyError, err,
			)
			if previous != nil {
				if old, ok := (*previous)[id]; ok {
					next[id] = old
				}
			}
			continue
		}
		next[id] = item
		log.Debug(config.MsgFeedCached,
			config.LogKeyFamily, id.String(),
			config.LogKeySizeBytes, len(item.data),
			config.LogKeyETag, item.etag,
		)
	}

	s.feeds.Store(&next)
	log.Info(config.MsgFeedUpdated,
		config.LogKeyCount, len(next),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
}

func (s *Server) buildFeed(ctx context.Context, familyID uuid.UUID, now time.Time) (*feedItem, error) {
	fam, err := s.store.Family(ctx, familyID)
	if err != nil {
		return nil, err
	}
	engine, err := calendar.New(fam, s.labels)
	if err != nil {
		return nil, err
	}

	horizonEnd := now.AddDate(0, 0, s.cfg.HorizonDays)
	events, err := s.store.EventsInRange(ctx, familyID, now, horizonEnd)
	if err != nil {
		return nil, err
	}
	events = recur.Expand(events, now, horizonEnd, recur.DefaultMaxPerEvent)

	data, err := feed.Build(engine, events, now, s.cfg.HorizonDays)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	return &feedItem{
		data:         data,
		etag:         fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:])),
		lastModified: now.Format(http.TimeFormat),
	}, nil
}

func (s *Server) feedFor(familyID uuid.UUID) (*feedItem, bool) {
	feeds := s.feeds.Load()
	if feeds == nil {
		return nil, false
	}
	item, ok := (*feeds)[familyID]
	return item, ok
}
