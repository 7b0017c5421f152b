package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/orchestrate"
	"github.com/Sriram-PR/seo-auditor/pkg/storage"
)

// Runner executes one audit and streams its events
type Runner interface {
	Run(ctx context.Context, req orchestrate.Request, emit func(models.Event)) (*models.AnalysisRun, error)
}

// Server exposes audits over HTTP
type Server struct {
	runner   Runner
	registry *Registry
	store    storage.RunStore // Optional; serves runs no longer in the registry
	cfg      config.ServerConfig
	log      *logrus.Entry
}

// New creates a Server. store may be nil.
func New(runner Runner, store storage.RunStore, cfg config.ServerConfig, log *logrus.Entry) *Server {
	return &Server{
		runner:   runner,
		registry: NewRegistry(cfg.RunRetention, cfg.MaxFinishedRuns),
		store:    store,
		cfg:      cfg,
		log:      log.WithField("component", "http_server"),
	}
}

// Registry returns the live run registry
func (s *Server) Registry() *Registry { return s.registry }

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(s.log))
	r.Use(RequestLogger(s.log))
	if s.cfg.RateLimit > 0 {
		r.Use(NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst).RateLimit())
	}

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.POST("/runs/:id/cancel", s.handleCancelRun)
	}
	return r
}

type analyzeRequest struct {
	SitemapURL            string `json:"sitemapUrl"`
	CheckMultipleSitemaps bool   `json:"checkMultipleSitemaps"`
	DetectLanguages       bool   `json:"detectLanguages"`
	CheckDuplicates       bool   `json:"checkDuplicates"`
}

// handleAnalyze runs an audit and streams its events as server-sent events
func (s *Server) handleAnalyze(c *gin.Context) {
	var body analyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	body.SitemapURL = strings.TrimSpace(body.SitemapURL)
	if body.SitemapURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sitemap URL is required"})
		return
	}

	runID, ctx := s.registry.Create(c.Request.Context(), body.SitemapURL)
	runLog := s.log.WithFields(logrus.Fields{"run_id": runID, "ip": c.ClientIP()})
	runLog.Infof("Analyze request for %s", body.SitemapURL)
	defer func() {
		if r := recover(); r != nil {
			s.registry.Finish(runID, fmt.Errorf("run panicked: %v", r))
			panic(r)
		}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Run-ID", runID)
	c.Status(http.StatusOK)

	emit := func(ev models.Event) {
		s.registry.Observe(runID, ev)
		data, err := json.Marshal(ev)
		if err != nil {
			runLog.Errorf("Failed to marshal %s event: %v", ev.EventType(), err)
			return
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			runLog.Debugf("Client stream write failed: %v", err)
			return
		}
		c.Writer.Flush()
	}

	_, err := s.runner.Run(ctx, orchestrate.Request{
		ID:         runID,
		SitemapURL: body.SitemapURL,
		Options: models.Options{
			CheckMultipleSitemaps: body.CheckMultipleSitemaps,
			DetectLanguages:       body.DetectLanguages,
			DetectDuplicates:      body.CheckDuplicates,
		},
	}, emit)
	s.registry.Finish(runID, err)
}

func (s *Server) handleListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": s.registry.List()})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id := c.Param("id")
	if entry, ok := s.registry.Get(id); ok {
		c.JSON(http.StatusOK, entry)
		return
	}

	if s.store != nil {
		run, err := s.store.LoadRun(c.Request.Context(), id)
		if err == nil {
			c.JSON(http.StatusOK, run)
			return
		}
		if !errors.Is(err, storage.ErrRunNotFound) {
			s.log.Errorf("Loading run %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load run"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
}

func (s *Server) handleCancelRun(c *gin.Context) {
	id := c.Param("id")
	if !s.registry.Cancel(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active run with that ID"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": RunStatusCancelled})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Server starting on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down server...")
		s.registry.CancelAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
