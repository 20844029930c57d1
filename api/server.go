// Package api provides the HTTP server for stocksentiment.
//
// It serves the HTML dashboard, a JSON API over the company catalog and
// the analysis action, rendered charts and reports, a WebSocket stream of
// analysis progress, and the MCP tools over streamable HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"

	"github.com/seenimoa/stocksentiment/internal/config"
	"github.com/seenimoa/stocksentiment/internal/dashboard"
	"github.com/seenimoa/stocksentiment/internal/logging"
	stockmcp "github.com/seenimoa/stocksentiment/internal/mcp"
	"github.com/seenimoa/stocksentiment/internal/registry"
	"github.com/seenimoa/stocksentiment/internal/report"
	"github.com/seenimoa/stocksentiment/pkg/utils"
	"github.com/seenimoa/stocksentiment/web"
)

// MaxLookbackDays bounds the lookback window accepted from clients.
const MaxLookbackDays = dashboard.MaxLookbackDays

// analyzeTimeout bounds a single analysis started by an HTTP or WebSocket client.
const analyzeTimeout = 2 * time.Minute

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	ctrl    *dashboard.Controller
	logger  *log.Logger
	wsHub   *WSHub
	mcp     http.Handler
	version string
	serveUI bool // when true, serve the HTML dashboard at /
	now     func() time.Time
}

// NewServer creates a configured server with all routes and middleware.
// Controller progress events are broadcast to WebSocket clients.
func NewServer(cfg *config.Config, ctrl *dashboard.Controller, logger *log.Logger, version string) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	srv := &Server{
		cfg:     cfg,
		ctrl:    ctrl,
		logger:  logger,
		wsHub:   NewWSHub(),
		mcp:     stockmcp.NewHTTPHandler(stockmcp.NewServer(ctrl, version)),
		version: version,
		serveUI: true,
		now:     time.Now,
	}
	ctrl.SetObserver(func(e dashboard.Event) {
		srv.wsHub.Broadcast(WSMessage{Type: e.Type, Data: e})
	})

	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the HTML dashboard is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled
// or SIGINT/SIGTERM arrives, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(analyzeTimeout + 30*time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Catalog
		r.Get("/sectors", s.handleSectors)
		r.Get("/companies", s.handleCompanies)
		r.Get("/companies/{ticker}", s.handleCompany)

		// Analysis
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/chart/{ticker}.svg", s.handleChartSVG)
		r.Get("/report/{ticker}.html", s.handleReportHTML)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
		r.Put("/config/keys", s.handleUpdateConfigKeys)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	// MCP over streamable HTTP
	r.Handle("/mcp", s.mcp)

	if s.serveUI {
		r.Get("/", s.handleDashboard)
		r.Post("/settings/news-key", s.handleNewsKeyForm)
		r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))
	}

	return r
}

// staticHandler serves the embedded dashboard assets.
func staticHandler() http.Handler {
	fileServer := http.FileServerFS(web.StaticFS())
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

// requestLogger logs one structured line per request.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Ticker       string `json:"ticker"`
	LookbackDays int    `json:"lookback_days,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	news, prices := s.ctrl.Sources()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       s.version,
			"market_status": utils.MarketStatus(now),
			"time_et":       report.ReportTimestamp(now),
			"companies":     s.ctrl.Registry().Len(),
			"news_source":   news,
			"price_source":  prices,
			"ws_clients":    s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	sectors := append([]string{registry.AllSectors}, s.ctrl.Registry().Sectors()...)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: sectors})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies := s.ctrl.Registry().ListBySector(r.URL.Query().Get("sector"))
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: companies})
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	c, err := s.ctrl.Registry().Lookup(chi.URLParam(r, "ticker"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: c})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if req.LookbackDays < 0 || req.LookbackDays > MaxLookbackDays {
		writeError(w, http.StatusBadRequest, "lookback_days must be between 1 and "+strconv.Itoa(MaxLookbackDays))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	a, err := s.ctrl.Analyze(ctx, dashboard.Request{Ticker: req.Ticker, LookbackDays: req.LookbackDays})
	if err != nil {
		writeAnalyzeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: a})
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	days, ok := lookbackParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	a, err := s.ctrl.Analyze(ctx, dashboard.Request{Ticker: chi.URLParam(r, "ticker"), LookbackDays: days})
	if err != nil {
		writeAnalyzeError(w, err)
		return
	}
	if a.Chart == nil {
		writeError(w, http.StatusNotFound, report.NoticeNoChart)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report.RenderSVG(a.Chart, report.DefaultChartConfig()))) //nolint:errcheck
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	days, ok := lookbackParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	a, err := s.ctrl.Analyze(ctx, dashboard.Request{Ticker: chi.URLParam(r, "ticker"), LookbackDays: days})
	if err != nil {
		writeAnalyzeError(w, err)
		return
	}
	page, err := report.GenerateHTML(a, s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, report.ErrorPrefix+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page)) //nolint:errcheck
}

// ============================================================
// Helpers
// ============================================================

// lookbackParam parses the optional lookback_days query parameter. It
// writes a 400 and returns false when the value is invalid.
func lookbackParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("lookback_days")
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > MaxLookbackDays {
		writeError(w, http.StatusBadRequest, "lookback_days must be between 1 and "+strconv.Itoa(MaxLookbackDays))
		return 0, false
	}
	return days, true
}

func writeAnalyzeError(w http.ResponseWriter, err error) {
	if errors.Is(err, dashboard.ErrInvalidLookback) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
