package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cheese-stick/src/analysis"
	"cheese-stick/src/dashboard"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"

	"github.com/gin-gonic/gin"
)

const (
	refreshTimeout = 2 * time.Minute
	commandTimeout = 5 * time.Second
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Portfolio *analysis.PortfolioFacade
	Dashboard *dashboard.Controller
	Exports   *ExportStore
	Sessions  *SessionStore

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	connections atomic.Int64
	broadcast   chan *models.MDashboardState
	direct      chan directMessage
	register    chan *Client
	unregister  chan *Client
	quit        chan struct{}
	hubOnce     sync.Once
	stopOnce    sync.Once

	// Local cache
	latestState *models.MDashboardState
	stateMutex  sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewAPIServer builds the HTTP API. When dash is set the server becomes its
// frame sink and export store.
func NewAPIServer(cfg *models.MConfig, portfolio *analysis.PortfolioFacade, dash *dashboard.Controller, log *logger.Logger) *APIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewLogger(cfg, "API")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &APIServer{
		Config:     cfg,
		Logger:     log,
		Portfolio:  portfolio,
		Dashboard:  dash,
		Exports:    NewExportStore(cfg.Dashboard.ExportRetention),
		Sessions:   NewSessionStore(cfg.Admin.Password, time.Duration(cfg.Admin.SessionTTLMinutes)*time.Minute),
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *models.MDashboardState, 256),
		direct:     make(chan directMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	if dash != nil {
		dash.Exchanger = s
		dash.Exports = s.Exports
	}

	s.engine.Use(gin.Recovery(), s.requestLogger, corsMiddleware)
	s.setupRoutes()
	return s
}

// corsMiddleware allows the local dev origins to call the API with cookies.
func corsMiddleware(c *gin.Context) {
	origin := c.Request.Header.Get("Origin")
	if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
	}
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func (s *APIServer) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Handler starts the websocket hub and returns the router.
func (s *APIServer) Handler() http.Handler {
	s.hubOnce.Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleWebsockets()
		}()
	})
	return s.engine
}

// Start serves HTTP until Stop is called.
func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down, ends the hub and waits for background work.
func (s *APIServer) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
		close(s.quit)
		s.wg.Wait()
	})
	return err
}

// -----------------------------------------------------------------------------

// refreshAsync reloads the dashboard in the background after the
// competition changed.
func (s *APIServer) refreshAsync() {
	if s.Dashboard == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
		defer cancel()
		if err := s.Dashboard.Refresh(ctx, s.Portfolio); err != nil {
			s.Logger.Warning("Dashboard refresh after save failed: %v", err)
		}
	}()
}
