package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"cheese-stick/src/analysis"
	"cheese-stick/src/dashboard"
	"cheese-stick/src/imaging"
	"cheese-stick/src/models"

	"github.com/gin-gonic/gin"
)

const (
	iconSize       = 100
	maxUploadBytes = 10 << 20
)

var errUploadTooLarge = errors.New("upload larger than 10 MiB")

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)

	api.GET("/competition", s.getCompetition)
	api.POST("/competition", s.saveCompetition)

	admin := api.Group("/admin")
	admin.POST("/login", s.adminLogin)
	admin.GET("/check", s.adminCheck)
	admin.POST("/logout", s.adminLogout)
	admin.POST("/save", s.requireAdmin, s.saveCompetition)
	admin.POST("/icon/:index", s.requireAdmin, s.uploadIcon)

	api.GET("/performance", s.getPerformance)
	api.GET("/player-details/:index", s.getPlayerDetails)
	api.GET("/stock-details", s.getStockDetails)
	api.GET("/news/:symbols", s.getNews)
	api.GET("/validate-symbol/:symbol", s.validateSymbol)

	api.GET("/dashboard", s.getDashboard)
	api.GET("/chart.png", s.getChart)
	api.GET("/race.gif", s.getRaceGIF)
	api.GET("/exports/:id", s.getExport)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)

	if dir := s.Config.StaticDir; dir != "" {
		s.engine.StaticFile("/", filepath.Join(dir, "index.html"))
		s.engine.StaticFile("/admin", filepath.Join(dir, "admin.html"))
		files := http.FileServer(gin.Dir(dir, false))
		s.engine.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	var timestamp int64
	if s.latestState != nil {
		timestamp = s.latestState.Timestamp
	}
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connections.Load(),
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------
// Competition and admin
// -----------------------------------------------------------------------------

func (s *APIServer) getCompetition(c *gin.Context) {
	comp, err := s.Portfolio.Competition()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

func (s *APIServer) saveCompetition(c *gin.Context) {
	var comp models.MCompetition
	if err := c.ShouldBindJSON(&comp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid competition: " + err.Error()})
		return
	}
	if err := s.Portfolio.SaveCompetition(&comp); err != nil {
		respondError(c, err)
		return
	}
	s.refreshAsync()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *APIServer) requireAdmin(c *gin.Context) {
	id, _ := c.Cookie(sessionCookie)
	if !s.Sessions.Valid(id) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Next()
}

func (s *APIServer) adminLogin(c *gin.Context) {
	var body struct {
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&body)

	id, ok := s.Sessions.Login(body.Password)
	if !ok {
		s.Logger.Warning("Admin login rejected from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"success": false})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(s.Sessions.TTL().Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *APIServer) adminCheck(c *gin.Context) {
	id, _ := c.Cookie(sessionCookie)
	c.JSON(http.StatusOK, gin.H{"authenticated": s.Sessions.Valid(id)})
}

func (s *APIServer) adminLogout(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		s.Sessions.Logout(id)
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// uploadIcon crops an uploaded picture to the stored circular icon. The
// admin page keeps the result until the competition is saved.
func (s *APIServer) uploadIcon(c *gin.Context) {
	idx, err := parseIndex(c, "index")
	if err != nil || idx >= models.NumPlayers {
		respondError(c, analysis.ErrPlayerIndex)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+64<<10)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(c, errUploadTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fh.Size > maxUploadBytes {
		respondError(c, errUploadTooLarge)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(data) > maxUploadBytes {
		respondError(c, errUploadTooLarge)
		return
	}
	icon, err := imaging.CropCircle(c.Request.Context(), data, iconSize)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := imaging.EncodeDataURL(icon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": idx, "icon": url})
}

// -----------------------------------------------------------------------------
// Portfolio data
// -----------------------------------------------------------------------------

func (s *APIServer) getPerformance(c *gin.Context) {
	perf, _, err := s.Portfolio.Performance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

func (s *APIServer) getPlayerDetails(c *gin.Context) {
	idx, err := parseIndex(c, "index")
	if err != nil {
		respondError(c, err)
		return
	}
	details, err := s.Portfolio.PlayerDetails(c.Request.Context(), idx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *APIServer) getStockDetails(c *gin.Context) {
	details, err := s.Portfolio.StockDetails(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *APIServer) getNews(c *gin.Context) {
	items, err := s.Portfolio.NewsFor(c.Request.Context(), c.Param("symbols"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": items})
}

func (s *APIServer) validateSymbol(c *gin.Context) {
	symbol, ok := s.Portfolio.ValidateSymbol(c.Request.Context(), c.Param("symbol"))
	c.JSON(http.StatusOK, gin.H{"valid": ok, "symbol": symbol})
}

// -----------------------------------------------------------------------------
// Charts and exports
// -----------------------------------------------------------------------------

func (s *APIServer) getDashboard(c *gin.Context) {
	if s.Dashboard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dashboard not running"})
		return
	}
	st, err := s.Dashboard.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// getChart renders one still chart outside the shared dashboard, so the
// live view is left untouched.
func (s *APIServer) getChart(c *gin.Context) {
	view, ok := dashboard.ParseView(c.DefaultQuery("view", string(dashboard.ViewLine)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown view %q", c.Query("view"))})
		return
	}
	theme, ok := dashboard.ParseTheme(c.DefaultQuery("theme", string(dashboard.ThemeDark)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown theme %q", c.Query("theme"))})
		return
	}

	perf, comp, err := s.Portfolio.Performance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	active, err := dashboard.ParsePlayers(c.Query("players"), len(perf.Players))
	if err != nil {
		respondError(c, err)
		return
	}
	includeShort := parseBool(c.Query("include_short"), false)

	r := dashboard.NewRenderer(s.Config.Dashboard.ChartWidth, s.Config.Dashboard.ChartHeight, s.Logger)
	defer r.Release()
	r.Theme = theme
	r.InitialInvestment = perf.InitialInvestment
	r.SetCompetition(comp)

	var cursor *int
	if view == dashboard.ViewRace {
		last := perf.LastIndex()
		cursor = &last
		r.SetRaceBounds(dashboard.Bounds(perf, active, includeShort))
	}
	h, err := r.Render(perf, view, active, includeShort, cursor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", h.PNG())
}

// getRaceGIF records a whole race on a private timeline and streams it back.
func (s *APIServer) getRaceGIF(c *gin.Context) {
	theme, ok := dashboard.ParseTheme(c.DefaultQuery("theme", string(dashboard.ThemeDark)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown theme %q", c.Query("theme"))})
		return
	}
	perf, comp, err := s.Portfolio.Performance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	active, err := dashboard.ParsePlayers(c.Query("players"), len(perf.Players))
	if err != nil {
		respondError(c, err)
		return
	}

	opts := dashboard.ExportOptions{
		IncludeShort: parseBool(c.Query("include_short"), false),
		Theme:        theme,
		Active:       active,
	}
	data, err := dashboard.ExportGIF(c.Request.Context(), s.Config, perf, comp, opts, s.Logger)
	if err != nil {
		respondError(c, err)
		return
	}
	sendDownload(c, dashboard.GifFileName, data)
}

func (s *APIServer) getExport(c *gin.Context) {
	name, data, ok := s.Exports.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export not found or expired"})
		return
	}
	sendDownload(c, name, data)
}

func sendDownload(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "image/gif", data)
}
