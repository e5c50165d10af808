package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"weather-widget/internal/storage"
	"weather-widget/internal/weather"
	"weather-widget/internal/widget"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PreferenceLister is satisfied by *storage.Database.
type PreferenceLister interface {
	ListPreferences() ([]storage.Preference, error)
}

type Server struct {
	router *gin.Engine
	server *http.Server
	widget *widget.Widget
	prefs  PreferenceLister
	port   int
}

type ServerConfig struct {
	Port   int
	Widget *widget.Widget

	// Preferences is optional; when set, /health reports the stored values.
	Preferences PreferenceLister
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(requestID())

	s := &Server{
		router: router,
		widget: cfg.Widget,
		prefs:  cfg.Preferences,
		port:   cfg.Port,
	}

	s.setupRoutes()
	return s
}

// Router exposes the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	tmpl := template.Must(template.ParseFS(templatesFS, "templates/*.html"))
	s.router.SetHTMLTemplate(tmpl)

	s.router.GET("/", s.indexHandler)
	s.router.HEAD("/", s.indexHandler)

	// Health check
	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api/v1")
	{
		api.GET("/forecast", s.forecastHandler)
		api.POST("/search", s.searchHandler)
		api.POST("/locate", s.locateHandler)
		api.GET("/unit", s.getUnitHandler)
		api.PUT("/unit", s.setUnitHandler)
		api.POST("/unit/toggle", s.toggleUnitHandler)
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	log.Printf("API server starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) indexHandler(c *gin.Context) {
	unit := s.widget.Unit()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":  "Weather",
		"unit":   unit.String(),
		"symbol": unit.Symbol(),
	})
}

func (s *Server) healthHandler(c *gin.Context) {
	_, hasResult := s.widget.Current()
	resp := gin.H{
		"status":     "healthy",
		"has_result": hasResult,
		"unit":       s.widget.Unit().String(),
		"timestamp":  time.Now(),
	}

	if s.prefs != nil {
		prefs, err := s.prefs.ListPreferences()
		if err != nil {
			log.Printf("Failed to list preferences: %v", err)
			resp["status"] = "degraded"
			resp["database_error"] = err.Error()
		} else {
			values := make(map[string]string, len(prefs))
			for _, p := range prefs {
				values[p.Name] = p.Value
			}
			resp["preferences"] = values
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) forecastHandler(c *gin.Context) {
	view, ok := s.widget.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No forecast loaded yet"})
		return
	}
	c.JSON(http.StatusOK, view)
}

type searchRequest struct {
	City string `json:"city"`
}

func (s *Server) searchHandler(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := s.widget.Search(c.Request.Context(), req.City)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// locateRequest carries what the browser's geolocation produced: a position,
// or the reason it could not produce one.
type locateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error"`
}

func (r locateRequest) geolocator() widget.Geolocator {
	if r.Error != "" {
		return widget.DeniedPosition{Kind: weather.Kind(r.Error)}
	}
	if r.Latitude == nil || r.Longitude == nil {
		return widget.StaticPosition{}
	}
	return widget.StaticPosition{Latitude: *r.Latitude, Longitude: *r.Longitude, Known: true}
}

func (s *Server) locateHandler(c *gin.Context) {
	var req locateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := s.widget.UseLocation(c.Request.Context(), req.geolocator())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type unitRequest struct {
	Unit string `json:"unit" binding:"required"`
}

func (s *Server) getUnitHandler(c *gin.Context) {
	unit := s.widget.Unit()
	c.JSON(http.StatusOK, gin.H{"unit": unit.String(), "symbol": unit.Symbol()})
}

func (s *Server) setUnitHandler(c *gin.Context) {
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit, err := weather.ParseUnit(req.Unit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.unitResponse(c, func() (widget.View, bool, error) {
		return s.widget.SetUnit(unit)
	})
}

func (s *Server) toggleUnitHandler(c *gin.Context) {
	s.unitResponse(c, s.widget.ToggleUnit)
}

// unitResponse applies a unit change and returns the re-rendered forecast
// when one is held. A persistence failure is reported as a warning only.
func (s *Server) unitResponse(c *gin.Context, apply func() (widget.View, bool, error)) {
	view, ok, persistErr := apply()
	resp := gin.H{"unit": s.widget.Unit().String(), "symbol": s.widget.Unit().Symbol()}
	if ok {
		resp["forecast"] = view
		resp["unit"] = view.Unit
		resp["symbol"] = view.Symbol
	}
	if persistErr != nil {
		resp["warning"] = persistErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) writeError(c *gin.Context, err error) {
	if errors.Is(err, widget.ErrStale) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "A newer request replaced this one",
			"kind":  "stale",
		})
		return
	}
	c.JSON(statusFor(err), gin.H{
		"error":   weather.Message(err),
		"kind":    string(weather.KindOf(err)),
		"details": err.Error(),
	})
}

func statusFor(err error) int {
	switch weather.KindOf(err) {
	case weather.KindInvalidInput, weather.KindAmbiguousMatch:
		return http.StatusBadRequest
	case weather.KindNotFound:
		return http.StatusNotFound
	case weather.KindPermissionDenied:
		return http.StatusForbidden
	case weather.KindPositionUnavailable:
		return http.StatusUnprocessableEntity
	case weather.KindTimeout:
		return http.StatusGatewayTimeout
	case weather.KindUpstreamFormat, weather.KindUpstreamUnavailable, weather.KindInvalidSample:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
