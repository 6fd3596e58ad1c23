package router

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/config"
	"github.com/stemsi/curricuforge/internal/handler"
	"github.com/stemsi/curricuforge/internal/middleware"
	"github.com/stemsi/curricuforge/internal/response"
	"github.com/stemsi/curricuforge/internal/service"
	"github.com/stemsi/curricuforge/web"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Page   *handler.PageHandler
	Forge  *handler.ForgeHandler
	Stream *handler.StreamHandler
	Health *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	sessionService *service.SessionService,
	submitLimiter *middleware.RateLimiter,
	handlers *Handlers,
	templates *template.Template,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	router.SetHTMLTemplate(templates)

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Embedded stylesheet and script, cached for a day.
	staticGroup := router.Group("/static")
	staticGroup.Use(middleware.CacheControl(86400))
	{
		staticGroup.StaticFS("/", http.FS(web.Static()))
	}

	// Health check.
	router.GET("/health", handlers.Health.Health)

	session := middleware.Session(sessionService, cfg.SecureCookies, log)
	submitLimit := submitLimiter.Middleware()

	// ─── 1. HTML Page ──────────────────────────────────────────────────
	page := router.Group("/")
	page.Use(middleware.NoStore(), session)
	{
		page.GET("/", handlers.Page.Index)
		page.POST("/generate", submitLimiter.MiddlewareWith(handlers.Page.Throttled), handlers.Page.Generate)
		page.POST("/reset", handlers.Page.Reset)
	}

	// ─── 2. Forge API ──────────────────────────────────────────────────
	forgeAPI := router.Group("/api/v1/forge")
	forgeAPI.Use(middleware.NoStore(), session)
	{
		forgeAPI.GET("/options", handlers.Forge.GetOptions)
		forgeAPI.GET("/state", handlers.Forge.GetState)
		forgeAPI.POST("/generate", submitLimit, handlers.Forge.Generate)
		forgeAPI.POST("/reset", handlers.Forge.Reset)
	}

	// ─── 3. WebSocket Group (existing session only) ────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSession(sessionService))
	{
		ws.GET("/forge/stream", handlers.Stream.Stream)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
