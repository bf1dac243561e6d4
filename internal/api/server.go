package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"rugsync/internal/api/handlers"
	"rugsync/internal/api/middleware"
	"rugsync/internal/config"
	"rugsync/internal/database"
	"rugsync/internal/logger"
)

// Server is the read-only status API over shops, runs and issues.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	db      *database.Database
	router  *gin.Engine
	handler http.Handler
	server  *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, tracker handlers.LastRunReader) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))

	// Initialize handlers
	shops := database.NewShopStore(db.DB)
	runs := database.NewRunStore(db.DB)
	shopHandler := handlers.NewShopHandler(shops, runs, tracker, logger)
	issueHandler := handlers.NewIssueHandler(runs, logger)

	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Shops
		shopRoutes := v1.Group("/shops")
		{
			shopRoutes.GET("", shopHandler.List)
			shopRoutes.GET("/:id", shopHandler.Get)
			shopRoutes.GET("/:id/runs", shopHandler.Runs)
		}

		// Issues
		issues := v1.Group("/issues")
		{
			issues.GET("", issueHandler.List)
			issues.GET("/:id", issueHandler.Get)
			issues.POST("/:id/resolve", issueHandler.Resolve)
		}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)

	return &Server{
		config:  cfg,
		logger:  logger,
		db:      db,
		router:  router,
		handler: handler,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return s.handler
}
