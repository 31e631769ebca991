package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openterm/pinpad-bridge/internal/api/websocket"
	"github.com/openterm/pinpad-bridge/internal/auth"
	"github.com/openterm/pinpad-bridge/internal/config"
	"github.com/openterm/pinpad-bridge/internal/profile"
	"github.com/openterm/pinpad-bridge/internal/terminal"
	"go.uber.org/zap"
)

type Server struct {
	router      *gin.Engine
	manager     *terminal.Manager
	activeProf  *profile.Profile
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.Service
}

func NewServer(cfg *config.Config, manager *terminal.Manager, activeProf *profile.Profile,
	logger *zap.Logger, wsHub *websocket.Hub, authService *auth.Service) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:      gin.Default(),
		manager:     manager,
		activeProf:  activeProf,
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH (PUBLIC) ====================
		v1.POST("/auth/session", s.createSession)

		// ==================== TERMINAL (AUTHENTICATED) ====================
		term := v1.Group("/terminal")
		term.Use(s.authService.AuthMiddleware())
		{
			term.GET("/status", s.getStatus)
			term.GET("/profile", s.getProfile)
			term.POST("/sale", s.sale)
			term.POST("/recurring-sale", s.recurringSale)
			term.POST("/replace-card", s.replaceCard)
			term.POST("/read-card", s.readPrepaidCard)
			term.POST("/client-version", s.clientVersion)
			term.POST("/download-config", s.downloadConfig)
			term.POST("/cancel", s.cancel)
		}

		// ==================== WEBSOCKET (Auth via first message) ====================
		v1.GET("/ws/events", s.wsEvents)
	}
}

func (s *Server) wsEvents(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
