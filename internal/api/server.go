// Package api exposes the inbox and the board over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/inbox"
	"github.com/nhle/taskboard/internal/notify"
)

// Config holds the HTTP settings.
type Config struct {
	Addr         string
	JWTSecret    string
	AllowOrigins []string
}

// Server is the HTTP surface of the board.
type Server struct {
	router *gin.Engine
	cfg    Config
	live   inbox.Source
	notify *notify.Service
	board  *board.Service
}

// NewServer wires the routes.
func NewServer(cfg Config, live inbox.Source, n *notify.Service, b *board.Service) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("a JWT secret is required")
	}

	router := gin.New()
	router.Use(Recovery())
	router.Use(gin.Logger())
	if len(cfg.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
		}))
	}

	s := &Server{router: router, cfg: cfg, live: live, notify: n, board: b}
	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http: %w", err)
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "taskboard"})
	})

	api := s.router.Group("/api/v1")
	api.Use(JWTAuth(s.cfg.JWTSecret))
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", s.handleListNotifications(false))
			notifications.GET("/unread", s.handleListNotifications(true))
			notifications.GET("/stream", s.handleStream())
			notifications.PUT("/read-all", s.handleMarkAllRead())
			notifications.DELETE("", s.handleClearNotifications())
		}

		api.POST("/projects", s.handleCreateProject())
		project := api.Group("/projects/:pid")
		{
			project.PATCH("", s.handleRenameProject())
			project.DELETE("", s.handleDeleteProject())
			project.PUT("/owner", s.handleTransferOwner())
			project.PUT("/notifications/:id/read", s.handleMarkRead())
			project.GET("/board", s.handleBoard())
			project.GET("/board/stream", s.handleBoardStream())
			project.POST("/members", s.handleAddMember())
			project.DELETE("/members/:uid", s.handleRemoveMember())
			project.POST("/tasks", s.handleCreateTask())
			project.PATCH("/tasks/:tid", s.handleUpdateTask())
			project.DELETE("/tasks/:tid", s.handleDeleteTask())
			project.POST("/tasks/:tid/clone", s.handleCloneTask())
			project.POST("/tasks/:tid/move", s.handleMoveTask())
			project.POST("/tasks/:tid/lock", s.handleToggleLock())
			project.GET("/tasks/:tid/messages", s.handleListMessages())
			project.POST("/tasks/:tid/messages", s.handlePostMessage())
		}
	}
}
