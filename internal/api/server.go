// Package api exposes the edit review engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/redline/internal/review"
)

// Server is the API server.
type Server struct {
	echo    *echo.Echo
	service *review.Service
	host    string
	port    int

	// maxUnchangedLines caps unchanged-block display text in responses.
	// Session state is never truncated; only the copies leaving over HTTP.
	maxUnchangedLines int
}

// NewServer creates an API server over the given review service.
func NewServer(service *review.Service, host string, port, maxUnchangedLines int) *Server {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:              e,
		service:           service,
		host:              host,
		port:              port,
		maxUnchangedLines: maxUnchangedLines,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	v1.POST("/edits", s.createEdit)
	v1.POST("/proposals", s.proposeEdit)
	v1.GET("/edits/:id", s.getEdit)
	v1.GET("/edits/:id/pending", s.getPendingHunks)
	v1.PUT("/edits/:id/hunks/:hunkID", s.setHunkDecision)
	v1.POST("/edits/:id/apply", s.applyEdit)
	v1.DELETE("/edits/:id", s.discardEdit)
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		addr := fmt.Sprintf("%s:%d", s.host, s.port)
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
