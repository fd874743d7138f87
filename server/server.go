package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/sera-ai/sera/internal/profile"
	"github.com/sera-ai/sera/plugin/generator"
	apiv1 "github.com/sera-ai/sera/server/router/api/v1"
	"github.com/sera-ai/sera/server/push"
	"github.com/sera-ai/sera/server/service/assistant"
	"github.com/sera-ai/sera/store"
)

// Server assembles the assistant pipeline behind an echo HTTP server.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	registry   *push.Registry
}

// NewServer builds the server: picks the generation backend from the profile,
// wires the orchestrator, and registers the API routes.
func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	registry := push.NewRegistry()

	var gen generator.CardGenerator
	if profile.IsAIEnabled() {
		gen = generator.NewModelGenerator(&generator.Config{
			BaseURL:     profile.AIBaseURL,
			APIKey:      profile.AIAPIKey,
			Model:       profile.AIModel,
			Temperature: 0.7,
			TopP:        0.8,
			MaxTokens:   1024,
			Timeout:     profile.AITimeout,
		})
		slog.Info("using model generation backend", "model", profile.AIModel)
	} else {
		gen = generator.NewRuleGenerator()
		slog.Info("AI disabled, using rule generation backend")
	}

	svc := assistant.NewService(gen, st, registry, slog.Default())

	apiService := apiv1.NewAPIV1Service(profile, st, svc, registry)
	apiService.RegisterRoutes(e)

	server := &Server{
		Profile:    profile,
		Store:      st,
		echoServer: e,
		registry:   registry,
	}

	return server, nil
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "version", s.Profile.Version)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server gracefully", "error", err)
		}
	}()

	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start echo server")
	}
	return nil
}

// Shutdown closes the store after the HTTP server has stopped.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
