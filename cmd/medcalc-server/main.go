package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medcalc/medcalc/internal/calculator"
	"github.com/medcalc/medcalc/internal/calculators"
	"github.com/medcalc/medcalc/internal/config"
	"github.com/medcalc/medcalc/internal/platform/auth"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medcalc-server",
		Short: "Clinical risk calculator host server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(calculatorsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the calculator host server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func calculatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calculators",
		Short: "List the shipped calculators",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, cfg := range calculators.Definitions() {
				fmt.Printf("%-28s %s\n", cfg.ID, cfg.Title)
			}
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Calculator registry
	registry := calculator.NewRegistry()
	if err := calculators.RegisterAll(registry, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to register calculators")
	}
	for _, s := range registry.List() {
		c, _ := registry.Get(s.ID)
		c.SetStalenessThreshold(cfg.StalenessThreshold())
		c.SetFetchTimeout(cfg.FetchTimeout())
	}
	logger.Info().Int("calculators", registry.Len()).Msg("calculators registered")

	// External record client, one per mounted patient context
	var clientFor calculator.ClientFactory
	if cfg.FHIRBaseURL != "" {
		base, token := cfg.FHIRBaseURL, cfg.FHIRToken
		clientFor = func(patientID string) fhir.Client {
			return fhir.NewRESTClient(base, patientID, fhir.WithToken(token))
		}
		logger.Info().Str("fhir_base_url", base).Msg("external record access enabled")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")
	handler := calculator.NewHandler(registry, clientFor, logger)
	handler.RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"calculators": registry.Len(),
		})
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
