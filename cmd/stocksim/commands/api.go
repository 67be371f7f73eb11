package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stocksim/internal/api"
	"github.com/wonny/stocksim/internal/api/handlers"
	"github.com/wonny/stocksim/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                            - Health check (database, redis)
  GET  /api/products/{id}/summaries        - Summaries of a product, newest first
  GET  /api/products/{id}/summaries/latest - Newest summary with its days
  GET  /api/summaries/{id}/days            - Daily breakdown of a summary
  POST /api/products/{id}/simulate         - Run and store a forecast (rate limited)

Example:
  go run ./cmd/stocksim api
  go run ./cmd/stocksim api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== stocksim API Server ===")

	d, err := initDeps(os.Stdout)
	if err != nil {
		return err
	}
	defer d.Close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": d.db,
		"redis":    d.redis,
	})
	summaries := handlers.NewSummaryHandler(d.service, d.summaries, d.cfg.Simulation.Runs, d.log)
	limiter := api.NewLimiter(redis.NewRateLimiter(d.redis, cachePrefix), d.cfg.API)

	router := api.NewRouter(health, summaries, limiter, api.NewClientResolver(d.cfg.API.TrustedProxies), d.log)
	server := api.New(d.cfg, d.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	d.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
