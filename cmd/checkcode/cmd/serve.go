package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/checkcode/internal/config"
	"github.com/MeKo-Tech/checkcode/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start an HTTP server exposing the registry API, generation and verification.

The server provides the following endpoints:
  POST /qr/                            - Register a code (wire record JSON)
  GET  /qr/                            - List all codes
  GET  /qr/public/                     - List public codes
  GET  /qr/content/{content}/          - Look up a code by its exact content
  GET  /qr/search/?q=&field=           - Search public codes
  POST /qr/validate/                   - Check whether content is registered
  GET  /qr/content/{content}/image.png - Render a registered code as PNG
  POST /generate                       - Render and register a styled code
  POST /scan/image                     - Verify an uploaded image
  POST /scan/pdf                       - Verify the first code in an uploaded PDF
  POST /scan/batch                     - Verify a list of base64 images
  GET  /ws/scan                        - Stream camera frames over a websocket
  GET  /health                         - Health check endpoint
  GET  /metrics                        - Prometheus metrics

Examples:
  checkcode serve
  checkcode serve --port 8080
  checkcode serve --host 0.0.0.0 --port 3000 --registry postgres --registry-dsn postgres://...`,
	RunE: runServe,
}

// serverConfigFromFlags applies changed flags over the configured server settings.
func serverConfigFromFlags(cfg *config.Config, cmd *cobra.Command) config.ServerConfig {
	sc := cfg.Server
	flags := cmd.Flags()

	if flags.Changed("host") {
		sc.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		sc.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		sc.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		sc.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}

	// Rate limiting
	if flags.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		sc.RateLimit.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day-mb") {
		sc.RateLimit.MaxDataPerDayMB, _ = flags.GetInt("max-data-per-day-mb")
	}
	return sc
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := *GetConfig()
	cfg.Server = serverConfigFromFlags(&cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	svc, closeFn, err := openService(ctx, &cfg)
	if err != nil {
		return err
	}
	defer func() {
		slog.Info("Closing registry")
		closeQuietly(closeFn)
	}()

	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	api := server.NewServer(cfg.ToServerConfig(), svc)
	httpServer := newHTTPServer(api.Handler(), cfg.Server.TimeoutSec)

	slog.Info("Starting checkcode server",
		"addr", ln.Addr().String(),
		"registry", cfg.Registry.Backend,
		"rate_limit", cfg.Server.RateLimit.Enabled)
	return serveUntilDone(ctx, httpServer, ln, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
}

func newHTTPServer(handler http.Handler, timeoutSec int) *http.Server {
	timeout := time.Duration(timeoutSec) * time.Second
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		IdleTimeout:       2 * timeout,
		// No WriteTimeout: websocket scan sessions outlive a single request.
	}
}

// serveUntilDone serves on ln until ctx is cancelled or the server fails,
// then shuts down gracefully within shutdownTimeout.
func serveUntilDone(ctx context.Context, httpServer *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal", "reason", context.Cause(ctx))
	case err := <-serveErr:
		if err != nil {
			slog.Error("Server error", "error", err)
			return fmt.Errorf("server error: %w", err)
		}
	}

	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	defaults := config.DefaultConfig().Server

	serveCmd.Flags().StringP("host", "H", defaults.Host, "server host")
	serveCmd.Flags().IntP("port", "p", defaults.Port, "server port")
	serveCmd.Flags().String("cors-origin", defaults.CORSOrigin, "CORS allowed origin")
	serveCmd.Flags().Int("max-upload-size", defaults.MaxUploadMB, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", defaults.TimeoutSec, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", defaults.ShutdownTimeout, "shutdown timeout in seconds")

	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", defaults.RateLimit.Enabled, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", defaults.RateLimit.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", defaults.RateLimit.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", defaults.RateLimit.MaxRequestsPerDay, "maximum requests per day per client (0 = unlimited)")
	serveCmd.Flags().Int("max-data-per-day-mb", defaults.RateLimit.MaxDataPerDayMB, "maximum upload data per day per client in MB (0 = unlimited)")
}
