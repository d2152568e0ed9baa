package cmd

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/config"
	"github.com/MeKo-Tech/checkcode/internal/server"
)

func TestServeCommand(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Contains(t, serveCmd.Long, "/ws/scan")

	defaults := config.DefaultConfig().Server
	port, err := serveCmd.Flags().GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, defaults.Port, port)
	assert.Equal(t, "H", serveCmd.Flags().Lookup("host").Shorthand)
}

func TestServerConfigFromFlags(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	cfg := config.DefaultConfig()
	cfg.Server.Host = "10.0.0.1"
	cfg.Server.RateLimit.RequestsPerMinute = 30

	sc := serverConfigFromFlags(&cfg, serveCmd)
	assert.Equal(t, cfg.Server, sc)

	require.NoError(t, serveCmd.ParseFlags([]string{
		"-p", "9090", "--cors-origin", "https://app.example",
		"--rate-limit-enabled", "--max-data-per-day-mb", "50", "--timeout", "7",
	}))
	sc = serverConfigFromFlags(&cfg, serveCmd)
	assert.Equal(t, "10.0.0.1", sc.Host)
	assert.Equal(t, 9090, sc.Port)
	assert.Equal(t, "https://app.example", sc.CORSOrigin)
	assert.Equal(t, 7, sc.TimeoutSec)
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, 30, sc.RateLimit.RequestsPerMinute)
	assert.Equal(t, 50, sc.RateLimit.MaxDataPerDayMB)
}

func TestNewHTTPServer(t *testing.T) {
	srv := newHTTPServer(http.NotFoundHandler(), 10)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 20*time.Second, srv.IdleTimeout)
	assert.Zero(t, srv.WriteTimeout)
}

func TestServeUntilDone(t *testing.T) {
	cfg := config.DefaultConfig()
	svc, closeFn, err := openService(t.Context(), &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { closeQuietly(closeFn) })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	httpServer := newHTTPServer(server.NewServer(cfg.ToServerConfig(), svc).Handler(), 5)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, httpServer, ln, 2*time.Second) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:gosec,noctx // local test server
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_InvalidPort(t *testing.T) {
	_, reg := workspace(t)
	_, _, err := execute(t, args(reg, "serve", "--port", "70000")...)
	assert.ErrorContains(t, err, "invalid server port")
}
