package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/internal/cli"
	"github.com/cwbudde/algo-modal/internal/logger"
	"github.com/cwbudde/algo-modal/provider"
)

func main() {
	configPath := flag.String("config", "", "Config YAML path (default ./modal.yaml if present)")
	addr := flag.String("addr", "127.0.0.1:5000", "Listen address")
	maxVertices := flag.Int("max-vertices", 3000, "Reject meshes with more referenced vertices")
	maxModes := flag.Int("max-modes", 256, "Keep at most this many modes per model")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cli.InitLogger(cfg, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error initialising logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening on %s: %v\n", *addr, err)
		os.Exit(1)
	}
	srv := newServer(provider.LocalOptions{MaxVertices: *maxVertices, MaxModes: *maxModes}, logger.Named("server"))
	if err := serve(ctx, srv, ln); err != nil {
		logger.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func newServer(opts provider.LocalOptions, log *zap.Logger) *http.Server {
	local := provider.NewLocal(opts, log.Named("local"))
	return &http.Server{
		Handler:           provider.NewHandler(provider.NewCache(local), log),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serve runs srv on ln until ctx is cancelled, then drains in-flight
// requests for up to five seconds.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	log := logger.Named("server")
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}
