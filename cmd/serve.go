package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"yapa-server/api"
	"yapa-server/config"
	"yapa-server/metrics"
	"yapa-server/rpc"
	"yapa-server/server"
	"yapa-server/static"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(opts *rootOptions) *cobra.Command {
	sc := &opts.server
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the animation over websocket, gRPC and HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := opts.newLogger(os.Stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *sc, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&sc.Addr, "addr", sc.Addr, "HTTP listen address")
	cmd.Flags().StringVar(&sc.GRPCAddr, "grpc-addr", sc.GRPCAddr, "gRPC listen address, empty to disable")
	cmd.Flags().StringVar(&sc.PublicURL, "public-url", sc.PublicURL, "Public base URL used in embed snippets")
	cmd.Flags().StringVar(&sc.StaticDir, "static-dir", sc.StaticDir, "Serve the browser client from this directory")
	cmd.Flags().DurationVar(&sc.FrameInterval, "frame-interval", sc.FrameInterval, "Frame broadcast interval")
	return cmd
}

// app is everything serve starts, built apart from the listeners.
type app struct {
	manager *server.ChannelManager
	status  *api.MetricsHandler
	handler http.Handler
	grpc    *grpc.Server
}

func newApp(sc config.ServerConfig, cfg *config.Config, logger *slog.Logger) (*app, error) {
	reg := metrics.NewRegistry()
	manager := server.NewChannelManager(cfg, sc.FrameInterval, logger, reg)
	ws := server.NewNetworkStateServer(manager, logger, checkOrigin(sc.CORSOrigins))
	status := api.NewMetricsHandler(manager)

	files, err := static.Handler(sc.StaticDir)
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}

	r := chi.NewRouter()
	r.Mount("/api", api.NewAPIRouter(api.Options{
		Manager:     manager,
		Metrics:     reg,
		Logger:      logger,
		PublicURL:   sc.PublicURL,
		CORSOrigins: sc.CORSOrigins,
		Status:      status,
	}))
	r.HandleFunc("/ws", ws.HandleConnections)
	r.Handle("/metrics", reg.Handler())
	r.Handle("/*", files)

	a := &app{manager: manager, status: status, handler: r}
	if sc.GRPCAddr != "" {
		a.grpc, _ = rpc.NewGRPCServer(rpc.NewFrameService(manager, logger), logger)
	}
	return a, nil
}

func serve(ctx context.Context, sc config.ServerConfig, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(sc, cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              sc.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: sc.ReadTimeout,
		// Websocket connections are hijacked, so WriteTimeout only bounds API calls.
		WriteTimeout: sc.WriteTimeout,
	}

	errs := make(chan error, 2)
	if a.grpc != nil {
		lis, err := net.Listen("tcp", sc.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", sc.GRPCAddr, err)
		}
		go func() {
			logger.Info("grpc server started", "addr", sc.GRPCAddr)
			if err := a.grpc.Serve(lis); err != nil {
				errs <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("http server started", "addr", sc.Addr, "public_url", sc.PublicURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errs:
		logger.Error("server failed", "error", err)
	}

	a.status.SetWebSocketStatus(api.WebSocketStopping)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", "error", serr)
	}
	if a.grpc == nil {
		a.manager.CloseAllChannels()
		return err
	}

	// Closing the channels ends the open gRPC streams.
	stopped := make(chan struct{})
	go func() {
		a.grpc.GracefulStop()
		close(stopped)
	}()
	a.manager.CloseAllChannels()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		a.grpc.Stop()
	}
	return err
}

// checkOrigin admits any origin when origins contains "*", otherwise only
// the listed ones and same-host requests without an Origin header.
func checkOrigin(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
