package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/live-server/backend/internal/assets"
	"github.com/live-server/backend/internal/config"
	"github.com/live-server/backend/internal/frontend"
	"github.com/live-server/backend/internal/logger"
	"github.com/live-server/backend/internal/session"
	"github.com/live-server/backend/internal/watcher"
	"github.com/live-server/backend/internal/ws"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live-server [root]",
		Short: "Serve a directory and reload browser tabs when files change",
		Long: `live-server serves static files from a directory and injects a small
script into every HTML page. When anything under the directory changes,
every open tab is told to reload.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringP("config", "c", "", "Path to YAML config file")
	cmd.Flags().StringP("host", "H", "", "Host to bind (default 127.0.0.1)")
	cmd.Flags().IntP("port", "p", 0, "First port to try (default 8000)")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")

	return cmd
}

// resolveConfig loads the config file and applies explicitly set flags and
// the positional root on top of it.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	fs := cmd.Flags()
	configPath, _ := fs.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if fs.Changed("host") {
		cfg.Server.Host, _ = fs.GetString("host")
	}
	if fs.Changed("port") {
		cfg.Server.Port, _ = fs.GetInt("port")
	}
	if fs.Changed("log-level") {
		cfg.Log.Level, _ = fs.GetString("log-level")
	}
	if len(args) == 1 {
		cfg.Watch.Root = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logg, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logg.Sync()
	zap.ReplaceGlobals(logg)

	w, err := watcher.New(cfg.Watch.Root, watcher.Options{
		Window: cfg.Watch.Debounce,
		Ignore: cfg.Watch.Ignore,
	}, logg)
	if err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	logg.Info("Watching " + w.Root())

	ln, port, err := ws.Listen(cfg.Server.Host, cfg.Server.Port, logg)
	if err != nil {
		return err
	}

	registry := session.NewRegistry()
	broadcaster := ws.NewBroadcaster(registry, logg)
	server := ws.NewServer(registry, assets.DirReader{Root: w.Root()}, frontend.Snippet(cfg.Server.Host, port), logg)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)
	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go w.Run(ctx)
	go broadcaster.Run(ctx, w.Events())

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	logg.Info(fmt.Sprintf("Listening on http://%s/", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logg.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
