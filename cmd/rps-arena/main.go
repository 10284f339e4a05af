package main

import (
	"context"
	"ctchen222/rps-arena/internal/api/controller"
	"ctchen222/rps-arena/internal/arena"
	"ctchen222/rps-arena/internal/config"
	"ctchen222/rps-arena/internal/db"
	"ctchen222/rps-arena/internal/events"
	"ctchen222/rps-arena/internal/feed"
	"ctchen222/rps-arena/internal/listener"
	"ctchen222/rps-arena/internal/logger"
	"ctchen222/rps-arena/internal/player"
	"ctchen222/rps-arena/internal/registry"
	"ctchen222/rps-arena/internal/server"
	"ctchen222/rps-arena/internal/telemetry"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	v       = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "rps-arena",
	Short: "Rock-paper-scissors arena for networked bots",
	Long: `rps-arena accepts bot connections over TCP and plays them against each
other on request. Operators drive it through the HTTP API; spectators can
follow along on the /events websocket or the Redis channel.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print arena events published on Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rdb, err := db.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rdb.Close()

		out := json.NewEncoder(cmd.OutOrStdout())
		return events.NewRedisPublisher(rdb, cfg.Redis.Channel).Subscribe(ctx, func(_ context.Context, e events.Event) {
			out.Encode(e)
		})
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("listen", listener.DefaultAddr, "address bots connect to")
	flags.String("admin", ":8080", "operator HTTP address, empty to disable")
	flags.String("redis", "", "Redis address for event publishing, empty to disable")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.Duration("timeout", player.DefaultTimeout, "per-operation bot timeout, 0 to disable")

	v.BindPFlag("listen.addr", flags.Lookup("listen"))
	v.BindPFlag("admin.addr", flags.Lookup("admin"))
	v.BindPFlag("redis.addr", flags.Lookup("redis"))
	v.BindPFlag("log.level", flags.Lookup("log-level"))
	v.BindPFlag("conn.timeout", flags.Lookup("timeout"))

	rootCmd.AddCommand(watchCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	shutdownOtel, err := telemetry.InitOtel(ctx, cfg.Telemetry, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()
	logger.Init(cfg.Log)

	spectators := feed.New()
	defer spectators.Close()
	publishers := events.Multi{spectators}

	if cfg.Redis.Addr != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer rdb.Close()
		publishers = append(publishers, events.NewRedisPublisher(rdb, cfg.Redis.Channel))
	}

	ready := make(chan *player.Player, cfg.Listen.QueueSize)
	messages := make(chan listener.Message, cfg.Listen.QueueSize)
	h, err := listener.Start(cfg.ListenerConfig(), ready, messages)
	if err != nil {
		return err
	}

	a := arena.New(registry.New(ready, messages),
		arena.WithListener(h),
		arena.WithPublisher(publishers),
	)
	arenaErr := make(chan error, 1)
	go func() { arenaErr <- a.Run(ctx) }()

	var httpServer *http.Server
	if cfg.Admin.Addr != "" {
		srv := server.NewServer(controller.NewArenaController(a), spectators)
		httpServer = &http.Server{
			Addr:    cfg.Admin.Addr,
			Handler: srv.Engine(),
		}
		go func() {
			slog.Info("http server started", "addr", cfg.Admin.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("ListenAndServe", "error", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("Shutting down server...")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}
	err = <-arenaErr
	slog.Info("Server exiting")
	return err
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

