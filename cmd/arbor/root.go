package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor reconstructs and visualizes search-tree growth",
	Long: `Arbor replays the recorded growth of Monte Carlo search trees, maps the engine's
storage format to display trees and serves them over HTTP or MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format override (text, json)")
}

// loadConfig reads the config file and environment, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level, cfg.Log.Format), nil
}

// backend is an opened store plus the locker matching it.
type backend struct {
	store  ports.KeyValueStore
	locker ports.DistributedLocker
	close  func() error
}

// openBackend connects to Redis, or falls back to process memory when no
// address is configured.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("No Redis address configured, using in-memory store")
		return &backend{
			store:  memory.NewStore(),
			locker: memory.NewLocker(),
			close:  func() error { return nil },
		}, nil
	}

	store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Namespace))
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return &backend{
		store:  store,
		locker: redis.NewLocker(store.Client(), cfg.Redis.Namespace),
		close:  store.Close,
	}, nil
}

// app is the runtime shared by store-backed commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend *backend
	arbor   *arbor.Arbor
}

func newApp(cmd *cobra.Command, opts ...arbor.Option) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	be, err := openBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}

	base := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithLocker(be.locker),
		arbor.WithKeyPrefix(cfg.Redis.KeyPrefix),
		arbor.WithMatchesPath(cfg.Storage.MatchesPath),
		arbor.WithTreeCache(cfg.Cache.TreeKey, cfg.Cache.TreeTTL),
	}
	if cfg.Cache.EncryptionKey != "" {
		mw, err := encryptionMiddleware(cfg.Cache.EncryptionKey)
		if err != nil {
			be.close()
			return nil, err
		}
		base = append(base, arbor.WithTreeStoreMiddleware(mw))
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		backend: be,
		arbor:   arbor.New(be.store, append(base, opts...)...),
	}, nil
}

func encryptionMiddleware(encoded string) (middleware.Middleware, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cache encryption key: %w", err)
	}
	return middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
}

func (a *app) Close() {
	if err := a.backend.close(); err != nil {
		a.logger.Error("Failed to close store", "error", err)
	}
}
