// Command zynkd serves a zynk store over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/MikhailWahib/zynk"
	"github.com/MikhailWahib/zynk/internal/config"
	"github.com/MikhailWahib/zynk/internal/diskmanager"
	"github.com/MikhailWahib/zynk/internal/election"
	"github.com/MikhailWahib/zynk/internal/logx"
	"github.com/MikhailWahib/zynk/internal/node"
	"github.com/MikhailWahib/zynk/internal/server"
)

func main() {
	configPath := flag.String("config", "zynk.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "zynkd:", err)
		os.Exit(1)
	}

	logger, err := logx.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "zynkd:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("zynkd exited with error")
		os.Exit(1)
	}
}

// loadConfig reads the file at path and applies environment overrides.
func loadConfig(path string, getenv func(string) string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newElector(cfg *config.Config, logger zerolog.Logger) (election.Elector, error) {
	if len(cfg.Election.Servers) == 0 {
		logger.Info().Msg("no election servers configured, running as leader")
		return election.NewStatic(true), nil
	}
	return election.NewZKElector(cfg.Election, cfg.NodeID, logger)
}

// run serves until ctx is cancelled or a component fails, then closes the
// store so the last memtable is flushed.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (err error) {
	actorID, err := node.ActorID(diskmanager.NewDiskManager(), cfg.DataDir)
	if err != nil {
		return err
	}
	if cfg.NodeID == "" {
		cfg.NodeID = strconv.FormatUint(actorID, 10)
	}
	logger = logger.With().Str("node", cfg.NodeID).Logger()
	logger.Info().
		Uint64("actor_id", actorID).
		Str("data_dir", cfg.DataDir).
		Str("addr", cfg.Server.Addr()).
		Msg("zynkd starting")

	db, err := zynk.Open(cfg.DataDir, cfg, zynk.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
		}
		logger.Info().Msg("store closed")
	}()

	elector, err := newElector(cfg, logger)
	if err != nil {
		return err
	}
	srv := server.New(db, elector, cfg.Server, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return elector.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	return g.Wait()
}
