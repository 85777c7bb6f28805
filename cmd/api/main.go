package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/holdergate/holdergate/internal/challenge"
	"github.com/holdergate/holdergate/internal/config"
	"github.com/holdergate/holdergate/internal/directory"
	"github.com/holdergate/holdergate/internal/infra"
	"github.com/holdergate/holdergate/internal/ledger"
	"github.com/holdergate/holdergate/internal/logging"
	"github.com/holdergate/holdergate/internal/notification"
	"github.com/holdergate/holdergate/internal/routes"
	"github.com/holdergate/holdergate/internal/rule"
	"github.com/holdergate/holdergate/internal/server"
	"github.com/holdergate/holdergate/internal/synchronizer"
	"github.com/holdergate/holdergate/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting", "app", cfg.AppName, "env", cfg.AppEnv)

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		logger.Error("load rules", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	session, err := infra.NewDiscordSession(cfg.DiscordToken)
	if err != nil {
		logger.Error("connect discord", "error", err)
		os.Exit(1)
	}

	ethClient, err := infra.NewEthClient(ctx, cfg.EthRPCURL)
	if err != nil {
		logger.Error("connect ethereum rpc", "error", err)
		os.Exit(1)
	}
	defer ethClient.Close()

	dir, err := directory.NewDiscordDirectory(session, cfg.DiscordGuildID, cfg.DirectoryTimeout)
	if err != nil {
		logger.Error("build directory client", "error", err)
		os.Exit(1)
	}

	userRepo := user.NewPostgresRepository(db)
	notifier := notification.NewLoggerNotifier(logger)

	registry, err := rule.BuildRegistry(rules, rule.Deps{
		NewReader: func(contract string) (ledger.Reader, error) {
			return ledger.NewEthReader(ethClient, contract, cfg.LedgerTimeout)
		},
		Directory:  dir,
		Notifier:   notifier,
		Logger:     logging.Component(logger, "rule"),
		FetchLimit: cfg.SweepConcurrency,
	})
	if err != nil {
		logger.Error("build rules", "error", err)
		os.Exit(1)
	}

	sync := synchronizer.New(userRepo, registry, notifier,
		logging.Component(logger, "synchronizer"), cfg.SweepInterval, cfg.SweepConcurrency)

	challengeStore, err := challenge.NewRedisStore(cache, cfg.ChallengeTTL)
	if err != nil {
		logger.Error("build challenge store", "error", err)
		os.Exit(1)
	}
	challengeSvc := challenge.NewService(challengeStore, cfg, logging.Component(logger, "challenge"))

	srv, err := server.New(routes.Deps{
		Cfg:        cfg,
		DB:         db,
		Cache:      cache,
		Logger:     logger,
		Challenges: challengeSvc,
		Users:      userRepo,
		Sync:       sync,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	if err := sync.Start(); err != nil {
		logger.Error("start synchronizer", "error", err)
		os.Exit(1)
	}
	if cfg.SyncOnStartup {
		logger.Info("synchronize on startup enabled, executing first synchronization cycle immediately")
		go func() {
			if err := sync.Sweep(context.Background()); err != nil {
				logger.Error("startup sweep failed", "error", err)
			}
		}()
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := sync.Stop(shutdownCtx); err != nil {
		logger.Warn("synchronizer stop", "error", err)
	}
	if err := session.Close(); err != nil {
		logger.Warn("close discord session", "error", err)
	}

	logger.Info("server exited cleanly")
}
