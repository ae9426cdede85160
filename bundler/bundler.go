// Package bundler wires the core subsystems into a runnable service: the
// user-operation mempool with its nonce reconciler, the gas-price manager
// with its refresh loop, and the executor wallet arbiter.
package bundler

import (
	"context"
	"fmt"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/octanelabs/bolt/core/chainio/entrypoint"
	"github.com/octanelabs/bolt/core/config"
	"github.com/octanelabs/bolt/core/gasprice"
	"github.com/octanelabs/bolt/core/mempool"
	"github.com/octanelabs/bolt/core/sender"
	"github.com/octanelabs/bolt/metrics"
	"github.com/octanelabs/bolt/pkg/liststore"
	"github.com/octanelabs/bolt/pkg/logger"
	"github.com/octanelabs/bolt/storage"
)

// reconcileInterval paces the mempool's nonce reconciliation. One EntryPoint
// multicall per tick, regardless of mempool size.
const reconcileInterval = 2 * time.Second

type Bundler struct {
	config *config.Config
	logger logger.Logger

	mempool     *mempool.Mempool
	gasPrice    *gasprice.Manager
	senders     sender.Manager
	nonceReader *entrypoint.Caller

	registry *prometheus.Registry
	metrics  *metrics.BundlerMetrics

	db         storage.Storage
	redis      *liststore.RedisList
	scheduler  gocron.Scheduler
	httpServer *echo.Echo
}

// RunWithConfig boots a bundler from a config file and blocks until the
// context ends.
func RunWithConfig(ctx context.Context, configPath string) error {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config %s: %w", configPath, err)
	}

	b, err := New(cfg)
	if err != nil {
		return fmt.Errorf("cannot initialize bundler: %w", err)
	}

	return b.Start(ctx)
}

func New(cfg *config.Config) (*Bundler, error) {
	registry := prometheus.NewRegistry()
	m := metrics.NewBundlerMetrics(registry)

	b := &Bundler{
		config:   cfg,
		logger:   cfg.Logger,
		registry: registry,
		metrics:  m,
	}

	b.mempool = mempool.New(cfg.Logger, m)
	b.nonceReader = entrypoint.NewCaller(cfg.EthClient)

	gasManager, err := gasprice.New(newChainReader(cfg.EthClient), gasprice.Options{
		ChainID:            cfg.ChainID,
		ChainType:          cfg.ChainType,
		LegacyTransactions: cfg.LegacyTransactions,

		GasPriceBump:    cfg.GasPriceBump,
		GasPriceExpiry:  cfg.GasPriceExpiry,
		RefreshInterval: cfg.GasPriceRefreshInterval,

		GasStationURL: cfg.PolygonGasStationUrl,
	}, cfg.Logger, m)
	if err != nil {
		return nil, err
	}
	b.gasPrice = gasManager

	if err := b.buildSenderManager(); err != nil {
		return nil, err
	}

	return b, nil
}

// buildSenderManager picks the wallet-queue backend: local in-memory pool,
// redis queue shared across hosts, or a badger-backed queue shared between
// workers on one host.
func (b *Bundler) buildSenderManager() error {
	accounts, err := sender.NewAccounts(b.config.ExecutorPrivateKeys, b.config.MaxExecutors)
	if err != nil {
		return fmt.Errorf("cannot derive executor accounts: %w", err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no executor accounts configured")
	}

	if b.config.WalletQueueMode != "shared" {
		b.senders = sender.NewLocal(accounts, b.logger, b.metrics)
		return nil
	}

	var list liststore.List
	if b.config.RedisQueueEndpoint != "" {
		redis, err := liststore.NewRedis(b.config.RedisQueueEndpoint)
		if err != nil {
			return fmt.Errorf("cannot connect wallet queue redis: %w", err)
		}
		b.redis = redis
		list = redis
	} else {
		dbPath := b.config.DbPath
		if dbPath == "" {
			return fmt.Errorf("shared wallet queue without redis needs db_path")
		}
		db, err := storage.NewWithPath(dbPath)
		if err != nil {
			return fmt.Errorf("cannot open wallet queue store: %w", err)
		}
		b.db = db
		list = liststore.NewBadger(db)
	}

	shared, err := sender.NewShared(context.Background(), accounts, list, b.logger, b.metrics)
	if err != nil {
		return err
	}
	b.senders = shared
	return nil
}

// Mempool, GasPrice and Senders expose the subsystems to the bundling
// driver and the RPC front end.
func (b *Bundler) Mempool() *mempool.Mempool       { return b.mempool }
func (b *Bundler) GasPrice() *gasprice.Manager     { return b.gasPrice }
func (b *Bundler) Senders() sender.Manager         { return b.senders }
func (b *Bundler) NonceReader() *entrypoint.Caller { return b.nonceReader }

// Start launches the refresh loops and the ops server, then blocks until the
// context is done.
func (b *Bundler) Start(ctx context.Context) error {
	if err := b.gasPrice.Start(); err != nil {
		return fmt.Errorf("cannot start gas price refresher: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(reconcileInterval),
		gocron.NewTask(func() {
			tickCtx, cancel := context.WithTimeout(ctx, reconcileInterval)
			defer cancel()

			err := b.mempool.UpdateAvailableUserOperations(tickCtx, b.nonceReader, b.config.EntryPointAddress)
			if err != nil {
				b.logger.Errorf("nonce reconciliation failed: %v", err)
			}
		}),
	)
	if err != nil {
		return err
	}
	b.scheduler = scheduler
	scheduler.Start()

	b.startHttpServer(ctx)

	b.logger.Infof("bundler core started on chain %s, %d executor wallets",
		b.config.ChainID, len(b.senders.GetAllWallets()))

	<-ctx.Done()
	return b.Stop()
}

func (b *Bundler) Stop() error {
	b.logger.Info("shutting down bundler core")

	if b.scheduler != nil {
		if err := b.scheduler.Shutdown(); err != nil {
			b.logger.Errorf("reconciliation scheduler shutdown: %v", err)
		}
	}
	if err := b.gasPrice.Stop(); err != nil {
		b.logger.Errorf("gas price refresher shutdown: %v", err)
	}
	if b.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.httpServer.Shutdown(shutdownCtx); err != nil {
			b.logger.Errorf("ops HTTP server shutdown: %v", err)
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.Errorf("wallet queue redis close: %v", err)
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			b.logger.Errorf("wallet queue store close: %v", err)
		}
	}

	return nil
}
