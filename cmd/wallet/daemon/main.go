package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/internal/backend"
	"github.com/goodnatureofminers/icwallet/internal/balance"
	"github.com/goodnatureofminers/icwallet/internal/bridge"
	"github.com/goodnatureofminers/icwallet/internal/cache"
	"github.com/goodnatureofminers/icwallet/internal/config"
	"github.com/goodnatureofminers/icwallet/internal/history"
	"github.com/goodnatureofminers/icwallet/internal/history/clickhouse"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/ledger"
	"github.com/goodnatureofminers/icwallet/internal/metrics"
	"github.com/goodnatureofminers/icwallet/internal/rates"
	"github.com/goodnatureofminers/icwallet/internal/session"
	"github.com/goodnatureofminers/icwallet/internal/transfer"
	"github.com/goodnatureofminers/icwallet/internal/transport"
	"github.com/goodnatureofminers/icwallet/pkg/batcher"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	Config      string        `long:"config" env:"ICWALLET_CONFIG" description:"path to the wallet YAML config" default:"config.yaml"`
	Addr        string        `long:"addr" env:"ICWALLET_ADDR" description:"HTTP listen address" default:":8080"`
	WarmWorkers int           `long:"warm-workers" env:"ICWALLET_WARM_WORKERS" description:"parallel ledger metadata reads at startup" default:"4"`
	StopTimeout time.Duration `long:"stop-timeout" env:"ICWALLET_STOP_TIMEOUT" description:"graceful shutdown timeout" default:"10s"`
}

func main() {
	opts := options{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&opts, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", opts.Config), zap.Error(err))
	}

	if err := run(ctx, opts, cfg, logger); err != nil {
		logger.Fatal("wallet daemon failed", zap.Error(err))
	}
}

func run(ctx context.Context, opts options, cfg *config.Config, logger *zap.Logger) error {
	rpc, err := newGatewayRPC(cfg.Gateway)
	if err != nil {
		return fmt.Errorf("init gateway rpc client: %w", err)
	}
	defer func() {
		rpc.Shutdown()
		rpc.WaitForShutdown()
	}()
	caller := agent.NewObservedCaller(agent.NewGatewayClient(rpc, logger), metrics.NewAgentClient())

	clients := make([]*ledger.Client, 0, len(cfg.Ledgers))
	for _, l := range cfg.Ledgers {
		clients = append(clients, ledger.NewClient(caller, ledger.Config{Asset: l.Asset, Canister: l.Canister}, metrics.NewLedgerClient(l.Asset), logger))
	}
	registry, err := ledger.NewRegistry(clients...)
	if err != nil {
		return fmt.Errorf("init ledgers: %w", err)
	}
	if err := registry.Warm(ctx, opts.WarmWorkers); err != nil {
		logger.Warn("ledger metadata warmup incomplete", zap.Error(err))
	}

	sess := session.New(logger)
	token := sess.SignIn(identity.Static(cfg.Identity))
	defer sess.SignOut()
	self := token.Principal()

	backendClient := backend.NewClient(caller, cfg.Backend, logger)

	ratesMetrics := metrics.NewRatesSource()
	rateCache := rates.NewCache(
		rates.NewTickSource(backendClient, cfg.Rates.Fixed),
		rates.CacheConfig{MaxAge: cfg.Rates.MaxAge, MaxStale: cfg.Rates.MaxStale},
		ratesMetrics,
		logger,
	)
	balanceMetrics := metrics.NewBalanceAggregator()
	tracker := balance.NewTracker(
		balance.NewAggregator(registry, balanceMetrics, logger),
		sess,
		agedRates{cache: rateCache, metrics: ratesMetrics},
		balanceMetrics,
		logger,
	)

	store, closeStore, err := newAddressStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStore()
	bridgeMetrics := metrics.NewBridgeClient(cfg.Network)
	bridgeClient, err := bridge.NewClient(caller, bridge.Config{
		Canister:      cfg.Bridge.Canister,
		Network:       cfg.Network,
		Enabled:       cfg.Bridge.Enabled,
		Self:          self,
		InfoTTL:       cfg.Bridge.InfoTTL,
		CheckInterval: cfg.Bridge.CheckInterval,
	}, store, bridgeMetrics, logger)
	if err != nil {
		return fmt.Errorf("init bitcoin bridge: %w", err)
	}
	watchCtx, stopWatching := context.WithCancel(ctx)
	withdrawals := bridge.NewWithdrawalTracker(watchCtx,
		bridge.NewWithdrawalPoller(bridgeClient, cfg.Bridge.WithdrawalPollInterval, bridgeMetrics, logger), logger)
	defer withdrawals.Wait()
	defer stopWatching()

	services := transport.Services{
		Session:     sess,
		Balances:    tracker,
		Bridge:      bridgeClient,
		Backend:     backendClient,
		Withdrawals: withdrawals,
	}
	var archiver history.Archiver
	if cfg.Archive.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(cfg.Archive.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("init archive repository: %w", err)
		}
		defer repo.Close()
		archive := history.NewArchive(repo, batcher.Config{
			FlushSize:     cfg.Archive.FlushSize,
			FlushInterval: cfg.Archive.FlushInterval,
		}, logger)
		archive.Start(ctx)
		defer archive.Stop()
		archiver, services.Archive = archive, archive
	}
	services.Sender = transfer.NewOrchestrator(
		registry,
		bridgeClient,
		history.NewMirror(backendClient, archiver, logger),
		sess,
		metrics.NewTransferOrchestrator(),
		logger,
	)

	mux := http.NewServeMux()
	mux.Handle("/", transport.NewWalletHandler(services, logger).Routes())
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rateCache.Run(gctx, cfg.Rates.RefreshInterval)
	})
	g.Go(func() error {
		return tracker.Run(gctx, cfg.Balances.RefreshInterval)
	})
	if bridgeClient.Enabled() {
		poller := bridge.NewDepositPoller(bridgeClient, cfg.Bridge.CheckInterval, logger)
		g.Go(func() error {
			return poller.Run(gctx, &self, nil, func(s bridge.DepositStatus) {
				if s.HasPendingDeposits {
					logger.Info("bitcoin deposits pending", zap.Int("outputs", s.Pending()))
				}
			})
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.StopTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", opts.Addr), zap.String("principal", self.String()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// agedRates publishes the age of every table handed to the balance tracker.
type agedRates struct {
	cache   *rates.Cache
	metrics *metrics.RatesSource
}

func (a agedRates) Get(ctx context.Context) (rates.Table, error) {
	table, err := a.cache.Get(ctx)
	if err == nil {
		a.metrics.SetAge(table.FetchedAt)
	}
	return table, err
}

func newAddressStore(ctx context.Context, cfg config.Cache) (bridge.AddressStore, func(), error) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(), func() {}, nil
	}
	r, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("init redis address cache: %w", err)
	}
	return r, func() { _ = r.Close() }, nil
}

func newGatewayRPC(cfg config.Gateway) (*rpcclient.Client, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("gateway url scheme %q not supported, use http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("gateway url missing host")
	}

	return rpcclient.New(&rpcclient.ConnConfig{
		Host:         parsed.Host + parsed.Path,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   parsed.Scheme == "http",
	}, nil)
}
