package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tessera-ledger/go-client/internal/adapters/rpc"
	"tessera-ledger/go-client/internal/config"
	"tessera-ledger/go-client/internal/ledger"
	"tessera-ledger/go-client/internal/metrics"
	"tessera-ledger/go-client/internal/platform/redact"
	"tessera-ledger/go-client/internal/registry"
	"tessera-ledger/go-client/internal/sequence"
	"tessera-ledger/go-client/internal/service"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	rpcAddr := flag.String("rpc-addr", "", "JSON-RPC listen address (overrides config)")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	nodeURL := flag.String("node-url", "", "Ledger node base URL (overrides config)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("seqd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	logger := slog.New(redact.Wrap(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Error("seqd failed to load configuration", "error", err.Error())
		os.Exit(1)
	}
	if *rpcAddr != "" {
		cfg.RPC.Addr = *rpcAddr
	}
	if *nodeURL != "" {
		cfg.Node.URL = *nodeURL
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("seqd configuration invalid", "error", err.Error())
		os.Exit(1)
	}

	client, err := ledger.NewClient(ledger.Config{
		BaseURL:        cfg.Node.URL,
		RequestTimeout: cfg.Node.RequestTimeout,
		FetchAttempts:  cfg.Node.FetchAttempts,
		FetchRPS:       cfg.Node.FetchRPS,
		FetchBurst:     cfg.Node.FetchBurst,
	}, logger)
	if err != nil {
		logger.Error("seqd failed to build node client", "error", err.Error())
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	set := metrics.New(promRegistry)

	allocators := registry.New(func(address string) (*sequence.Allocator, error) {
		return sequence.New(address, sequence.Config{
			MaxInFlight:  cfg.Sequence.MaxInFlight,
			PollInterval: cfg.Sequence.PollInterval,
			MaxWait:      cfg.Sequence.MaxWait,
		}, client, logger, set)
	})

	svc := service.New(allocators, logger)
	srv := rpc.NewServer(svc, rpc.Options{
		Addr:           cfg.RPC.Addr,
		Token:          cfg.RPC.Token,
		RateLimitRPS:   cfg.RPC.RateLimitRPS,
		RateLimitBurst: cfg.RPC.RateLimitBurst,
		MetricsHandler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		Logger:         logger,
	})

	logger.Info("seqd starting", "rpc_addr", cfg.RPC.Addr, "node_url", cfg.Node.URL, "version", version)
	if err := srv.Run(ctx); err != nil {
		logger.Error("seqd failed", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("seqd stopped")
}
