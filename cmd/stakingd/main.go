package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tierstake/cmd/internal/ledgerdb"
	"tierstake/config"
	"tierstake/core"
	"tierstake/observability/logging"
	telemetry "tierstake/observability/otel"
	"tierstake/rpc"
)

const serviceName = "stakingd"

var version = "dev"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file (TOML or YAML)")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "stakingd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(os.Getenv("TIERSTAKE_ENV"))
	if env == "" {
		env = cfg.Env
	}
	logger, logCloser := logging.SetupWithFile(serviceName, env, logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    env,
		Network:        cfg.NetworkName,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := ledgerdb.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := core.NewNode(db, logger)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	if err := applyGenesis(node, cfg.Genesis); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}

	server, err := rpc.NewServer(node, serverConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("create rpc server: %w", err)
	}

	logger.Info("stakingd starting",
		slog.String("version", version),
		slog.String("network", cfg.NetworkName),
		slog.String("backend", cfg.Backend),
		slog.String("database", logging.MaskDSN(cfg.DatabaseURL)),
		slog.String("rpc_address", cfg.RPCAddress),
		slog.Bool("auth_enabled", cfg.Auth.Enabled))

	if err := server.Serve(ctx, cfg.RPCAddress); err != nil {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("stakingd stopped")
	return nil
}

func serverConfig(cfg *config.Config) rpc.ServerConfig {
	return rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.ResolveHMACSecret(),
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  time.Duration(cfg.Auth.ClockSkewSecs) * time.Second,
		},
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		ReadHeaderTimeout: seconds(cfg.RPCReadHeaderTimeout),
		ReadTimeout:       seconds(cfg.RPCReadTimeout),
		WriteTimeout:      seconds(cfg.RPCWriteTimeout),
		IdleTimeout:       seconds(cfg.RPCIdleTimeout),
	}
}

func seconds(v int) time.Duration { return time.Duration(v) * time.Second }

func applyGenesis(node *core.Node, genesis config.Genesis) error {
	parsed, err := genesis.Parse()
	if err != nil {
		return err
	}
	if !parsed.HasMint || len(parsed.Allocations) == 0 {
		return nil
	}
	allocs := make([]core.GenesisAllocation, 0, len(parsed.Allocations))
	for _, alloc := range parsed.Allocations {
		allocs = append(allocs, core.GenesisAllocation{Owner: alloc.Owner, Amount: alloc.Amount})
	}
	_, err = node.ApplyGenesis(parsed.Mint, allocs)
	return err
}
