package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"justfriends/config"
	"justfriends/core"
	"justfriends/core/events"
	"justfriends/indexer"
	"justfriends/observability/logging"
	"justfriends/observability/otel"
	"justfriends/rpc"
	"justfriends/storage"
)

const (
	serviceName     = "justfriendsd"
	environmentEnv  = "JF_ENV"
	shutdownTimeout = 10 * time.Second

	eventStreamBuffer = 256
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, nil); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

// run starts the node and serves RPC until ctx is cancelled. ready, when
// non-nil, receives the bound listen address.
func run(ctx context.Context, args []string, stdout io.Writer, ready chan<- string) error {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configFile := fs.String("config", "./config.toml", "Path to the configuration file (.toml, .yaml or .yml)")
	rpcAddr := fs.String("rpc-addr", "", "Override the configured RPC listen address")
	dataDir := fs.String("data-dir", "", "Override the configured data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(*rpcAddr) != "" {
		cfg.RPCAddress = *rpcAddr
	}
	if strings.TrimSpace(*dataDir) != "" {
		cfg.DataDir = *dataDir
	}
	if env := strings.TrimSpace(os.Getenv(environmentEnv)); env != "" {
		cfg.Environment = env
	}

	logOut := stdout
	if path := strings.TrimSpace(cfg.LogFile); path != "" {
		file, err := logging.FileWriter(path)
		if err != nil {
			return err
		}
		defer file.Close()
		logOut = io.MultiWriter(stdout, file)
	}
	logger := logging.SetupWriter(logOut, serviceName, cfg.Environment, cfg.LogLevel)

	shutdownTelemetry, err := otel.Init(ctx, cfg.OTel(serviceName))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	params, err := cfg.Market.Params()
	if err != nil {
		return err
	}
	balances, err := cfg.GenesisBalances()
	if err != nil {
		return err
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := core.NewNode(db, params)
	if err != nil {
		return err
	}
	node.SetLogger(logger)
	applied, err := node.ApplyGenesis(ctx, balances)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	logger.Info("node ready",
		slog.String("dataDir", cfg.DataDir),
		slog.Bool("genesisApplied", applied),
		slog.Uint64("epochLength", params.Epochs.Length))

	secret, err := cfg.Auth.Secret()
	if err != nil {
		return err
	}
	server := rpc.NewServer(node, logger, rpc.ServerConfig{
		RatePerSecond:  cfg.RPCRatePerSecond,
		Burst:          cfg.RPCBurst,
		AllowedOrigins: cfg.RPCAllowedOrigins,
		Auth: rpc.AuthConfig{
			HMACSecret: secret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.ClockSkew(),
		},
	})
	hub := events.NewHub(eventStreamBuffer)
	server.SetEventHub(hub)
	emitters := events.Multi{hub}
	if dsn := cfg.EventIndexDSN(); dsn != "" {
		store, err := indexer.Open(dsn)
		if err != nil {
			return fmt.Errorf("open event index: %w", err)
		}
		defer store.Close()
		store.SetLogger(logger)
		server.SetEventIndex(store)
		emitters = append(emitters, store)
	}
	node.SetEmitter(emitters)
	httpServer := &http.Server{
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.RPCReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.RPCWriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.RPCIdleTimeout) * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("serving JSON-RPC", slog.String("address", listener.Addr().String()))
	if ready != nil {
		ready <- listener.Addr().String()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("node stopped")
	return nil
}
