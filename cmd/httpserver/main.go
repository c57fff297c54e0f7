package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/tairon-ai/phala-worker-registry/attestation"
	"github.com/tairon-ai/phala-worker-registry/common"
	"github.com/tairon-ai/phala-worker-registry/config"
	"github.com/tairon-ai/phala-worker-registry/discovery"
	"github.com/tairon-ai/phala-worker-registry/httpserver"
	"github.com/tairon-ai/phala-worker-registry/metrics"
	"github.com/tairon-ai/phala-worker-registry/probe"
	"github.com/tairon-ai/phala-worker-registry/registry"
	"github.com/urfave/cli/v2"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "config",
		Value: "",
		Usage: "path to YAML config file (flags override file values)",
	},
	&cli.StringFlag{
		Name:  "rpc-addr",
		Value: "",
		Usage: "address to connect to registry chain RPC",
	},
	&cli.StringFlag{
		Name:  "registry-contract",
		Value: "",
		Usage: "address of the on-chain worker registry contract",
	},
	&cli.StringFlag{
		Name:  "probe-url",
		Value: "",
		Usage: "base URL of the worker-status service",
	},
	&cli.StringFlag{
		Name:  "verifier-url",
		Value: "",
		Usage: "base URL of the attestation verification service",
	},
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:  "metrics-addr",
		Value: "",
		Usage: "address to listen on for Prometheus metrics, empty to disable",
	},
	&cli.DurationFlag{
		Name:  "cache-ttl",
		Value: 0,
		Usage: "worker identity set cache TTL",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: "phala-worker-registry",
		Usage: "add 'service' tag to logs",
	},
	&cli.BoolFlag{
		Name:  "pprof",
		Value: false,
		Usage: "enable pprof debug endpoint",
	},
	&cli.Int64Flag{
		Name:  "drain-seconds",
		Value: 45,
		Usage: "seconds to wait in drain HTTP request",
	},
}

func main() {
	app := &cli.App{
		Name:  "worker-registry-server",
		Usage: "Serve the TEE worker discovery and attestation API",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			logJSON := cCtx.Bool("log-json")
			logDebug := cCtx.Bool("log-debug")
			logUID := cCtx.Bool("log-uid")
			logService := cCtx.String("log-service")
			enablePprof := cCtx.Bool("pprof")
			drainDuration := time.Duration(cCtx.Int64("drain-seconds")) * time.Second

			logger := common.SetupLogger(&common.LoggingOpts{
				Debug:   logDebug,
				JSON:    logJSON,
				Service: logService,
				Version: common.Version,
			})

			if logUID {
				id := uuid.Must(uuid.NewRandom())
				logger = logger.With("uid", id.String())
			}

			cfg := config.Default()
			if path := cCtx.String("config"); path != "" {
				var err error
				cfg, err = config.Load(path)
				if err != nil {
					logger.Error("Failed to load config file", "err", err, "path", path)
					return err
				}
			}

			// Flags override file values when set.
			if v := cCtx.String("rpc-addr"); v != "" {
				cfg.Registry.RPCAddr = v
			}
			if v := cCtx.String("registry-contract"); v != "" {
				cfg.Registry.ContractAddress = v
			}
			if v := cCtx.String("probe-url"); v != "" {
				cfg.Probe.BaseURL = v
			}
			if v := cCtx.String("verifier-url"); v != "" {
				cfg.Attestation.VerifierURL = v
			}
			if v := cCtx.String("listen-addr"); v != "" {
				cfg.Server.ListenAddr = v
			}
			if cCtx.IsSet("metrics-addr") {
				cfg.Server.MetricsAddr = cCtx.String("metrics-addr")
			}
			if v := cCtx.Duration("cache-ttl"); v > 0 {
				cfg.Registry.CacheTTL = config.Duration(v)
			}

			if cfg.Registry.ContractAddress == "" {
				logger.Error("registry-contract is required")
				return errors.New("registry-contract is required")
			}
			if !ethcommon.IsHexAddress(cfg.Registry.ContractAddress) {
				logger.Error("Invalid registry contract address", "address", cfg.Registry.ContractAddress)
				return errors.New("invalid registry contract address")
			}
			if cfg.Probe.BaseURL == "" {
				logger.Error("probe-url is required")
				return errors.New("probe-url is required")
			}
			if cfg.Attestation.VerifierURL == "" {
				logger.Error("verifier-url is required")
				return errors.New("verifier-url is required")
			}

			logger.Info("Connecting to registry chain RPC", "address", cfg.Registry.RPCAddr)
			ethClient, err := ethclient.Dial(cfg.Registry.RPCAddr)
			if err != nil {
				logger.Error("Failed to dial RPC", "err", err)
				return err
			}

			registryClient, err := registry.NewOnchainRegistryClient(ethClient, ethcommon.HexToAddress(cfg.Registry.ContractAddress))
			if err != nil {
				logger.Error("Failed to create registry client", "err", err)
				return err
			}

			var m *metrics.Metrics
			if cfg.Server.MetricsAddr != "" {
				m = metrics.NewMetrics(common.PackageName)
			}

			cache := registry.NewWorkerSetCache(registryClient, cfg.Registry.CacheTTL.Std(), logger, m)
			probeClient := probe.NewClient(cfg.Probe.BaseURL,
				probe.WithInfoTimeout(cfg.Probe.InfoTimeout.Std()),
				probe.WithStateTimeout(cfg.Probe.StateTimeout.Std()),
			)

			enricher := discovery.NewEnricher(cache, probeClient, discovery.Config{
				OverFetchMultiplier: cfg.Discovery.OverFetchMultiplier,
				OverFetchCap:        cfg.Discovery.OverFetchCap,
			}, logger, m)

			verifier := &attestation.RemoteVerifier{
				Address: cfg.Attestation.VerifierURL,
				Timeout: cfg.Attestation.Timeout.Std(),
			}
			resolver := attestation.NewResolver(verifier, registryClient, logger, m)

			handler := httpserver.NewHandler(enricher, resolver, logger)

			server, err := httpserver.New(&httpserver.HTTPServerConfig{
				ListenAddr:               cfg.Server.ListenAddr,
				MetricsAddr:              cfg.Server.MetricsAddr,
				Log:                      logger,
				EnablePprof:              enablePprof,
				DrainDuration:            drainDuration,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
