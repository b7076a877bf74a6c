package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/storagecost/app/services/storagecost/handlers"
	"github.com/ardanlabs/storagecost/business/core/display"
	"github.com/ardanlabs/storagecost/business/core/publish"
	"github.com/ardanlabs/storagecost/business/core/readback"
	"github.com/ardanlabs/storagecost/business/sys/contract"
	"github.com/ardanlabs/storagecost/business/sys/metrics"
	"github.com/ardanlabs/storagecost/foundation/events"
	"github.com/ardanlabs/storagecost/foundation/keystore"
	"github.com/ardanlabs/storagecost/foundation/logger"
	"github.com/ardanlabs/storagecost/foundation/telemetry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("STORAGECOST")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// A .env file in the working directory provides local overrides. Values
	// already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			CORSOrigin      string        `conf:"default:*"`
		}
		Chain struct {
			RPCURL          string `conf:"default:http://127.0.0.1:8545,mask"`
			ContractAddress string `conf:"required"`
			ChainID         int64  `conf:"default:0"`
		}
		Keys struct {
			Folder string `conf:"default:zblock/accounts/"`
			Signer string `conf:"default:deployer"`
		}
		Publish struct {
			Timeout time.Duration `conf:"default:2m"`
		}
		ReadBack struct {
			Interval time.Duration `conf:"default:4s"`
			Timeout  time.Duration `conf:"default:5s"`
		}
		Tracing struct {
			ReporterURI string
			ServiceName string  `conf:"default:storagecost"`
			Probability float64 `conf:"default:0.05"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "publish data on chain and compare the cost of each storage strategy",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "STORAGECOST"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if !common.IsHexAddress(cfg.Chain.ContractAddress) {
		return fmt.Errorf("contract address %q is not a hex address", cfg.Chain.ContractAddress)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Tracing Support

	log.Infow("startup", "status", "initializing tracing support", "reporter", cfg.Tracing.ReporterURI)

	tp, stopTracing, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		ReporterURI: cfg.Tracing.ReporterURI,
		Probability: cfg.Tracing.Probability,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopTracing(ctx)
	}()

	tracer := tp.Tracer("storagecost")

	// =========================================================================
	// Key Store Support

	// The names come from the file names in the keys folder.
	ks, err := keystore.New(cfg.Keys.Folder)
	if err != nil {
		return fmt.Errorf("unable to load key store: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for account, name := range ks.Copy() {
		log.Infow("startup", "status", "keystore", "name", name, "account", account)
	}

	privateKey, err := ks.Key(cfg.Keys.Signer)
	if err != nil {
		return fmt.Errorf("unable to load signer key: %w", err)
	}

	// =========================================================================
	// Chain Support

	log.Infow("startup", "status", "connecting to node")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("dialing node: %w", err)
	}
	defer client.Close()

	chainID := big.NewInt(cfg.Chain.ChainID)
	if cfg.Chain.ChainID == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("retrieving chain id: %w", err)
		}
	}

	sc, err := contract.New(contract.Config{
		Address: common.HexToAddress(cfg.Chain.ContractAddress),
		Backend: client,
		Key:     privateKey,
		ChainID: chainID,
	})
	if err != nil {
		return fmt.Errorf("binding contract: %w", err)
	}

	signer := crypto.PubkeyToAddress(privateKey.PublicKey)
	log.Infow("startup", "status", "contract bound", "contract", sc.Address(), "chainid", chainID, "signer", ks.Lookup(signer))

	// =========================================================================
	// Display Support

	// Every rendered view is sent to any websocket client that is connected
	// into the system through the events package.
	evts := events.New()
	render := func(v display.View) {
		msg, err := json.Marshal(v)
		if err != nil {
			log.Errorw("display", "status", "marshal view", "ERROR", err)
			return
		}
		evts.Send(msg)
	}

	store := display.New(log, render)
	defer store.Shutdown()

	poller := readback.Run(readback.Config{
		Log:      log,
		Reader:   sc,
		Store:    store,
		Interval: cfg.ReadBack.Interval,
		Timeout:  cfg.ReadBack.Timeout,
		OnRead: func(source display.Source, err error) {
			metrics.AddRead(source.String(), err == nil)
		},
	})
	defer poller.Shutdown()

	pub := publish.New(publish.Config{
		Log:      log,
		Contract: sc,
		Store:    store,
		Timeout:  cfg.Publish.Timeout,
		Tracer:   tracer,
		OnSettled: func(strategy publish.Strategy, outcome publish.Outcome) {
			metrics.AddPublish(string(strategy), string(outcome.Status))
			if outcome.Status == publish.StatusConfirmed || outcome.Status == publish.StatusDecodeFailed {
				poller.Signal()
			}
		},
	})
	defer pub.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, client)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux, err := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		Tracer:     tracer,
		CORSOrigin: cfg.Web.CORSOrigin,
		Contract:   sc.Address().Hex(),
		Account:    signer.Hex(),
		Store:      store,
		Publisher:  pub,
		Poller:     poller,
		Evts:       evts,
	})
	if err != nil {
		return fmt.Errorf("constructing public mux: %w", err)
	}

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
