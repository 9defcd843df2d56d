// Package main provides the swapengine daemon - a minimal cross-chain
// atomic-swap node that funds, watches, and redeems/refunds HTLCs against a
// UTXO-family chain and an account-model chain over a trusted relay.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atomicswap/htlcengine/internal/appconfig"
	"github.com/atomicswap/htlcengine/internal/backend"
	"github.com/atomicswap/htlcengine/internal/chain"
	"github.com/atomicswap/htlcengine/internal/config"
	"github.com/atomicswap/htlcengine/internal/contracts/htlc"
	"github.com/atomicswap/htlcengine/internal/nonce"
	"github.com/atomicswap/htlcengine/internal/persistence"
	"github.com/atomicswap/htlcengine/internal/relay"
	"github.com/atomicswap/htlcengine/internal/swapfsm"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.swapengine", "Data directory")
		testnet     = flag.Bool("testnet", false, "Run on testnet")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("swapengine %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	effectiveDataDir := *dataDir
	if *testnet {
		effectiveDataDir = filepath.Join(*dataDir, "testnet")
	}

	cfg, err := appconfig.LoadConfig(effectiveDataDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *testnet {
		cfg.NetworkType = appconfig.NetworkTestnet
	}

	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Info("config loaded", "path", filepath.Join(effectiveDataDir, appconfig.ConfigFileName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.Open(persistence.Config{Path: cfg.DatabasePath(effectiveDataDir)}, cfg.Swap)
	if err != nil {
		log.Fatal("failed to open store", "error", err)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DatabasePath(effectiveDataDir))

	engine := swapfsm.NewEngine(store)
	defer engine.Close()

	engine.OnEvent(func(ev swapfsm.Event) {
		log.Component("swapfsm").Info("swap event", "swap_id", ev.SwapID, "type", ev.Type, "flags", ev.Flags)
	})

	pending, err := store.ListPendingSwaps(ctx)
	if err != nil {
		log.Warn("failed to list pending swaps", "error", err)
	}
	for _, s := range pending {
		if _, err := engine.Register(ctx, s); err != nil {
			log.Warn("failed to recover pending swap", "swap_id", s.ID, "error", err)
			continue
		}
		log.Info("recovered pending swap", "swap_id", s.ID, "flags", s.Flags())
	}

	backends := backend.NewRegistry()
	for symbol := range cfg.Backends {
		log.Warn("configured backend has no wired client - concrete blockchain RPC clients are out of scope", "symbol", symbol)
	}
	if err := backends.ConnectAll(ctx); err != nil {
		log.Warn("failed to connect one or more backends", "error", err)
	}
	defer backends.CloseAll()

	var evmClient *htlc.Client
	var nonces *nonce.Manager
	if cfg.EVM.RPCURL != "" {
		contractAddr := common.HexToAddress(cfg.EVM.ContractAddress)
		if cfg.EVM.ContractAddress == "" {
			chainID, err := htlc.ProbeChainID(ctx, cfg.EVM.RPCURL)
			if err != nil {
				log.Fatal("failed to probe account chain RPC", "error", err)
			}
			if !config.IsHTLCDeployed(chainID.Uint64()) {
				log.Fatal("no known HTLC deployment for this chain, set evm.contract_address", "chain_id", chainID)
			}
			contractAddr = config.GetHTLCContract(chainID.Uint64())
			log.Info("resolved HTLC contract from known deployments", "chain_id", chainID, "contract", contractAddr.Hex())
		}

		evmClient, err = htlc.NewClient(cfg.EVM.RPCURL, contractAddr)
		if err != nil {
			log.Fatal("failed to connect to account chain RPC", "error", err)
		}
		defer evmClient.Close()
		nonces = nonce.New(&htlc.NonceSource{Client: evmClient})
		log.Info("account chain client initialized", "chain_id", evmClient.ChainID(), "contract", contractAddr.Hex())
	}

	var relayChannel *relay.Channel
	if cfg.Relay.URL != "" {
		relayChannel, err = relay.Dial(ctx, cfg.Relay.URL, relay.Config{
			InitialRetryInterval: cfg.Relay.InitialRetryInterval,
			MaxRetryInterval:     cfg.Relay.MaxRetryInterval,
			BackoffMultiplier:    2.0,
			MaxRetries:           cfg.Relay.MaxRetries,
			DialTimeout:          cfg.Relay.DialTimeout,
		})
		if err != nil {
			log.Warn("failed to dial relay, continuing without one", "error", err)
		} else {
			defer relayChannel.Close()
			go func() {
				if err := relayChannel.Listen(ctx); err != nil && ctx.Err() == nil {
					log.Warn("relay listen loop exited", "error", err)
				}
			}()
			log.Info("relay connected", "url", cfg.Relay.URL)
		}
	}

	printBanner(log, cfg, effectiveDataDir, len(pending))

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reaped := engine.Reap()
				if nonces != nil {
					log.Info("status", "reaped_swaps", len(reaped), "cached_account_nonces", nonces.Len())
				} else {
					log.Info("status", "reaped_swaps", len(reaped))
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	cancel()
	log.Info("goodbye!")
}

func printBanner(log *logging.Logger, cfg *appconfig.Config, dataDir string, pendingCount int) {
	networkLabel := "mainnet"
	if cfg.IsTestnet() {
		networkLabel = "TESTNET"
	}

	log.Info("")
	log.Info("=================================================")
	log.Infof("  Swap Engine (%s)", networkLabel)
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  Data dir: %s", dataDir)
	log.Infof("  Backends: %v", chain.ListEVMChains(chain.Network(networkFor(cfg))))
	log.Infof("  Pending swaps recovered: %d", pendingCount)
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}

func networkFor(cfg *appconfig.Config) string {
	if cfg.IsTestnet() {
		return string(chain.Testnet)
	}
	return string(chain.Mainnet)
}
