package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/params"
	"github.com/swapcover/swapcover/pkg/api"
	"github.com/swapcover/swapcover/pkg/crypto"
	"github.com/swapcover/swapcover/pkg/ledger"
	"github.com/swapcover/swapcover/pkg/p2p"
	"github.com/swapcover/swapcover/pkg/settle"
	"github.com/swapcover/swapcover/pkg/storage"
	"github.com/swapcover/swapcover/pkg/token"
	"github.com/swapcover/swapcover/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	// Setup logging (write to both console and file)
	logFile := cfg.Node.LogFile
	if logFile == "" {
		logFile = "data/settled.log"
	}

	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	// ---- Owner key ----
	// Devnet convenience: generate a throwaway owner when none is configured.
	var owner *crypto.Signer
	if cfg.Settlement.OwnerKey != "" {
		owner, err = crypto.FromPrivateKeyHex(cfg.Settlement.OwnerKey)
		if err != nil {
			sugar.Fatalw("owner_key_invalid", "err", err)
		}
	} else {
		owner, err = crypto.GenerateKey()
		if err != nil {
			sugar.Fatalw("owner_key_generate_failed", "err", err)
		}
		sugar.Warnw("owner_key_generated", "address", owner.Address().Hex(),
			"note", "set OWNER_KEY to persist the owner across restarts")
	}

	// Router identity: the EIP-712 verifying contract and token minter.
	self := owner.Address()
	if cfg.Settlement.SelfAddress != "" {
		if !common.IsHexAddress(cfg.Settlement.SelfAddress) {
			sugar.Fatalw("self_address_invalid", "addr", cfg.Settlement.SelfAddress)
		}
		self = common.HexToAddress(cfg.Settlement.SelfAddress)
	}

	// Ledger engine identity, fixed per deployment.
	ledgerID := common.BytesToAddress(crypto.HashAuxData([]byte("swapcover/ledger-engine")).Bytes()[12:])

	// ---- Incentive token (pebble-backed) ----
	tok, err := token.Open(cfg.Token.DBPath, cfg.Token.Name, cfg.Token.Symbol)
	if err != nil {
		sugar.Fatalw("token_open_failed", "path", cfg.Token.DBPath, "err", err)
	}
	defer tok.Close()

	// ---- Settlement core ----
	events := settle.NewRecorder(sugar)
	store := settle.NewParams(owner.Address(), events)
	delegates := crypto.NewDelegateRegistry()

	dispatch := settle.NewRouter(settle.RouterConfig{
		Log:       sugar,
		Params:    store,
		Ledger:    ledger.NewManager(ledgerID),
		Token:     tok,
		Events:    events,
		Self:      self,
		ChainID:   cfg.Settlement.ChainID,
		Delegates: delegates,
	})

	sugar.Infow("settlement_ready",
		"owner", owner.Address().Hex(),
		"self", self.Hex(),
		"ledger", ledgerID.Hex(),
		"chain_id", cfg.Settlement.ChainID,
		"token", tok.Symbol())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Persistent event log (optional) ----
	var eventLog *storage.EventLog
	if cfg.Node.EventLogPath != "" {
		eventLog, err = storage.OpenEventLog(cfg.Node.EventLogPath)
		if err != nil {
			sugar.Fatalw("event_log_open_failed", "path", cfg.Node.EventLogPath, "err", err)
		}
		defer eventLog.Close()
		events.AddSink(eventLog)
		sugar.Infow("event_log_ready", "path", cfg.Node.EventLogPath, "events", eventLog.Len())
	}

	// ---- Event gossip (optional) ----
	if cfg.Node.GossipListen != "" {
		gossip, err := p2p.NewGossip(ctx, p2p.GossipConfig{
			ListenAddr: cfg.Node.GossipListen,
			Bootstrap:  cfg.Node.GossipBootstrap,
			Logger:     sugar,
		})
		if err != nil {
			sugar.Fatalw("gossip_init_failed", "err", err)
		}
		defer gossip.Close()
		events.AddSink(gossip)
		gossip.SetHandler(func(w p2p.EventWire) {
			sugar.Debugw("peer_event", "type", w.Type, "attrs", w.Attributes)
		})
	}

	// ---- API Server ----
	apiServer := api.NewServer(dispatch, tok)
	events.AddSink(apiServer.Hub())
	if eventLog != nil {
		apiServer.SetEventLog(eventLog)
	}

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")
}
