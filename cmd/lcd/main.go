// Copyright 2025 Certen Protocol
//
// left-curve node daemon. Wires pkg/kvdb + pkg/app + pkg/abci behind an
// in-process CometBFT node, grounded on
// pkg/consensus/bft_integration.go's NewRealCometBFTEngine/Start/Stop (node
// construction, privval/node-key loading, genesis bootstrapping) and
// main.go's flag/log style for the surrounding CLI.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	cmtcfg "github.com/cometbft/cometbft/config"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	cmttypes "github.com/cometbft/cometbft/types"

	"github.com/OakenKnight/left-curve/pkg/abci"
	"github.com/OakenKnight/left-curve/pkg/address"
	"github.com/OakenKnight/left-curve/pkg/app"
	"github.com/OakenKnight/left-curve/pkg/config"
	"github.com/OakenKnight/left-curve/pkg/contracts/account"
	"github.com/OakenKnight/left-curve/pkg/contracts/bank"
	"github.com/OakenKnight/left-curve/pkg/contracts/taxman"
	"github.com/OakenKnight/left-curve/pkg/kvdb"
	"github.com/OakenKnight/left-curve/pkg/router"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm/native"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("🚀 Starting left-curve node")

	var (
		configPath = flag.String("config", "config/node.yaml", "Path to node YAML config")
		homeDir    = flag.String("home", "", "Override the CometBFT home directory")
	)
	flag.Parse()

	nodeCfg, err := config.LoadNodeConfig(*configPath)
	if err != nil {
		log.Fatalf("❌ loading node config: %v", err)
	}
	if *homeDir != "" {
		nodeCfg.HomeDir = *homeDir
	}
	log.Printf("📋 chain_id=%s home=%s", nodeCfg.ChainID, nodeCfg.HomeDir)

	cometCfg := cmtcfg.DefaultConfig()
	cometCfg.SetRoot(nodeCfg.HomeDir)
	cometCfg.Moniker = nodeCfg.Moniker
	cometCfg.P2P.ListenAddress = nodeCfg.P2PListenAddress
	cometCfg.RPC.ListenAddress = nodeCfg.RPCListenAddress
	cometCfg.DBBackend = nodeCfg.DBBackend
	cometCfg.Consensus.TimeoutCommit = nodeCfg.ConsensusTimeoutCommit

	if err := os.MkdirAll(filepath.Join(nodeCfg.HomeDir, "config"), 0o755); err != nil {
		log.Fatalf("❌ creating config dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(nodeCfg.HomeDir, "data"), 0o755); err != nil {
		log.Fatalf("❌ creating data dir: %v", err)
	}

	nodeKey, err := loadOrGenNodeKey(cometCfg.NodeKeyFile())
	if err != nil {
		log.Fatalf("❌ node key: %v", err)
	}
	pv := privval.LoadOrGenFilePV(cometCfg.PrivValidatorKeyFile(), cometCfg.PrivValidatorStateFile())

	if err := writeGenesisIfNeeded(cometCfg, nodeCfg, pv); err != nil {
		log.Fatalf("❌ writing genesis: %v", err)
	}

	appDB, err := dbm.NewDB("application", dbm.BackendType(nodeCfg.DBBackend), filepath.Join(nodeCfg.HomeDir, "data"))
	if err != nil {
		log.Fatalf("❌ opening application db: %v", err)
	}
	store, err := kvdb.NewStore(appDB)
	if err != nil {
		log.Fatalf("❌ constructing store: %v", err)
	}

	a := app.New(store, router.NewRouter(newRegistry()))
	adapter := abci.NewAdapter(a)

	tmLogger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout)).With("module", "cometbft")

	n, err := node.NewNode(
		cometCfg,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(adapter),
		node.DefaultGenesisDocProviderFunc(cometCfg),
		func(ctx *cmtcfg.DBContext) (dbm.DB, error) {
			return dbm.NewDB(ctx.ID, dbm.BackendType(cometCfg.DBBackend), filepath.Join(cometCfg.RootDir, "data"))
		},
		node.DefaultMetricsProvider(cometCfg.Instrumentation),
		tmLogger,
	)
	if err != nil {
		log.Fatalf("❌ creating cometbft node: %v", err)
	}

	if err := n.Start(); err != nil {
		log.Fatalf("❌ starting cometbft node: %v", err)
	}
	log.Printf("✅ node started, listening p2p=%s rpc=%s", cometCfg.P2P.ListenAddress, cometCfg.RPC.ListenAddress)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("🛑 shutting down")
	if err := n.Stop(); err != nil {
		log.Printf("⚠️ error stopping node: %v", err)
	}
}

// newRegistry registers the reference bank/account/taxman contracts that
// ship with this node under fixed, well-known code hashes — a real
// deployment would instead load contract code via MsgUpload and register a
// wasm.Builder, but the native registry lets a standalone node boot without
// any compiled guest bytecode.
func newRegistry() *native.Registry {
	r := native.NewRegistry()
	r.Register(address.CodeHash([]byte("bank-code")), bank.EntryPoints())
	r.Register(address.CodeHash([]byte("taxman-code")), taxman.EntryPoints())
	r.Register(address.CodeHash([]byte("account-code")), account.EntryPoints())
	return r
}

func loadOrGenNodeKey(file string) (*p2p.NodeKey, error) {
	if _, err := os.Stat(file); err == nil {
		return p2p.LoadNodeKey(file)
	}
	return p2p.LoadOrGenNodeKey(file)
}

// writeGenesisIfNeeded bootstraps a single-node devnet genesis the first
// time the node runs: one validator (this node's own key), and an app_state
// carrying the genesis messages InitChain will run (see defaultGenesisState).
func writeGenesisIfNeeded(cometCfg *cmtcfg.Config, nodeCfg config.NodeConfig, pv *privval.FilePV) error {
	genFile := cometCfg.GenesisFile()
	if _, err := os.Stat(genFile); err == nil {
		return nil
	}

	pubKey, err := pv.GetPubKey()
	if err != nil {
		return fmt.Errorf("validator pubkey: %w", err)
	}

	appStateBytes, err := json.Marshal(defaultGenesisState())
	if err != nil {
		return err
	}

	doc := &cmttypes.GenesisDoc{
		ChainID:         nodeCfg.ChainID,
		GenesisTime:     time.Now(),
		InitialHeight:   1,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		Validators: []cmttypes.GenesisValidator{
			{Address: pubKey.Address(), PubKey: pubKey, Power: 10, Name: nodeCfg.Moniker},
		},
		AppState: appStateBytes,
	}
	return doc.SaveAs(genFile)
}

// defaultGenesisState deploys the bank and taxman reference contracts,
// uploads the account contract's code (no account is instantiated), and
// funds the genesis sender so a fresh devnet has a bank balance from the
// start.
func defaultGenesisState() types.GenesisState {
	bankCode := []byte("bank-code")
	bankHash := address.CodeHash(bankCode)
	bankAddr := address.Derive(types.Address{}, bankHash, []byte("bank"))

	taxCode := []byte("taxman-code")
	taxHash := address.CodeHash(taxCode)
	taxAddr := address.Derive(types.Address{}, taxHash, []byte("taxman"))

	acctCode := []byte("account-code")
	acctHash := address.CodeHash(acctCode)

	genesisCoins, _ := types.NewCoins(types.Coin{Denom: "ucoin", Amount: types.NewUint128FromUint64(1_000_000)})
	instBank, _ := json.Marshal(bank.InstantiateMsg{Balances: []bank.AddressBalance{
		{Address: types.GenesisSender, Coins: genesisCoins},
	}})
	instTax, _ := json.Marshal(taxman.InstantiateMsg{FeeDenom: "ucoin", FeeAmount: "5"})

	return types.GenesisState{
		Config: types.Config{Bank: bankAddr, Taxman: taxAddr, HookErrorPolicy: types.PolicyFatal},
		Msgs: []types.Message{
			{Kind: types.MessageUpload, Upload: &types.MsgUpload{Code: bankCode}},
			{Kind: types.MessageInstantiate, Instantiate: &types.MsgInstantiate{CodeHash: bankHash, Salt: []byte("bank"), Msg: instBank}},
			{Kind: types.MessageUpload, Upload: &types.MsgUpload{Code: taxCode}},
			{Kind: types.MessageInstantiate, Instantiate: &types.MsgInstantiate{CodeHash: taxHash, Salt: []byte("taxman"), Msg: instTax}},
			{Kind: types.MessageUpload, Upload: &types.MsgUpload{Code: acctCode}},
		},
	}
}
