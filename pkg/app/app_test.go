// Copyright 2025 Certen Protocol

package app

import (
	"context"
	"encoding/json"
	"testing"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/OakenKnight/left-curve/pkg/address"
	"github.com/OakenKnight/left-curve/pkg/contracts/account"
	"github.com/OakenKnight/left-curve/pkg/contracts/bank"
	"github.com/OakenKnight/left-curve/pkg/contracts/taxman"
	"github.com/OakenKnight/left-curve/pkg/kvdb"
	"github.com/OakenKnight/left-curve/pkg/router"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm/native"
)

// harness wires a fresh in-memory kvdb.Store and App through genesis, with
// a bank, taxman, and single-key account contract registered under distinct
// code hashes — mirroring pkg/executor's test fixture but driven end to end
// through InitChain/FinalizeBlock/Commit rather than RunTx directly.
type harness struct {
	a        *App
	bankAddr types.Address
	taxAddr  types.Address
	acctAddr types.Address
}

func mustCoins(t *testing.T, denom string, amount uint64) types.Coins {
	t.Helper()
	coins, err := types.NewCoins(types.Coin{Denom: denom, Amount: types.NewUint128FromUint64(amount)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	return coins
}

func newHarness(t *testing.T, balance uint64) (*harness, []byte, func([]byte) []byte) {
	t.Helper()
	s, err := kvdb.NewStore(dbm.NewMemDB())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	registry := native.NewRegistry()

	bankCode := []byte("bank-code")
	bankHash := address.CodeHash(bankCode)
	registry.Register(bankHash, bank.EntryPoints())
	bankAddr := address.Derive(types.Address{}, bankHash, []byte("bank"))

	taxCode := []byte("taxman-code")
	taxHash := address.CodeHash(taxCode)
	registry.Register(taxHash, taxman.EntryPoints())
	taxAddr := address.Derive(types.Address{}, taxHash, []byte("taxman"))

	acctCode := []byte("account-code")
	acctHash := address.CodeHash(acctCode)
	registry.Register(acctHash, account.EntryPoints())
	acctAddr := address.Derive(types.Address{}, acctHash, []byte("account"))

	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pubBytes := crypto.FromECDSAPub(&priv.PublicKey)

	instAcct, _ := json.Marshal(account.InstantiateMsg{PublicKey: pubBytes})
	instBank, _ := json.Marshal(bank.InstantiateMsg{Balances: []bank.AddressBalance{
		{Address: acctAddr, Coins: mustCoins(t, "ucoin", balance)},
	}})
	instTax, _ := json.Marshal(taxman.InstantiateMsg{FeeDenom: "ucoin", FeeAmount: "5"})

	genesis := types.GenesisState{
		Config: types.Config{Bank: bankAddr, Taxman: taxAddr, HookErrorPolicy: types.PolicyFatal},
		Msgs: []types.Message{
			{Kind: types.MessageUpload, Upload: &types.MsgUpload{Code: bankCode}},
			{Kind: types.MessageInstantiate, Instantiate: &types.MsgInstantiate{CodeHash: bankHash, Salt: []byte("bank"), Msg: instBank}},
			{Kind: types.MessageUpload, Upload: &types.MsgUpload{Code: taxCode}},
			{Kind: types.MessageInstantiate, Instantiate: &types.MsgInstantiate{CodeHash: taxHash, Salt: []byte("taxman"), Msg: instTax}},
			{Kind: types.MessageUpload, Upload: &types.MsgUpload{Code: acctCode}},
			{Kind: types.MessageInstantiate, Instantiate: &types.MsgInstantiate{CodeHash: acctHash, Salt: []byte("account"), Msg: instAcct}},
		},
	}
	appStateBytes, err := json.Marshal(genesis)
	if err != nil {
		t.Fatalf("marshal genesis: %v", err)
	}

	a := New(s, router.NewRouter(registry))
	if _, err := a.InitChain(context.Background(), "test-chain", types.BlockInfo{Height: 0}, appStateBytes); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	if err := a.Commit(); err != nil {
		t.Fatalf("Commit genesis: %v", err)
	}

	sign := func(unsignedBytes []byte) []byte {
		digest := crypto.Keccak256(unsignedBytes)
		sig, err := crypto.Sign(digest, priv)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		return sig
	}

	return &harness{a: a, bankAddr: bankAddr, taxAddr: taxAddr, acctAddr: acctAddr}, pubBytes, sign
}

func signedTransferTx(t *testing.T, sender, to types.Address, amount uint64, sign func([]byte) []byte) []byte {
	t.Helper()
	msg := types.Message{Kind: types.MessageTransfer, Transfer: &types.MsgTransfer{To: to, Coins: mustCoins(t, "ucoin", amount)}}
	unsigned := types.Transaction{Sender: sender, Msgs: []types.Message{msg}}
	unsignedBytes, err := json.Marshal(unsigned)
	if err != nil {
		t.Fatalf("marshal unsigned tx: %v", err)
	}
	signed := types.Transaction{Sender: sender, Msgs: []types.Message{msg}, Credential: sign(unsignedBytes)}
	rawTx, err := json.Marshal(signed)
	if err != nil {
		t.Fatalf("marshal signed tx: %v", err)
	}
	return rawTx
}

func queryBalance(t *testing.T, a *App, bankAddr, who types.Address) types.Coins {
	t.Helper()
	req := types.QueryRequest{Smart: &types.QuerySmart{Contract: bankAddr}}
	msg, err := json.Marshal(bank.QueryMsg{AllBalances: &bank.AllBalancesQuery{Address: who}})
	if err != nil {
		t.Fatalf("marshal query msg: %v", err)
	}
	req.Smart.Msg = msg

	resp, err := a.QueryApp(context.Background(), mustMarshal(t, req), 0, false)
	if err != nil {
		t.Fatalf("QueryApp: %v", err)
	}
	var coins types.Coins
	if err := json.Unmarshal(resp.Smart, &coins); err != nil {
		t.Fatalf("unmarshal balance: %v", err)
	}
	return coins
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestInitChainThenFinalizeBlockTransfer(t *testing.T) {
	h, _, sign := newHarness(t, 1000)

	recipient := types.Address{9, 9}
	rawTx := signedTransferTx(t, h.acctAddr, recipient, 30, sign)

	block := types.BlockInfo{Height: 1, TimestampSecs: 100}
	_, _, results, err := h.a.FinalizeBlock(context.Background(), block, [][]byte{rawTx})
	if err != nil {
		t.Fatalf("FinalizeBlock: %v", err)
	}
	if results[0].Error != "" {
		t.Fatalf("tx failed: %s", results[0].Error)
	}
	if err := h.a.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	bal := queryBalance(t, h.a, h.bankAddr, recipient)
	if bal.AmountOf("ucoin").String() != "30" {
		t.Errorf("expected recipient balance 30, got %s", bal.AmountOf("ucoin").String())
	}
}

func TestFinalizeBlockRejectsWrongHeight(t *testing.T) {
	h, _, _ := newHarness(t, 1000)

	_, _, _, err := h.a.FinalizeBlock(context.Background(), types.BlockInfo{Height: 5}, nil)
	if err == nil {
		t.Fatalf("expected an error finalizing out-of-order height 5 after genesis")
	}
	if _, ok := err.(*ErrIncorrectBlockHeight); !ok {
		t.Errorf("expected *ErrIncorrectBlockHeight, got %T: %v", err, err)
	}
}

func TestInitChainRejectsNonZeroHeight(t *testing.T) {
	s, err := kvdb.NewStore(dbm.NewMemDB())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	a := New(s, router.NewRouter(native.NewRegistry()))

	genesis := types.GenesisState{Config: types.Config{}}
	appStateBytes, _ := json.Marshal(genesis)

	_, err = a.InitChain(context.Background(), "test-chain", types.BlockInfo{Height: 3}, appStateBytes)
	if err == nil {
		t.Fatalf("expected an error calling InitChain with a non-zero height")
	}
	if _, ok := err.(*ErrIncorrectBlockHeight); !ok {
		t.Errorf("expected *ErrIncorrectBlockHeight, got %T: %v", err, err)
	}
}

func TestFinalizeBlockHeightMonotonicAcrossBlocks(t *testing.T) {
	h, _, sign := newHarness(t, 1000)

	recipient := types.Address{9, 9}
	for i, height := range []uint64{1, 2, 3} {
		rawTx := signedTransferTx(t, h.acctAddr, recipient, 10, sign)
		_, _, results, err := h.a.FinalizeBlock(context.Background(), types.BlockInfo{Height: height, TimestampSecs: uint64(100 + i)}, [][]byte{rawTx})
		if err != nil {
			t.Fatalf("FinalizeBlock height %d: %v", height, err)
		}
		if results[0].Error != "" {
			t.Fatalf("tx at height %d failed: %s", height, results[0].Error)
		}
		if err := h.a.Commit(); err != nil {
			t.Fatalf("Commit height %d: %v", height, err)
		}
	}

	version, _, err := h.a.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if version != 3 {
		t.Errorf("expected latest version 3, got %d", version)
	}

	bal := queryBalance(t, h.a, h.bankAddr, recipient)
	if bal.AmountOf("ucoin").String() != "30" {
		t.Errorf("expected recipient balance 30 after three transfers, got %s", bal.AmountOf("ucoin").String())
	}
}
