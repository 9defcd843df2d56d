package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/atomicswap/htlcengine/internal/backend"
	"github.com/atomicswap/htlcengine/internal/chain"
	"github.com/atomicswap/htlcengine/internal/config"
	"github.com/atomicswap/htlcengine/internal/htlcbuild"
	"github.com/atomicswap/htlcengine/internal/selector"
	"github.com/atomicswap/htlcengine/internal/txfactory"
)

type stubUTXOSigner struct {
	priv *btcec.PrivateKey
}

func newStubUTXOSigner(t *testing.T) stubUTXOSigner {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return stubUTXOSigner{priv: priv}
}

func (s stubUTXOSigner) PublicKey() *btcec.PublicKey { return s.priv.PubKey() }

func (s stubUTXOSigner) SignHash(sighash []byte) ([]byte, error) {
	sig := btcecdsa.Sign(s.priv, sighash)
	return sig.Serialize(), nil
}

func testWatcherConfig() config.WatcherConfig {
	return config.WatcherConfig{
		GetTransactionInterval:        5 * time.Millisecond,
		DefaultGetTransactionAttempts: 20,
		OutputSpentCheckInterval:      5 * time.Millisecond,
		CounterPartyPollInterval:      5 * time.Millisecond,
		MaxAttempts:                   20,
	}
}

func TestUTXOOutgoingLegFundAndConfirm(t *testing.T) {
	fx := backend.NewFixture()
	receiver := newStubUTXOSigner(t)
	sender := newStubUTXOSigner(t)

	_, secretHash, err := htlcbuild.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	script, err := htlcbuild.BuildScript(secretHash, receiver.PublicKey().SerializeCompressed(), sender.PublicKey().SerializeCompressed(), 700000)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}

	fundingUTXO := selector.UTXO{TxID: "0000000000000000000000000000000000000000000000000000000000000001", Vout: 0, Amount: 200000, AddressType: "p2wpkh"}
	leg := &UTXOOutgoingLeg{
		Symbol:  "BTC",
		Network: chain.Testnet,
		Backend: fx,
		Watcher: testWatcherConfig(),
		Inputs: []txfactory.FundingInput{
			{UTXO: fundingUTXO, Signer: sender, PrevScript: append([]byte{0x00, 0x14}, make([]byte, 20)...)},
		},
		SwapScript:        script,
		SwapAmount:        100000,
		ChangeAddress:     "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		FeeRate:           2,
		FundingAddress:    "tb1qhtlcaddress",
		RefundDestAddress: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		RefundLockTime:    700000,
		RefundSigner:      sender,
	}

	ref, err := leg.Fund(context.Background())
	if err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if ref.TxID == "" {
		t.Fatal("expected non-empty funding txid")
	}

	fx.SetTransaction(&backend.Transaction{TxID: ref.TxID, Confirmations: 0})
	go func() {
		time.Sleep(15 * time.Millisecond)
		fx.SetTransaction(&backend.Transaction{TxID: ref.TxID, Confirmations: 1})
	}()

	if err := leg.WaitTxConfirmed(context.Background(), ref.TxID); err != nil {
		t.Fatalf("WaitTxConfirmed: %v", err)
	}
}

func TestUTXOIncomingLegWaitForFundingAndClaim(t *testing.T) {
	fx := backend.NewFixture()
	receiver := newStubUTXOSigner(t)
	sender := newStubUTXOSigner(t)

	secret, secretHash, err := htlcbuild.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	script, err := htlcbuild.BuildScript(secretHash, receiver.PublicKey().SerializeCompressed(), sender.PublicKey().SerializeCompressed(), 700000)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}

	const fundingAddress = "tb1qcounterpartyhtlc"
	leg := &UTXOIncomingLeg{
		Symbol:      "BTC",
		Network:     chain.Testnet,
		Backend:     fx,
		Watcher:     testWatcherConfig(),
		FundingAddress: fundingAddress,
		MinAmount:   50000,
		HTLCScript:  script,
		DestAddress: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		FeeRate:     2,
		Signer:      receiver,
	}

	fx.SetTransaction(&backend.Transaction{
		TxID: "0000000000000000000000000000000000000000000000000000000000000002",
		Outputs: []backend.TxOutput{
			{ScriptPubKeyAddr: fundingAddress, Value: 100000},
		},
	})

	deadline := time.Now().Add(time.Second)
	ref, err := leg.WaitForFunding(context.Background(), secretHash, deadline)
	if err != nil {
		t.Fatalf("WaitForFunding: %v", err)
	}
	if ref.TxID != "0000000000000000000000000000000000000000000000000000000000000002" || ref.Amount != 100000 {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	txID, err := leg.Claim(context.Background(), ref, secret)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if txID == "" {
		t.Fatal("expected non-empty claim txid")
	}
}

func TestUTXOIncomingLegWaitForFundingDeadline(t *testing.T) {
	fx := backend.NewFixture()
	leg := &UTXOIncomingLeg{
		Symbol:         "BTC",
		Network:        chain.Testnet,
		Backend:        fx,
		Watcher:        testWatcherConfig(),
		FundingAddress: "tb1qneverfunded",
		MinAmount:      1,
	}

	_, err := leg.WaitForFunding(context.Background(), []byte("hash"), time.Now().Add(30*time.Millisecond))
	if err == nil {
		t.Fatal("expected deadline error")
	}
}
