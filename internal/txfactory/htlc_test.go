package txfactory

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/atomicswap/htlcengine/internal/chain"
	"github.com/atomicswap/htlcengine/internal/htlcbuild"
)

type stubUTXOSigner struct {
	priv *btcec.PrivateKey
}

func (s stubUTXOSigner) PublicKey() *btcec.PublicKey { return s.priv.PubKey() }

func (s stubUTXOSigner) SignHash(sighash []byte) ([]byte, error) {
	sig := btcecdsa.Sign(s.priv, sighash)
	return sig.Serialize(), nil
}

func newStubSigner(t *testing.T) stubUTXOSigner {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return stubUTXOSigner{priv: priv}
}

func TestBuildAndSignClaimTxProducesWitness(t *testing.T) {
	receiver := newStubSigner(t)
	sender := newStubSigner(t)
	secret, secretHash, err := htlcbuild.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}

	script, err := htlcbuild.BuildScript(secretHash, receiver.PublicKey().SerializeCompressed(), sender.PublicKey().SerializeCompressed(), 700000)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}

	tx, err := BuildAndSignClaimTx(ClaimParams{
		Symbol:        "BTC",
		Network:       chain.Testnet,
		FundingTxID:   "0000000000000000000000000000000000000000000000000000000000000001",
		FundingVout:   0,
		FundingAmount: 100000,
		HTLCScript:    script,
		Secret:        secret,
		DestAddress:   "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		FeeRate:       2,
		Signer:        receiver,
	})
	if err != nil {
		t.Fatalf("BuildAndSignClaimTx: %v", err)
	}
	if len(tx.TxIn[0].Witness) != 4 {
		t.Fatalf("expected 4-element claim witness, got %d", len(tx.TxIn[0].Witness))
	}
}

func TestBuildAndSignRefundTxSetsAbsoluteLockTime(t *testing.T) {
	receiver := newStubSigner(t)
	sender := newStubSigner(t)
	_, secretHash, _ := htlcbuild.GenerateSecret()

	const lockTime = uint32(800000)
	script, err := htlcbuild.BuildScript(secretHash, receiver.PublicKey().SerializeCompressed(), sender.PublicKey().SerializeCompressed(), lockTime)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}

	tx, err := BuildAndSignRefundTx(RefundParams{
		Symbol:        "BTC",
		Network:       chain.Testnet,
		FundingTxID:   "0000000000000000000000000000000000000000000000000000000000000001",
		FundingVout:   0,
		FundingAmount: 100000,
		HTLCScript:    script,
		LockTime:      lockTime,
		DestAddress:   "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		FeeRate:       2,
		Signer:        sender,
	})
	if err != nil {
		t.Fatalf("BuildAndSignRefundTx: %v", err)
	}
	if tx.LockTime != lockTime {
		t.Errorf("tx.LockTime = %d, want %d", tx.LockTime, lockTime)
	}
	if tx.TxIn[0].Sequence == 0xffffffff {
		t.Error("input sequence must be non-final for CLTV to be honored")
	}
	if len(tx.TxIn[0].Witness) != 3 {
		t.Fatalf("expected 3-element refund witness, got %d", len(tx.TxIn[0].Witness))
	}
}

func TestBuildAndSignRefundTxRejectsZeroLockTime(t *testing.T) {
	sender := newStubSigner(t)
	_, err := BuildAndSignRefundTx(RefundParams{
		Symbol:        "BTC",
		Network:       chain.Testnet,
		FundingTxID:   "0000000000000000000000000000000000000000000000000000000000000001",
		HTLCScript:    []byte{0x01},
		LockTime:      0,
		FundingAmount: 100000,
		DestAddress:   "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		FeeRate:       1,
		Signer:        sender,
	})
	if err == nil {
		t.Error("expected error for zero lock_time")
	}
}
