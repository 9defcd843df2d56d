package htlcbuild

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"

	"github.com/atomicswap/htlcengine/internal/chain"
)

func testKeys(t *testing.T) (receiver, sender *btcec.PublicKey) {
	t.Helper()
	rPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	sPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return rPriv.PubKey(), sPriv.PubKey()
}

func TestBuildScriptRoundTripsThroughParseScript(t *testing.T) {
	receiver, sender := testKeys(t)
	_, secretHash, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}

	const lockTime = uint32(2_000_000)
	script, err := BuildScript(secretHash, receiver.SerializeCompressed(), sender.SerializeCompressed(), lockTime)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}

	gotHash, gotReceiver, gotSender, gotLockTime, err := ParseScript(script)
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if !bytes.Equal(gotHash, secretHash) {
		t.Error("parsed secret hash mismatch")
	}
	if !bytes.Equal(gotReceiver, receiver.SerializeCompressed()) {
		t.Error("parsed receiver pubkey mismatch")
	}
	if !bytes.Equal(gotSender, sender.SerializeCompressed()) {
		t.Error("parsed sender pubkey mismatch")
	}
	if gotLockTime != lockTime {
		t.Errorf("parsed lock_time = %d, want %d", gotLockTime, lockTime)
	}
}

func TestBuildScriptUsesCheckLockTimeVerify(t *testing.T) {
	receiver, sender := testKeys(t)
	_, secretHash, _ := GenerateSecret()

	script, err := BuildScript(secretHash, receiver.SerializeCompressed(), sender.SerializeCompressed(), 500000)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}

	// Walk opcodes rather than raw bytes: the random pubkeys and secret
	// hash are data pushes and may themselves contain 0xb1 or 0xb2. The
	// refund branch must use the absolute-timelock opcode, never the
	// relative one.
	hasCLTV := false
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		switch tokenizer.Opcode() {
		case txscript.OP_CHECKSEQUENCEVERIFY:
			t.Error("script must not contain OP_CHECKSEQUENCEVERIFY (relative timelock)")
		case txscript.OP_CHECKLOCKTIMEVERIFY:
			hasCLTV = true
		}
	}
	if err := tokenizer.Err(); err != nil {
		t.Fatalf("tokenize script: %v", err)
	}
	if !hasCLTV {
		t.Error("script must contain OP_CHECKLOCKTIMEVERIFY (absolute timelock)")
	}
}

func TestBuildScriptRejectsZeroLockTime(t *testing.T) {
	receiver, sender := testKeys(t)
	_, secretHash, _ := GenerateSecret()

	if _, err := BuildScript(secretHash, receiver.SerializeCompressed(), sender.SerializeCompressed(), 0); err == nil {
		t.Error("expected error for zero lock_time")
	}
}

func TestBuildScriptDataDerivesP2WSHAddress(t *testing.T) {
	receiver, sender := testKeys(t)
	_, secretHash, _ := GenerateSecret()

	data, err := BuildScriptData(secretHash, receiver, sender, 700000, "BTC", chain.Testnet)
	if err != nil {
		t.Fatalf("BuildScriptData: %v", err)
	}
	if data.Address == "" {
		t.Error("expected non-empty P2WSH address")
	}

	addr2, err := AddressFromScript(data.Script, "BTC", chain.Testnet)
	if err != nil {
		t.Fatalf("AddressFromScript: %v", err)
	}
	if addr2 != data.Address {
		t.Errorf("AddressFromScript() = %s, want %s", addr2, data.Address)
	}
}

func TestVerifySecret(t *testing.T) {
	secret, hash, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if !VerifySecret(secret, hash) {
		t.Error("VerifySecret should accept the matching secret")
	}

	other, _, _ := GenerateSecret()
	if VerifySecret(other, hash) {
		t.Error("VerifySecret should reject a non-matching secret")
	}
}

func TestClaimAndRefundWitnessShape(t *testing.T) {
	script := []byte{0x01, 0x02}
	sig := []byte{0xaa}
	secret := []byte{0xbb}

	claim := ClaimWitness(sig, secret, script)
	if len(claim) != 4 || claim[2][0] != 0x01 {
		t.Fatalf("unexpected claim witness shape: %v", claim)
	}

	refund := RefundWitness(sig, script)
	if len(refund) != 3 || len(refund[1]) != 0 {
		t.Fatalf("unexpected refund witness shape: %v", refund)
	}
}
