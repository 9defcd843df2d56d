package config

import "testing"

func TestDefaultSwapConfigValid(t *testing.T) {
	cfg := DefaultSwapConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default swap config should be valid: %v", err)
	}
	if cfg.InitiatorLockTime <= cfg.ResponderLockTime {
		t.Error("InitiatorLockTime (T_init) must be strictly greater than ResponderLockTime (T_acc)")
	}
}

func TestSwapConfigValidateRejectsTightDelta(t *testing.T) {
	cfg := DefaultSwapConfig()
	cfg.ResponderLockTime = cfg.InitiatorLockTime - cfg.MinLockTimeDelta/2
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when lock time delta is below MinLockTimeDelta")
	}
}

func TestFeeParamsMonotonicInGasLimit(t *testing.T) {
	p := DefaultTezosFeeParams()
	base := p.Fee(OpRedeem)

	bumped := p
	bumped.GasLimit = map[OperationKind]uint64{}
	for k, v := range p.GasLimit {
		bumped.GasLimit[k] = v
	}
	bumped.GasLimit[OpRedeem] += 1000

	if bumped.Fee(OpRedeem) <= base {
		t.Error("increasing gas_limit must strictly increase the fee")
	}
}

func TestFeeParamsMonotonicInSize(t *testing.T) {
	p := DefaultTezosFeeParams()
	base := p.Fee(OpInitiate)

	bumped := p
	bumped.Size = map[OperationKind]uint64{}
	for k, v := range p.Size {
		bumped.Size[k] = v
	}
	bumped.Size[OpInitiate] += 500

	if bumped.Fee(OpInitiate) <= base {
		t.Error("increasing size must strictly increase the fee")
	}
}

func TestFa12GasLimitsDiffersFromTezos(t *testing.T) {
	xtz := DefaultTezosFeeParams()
	fa12 := DefaultFa12FeeParams()

	if fa12.GasLimit[OpInitiate] == xtz.GasLimit[OpInitiate] {
		t.Error("FA1.2 contract calls should carry a distinct (higher) gas limit than plain XTZ")
	}
}

func TestEthereumFeeParamsHasEveryOperation(t *testing.T) {
	p := DefaultEthereumFeeParams()
	for _, op := range []OperationKind{OpInitiate, OpAdd, OpRedeem, OpRefund, OpTransfer} {
		if p.GasLimit[op] == 0 {
			t.Errorf("missing gas limit for operation %s", op)
		}
	}
}

func TestGetHTLCContract(t *testing.T) {
	if !IsHTLCDeployed(11155111) {
		t.Error("sepolia HTLC contract should be marked deployed")
	}
	if IsHTLCDeployed(99999999) {
		t.Error("unregistered chain should not be marked deployed")
	}
}
