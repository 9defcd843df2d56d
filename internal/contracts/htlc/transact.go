package htlc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// The methods below wrap the bound contract's CreateSwapNative/
// CreateSwapERC20/Claim/Refund calls and take a caller-built
// *bind.TransactOpts, so a caller can route signing through
// internal/txfactory.AccountTxOpts and a wallet.AccountSigner rather than
// handing this package a private key.

// CreateSwapNativeWithAuth creates a native-token swap, signed via auth.
func (c *Client) CreateSwapNativeWithAuth(
	auth *bind.TransactOpts,
	swapID [32]byte,
	receiver common.Address,
	secretHash [32]byte,
	timelock *big.Int,
) (*types.Transaction, error) {
	return c.contract.CreateSwapNative(auth, swapID, receiver, secretHash, timelock)
}

// CreateSwapERC20WithAuth creates an ERC20 swap, signed via auth. The
// token must already carry a sufficient ERC20 allowance for this contract.
func (c *Client) CreateSwapERC20WithAuth(
	auth *bind.TransactOpts,
	swapID [32]byte,
	receiver common.Address,
	token common.Address,
	amount *big.Int,
	secretHash [32]byte,
	timelock *big.Int,
) (*types.Transaction, error) {
	return c.contract.CreateSwapERC20(auth, swapID, receiver, token, amount, secretHash, timelock)
}

// ClaimWithAuth claims a swap by revealing secret, signed via auth.
func (c *Client) ClaimWithAuth(auth *bind.TransactOpts, swapID [32]byte, secret [32]byte) (*types.Transaction, error) {
	return c.contract.Claim(auth, swapID, secret)
}

// RefundWithAuth refunds an expired swap, signed via auth.
func (c *Client) RefundWithAuth(auth *bind.TransactOpts, swapID [32]byte) (*types.Transaction, error) {
	return c.contract.Refund(auth, swapID)
}
