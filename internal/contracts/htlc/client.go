// Package htlc provides a Go client for interacting with the SwapHTLC smart contract.
// This client wraps the auto-generated bindings with a more user-friendly interface.
package htlc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// SwapState represents the state of an HTLC swap
type SwapState uint8

const (
	SwapStateEmpty    SwapState = 0
	SwapStateActive   SwapState = 1
	SwapStateClaimed  SwapState = 2
	SwapStateRefunded SwapState = 3
)

func (s SwapState) String() string {
	switch s {
	case SwapStateEmpty:
		return "empty"
	case SwapStateActive:
		return "active"
	case SwapStateClaimed:
		return "claimed"
	case SwapStateRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Swap represents an HTLC swap with parsed fields
type Swap struct {
	Sender     common.Address
	Receiver   common.Address
	Token      common.Address // address(0) for native token
	Amount     *big.Int
	DaoFee     *big.Int
	SecretHash [32]byte
	Timelock   *big.Int
	State      SwapState
}

// IsNativeToken returns true if this swap uses native token (ETH/BNB)
func (s *Swap) IsNativeToken() bool {
	return s.Token == common.Address{}
}

// IsActive returns true if the swap is active
func (s *Swap) IsActive() bool {
	return s.State == SwapStateActive
}

// Client is a wrapper around the SwapHTLC contract. It exposes read/event
// access directly; every state-changing call goes through the *WithAuth
// methods in transact.go, which take a caller-supplied *bind.TransactOpts
// instead of holding a private key - this client never holds key material.
type Client struct {
	client          *ethclient.Client
	contract        *SwapHTLC
	contractAddress common.Address
	chainID         *big.Int
}

// ProbeChainID dials rpcURL just long enough to read the chain ID, then
// disconnects. Used to resolve a well-known contract address (see
// internal/config.GetHTLCContract) before the long-lived Client is
// constructed with it.
func ProbeChainID(ctx context.Context, rpcURL string) (*big.Int, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	defer c.Close()
	return c.ChainID(ctx)
}

// NewClient creates a new HTLC client
func NewClient(rpcURL string, contractAddress common.Address) (*Client, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	contract, err := NewSwapHTLC(contractAddress, client)
	if err != nil {
		return nil, fmt.Errorf("failed to bind contract: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	return &Client{
		client:          client,
		contract:        contract,
		contractAddress: contractAddress,
		chainID:         chainID,
	}, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	c.client.Close()
}

// ChainID returns the chain ID
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// ContractAddress returns the contract address
func (c *Client) ContractAddress() common.Address {
	return c.contractAddress
}

// =============================================================================
// Swap ID Computation
// =============================================================================

// ComputeSwapID computes a deterministic swap ID from parameters
func (c *Client) ComputeSwapID(
	ctx context.Context,
	sender, receiver, token common.Address,
	amount *big.Int,
	secretHash [32]byte,
	timelock *big.Int,
	nonce *big.Int,
) ([32]byte, error) {
	opts := &bind.CallOpts{Context: ctx}
	return c.contract.ComputeSwapId(opts, sender, receiver, token, amount, secretHash, timelock, nonce)
}

// =============================================================================
// View Functions
// =============================================================================

// GetSwap returns the swap details
func (c *Client) GetSwap(ctx context.Context, swapID [32]byte) (*Swap, error) {
	opts := &bind.CallOpts{Context: ctx}
	result, err := c.contract.GetSwap(opts, swapID)
	if err != nil {
		return nil, fmt.Errorf("failed to get swap: %w", err)
	}

	return &Swap{
		Sender:     result.Sender,
		Receiver:   result.Receiver,
		Token:      result.Token,
		Amount:     result.Amount,
		DaoFee:     result.DaoFee,
		SecretHash: result.SecretHash,
		Timelock:   result.Timelock,
		State:      SwapState(result.State),
	}, nil
}

// =============================================================================
// Event Watching
// =============================================================================

// SwapCreatedEvent represents a SwapCreated event
type SwapCreatedEvent struct {
	SwapID     [32]byte
	Sender     common.Address
	Receiver   common.Address
	Token      common.Address
	Amount     *big.Int
	DaoFee     *big.Int
	SecretHash [32]byte
	Timelock   *big.Int
	TxHash     common.Hash
	BlockNum   uint64
}

// SwapClaimedEvent represents a SwapClaimed event (contains the revealed secret!)
type SwapClaimedEvent struct {
	SwapID   [32]byte
	Receiver common.Address
	Secret   [32]byte // The revealed secret!
	TxHash   common.Hash
	BlockNum uint64
}

// SwapRefundedEvent represents a SwapRefunded event
type SwapRefundedEvent struct {
	SwapID   [32]byte
	Sender   common.Address
	TxHash   common.Hash
	BlockNum uint64
}

// WatchSwapClaimed watches for SwapClaimed events
// This is critical for cross-chain swaps as it reveals the secret!
func (c *Client) WatchSwapClaimed(
	ctx context.Context,
	swapIDs [][32]byte,
) (<-chan *SwapClaimedEvent, error) {
	ch := make(chan *SwapHTLCSwapClaimed, 10)

	sub, err := c.contract.WatchSwapClaimed(
		&bind.WatchOpts{Context: ctx},
		ch,
		swapIDs,
		nil, // receivers
	)
	if err != nil {
		close(ch)
		return nil, fmt.Errorf("failed to watch SwapClaimed: %w", err)
	}

	// Create output channel with parsed events
	outCh := make(chan *SwapClaimedEvent, 10)
	go func() {
		defer close(outCh)
		defer sub.Unsubscribe()

		for {
			select {
			case event := <-ch:
				outCh <- &SwapClaimedEvent{
					SwapID:   event.SwapId,
					Receiver: event.Receiver,
					Secret:   event.Secret,
					TxHash:   event.Raw.TxHash,
					BlockNum: event.Raw.BlockNumber,
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return outCh, nil
}

// WaitForSecret waits for a swap to be claimed and returns the secret
func (c *Client) WaitForSecret(ctx context.Context, swapID [32]byte) ([32]byte, error) {
	ch, err := c.WatchSwapClaimed(ctx, [][32]byte{swapID})
	if err != nil {
		return [32]byte{}, err
	}

	select {
	case event := <-ch:
		if event == nil {
			return [32]byte{}, fmt.Errorf("channel closed without event")
		}
		return event.Secret, nil
	case <-ctx.Done():
		return [32]byte{}, ctx.Err()
	}
}

// =============================================================================
// Historical Event Queries
// =============================================================================

// GetSwapCreatedEvents queries historical SwapCreated events
func (c *Client) GetSwapCreatedEvents(
	ctx context.Context,
	fromBlock, toBlock uint64,
	swapIDs [][32]byte,
) ([]*SwapCreatedEvent, error) {
	opts := &bind.FilterOpts{
		Start:   fromBlock,
		End:     &toBlock,
		Context: ctx,
	}

	iter, err := c.contract.FilterSwapCreated(opts, swapIDs, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to filter SwapCreated: %w", err)
	}
	defer iter.Close()

	var events []*SwapCreatedEvent
	for iter.Next() {
		event := iter.Event
		events = append(events, &SwapCreatedEvent{
			SwapID:     event.SwapId,
			Sender:     event.Sender,
			Receiver:   event.Receiver,
			Token:      event.Token,
			Amount:     event.Amount,
			DaoFee:     event.DaoFee,
			SecretHash: event.SecretHash,
			Timelock:   event.Timelock,
			TxHash:     event.Raw.TxHash,
			BlockNum:   event.Raw.BlockNumber,
		})
	}

	return events, nil
}

// GetSwapClaimedEvents queries historical SwapClaimed events
func (c *Client) GetSwapClaimedEvents(
	ctx context.Context,
	fromBlock, toBlock uint64,
	swapIDs [][32]byte,
) ([]*SwapClaimedEvent, error) {
	opts := &bind.FilterOpts{
		Start:   fromBlock,
		End:     &toBlock,
		Context: ctx,
	}

	iter, err := c.contract.FilterSwapClaimed(opts, swapIDs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to filter SwapClaimed: %w", err)
	}
	defer iter.Close()

	var events []*SwapClaimedEvent
	for iter.Next() {
		event := iter.Event
		events = append(events, &SwapClaimedEvent{
			SwapID:   event.SwapId,
			Receiver: event.Receiver,
			Secret:   event.Secret,
			TxHash:   event.Raw.TxHash,
			BlockNum: event.Raw.BlockNumber,
		})
	}

	return events, nil
}

// GetSwapRefundedEvents queries historical SwapRefunded events
func (c *Client) GetSwapRefundedEvents(
	ctx context.Context,
	fromBlock, toBlock uint64,
	swapIDs [][32]byte,
) ([]*SwapRefundedEvent, error) {
	opts := &bind.FilterOpts{
		Start:   fromBlock,
		End:     &toBlock,
		Context: ctx,
	}

	iter, err := c.contract.FilterSwapRefunded(opts, swapIDs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to filter SwapRefunded: %w", err)
	}
	defer iter.Close()

	var events []*SwapRefundedEvent
	for iter.Next() {
		event := iter.Event
		events = append(events, &SwapRefundedEvent{
			SwapID:   event.SwapId,
			Sender:   event.Sender,
			TxHash:   event.Raw.TxHash,
			BlockNum: event.Raw.BlockNumber,
		})
	}

	return events, nil
}
