package backend

import (
	"context"
	"sync"
)

// Fixture is an in-memory Backend used by engine tests and by callers
// wiring the swap engine before a real RPC client is available. It is not a
// concrete blockchain client - it has no network code - only enough state to
// drive the watcher/factory contracts deterministically.
type Fixture struct {
	mu sync.Mutex

	connected bool

	txs          map[string]*Transaction
	utxos        map[string][]UTXO
	blockHeight  int64
	feeEstimate  FeeEstimate
	broadcastLog []string
}

// NewFixture returns an empty Fixture backend.
func NewFixture() *Fixture {
	return &Fixture{
		txs:   make(map[string]*Transaction),
		utxos: make(map[string][]UTXO),
	}
}

func (f *Fixture) Type() Type { return "fixture" }

func (f *Fixture) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *Fixture) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *Fixture) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fixture) GetAddressInfo(ctx context.Context, address string) (*AddressInfo, error) {
	return &AddressInfo{Address: address}, nil
}

func (f *Fixture) GetAddressUTXOs(ctx context.Context, address string) ([]UTXO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UTXO(nil), f.utxos[address]...), nil
}

func (f *Fixture) GetAddressTxs(ctx context.Context, address string, lastSeenTxID string) ([]Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Transaction
	for _, tx := range f.txs {
		out = append(out, *tx)
	}
	return out, nil
}

func (f *Fixture) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[txID]
	if !ok {
		return nil, nil // NotFound is a transient nil, per the transaction watcher contract
	}
	cp := *tx
	return &cp, nil
}

func (f *Fixture) GetRawTransaction(ctx context.Context, txID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.txs[txID]; !ok {
		return nil, ErrTxNotFound
	}
	return []byte(txID), nil
}

func (f *Fixture) BroadcastTransaction(ctx context.Context, rawTxHex string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcastLog = append(f.broadcastLog, rawTxHex)
	return rawTxHex, nil
}

func (f *Fixture) GetBlockHeight(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockHeight, nil
}

func (f *Fixture) GetBlockHeader(ctx context.Context, hashOrHeight string) (*BlockHeader, error) {
	return &BlockHeader{Hash: hashOrHeight}, nil
}

func (f *Fixture) GetFeeEstimates(ctx context.Context) (*FeeEstimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	est := f.feeEstimate
	return &est, nil
}

// SetTransaction installs a transaction the fixture will report for GetTransaction.
func (f *Fixture) SetTransaction(tx *Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[tx.TxID] = tx
}

// SetUTXOs installs the UTXO set the fixture will report for an address.
func (f *Fixture) SetUTXOs(address string, utxos []UTXO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utxos[address] = utxos
}

// SetBlockHeight sets the height GetBlockHeight will report.
func (f *Fixture) SetBlockHeight(h int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockHeight = h
}

// Broadcasts returns every raw tx handed to BroadcastTransaction, in order.
func (f *Fixture) Broadcasts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.broadcastLog...)
}

var _ Backend = (*Fixture)(nil)
