// Package config (this file) provides known default HTLC contract
// addresses for EVM chains the engine can swap against. appconfig.EVMConfig
// lets an operator set evm.contract_address explicitly; when they leave it
// blank, cmd/swapengine resolves it from this registry by the chain ID
// reported by the configured RPC endpoint, so a node pointed at a chain
// with a known deployment doesn't need the address spelled out in YAML.
package config

import "github.com/ethereum/go-ethereum/common"

// EVMContractAddresses holds contract addresses for a specific EVM chain.
type EVMContractAddresses struct {
	// HTLCContract is the deployed atomic-swap HTLC contract address.
	HTLCContract common.Address
}

// evmContractRegistry maps chainID -> known contract addresses. Mainnet
// deployments are deliberately absent until the contract has been audited;
// an operator swapping on mainnet must set evm.contract_address explicitly.
var evmContractRegistry = map[uint64]*EVMContractAddresses{
	// Ethereum Sepolia
	11155111: {
		HTLCContract: common.HexToAddress("0x9f2A3b6c1D4e8F015a7C9b3D2e6F401A8b3C5D7e"),
	},
	// BSC Testnet
	97: {
		HTLCContract: common.HexToAddress("0x4c1A9d6E3b2F805c7A1D9e4B6F2038c5A7D9E1F3"),
	},
}

// GetHTLCContract returns the HTLC contract address for a given chain ID.
// Returns zero address if the chain is not registered.
func GetHTLCContract(chainID uint64) common.Address {
	if contracts := evmContractRegistry[chainID]; contracts != nil {
		return contracts.HTLCContract
	}
	return common.Address{}
}

// IsHTLCDeployed returns true if a known HTLC contract address is
// registered for the given chain.
func IsHTLCDeployed(chainID uint64) bool {
	return GetHTLCContract(chainID) != (common.Address{})
}
