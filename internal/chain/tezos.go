package chain

func init() {
	// Tezos Mainnet
	Register("XTZ", Mainnet, &Params{
		Symbol:   "XTZ",
		Name:     "Tezos",
		Type:     ChainTypeTezos,
		Decimals: 6, // mutez

		CoinType:       1729,
		DefaultPurpose: 44,

		HTLCContractAddress: "KT1HTLCMainnetPlaceholder00000000000000",

		SupportsSegWit:     false,
		SupportsTaproot:    false,
		DefaultAddressType: AddressTezos,
	})

	// Tezos Ghostnet (testnet)
	Register("XTZ", Testnet, &Params{
		Symbol:   "XTZ",
		Name:     "Tezos Ghostnet",
		Type:     ChainTypeTezos,
		Decimals: 6,

		CoinType:       1729,
		DefaultPurpose: 44,

		HTLCContractAddress: "KT1HTLCGhostnetPlaceholder000000000000",

		SupportsSegWit:     false,
		SupportsTaproot:    false,
		DefaultAddressType: AddressTezos,
	})

	// TZBTC, an FA1.2 token wrapping BTC on Tezos - the canonical FA1.2 swap pair.
	Register("TZBTC", Mainnet, &Params{
		Symbol:   "TZBTC",
		Name:     "tzBTC",
		Type:     ChainTypeFa12,
		Decimals: 8,

		CoinType:       1729,
		DefaultPurpose: 44,

		HTLCContractAddress: "KT1HTLCMainnetPlaceholder00000000000000",
		Fa12LedgerAddress:   "KT1PWx2mnDueood7fEmfbBDKx1D9BAnnXitn",

		DefaultAddressType: AddressFa12,
	})

	Register("TZBTC", Testnet, &Params{
		Symbol:   "TZBTC",
		Name:     "tzBTC (Ghostnet)",
		Type:     ChainTypeFa12,
		Decimals: 8,

		CoinType:       1729,
		DefaultPurpose: 44,

		HTLCContractAddress: "KT1HTLCGhostnetPlaceholder000000000000",
		Fa12LedgerAddress:   "KT1GhostnetTzBTCPlaceholder0000000000",

		DefaultAddressType: AddressFa12,
	})
}
