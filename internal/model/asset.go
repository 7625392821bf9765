package model

import "fmt"

type Asset string
type Network string
type Mode string

var (
	INF   Asset = "INF"
	ICP   Asset = "ICP"
	CkBTC Asset = "ckBTC"
	CkETH Asset = "ckETH"
	CkSOL Asset = "ckSOL"
)

var (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)

var (
	// Wrapped moves the asset on its own ledger.
	Wrapped Mode = "wrapped"
	// Native moves the underlying coin on its home chain.
	Native Mode = "native"
)

// E8s is the number of base units in one whole token on every supported ledger.
const E8s = 100_000_000

// Assets lists every supported asset in display order.
func Assets() []Asset {
	return []Asset{INF, ICP, CkBTC, CkETH, CkSOL}
}

// ParseAsset accepts the canonical symbol of a supported asset.
func ParseAsset(s string) (Asset, error) {
	for _, a := range Assets() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown asset %q", s)
}

// ParseMode accepts "wrapped" or "native"; empty means wrapped.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Wrapped:
		return Wrapped, nil
	case Native:
		return Native, nil
	default:
		return "", fmt.Errorf("unknown transfer mode %q", s)
	}
}
