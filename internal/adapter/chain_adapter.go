// Package adapter contains clients for external data: chain transaction
// sources, the CoinGecko price API and the Gemini text-generation API.
package adapter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wallet-insights/internal/types"
)

// ChainAdapter is a per-chain source of transactions. Implementations may call
// an indexer; the shipped ones return a fixed illustrative list.
type ChainAdapter interface {
	// FetchTransactions retrieves transactions for an address. The address is
	// validated by the caller.
	FetchTransactions(ctx context.Context, address string, opts types.FetchOptions) ([]types.Transaction, error)

	// ValidateAddress checks if address format is valid for this chain
	ValidateAddress(address string) bool

	// Blockchain returns the chain identifier
	Blockchain() types.Blockchain
}

// ErrUnsupportedBlockchain indicates no adapter serves the requested chain
var ErrUnsupportedBlockchain = fmt.Errorf("unsupported blockchain")

var (
	bitcoinAddressPattern  = regexp.MustCompile(`^(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,62}$`)
	ethereumAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// ValidateWalletAddress reports whether address is well-formed for chain.
// Format only: no checksum or network lookup.
func ValidateWalletAddress(address string, chain types.Blockchain) bool {
	switch chain {
	case types.BlockchainBitcoin:
		return (&BitcoinAdapter{}).ValidateAddress(address)
	case types.BlockchainEthereum:
		return (&EthereumAdapter{}).ValidateAddress(address)
	default:
		return false
	}
}
