package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/types"
)

// BitcoinAdapter serves Bitcoin transactions. It is a placeholder for an
// indexer such as Blockstream and returns one outgoing transfer.
type BitcoinAdapter struct {
	now func() time.Time
}

// NewBitcoinAdapter creates a Bitcoin adapter
func NewBitcoinAdapter() *BitcoinAdapter {
	return &BitcoinAdapter{now: time.Now}
}

// Blockchain implements ChainAdapter
func (a *BitcoinAdapter) Blockchain() types.Blockchain {
	return types.BlockchainBitcoin
}

// ValidateAddress implements ChainAdapter
func (a *BitcoinAdapter) ValidateAddress(address string) bool {
	return bitcoinAddressPattern.MatchString(address)
}

// FetchTransactions implements ChainAdapter
func (a *BitcoinAdapter) FetchTransactions(ctx context.Context, address string, opts types.FetchOptions) ([]types.Transaction, error) {
	logging.FromContext(ctx).WithField("address", address).Info("Fetching Bitcoin transactions")

	now := time.Now
	if a.now != nil {
		now = a.now
	}
	timestamp := now().UTC().Format(time.RFC3339)

	return []types.Transaction{
		{
			Hash:        "0x" + strings.Repeat("a", 64),
			BlockNumber: 800000,
			Timestamp:   timestamp,
			From:        address,
			To:          "bc1q" + strings.Repeat("b", 38),
			Value:       "0.1",
			Fee:         "0.0001",
		},
	}, nil
}
