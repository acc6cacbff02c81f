package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/types"
)

// EthereumAdapter serves Ethereum transactions. It is a placeholder for an
// indexer such as Etherscan and returns one outgoing and one incoming transfer.
type EthereumAdapter struct {
	now func() time.Time
}

// NewEthereumAdapter creates an Ethereum adapter
func NewEthereumAdapter() *EthereumAdapter {
	return &EthereumAdapter{now: time.Now}
}

// Blockchain implements ChainAdapter
func (a *EthereumAdapter) Blockchain() types.Blockchain {
	return types.BlockchainEthereum
}

// ValidateAddress implements ChainAdapter. The pattern requires the 0x prefix,
// which common.IsHexAddress alone would not.
func (a *EthereumAdapter) ValidateAddress(address string) bool {
	return ethereumAddressPattern.MatchString(address) && common.IsHexAddress(address)
}

// FetchTransactions implements ChainAdapter
func (a *EthereumAdapter) FetchTransactions(ctx context.Context, address string, opts types.FetchOptions) ([]types.Transaction, error) {
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"address":               address,
		"includeTokenTransfers": opts.IncludeTokenTransfers,
	}).Info("Fetching Ethereum transactions")

	now := time.Now
	if a.now != nil {
		now = a.now
	}
	timestamp := now().UTC().Format(time.RFC3339)

	return []types.Transaction{
		{
			Hash:        "0x" + strings.Repeat("c", 64),
			BlockNumber: 19000000,
			Timestamp:   timestamp,
			From:        address,
			To:          "0x" + strings.Repeat("d", 40),
			Value:       "0.5",
			GasUsed:     "21000",
		},
		{
			Hash:        "0x" + strings.Repeat("e", 64),
			BlockNumber: 19000002,
			Timestamp:   timestamp,
			From:        "0x" + strings.Repeat("f", 40),
			To:          address,
			Value:       "5.0",
			GasUsed:     "21000",
		},
	}, nil
}
