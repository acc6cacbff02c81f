package adapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wallet-insights/internal/cache"
	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/types"
)

// TransactionFetcher validates addresses and serves transactions from the
// matching ChainAdapter, caching results per address.
type TransactionFetcher struct {
	adapters map[types.Blockchain]ChainAdapter
	cache    cache.Cache
}

// NewTransactionFetcher creates a fetcher over the given adapters
func NewTransactionFetcher(c cache.Cache, adapters ...ChainAdapter) *TransactionFetcher {
	byChain := make(map[types.Blockchain]ChainAdapter, len(adapters))
	for _, a := range adapters {
		byChain[a.Blockchain()] = a
	}
	return &TransactionFetcher{
		adapters: byChain,
		cache:    c,
	}
}

// transactionCacheKey returns btc:txs:<address> or eth:txs:<address>:<includeTokenTransfers>
func transactionCacheKey(address string, chain types.Blockchain, opts types.FetchOptions) string {
	if chain == types.BlockchainBitcoin {
		return cache.Key("btc", "txs", address)
	}
	return cache.Key("eth", "txs", address, strconv.FormatBool(opts.IncludeTokenTransfers))
}

func invalidAddressMessage(chain types.Blockchain) string {
	switch chain {
	case types.BlockchainBitcoin:
		return "Invalid Bitcoin address"
	case types.BlockchainEthereum:
		return "Invalid Ethereum address"
	default:
		return "Invalid wallet address"
	}
}

// FetchTransactions returns the transactions for address on chain. Invalid
// addresses fail with a validation error before any lookup.
func (f *TransactionFetcher) FetchTransactions(ctx context.Context, address string, chain types.Blockchain, opts types.FetchOptions) ([]types.Transaction, error) {
	adapter, ok := f.adapters[chain]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s: %s", ErrUnsupportedBlockchain, chain))
	}

	if !adapter.ValidateAddress(address) {
		return nil, apperrors.NewInvalidAddressError(invalidAddressMessage(chain), address)
	}

	logger := logging.FromContext(ctx)
	key := transactionCacheKey(address, chain, opts)

	var cached []types.Transaction
	found, err := f.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.WithError(err).WithField("key", key).Warn("Transaction cache lookup failed")
	}
	if found {
		return cached, nil
	}

	txs, err := adapter.FetchTransactions(ctx, address, opts)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(ctx, key, txs); err != nil {
		logger.WithError(err).WithField("key", key).Warn("Failed to cache transactions")
	}

	return txs, nil
}
