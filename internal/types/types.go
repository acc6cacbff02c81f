// Package types provides common type definitions for the wallet insights service.
package types

import (
	"strings"
	"time"
)

// Blockchain represents a supported chain
type Blockchain string

const (
	// BlockchainBitcoin represents the Bitcoin network
	BlockchainBitcoin Blockchain = "bitcoin"
	// BlockchainEthereum represents the Ethereum mainnet
	BlockchainEthereum Blockchain = "ethereum"
)

// SupportedBlockchains lists every chain the service can analyse
var SupportedBlockchains = []Blockchain{BlockchainBitcoin, BlockchainEthereum}

// IsValid reports whether b is a supported chain
func (b Blockchain) IsValid() bool {
	switch b {
	case BlockchainBitcoin, BlockchainEthereum:
		return true
	default:
		return false
	}
}

// CoinID returns the price-provider identifier for the chain's native coin.
func (b Blockchain) CoinID() string {
	return string(b)
}

// Ticker returns the first three letters of the chain name, upper-cased.
func (b Blockchain) Ticker() string {
	upper := strings.ToUpper(string(b))
	if len(upper) > 3 {
		return upper[:3]
	}
	return upper
}

// ParseBlockchain parses a chain name, case-insensitively
func ParseBlockchain(s string) (Blockchain, bool) {
	b := Blockchain(strings.ToLower(strings.TrimSpace(s)))
	return b, b.IsValid()
}

// Transaction is a single on-chain transfer as returned by a transaction source.
// Value is a decimal string in the chain's native unit.
type Transaction struct {
	Hash        string `json:"hash"`
	BlockNumber int64  `json:"blockNumber"`
	Timestamp   string `json:"timestamp"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Fee         string `json:"fee,omitempty"`
	GasUsed     string `json:"gasUsed,omitempty"`
}

// FetchOptions tunes a transaction fetch
type FetchOptions struct {
	IncludeTokenTransfers bool
}

// ProfitLossResult holds the aggregate metrics for one wallet.
// TotalVolume is in native units; the other amounts are USD.
type ProfitLossResult struct {
	TotalProfitLoss  float64 `json:"totalProfitLoss"`
	RealizedGains    float64 `json:"realizedGains"`
	UnrealizedGains  float64 `json:"unrealizedGains"`
	CostBasis        float64 `json:"costBasis"`
	TotalVolume      float64 `json:"totalVolume"`
	TransactionCount int     `json:"transactionCount"`
}

// CoinPrice is a spot price with its 24 hour change
type CoinPrice struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
}

// CurrentPrices maps a coin id to its spot price
type CurrentPrices map[string]CoinPrice

// PricePoint is one sample of a historical price series
type PricePoint struct {
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
	Price     float64 `json:"price"`
}

// Pagination describes one page of a listing
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// NewPagination computes page counts for a listing
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}

// HealthStatus represents the health status of a dependency
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}
