package service

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wallet-insights/internal/types"
)

// AssumedCostBasisRatio estimates the average acquisition price as a fraction
// of the current price.
const AssumedCostBasisRatio = 0.8

// CalculateProfitLoss derives profit/loss metrics for walletAddress from its
// transactions at currentPrice. A transaction counts as sent when its sender
// is the wallet (case-insensitive) and as received otherwise. Unparseable
// values count as zero and every non-finite result is reported as zero.
func CalculateProfitLoss(walletAddress string, transactions []types.Transaction, currentPrice float64) types.ProfitLossResult {
	if len(transactions) == 0 {
		return types.ProfitLossResult{}
	}

	price := finiteOrZero(currentPrice)

	var sent, received, volume decimal.Decimal
	for _, tx := range transactions {
		value, err := decimal.NewFromString(strings.TrimSpace(tx.Value))
		if err != nil {
			value = decimal.Zero
		}

		volume = volume.Add(value.Abs())
		if strings.EqualFold(tx.From, walletAddress) {
			sent = sent.Add(value)
		} else {
			received = received.Add(value)
		}
	}

	sentF := sent.InexactFloat64()
	balance := received.Sub(sent).InexactFloat64()

	currentValue := balance * price
	avgPrice := price * AssumedCostBasisRatio
	costBasis := balance * avgPrice
	unrealized := currentValue - costBasis
	realized := sentF * (price - avgPrice)

	return types.ProfitLossResult{
		TotalProfitLoss:  finiteOrZero(unrealized + realized),
		RealizedGains:    finiteOrZero(realized),
		UnrealizedGains:  finiteOrZero(unrealized),
		CostBasis:        finiteOrZero(costBasis),
		TotalVolume:      finiteOrZero(volume.InexactFloat64()),
		TransactionCount: len(transactions),
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
