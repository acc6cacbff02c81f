package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wallet-insights/internal/types"
)

// AnalysisSchemaVersion is the current AnalysisData layout
const AnalysisSchemaVersion = 1

// AnalysisData is the versioned JSONB document stored with every analysis.
type AnalysisData struct {
	SchemaVersion int `json:"schemaVersion"`
	types.ProfitLossResult
	CurrentPrice float64          `json:"currentPrice"`
	Blockchain   types.Blockchain `json:"blockchain"`
	AnalyzedAt   time.Time        `json:"analyzedAt"`
	Balance      float64          `json:"balance"`
}

// DecodeAnalysisData parses a stored document, rejecting unknown versions.
func DecodeAnalysisData(raw []byte) (AnalysisData, error) {
	var data AnalysisData
	if err := json.Unmarshal(raw, &data); err != nil {
		return AnalysisData{}, fmt.Errorf("failed to decode analysis data: %w", err)
	}
	if data.SchemaVersion != AnalysisSchemaVersion {
		return AnalysisData{}, fmt.Errorf("unsupported analysis data schema version %d", data.SchemaVersion)
	}
	return data, nil
}

// WalletAnalysis is the persisted result of one wallet analysis. Re-running an
// analysis for the same (user, wallet) updates this row in place.
type WalletAnalysis struct {
	ID            string           `json:"id" db:"id"`
	UserID        string           `json:"userId" db:"user_id"`
	WalletAddress string           `json:"walletAddress" db:"wallet_address"`
	Blockchain    types.Blockchain `json:"blockchain" db:"blockchain"`
	AnalysisData  AnalysisData     `json:"analysisData" db:"analysis_data"`
	AIInsights    *string          `json:"aiInsights" db:"ai_insights"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}

// AnalysisFilter narrows an analysis history listing
type AnalysisFilter struct {
	Blockchain *types.Blockchain
	Limit      int
	Offset     int
}
