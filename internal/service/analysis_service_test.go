package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
)

type analysisFixture struct {
	svc      *AnalysisService
	txs      *fakeTransactions
	prices   *fakePrices
	insights *fakeInsights
	repo     *fakeAnalysisRepo
	prefs    *fakePreferencesRepo
}

func newAnalysisFixture() *analysisFixture {
	f := &analysisFixture{
		txs: &fakeTransactions{txs: ethMockTransactions(testWallet)},
		prices: &fakePrices{prices: types.CurrentPrices{
			"bitcoin":  {USD: 40000},
			"ethereum": {USD: 2000},
		}},
		insights: &fakeInsights{text: "Diversify."},
		repo:     newFakeAnalysisRepo(),
		prefs:    newFakePreferencesRepo(),
	}
	f.svc = NewAnalysisService(f.txs, f.prices, f.insights, f.repo, f.prefs)
	f.svc.now = func() time.Time { return fakeEpoch }
	return f
}

func TestAnalysisService_GenerateWithoutPreferences(t *testing.T) {
	f := newAnalysisFixture()

	a, err := f.svc.GenerateFullAnalysis(context.Background(), "user-1", testWallet, types.BlockchainEthereum)
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Nil(t, a.AIInsights)
	assert.Zero(t, f.insights.calls)

	data := a.AnalysisData
	assert.Equal(t, models.AnalysisSchemaVersion, data.SchemaVersion)
	assert.InDelta(t, 2000, data.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 5.5, data.TotalVolume, 1e-9)
	assert.Equal(t, 2, data.TransactionCount)
	assert.Equal(t, 2000.0, data.CurrentPrice)
	assert.Equal(t, types.BlockchainEthereum, data.Blockchain)
	assert.Equal(t, fakeEpoch, data.AnalyzedAt)
	// 5.5 - 2000/2000
	assert.InDelta(t, 4.5, data.Balance, 1e-9)
}

func TestAnalysisService_GenerateWithPreferences(t *testing.T) {
	f := newAnalysisFixture()
	f.prefs.byUser["user-1"] = uniformPreferences(5)

	a, err := f.svc.GenerateFullAnalysis(context.Background(), "user-1", testWallet, types.BlockchainEthereum)
	require.NoError(t, err)

	require.NotNil(t, a.AIInsights)
	assert.Equal(t, "Diversify.", *a.AIInsights)
	assert.Equal(t, 1, f.insights.calls)
	assert.Equal(t, types.BlockchainEthereum, f.insights.lastPayload.Blockchain)
	assert.InDelta(t, 4.5, f.insights.lastPayload.Balance, 1e-9)
	assert.Equal(t, 2000.0, f.insights.lastPayload.CurrentPrice)
}

func TestAnalysisService_InsightFailureIsNotFatal(t *testing.T) {
	f := newAnalysisFixture()
	f.prefs.byUser["user-1"] = uniformPreferences(5)
	f.insights.err = errors.New("Empty response from Gemini")

	a, err := f.svc.GenerateFullAnalysis(context.Background(), "user-1", testWallet, types.BlockchainEthereum)
	require.NoError(t, err)
	assert.Nil(t, a.AIInsights)
	assert.Equal(t, 1, f.insights.calls)
}

func TestAnalysisService_RerunKeepsID(t *testing.T) {
	f := newAnalysisFixture()
	ctx := context.Background()

	first, err := f.svc.GenerateFullAnalysis(ctx, "user-1", testWallet, types.BlockchainEthereum)
	require.NoError(t, err)

	f.prices.prices["ethereum"] = types.CoinPrice{USD: 3000}
	second, err := f.svc.GenerateFullAnalysis(ctx, "user-1", testWallet, types.BlockchainEthereum)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3000.0, second.AnalysisData.CurrentPrice)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	_, total, err := f.repo.ListByUser(ctx, "user-1", models.AnalysisFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestAnalysisService_UpstreamErrorsPropagate(t *testing.T) {
	t.Run("transactions", func(t *testing.T) {
		f := newAnalysisFixture()
		f.txs.err = apperrors.NewInvalidAddressError("Invalid Ethereum address", "0x1")

		_, err := f.svc.GenerateFullAnalysis(context.Background(), "user-1", "0x1", types.BlockchainEthereum)
		require.Error(t, err)
		assert.Equal(t, "Invalid Ethereum address", apperrors.Categorize(err).Message)
		assert.Empty(t, f.repo.analyses)
	})

	t.Run("price", func(t *testing.T) {
		f := newAnalysisFixture()
		f.prices.err = apperrors.NewProviderError("coingecko", "CoinGecko API error: 500")

		_, err := f.svc.GenerateFullAnalysis(context.Background(), "user-1", testWallet, types.BlockchainEthereum)
		require.Error(t, err)
		assert.Equal(t, 500, apperrors.GetHTTPStatusCode(err))
		assert.Empty(t, f.repo.analyses)
	})

	t.Run("invalid chain", func(t *testing.T) {
		f := newAnalysisFixture()

		_, err := f.svc.GenerateFullAnalysis(context.Background(), "user-1", testWallet, types.Blockchain("solana"))
		assert.True(t, apperrors.HasCategory(err, apperrors.CategoryValidation))
		assert.Zero(t, f.txs.calls)
	})

	t.Run("store", func(t *testing.T) {
		f := newAnalysisFixture()
		f.repo.err = errors.New("connection reset")

		_, err := f.svc.GenerateFullAnalysis(context.Background(), "user-1", testWallet, types.BlockchainEthereum)
		assert.True(t, apperrors.HasCategory(err, apperrors.CategoryDatabase))
	})
}

func TestAnalysisService_GetAnalysisHistory(t *testing.T) {
	f := newAnalysisFixture()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		chain := types.BlockchainEthereum
		if i%3 == 0 {
			chain = types.BlockchainBitcoin
		}
		require.NoError(t, f.repo.Upsert(ctx, &models.WalletAnalysis{
			UserID:        "user-1",
			WalletAddress: string(rune('a' + i)),
			Blockchain:    chain,
		}))
	}
	require.NoError(t, f.repo.Upsert(ctx, &models.WalletAnalysis{UserID: "user-2", WalletAddress: "z"}))

	page, err := f.svc.GetAnalysisHistory(ctx, "user-1", HistoryOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Analyses, 10)
	assert.Equal(t, types.Pagination{CurrentPage: 1, TotalPages: 2, TotalItems: 12, ItemsPerPage: 10}, page.Pagination)
	assert.Equal(t, "l", page.Analyses[0].WalletAddress)

	second, err := f.svc.GetAnalysisHistory(ctx, "user-1", HistoryOptions{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Analyses, 2)

	btc := types.BlockchainBitcoin
	filtered, err := f.svc.GetAnalysisHistory(ctx, "user-1", HistoryOptions{Limit: 3, Blockchain: &btc})
	require.NoError(t, err)
	assert.Equal(t, 4, filtered.Pagination.TotalItems)
	assert.Equal(t, 2, filtered.Pagination.TotalPages)
	for _, a := range filtered.Analyses {
		assert.Equal(t, types.BlockchainBitcoin, a.Blockchain)
	}

	capped, err := f.svc.GetAnalysisHistory(ctx, "user-1", HistoryOptions{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxHistoryLimit, capped.Pagination.ItemsPerPage)

	// a re-run keeps the analysis in its original place
	require.NoError(t, f.repo.Upsert(ctx, &models.WalletAnalysis{UserID: "user-1", WalletAddress: "a", Blockchain: types.BlockchainBitcoin}))
	rerun, err := f.svc.GetAnalysisHistory(ctx, "user-1", HistoryOptions{Limit: MaxHistoryLimit})
	require.NoError(t, err)
	require.Len(t, rerun.Analyses, 12)
	assert.Equal(t, "l", rerun.Analyses[0].WalletAddress)
	assert.Equal(t, "a", rerun.Analyses[11].WalletAddress)
}

func TestAnalysisService_GetAnalysisAndSummary(t *testing.T) {
	f := newAnalysisFixture()
	ctx := context.Background()

	a, err := f.svc.GenerateFullAnalysis(ctx, "user-1", testWallet, types.BlockchainEthereum)
	require.NoError(t, err)

	got, err := f.svc.GetAnalysis(ctx, "user-1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.svc.GetAnalysis(ctx, "user-2", a.ID)
	require.Error(t, err)
	catErr := apperrors.Categorize(err)
	assert.Equal(t, 404, catErr.StatusCode)
	assert.Equal(t, "Analysis not found", catErr.Message)

	summary, err := f.svc.GetQuickSummary(ctx, "user-1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Diversify.", summary)
	require.Len(t, f.insights.summaryCalls, 1)
	assert.InDelta(t, 2000, f.insights.summaryCalls[0], 1e-9)
}

func TestAnalysisService_Prices(t *testing.T) {
	f := newAnalysisFixture()
	f.prices.history = []types.PricePoint{{Timestamp: 1, Price: 2}}

	prices, err := f.svc.GetCurrentPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40000.0, prices["bitcoin"].USD)

	history, err := f.svc.GetPriceHistory(context.Background(), types.BlockchainBitcoin, 7)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.GetPriceHistory(context.Background(), types.Blockchain("doge"), 7)
	assert.True(t, apperrors.HasCategory(err, apperrors.CategoryValidation))
}
