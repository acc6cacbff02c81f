package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/metrics"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/storage"
	"github.com/wallet-insights/internal/types"
)

// History paging bounds
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// PriceProvider serves spot and historical coin prices
type PriceProvider interface {
	GetCurrentPrices(ctx context.Context) (types.CurrentPrices, error)
	GetCoinPrice(ctx context.Context, coin string) (float64, error)
	GetHistoricalPrices(ctx context.Context, coin string, days int) ([]types.PricePoint, error)
}

// TransactionProvider serves validated, cached wallet transactions
type TransactionProvider interface {
	FetchTransactions(ctx context.Context, address string, chain types.Blockchain, opts types.FetchOptions) ([]types.Transaction, error)
}

// InsightGenerator produces AI commentary for an analysis
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, data AIAnalysisPayload, prefs *models.InvestmentPreferences, chain types.Blockchain) (string, error)
	GenerateQuickSummary(ctx context.Context, profitLoss float64, chain types.Blockchain) (string, error)
}

// AnalysisRepository interface for analysis persistence
type AnalysisRepository interface {
	Upsert(ctx context.Context, a *models.WalletAnalysis) error
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.WalletAnalysis, error)
	ListByUser(ctx context.Context, userID string, filter models.AnalysisFilter) ([]*models.WalletAnalysis, int, error)
}

// PreferencesRepository interface for preference persistence
type PreferencesRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.InvestmentPreferences, error)
	Upsert(ctx context.Context, p *models.InvestmentPreferences) error
}

// HistoryOptions selects a page of analysis history
type HistoryOptions struct {
	Page       int
	Limit      int
	Blockchain *types.Blockchain
}

// AnalysisHistory is one page of a user's analyses
type AnalysisHistory struct {
	Analyses   []*models.WalletAnalysis `json:"analyses"`
	Pagination types.Pagination         `json:"pagination"`
}

// AnalysisService runs wallet analyses and serves their history
type AnalysisService struct {
	transactions TransactionProvider
	prices       PriceProvider
	insights     InsightGenerator
	analyses     AnalysisRepository
	preferences  PreferencesRepository
	now          func() time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	transactions TransactionProvider,
	prices PriceProvider,
	insights InsightGenerator,
	analyses AnalysisRepository,
	preferences PreferencesRepository,
) *AnalysisService {
	return &AnalysisService{
		transactions: transactions,
		prices:       prices,
		insights:     insights,
		analyses:     analyses,
		preferences:  preferences,
		now:          time.Now,
	}
}

// GenerateFullAnalysis fetches the wallet's transactions and the coin price,
// computes profit/loss, adds insights when the user has preferences and
// stores the result, replacing any earlier analysis of the same wallet.
func (s *AnalysisService) GenerateFullAnalysis(ctx context.Context, userID, walletAddress string, chain types.Blockchain) (*models.WalletAnalysis, error) {
	if !chain.IsValid() {
		return nil, apperrors.NewValidationError("Invalid blockchain")
	}

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"userId":     userID,
		"wallet":     walletAddress,
		"blockchain": chain,
	})

	var (
		txs   []types.Transaction
		price float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.transactions.FetchTransactions(gctx, walletAddress, chain, types.FetchOptions{})
		return err
	})
	g.Go(func() error {
		var err error
		price, err = s.prices.GetCoinPrice(gctx, chain.CoinID())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pl := CalculateProfitLoss(walletAddress, txs, price)
	balance := finiteOrZero(pl.TotalVolume - pl.TotalProfitLoss/price)

	prefs, err := s.loadPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	var insights *string
	if prefs != nil {
		payload := AIAnalysisPayload{
			ProfitLossResult: pl,
			Blockchain:       chain,
			Balance:          balance,
			CurrentPrice:     price,
		}
		text, err := s.insights.GenerateInsights(ctx, payload, prefs, chain)
		if err != nil {
			metrics.InsightFailures.WithLabelValues(string(chain)).Inc()
			logger.WithError(err).Warn("AI insights generation failed, continuing without")
		} else {
			insights = &text
		}
	}

	analysis := &models.WalletAnalysis{
		UserID:        userID,
		WalletAddress: walletAddress,
		Blockchain:    chain,
		AnalysisData: models.AnalysisData{
			SchemaVersion:    models.AnalysisSchemaVersion,
			ProfitLossResult: pl,
			CurrentPrice:     price,
			Blockchain:       chain,
			AnalyzedAt:       s.now().UTC(),
			Balance:          balance,
		},
		AIInsights: insights,
	}

	if err := s.analyses.Upsert(ctx, analysis); err != nil {
		return nil, apperrors.NewDatabaseError("store analysis", err)
	}

	metrics.AnalysesGenerated.WithLabelValues(string(chain)).Inc()
	logger.WithField("analysisId", analysis.ID).Info("Wallet analysis stored")

	return analysis, nil
}

func (s *AnalysisService) loadPreferences(ctx context.Context, userID string) (*models.InvestmentPreferences, error) {
	prefs, err := s.preferences.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("load preferences", err)
	}
	return prefs, nil
}

// GetAnalysisHistory returns a page of the user's analyses, newest first.
// Page defaults to 1 and limit to 10, capped at 50.
func (s *AnalysisService) GetAnalysisHistory(ctx context.Context, userID string, opts HistoryOptions) (*AnalysisHistory, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	analyses, total, err := s.analyses.ListByUser(ctx, userID, models.AnalysisFilter{
		Blockchain: opts.Blockchain,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list analyses", err)
	}

	return &AnalysisHistory{
		Analyses:   analyses,
		Pagination: types.NewPagination(page, limit, total),
	}, nil
}

// GetAnalysis returns one of the user's analyses
func (s *AnalysisService) GetAnalysis(ctx context.Context, userID, id string) (*models.WalletAnalysis, error) {
	a, err := s.analyses.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Analysis not found")
		}
		return nil, apperrors.NewDatabaseError("get analysis", err)
	}
	return a, nil
}

// GetQuickSummary returns a one-sentence summary of a stored analysis
func (s *AnalysisService) GetQuickSummary(ctx context.Context, userID, id string) (string, error) {
	a, err := s.GetAnalysis(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return s.insights.GenerateQuickSummary(ctx, a.AnalysisData.TotalProfitLoss, a.Blockchain)
}

// GetCurrentPrices returns spot prices for the supported coins
func (s *AnalysisService) GetCurrentPrices(ctx context.Context) (types.CurrentPrices, error) {
	return s.prices.GetCurrentPrices(ctx)
}

// GetPriceHistory returns the USD price series of the chain's coin
func (s *AnalysisService) GetPriceHistory(ctx context.Context, chain types.Blockchain, days int) ([]types.PricePoint, error) {
	if !chain.IsValid() {
		return nil, apperrors.NewValidationError("Invalid coin")
	}
	return s.prices.GetHistoricalPrices(ctx, chain.CoinID(), days)
}
