package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wallet-insights/internal/adapter"
	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/storage"
)

// WalletRepository interface for connected wallet persistence
type WalletRepository interface {
	Create(ctx context.Context, w *models.ConnectedWallet) error
	ListByUser(ctx context.Context, userID string) ([]*models.ConnectedWallet, error)
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.ConnectedWallet, error)
	DeleteByIDAndUser(ctx context.Context, id, userID string) error
	SetPrimary(ctx context.Context, id, userID string) (*models.ConnectedWallet, error)
}

// AnalysisLister lists stored analyses
type AnalysisLister interface {
	ListByUser(ctx context.Context, userID string, filter models.AnalysisFilter) ([]*models.WalletAnalysis, int, error)
}

// ProfileService manages a user's preferences and connected wallets
type ProfileService struct {
	preferences PreferencesRepository
	wallets     WalletRepository
	analyses    AnalysisLister
}

// NewProfileService creates a new profile service
func NewProfileService(preferences PreferencesRepository, wallets WalletRepository, analyses AnalysisLister) *ProfileService {
	return &ProfileService{
		preferences: preferences,
		wallets:     wallets,
		analyses:    analyses,
	}
}

// GetPreferences returns the user's preferences, or nil when none are stored
func (s *ProfileService) GetPreferences(ctx context.Context, userID string) (*models.InvestmentPreferences, error) {
	prefs, err := s.preferences.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("get preferences", err)
	}
	return prefs, nil
}

// UpdatePreferences applies a partial update. The first write for a user
// must carry all ten scores.
func (s *ProfileService) UpdatePreferences(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.InvestmentPreferences, error) {
	if err := update.CheckRange(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if prefs == nil {
		if missing := update.FirstMissing(); missing != "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("Missing required field: %s", missing))
		}
		prefs = &models.InvestmentPreferences{UserID: userID}
	}
	update.ApplyTo(prefs)

	if err := s.preferences.Upsert(ctx, prefs); err != nil {
		return nil, apperrors.NewDatabaseError("save preferences", err)
	}
	return prefs, nil
}

// GetConnectedWallets returns the user's wallets, newest first
func (s *ProfileService) GetConnectedWallets(ctx context.Context, userID string) ([]*models.ConnectedWallet, error) {
	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list wallets", err)
	}
	return wallets, nil
}

// AddConnectedWallet connects a wallet. The user's first wallet becomes primary.
func (s *ProfileService) AddConnectedWallet(ctx context.Context, userID string, input models.NewWallet) (*models.ConnectedWallet, error) {
	address := strings.TrimSpace(input.WalletAddress)
	if !adapter.ValidateWalletAddress(address, input.Blockchain) {
		return nil, apperrors.NewValidationError("Invalid wallet address")
	}

	existing, err := s.GetConnectedWallets(ctx, userID)
	if err != nil {
		return nil, err
	}

	wallet := &models.ConnectedWallet{
		UserID:        userID,
		WalletAddress: address,
		Blockchain:    input.Blockchain,
		Nickname:      input.Nickname,
		IsPrimary:     len(existing) == 0,
	}

	if err := s.wallets.Create(ctx, wallet); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.NewConflictError("Wallet already connected")
		}
		return nil, apperrors.NewDatabaseError("connect wallet", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"userId":   userID,
		"walletId": wallet.ID,
		"primary":  wallet.IsPrimary,
	}).Info("Wallet connected")

	return wallet, nil
}

// RemoveConnectedWallet disconnects a wallet. Removing the primary wallet
// promotes the newest remaining one.
func (s *ProfileService) RemoveConnectedWallet(ctx context.Context, userID, walletID string) error {
	wallet, err := s.getWallet(ctx, userID, walletID)
	if err != nil {
		return err
	}

	if err := s.wallets.DeleteByIDAndUser(ctx, walletID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("Wallet not found")
		}
		return apperrors.NewDatabaseError("remove wallet", err)
	}

	if !wallet.IsPrimary {
		return nil
	}

	remaining, err := s.GetConnectedWallets(ctx, userID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return nil
	}
	if _, err := s.wallets.SetPrimary(ctx, remaining[0].ID, userID); err != nil {
		return apperrors.NewDatabaseError("promote primary wallet", err)
	}
	return nil
}

// SetPrimaryWallet makes walletID the user's only primary wallet
func (s *ProfileService) SetPrimaryWallet(ctx context.Context, userID, walletID string) (*models.ConnectedWallet, error) {
	wallet, err := s.wallets.SetPrimary(ctx, walletID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Wallet not found")
		}
		return nil, apperrors.NewDatabaseError("set primary wallet", err)
	}
	return wallet, nil
}

func (s *ProfileService) getWallet(ctx context.Context, userID, walletID string) (*models.ConnectedWallet, error) {
	wallet, err := s.wallets.GetByIDAndUser(ctx, walletID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Wallet not found")
		}
		return nil, apperrors.NewDatabaseError("get wallet", err)
	}
	return wallet, nil
}

// ListWalletsWithBalances returns the user's wallets with the balance, its
// USD value and the sync time taken from the latest matching analysis.
func (s *ProfileService) ListWalletsWithBalances(ctx context.Context, userID string) ([]models.WalletView, error) {
	wallets, err := s.GetConnectedWallets(ctx, userID)
	if err != nil {
		return nil, err
	}

	analyses, _, err := s.analyses.ListByUser(ctx, userID, models.AnalysisFilter{})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list analyses", err)
	}

	views := make([]models.WalletView, 0, len(wallets))
	for _, w := range wallets {
		view := w.View()
		// analyses are newest first, so the first match is the latest
		for _, a := range analyses {
			if a.Blockchain == w.Blockchain && strings.EqualFold(a.WalletAddress, w.WalletAddress) {
				view.Balance = a.AnalysisData.Balance
				view.BalanceUSD = finiteOrZero(a.AnalysisData.Balance * a.AnalysisData.CurrentPrice)
				lastSync := a.UpdatedAt
				view.LastSync = &lastSync
				break
			}
		}
		views = append(views, view)
	}
	return views, nil
}
