package api

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/wallet-insights/internal/models"
)

type profileResponse struct {
	User        *models.PublicUser            `json:"user"`
	Preferences *models.InvestmentPreferences `json:"preferences"`
	Wallets     []*models.ConnectedWallet     `json:"wallets"`
}

type preferencesResponse struct {
	Preferences *models.InvestmentPreferences `json:"preferences"`
}

// handleGetProfile handles GET /api/user/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var (
		prefs   *models.InvestmentPreferences
		wallets []*models.ConnectedWallet
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		prefs, err = s.profiles.GetPreferences(ctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		wallets, err = s.profiles.GetConnectedWallets(ctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		respondServiceError(w, r, err)
		return
	}

	if wallets == nil {
		wallets = []*models.ConnectedWallet{}
	}
	respondJSON(w, http.StatusOK, profileResponse{
		User:        user,
		Preferences: prefs,
		Wallets:     wallets,
	})
}

// handleGetPreferences handles GET /api/user/preferences
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.profiles.GetPreferences(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, preferencesResponse{Preferences: prefs})
}

// handleUpdatePreferences handles PATCH /api/user/preferences
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesPayload
	if !decodeAndValidate(w, r, &req) {
		return
	}

	prefs, err := s.profiles.UpdatePreferences(r.Context(), currentUser(r).ID, &req.PreferencesUpdate)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, preferencesResponse{Preferences: prefs})
}
