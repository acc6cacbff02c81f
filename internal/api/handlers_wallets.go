package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
)

type walletResponse struct {
	Wallet *models.ConnectedWallet `json:"wallet"`
}

type walletListResponse struct {
	Wallets []models.WalletView `json:"wallets"`
}

// walletID returns the {id} path variable if it is a UUID. Otherwise it
// writes a 400 and returns "".
func walletID(w http.ResponseWriter, r *http.Request) string {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeValidation, "Invalid wallet ID", nil)
		return ""
	}
	return id
}

// handleListWallets handles GET /api/wallets
func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.profiles.ListWalletsWithBalances(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if wallets == nil {
		wallets = []models.WalletView{}
	}
	respondJSON(w, http.StatusOK, walletListResponse{Wallets: wallets})
}

// handleConnectWallet handles POST /api/wallets/connect
func (s *Server) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	var req connectWalletRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	wallet, err := s.profiles.AddConnectedWallet(r.Context(), currentUser(r).ID, models.NewWallet{
		WalletAddress: req.WalletAddress,
		Blockchain:    types.Blockchain(req.Blockchain),
		Nickname:      req.Nickname,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, walletResponse{Wallet: wallet})
}

// handleDisconnectWallet handles DELETE /api/wallets/{id}
func (s *Server) handleDisconnectWallet(w http.ResponseWriter, r *http.Request) {
	id := walletID(w, r)
	if id == "" {
		return
	}

	if err := s.profiles.RemoveConnectedWallet(r.Context(), currentUser(r).ID, id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleSetPrimaryWallet handles PATCH /api/wallets/{id}/primary
func (s *Server) handleSetPrimaryWallet(w http.ResponseWriter, r *http.Request) {
	id := walletID(w, r)
	if id == "" {
		return
	}

	wallet, err := s.profiles.SetPrimaryWallet(r.Context(), currentUser(r).ID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, walletResponse{Wallet: wallet})
}
