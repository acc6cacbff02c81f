package models

import (
	"time"

	"github.com/wallet-insights/internal/types"
)

// MaxNicknameLength bounds a wallet nickname
const MaxNicknameLength = 50

// ConnectedWallet is an address a user tracks. One row per (user, address);
// at most one primary wallet per user.
type ConnectedWallet struct {
	ID            string           `json:"id" db:"id"`
	UserID        string           `json:"userId" db:"user_id"`
	WalletAddress string           `json:"walletAddress" db:"wallet_address"`
	Blockchain    types.Blockchain `json:"blockchain" db:"blockchain"`
	Nickname      *string          `json:"nickname" db:"nickname"`
	IsPrimary     bool             `json:"isPrimary" db:"is_primary"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}

// NewWallet holds the fields needed to connect a wallet
type NewWallet struct {
	WalletAddress string           `json:"walletAddress"`
	Blockchain    types.Blockchain `json:"blockchain"`
	Nickname      *string          `json:"nickname,omitempty"`
}

// WalletView is the client DTO for a wallet, with balances merged in from
// the latest analysis when one exists.
type WalletView struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	WalletAddress string           `json:"walletAddress"`
	Blockchain    types.Blockchain `json:"blockchain"`
	Nickname      *string          `json:"nickname"`
	IsPrimary     bool             `json:"isPrimary"`
	Balance       float64          `json:"balance"`
	BalanceUSD    float64          `json:"balanceUsd"`
	LastSync      *time.Time       `json:"lastSync,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// View converts w to its DTO with zero balances
func (w *ConnectedWallet) View() WalletView {
	return WalletView{
		ID:            w.ID,
		UserID:        w.UserID,
		WalletAddress: w.WalletAddress,
		Blockchain:    w.Blockchain,
		Nickname:      w.Nickname,
		IsPrimary:     w.IsPrimary,
		CreatedAt:     w.CreatedAt,
	}
}
