package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wallet-insights/internal/models"
)

const walletColumns = `id, user_id, wallet_address, blockchain, nickname, is_primary, created_at, updated_at`

// WalletRepository persists connected wallets
type WalletRepository struct {
	db *PostgresDB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *PostgresDB) *WalletRepository {
	return &WalletRepository{db: db}
}

func scanWallet(row pgx.Row) (*models.ConnectedWallet, error) {
	var w models.ConnectedWallet
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.WalletAddress,
		&w.Blockchain,
		&w.Nickname,
		&w.IsPrimary,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a wallet. Connecting the same address twice returns ErrDuplicate.
func (r *WalletRepository) Create(ctx context.Context, w *models.ConnectedWallet) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now

	query := `
		INSERT INTO connected_wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Pool().Exec(ctx, query,
		w.ID,
		w.UserID,
		w.WalletAddress,
		w.Blockchain,
		w.Nickname,
		w.IsPrimary,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("wallet %s: %w", w.WalletAddress, ErrDuplicate)
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// ListByUser returns the user's wallets, newest first
func (r *WalletRepository) ListByUser(ctx context.Context, userID string) ([]*models.ConnectedWallet, error) {
	if !validID(userID) {
		return []*models.ConnectedWallet{}, nil
	}

	rows, err := r.db.Pool().Query(ctx, `
		SELECT `+walletColumns+`
		FROM connected_wallets
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	wallets := []*models.ConnectedWallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}
	return wallets, nil
}

// GetByIDAndUser returns one of the user's wallets or ErrNotFound
func (r *WalletRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*models.ConnectedWallet, error) {
	if !validID(id) || !validID(userID) {
		return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}

	w, err := scanWallet(r.db.Pool().QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM connected_wallets
		WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// DeleteByIDAndUser removes one of the user's wallets
func (r *WalletRepository) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	if !validID(id) || !validID(userID) {
		return fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}

	result, err := r.db.Pool().Exec(ctx,
		`DELETE FROM connected_wallets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetPrimary makes id the user's only primary wallet in one transaction.
func (r *WalletRepository) SetPrimary(ctx context.Context, id, userID string) (*models.ConnectedWallet, error) {
	if !validID(id) || !validID(userID) {
		return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}

	var updated *models.ConnectedWallet
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE connected_wallets
			SET is_primary = FALSE, updated_at = NOW()
			WHERE user_id = $1 AND is_primary AND id <> $2
		`, userID, id); err != nil {
			return fmt.Errorf("failed to clear primary wallet: %w", err)
		}

		w, err := scanWallet(tx.QueryRow(ctx, `
			UPDATE connected_wallets
			SET is_primary = TRUE, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING `+walletColumns, id, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("wallet %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to set primary wallet: %w", err)
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
