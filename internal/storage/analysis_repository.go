package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wallet-insights/internal/models"
)

const analysisColumns = `id, user_id, wallet_address, blockchain, analysis_data, ai_insights, created_at, updated_at`

// AnalysisRepository persists wallet analyses, one row per (user, wallet)
type AnalysisRepository struct {
	db *PostgresDB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *PostgresDB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func scanAnalysis(row pgx.Row) (*models.WalletAnalysis, error) {
	var a models.WalletAnalysis
	var raw []byte
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.WalletAddress,
		&a.Blockchain,
		&raw,
		&a.AIInsights,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	data, err := models.DecodeAnalysisData(raw)
	if err != nil {
		return nil, err
	}
	a.AnalysisData = data
	return &a, nil
}

// Upsert stores a, replacing any earlier analysis of the same wallet for the
// same user. The row id and created_at survive a re-run; updated_at marks the
// latest run. ID and timestamps are refreshed from the stored row.
func (r *AnalysisRepository) Upsert(ctx context.Context, a *models.WalletAnalysis) error {
	data, err := json.Marshal(a.AnalysisData)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis data: %w", err)
	}

	stored, err := scanAnalysis(r.db.Pool().QueryRow(ctx, `
		INSERT INTO wallet_analyses (user_id, wallet_address, blockchain, analysis_data, ai_insights)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, wallet_address) DO UPDATE SET
			blockchain    = EXCLUDED.blockchain,
			analysis_data = EXCLUDED.analysis_data,
			ai_insights   = EXCLUDED.ai_insights,
			updated_at    = NOW()
		RETURNING `+analysisColumns,
		a.UserID,
		a.WalletAddress,
		a.Blockchain,
		data,
		a.AIInsights,
	))
	if err != nil {
		return fmt.Errorf("failed to upsert analysis: %w", err)
	}

	*a = *stored
	return nil
}

// GetByIDAndUser returns one of the user's analyses or ErrNotFound
func (r *AnalysisRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*models.WalletAnalysis, error) {
	if !validID(id) || !validID(userID) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}

	a, err := scanAnalysis(r.db.Pool().QueryRow(ctx, `
		SELECT `+analysisColumns+`
		FROM wallet_analyses
		WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// ListByUser returns the user's analyses newest first, with the total count
// before paging. A non-positive filter.Limit returns every row.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, filter models.AnalysisFilter) ([]*models.WalletAnalysis, int, error) {
	if !validID(userID) {
		return []*models.WalletAnalysis{}, 0, nil
	}

	where := "WHERE user_id = $1"
	args := []interface{}{userID}
	if filter.Blockchain != nil {
		args = append(args, *filter.Blockchain)
		where += fmt.Sprintf(" AND blockchain = $%d", len(args))
	}

	var total int
	if err := r.db.Pool().QueryRow(ctx, "SELECT COUNT(*) FROM wallet_analyses "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	query := "SELECT " + analysisColumns + " FROM wallet_analyses " + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []*models.WalletAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating analyses: %w", err)
	}

	return analyses, total, nil
}
