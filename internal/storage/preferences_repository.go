package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/wallet-insights/internal/models"
)

// PreferencesRepository persists investment preferences, one row per user
type PreferencesRepository struct {
	db *PostgresDB
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(db *PostgresDB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

func preferenceColumns() []string {
	cols := make([]string, 0, len(models.PreferenceFields))
	for _, f := range models.PreferenceFields {
		cols = append(cols, f.Column)
	}
	return cols
}

func scanPreferences(row pgx.Row) (*models.InvestmentPreferences, error) {
	var p models.InvestmentPreferences
	dest := []interface{}{&p.ID, &p.UserID}
	for _, f := range models.PreferenceFields {
		dest = append(dest, f.Ptr(&p))
	}
	dest = append(dest, &p.CreatedAt, &p.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUserID returns the user's preferences or ErrNotFound
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID string) (*models.InvestmentPreferences, error) {
	if !validID(userID) {
		return nil, fmt.Errorf("preferences for %s: %w", userID, ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, %s, created_at, updated_at
		FROM investment_preferences
		WHERE user_id = $1
	`, strings.Join(preferenceColumns(), ", "))

	p, err := scanPreferences(r.db.Pool().QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("preferences for %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return p, nil
}

// Upsert writes all ten scores for p.UserID, inserting or replacing the row,
// and refreshes p from the stored values.
func (r *PreferencesRepository) Upsert(ctx context.Context, p *models.InvestmentPreferences) error {
	cols := preferenceColumns()

	placeholders := make([]string, len(cols))
	updates := make([]string, len(cols))
	args := []interface{}{p.UserID}
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
		args = append(args, models.PreferenceFields[i].Value(p))
	}

	query := fmt.Sprintf(`
		INSERT INTO investment_preferences (user_id, %s)
		VALUES ($1, %s)
		ON CONFLICT (user_id) DO UPDATE SET %s, updated_at = NOW()
		RETURNING id, user_id, %s, created_at, updated_at
	`,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
		strings.Join(cols, ", "),
	)

	stored, err := scanPreferences(r.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	*p = *stored
	return nil
}
