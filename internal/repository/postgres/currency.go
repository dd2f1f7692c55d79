package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/pkg/database"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// CurrencyRateRepository implements repository.CurrencyRateRepository using PostgreSQL.
type CurrencyRateRepository struct {
	pool database.DBTX
}

// NewCurrencyRateRepository creates a new PostgreSQL-backed currency rate repository.
func NewCurrencyRateRepository(pool database.DBTX) *CurrencyRateRepository {
	return &CurrencyRateRepository{pool: pool}
}

// Save inserts a fetched rate snapshot.
func (r *CurrencyRateRepository) Save(ctx context.Context, rate *domain.CurrencyRate) error {
	query := `
		INSERT INTO currency_rates (id, base_currency, target_currency, rate, fetched_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		rate.ID,
		rate.BaseCurrency,
		rate.TargetCurrency,
		rate.Rate,
		rate.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("save currency rate: %w", err)
	}

	return nil
}

// Latest returns the most recently fetched rate for a currency pair.
func (r *CurrencyRateRepository) Latest(ctx context.Context, base, target string) (*domain.CurrencyRate, error) {
	query := `
		SELECT id, base_currency, target_currency, rate, fetched_at
		FROM currency_rates
		WHERE base_currency = $1 AND target_currency = $2
		ORDER BY fetched_at DESC
		LIMIT 1`

	var cr domain.CurrencyRate
	err := r.pool.QueryRow(ctx, query, base, target).Scan(
		&cr.ID,
		&cr.BaseCurrency,
		&cr.TargetCurrency,
		&cr.Rate,
		&cr.FetchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get latest currency rate: %w", err)
	}

	return &cr, nil
}
