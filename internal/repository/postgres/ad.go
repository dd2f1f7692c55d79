package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/repository"
	"github.com/prodigy2/autoRiaClone/pkg/database"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// AdRepository implements repository.AdRepository using PostgreSQL.
type AdRepository struct {
	pool database.DBTX
}

// NewAdRepository creates a new PostgreSQL-backed ad repository.
func NewAdRepository(pool database.DBTX) *AdRepository {
	return &AdRepository{pool: pool}
}

const adColumns = `id, seller_id, title, description, price_amount, currency,
		price_usd, price_eur, price_uah, rate_usd, rate_eur, rate_uah,
		year, mileage, model_id, status, rejection_count, views, version, created_at, updated_at`

// Create inserts a new ad.
func (r *AdRepository) Create(ctx context.Context, ad *domain.Ad) error {
	query := `
		INSERT INTO ads (id, seller_id, title, description, price_amount, currency,
			price_usd, price_eur, price_uah, rate_usd, rate_eur, rate_uah,
			year, mileage, model_id, status, rejection_count, views, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err := r.pool.Exec(ctx, query,
		ad.ID,
		ad.SellerID,
		ad.Title,
		ad.Description,
		ad.PriceAmount,
		ad.Currency,
		ad.PriceUSD,
		ad.PriceEUR,
		ad.PriceUAH,
		ad.RateUSD,
		ad.RateEUR,
		ad.RateUAH,
		ad.Year,
		ad.Mileage,
		ad.ModelID,
		ad.Status,
		ad.RejectionCount,
		ad.Views,
		ad.Version,
		ad.CreatedAt,
		ad.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create ad: %w", err)
	}

	return nil
}

// GetByID retrieves an ad by its unique identifier.
func (r *AdRepository) GetByID(ctx context.Context, id string) (*domain.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads WHERE id = $1`

	var a domain.Ad
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.SellerID,
		&a.Title,
		&a.Description,
		&a.PriceAmount,
		&a.Currency,
		&a.PriceUSD,
		&a.PriceEUR,
		&a.PriceUAH,
		&a.RateUSD,
		&a.RateEUR,
		&a.RateUAH,
		&a.Year,
		&a.Mileage,
		&a.ModelID,
		&a.Status,
		&a.RejectionCount,
		&a.Views,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("ad", id)
		}
		return nil, fmt.Errorf("get ad by id: %w", err)
	}

	return &a, nil
}

// ListActive returns a page of active ads ordered by creation time.
func (r *AdRepository) ListActive(ctx context.Context, limit, offset int) ([]domain.Ad, int, error) {
	query := `
		SELECT ` + adColumns + `, count(*) OVER() AS total_count
		FROM ads
		WHERE status = 'active'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	return r.list(ctx, query, limit, offset)
}

// ListBySeller returns a page of a seller's ads in every status.
func (r *AdRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]domain.Ad, int, error) {
	query := `
		SELECT ` + adColumns + `, count(*) OVER() AS total_count
		FROM ads
		WHERE seller_id = $3
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	return r.list(ctx, query, limit, offset, sellerID)
}

func (r *AdRepository) list(ctx context.Context, query string, limit, offset int, extra ...any) ([]domain.Ad, int, error) {
	args := append([]any{limit, offset}, extra...)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ads: %w", err)
	}
	defer rows.Close()

	var (
		ads        []domain.Ad
		totalCount int
	)

	for rows.Next() {
		var a domain.Ad
		if err := rows.Scan(
			&a.ID,
			&a.SellerID,
			&a.Title,
			&a.Description,
			&a.PriceAmount,
			&a.Currency,
			&a.PriceUSD,
			&a.PriceEUR,
			&a.PriceUAH,
			&a.RateUSD,
			&a.RateEUR,
			&a.RateUAH,
			&a.Year,
			&a.Mileage,
			&a.ModelID,
			&a.Status,
			&a.RejectionCount,
			&a.Views,
			&a.Version,
			&a.CreatedAt,
			&a.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan ad row: %w", err)
		}
		ads = append(ads, a)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ad rows: %w", err)
	}

	if ads == nil {
		ads = []domain.Ad{}
	}

	return ads, totalCount, nil
}

// CountBySeller counts every ad the seller has ever created, in any status.
func (r *AdRepository) CountBySeller(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM ads WHERE seller_id = $1`, sellerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ads by seller: %w", err)
	}

	return count, nil
}

// Update writes the ad guarded by its version. A zero row count means the
// row changed since it was read, which surfaces as a conflict.
func (r *AdRepository) Update(ctx context.Context, ad *domain.Ad) error {
	query := `
		UPDATE ads
		SET title = $1, description = $2, price_amount = $3, currency = $4,
		    price_usd = $5, price_eur = $6, price_uah = $7,
		    rate_usd = $8, rate_eur = $9, rate_uah = $10,
		    year = $11, mileage = $12, model_id = $13, status = $14,
		    version = version + 1, updated_at = $15
		WHERE id = $16 AND version = $17`

	ct, err := r.pool.Exec(ctx, query,
		ad.Title,
		ad.Description,
		ad.PriceAmount,
		ad.Currency,
		ad.PriceUSD,
		ad.PriceEUR,
		ad.PriceUAH,
		ad.RateUSD,
		ad.RateEUR,
		ad.RateUAH,
		ad.Year,
		ad.Mileage,
		ad.ModelID,
		ad.Status,
		ad.UpdatedAt,
		ad.ID,
		ad.Version,
	)
	if err != nil {
		return fmt.Errorf("update ad: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.Conflict("ad was modified concurrently, reload and retry")
	}

	ad.Version++

	return nil
}

// RecordRejection increments the rejection counter in a single statement and
// flips the status to rejected when the counter reaches the threshold. The
// single UPDATE keeps concurrent violations from losing increments.
func (r *AdRepository) RecordRejection(ctx context.Context, adID string, threshold int) (repository.RejectionOutcome, error) {
	query := `
		UPDATE ads
		SET rejection_count = rejection_count + 1,
		    status = CASE WHEN rejection_count + 1 >= $2 THEN 'rejected' ELSE status END,
		    updated_at = now()
		WHERE id = $1
		RETURNING rejection_count, status`

	var out repository.RejectionOutcome
	err := r.pool.QueryRow(ctx, query, adID, threshold).Scan(&out.RejectionCount, &out.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.RejectionOutcome{}, apperrors.NotFound("ad", adID)
		}
		return repository.RejectionOutcome{}, fmt.Errorf("record ad rejection: %w", err)
	}

	return out, nil
}

// IncrementViews bumps the ad's view counter.
func (r *AdRepository) IncrementViews(ctx context.Context, adID string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE ads SET views = views + 1 WHERE id = $1`, adID)
	if err != nil {
		return fmt.Errorf("increment ad views: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("ad", adID)
	}

	return nil
}

// Delete removes an ad.
func (r *AdRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ad: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("ad", id)
	}

	return nil
}
