package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

func newAdTestFixture(t *testing.T) (*AdRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewAdRepository(mock)
	return repo, mock
}

func sampleAd() *domain.Ad {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Ad{
		ID:          "ad-1234",
		SellerID:    "u-1234",
		Title:       "2019 BMW X5",
		Description: "one owner, full service history",
		PriceAmount: 4200000,
		Currency:    domain.CurrencyUSD,
		PriceUSD:    4200000,
		PriceEUR:    3900000,
		PriceUAH:    173000000,
		RateUSD:     1,
		RateEUR:     0.93,
		RateUAH:     41.2,
		Year:        2019,
		Mileage:     85000,
		ModelID:     "model-x5",
		Status:      domain.AdStatusActive,
		Views:       0,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func adColumnNames() []string {
	return []string{
		"id", "seller_id", "title", "description", "price_amount", "currency",
		"price_usd", "price_eur", "price_uah", "rate_usd", "rate_eur", "rate_uah",
		"year", "mileage", "model_id", "status", "rejection_count", "views",
		"version", "created_at", "updated_at",
	}
}

func adRow(a *domain.Ad) *pgxmock.Rows {
	return pgxmock.NewRows(adColumnNames()).AddRow(
		a.ID, a.SellerID, a.Title, a.Description, a.PriceAmount, a.Currency,
		a.PriceUSD, a.PriceEUR, a.PriceUAH, a.RateUSD, a.RateEUR, a.RateUAH,
		a.Year, a.Mileage, a.ModelID, a.Status, a.RejectionCount, a.Views,
		a.Version, a.CreatedAt, a.UpdatedAt,
	)
}

// ---------------------------------------------------------------------------
// Create / GetByID
// ---------------------------------------------------------------------------

func TestAdRepository_Create_Success(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	a := sampleAd()

	mock.ExpectExec("INSERT INTO ads").
		WithArgs(
			a.ID, a.SellerID, a.Title, a.Description, a.PriceAmount, a.Currency,
			a.PriceUSD, a.PriceEUR, a.PriceUAH, a.RateUSD, a.RateEUR, a.RateUAH,
			a.Year, a.Mileage, a.ModelID, a.Status, a.RejectionCount, a.Views,
			a.Version, a.CreatedAt, a.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdRepository_GetByID_Success(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	a := sampleAd()

	mock.ExpectQuery("SELECT .+ FROM ads WHERE id =").
		WithArgs(a.ID).
		WillReturnRows(adRow(a))

	got, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.SellerID, got.SellerID)
	assert.Equal(t, a.Status, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM ads WHERE id =").
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing-id")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "missing-id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// CountBySeller
// ---------------------------------------------------------------------------

func TestAdRepository_CountBySeller_AllStatuses(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	// The count has no status filter: sold and rejected ads still count.
	mock.ExpectQuery(`SELECT count\(\*\) FROM ads WHERE seller_id =`).
		WithArgs("u-1234").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountBySeller(context.Background(), "u-1234")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Update (optimistic locking)
// ---------------------------------------------------------------------------

func TestAdRepository_Update_Success(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	a := sampleAd()

	mock.ExpectExec("UPDATE ads").
		WithArgs(
			a.Title, a.Description, a.PriceAmount, a.Currency,
			a.PriceUSD, a.PriceEUR, a.PriceUAH,
			a.RateUSD, a.RateEUR, a.RateUAH,
			a.Year, a.Mileage, a.ModelID, a.Status,
			pgxmock.AnyArg(), a.ID, a.Version,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Version, "version bumped after successful write")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdRepository_Update_VersionConflict(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	a := sampleAd()

	mock.ExpectExec("UPDATE ads").
		WithArgs(
			a.Title, a.Description, a.PriceAmount, a.Currency,
			a.PriceUSD, a.PriceEUR, a.PriceUAH,
			a.RateUSD, a.RateEUR, a.RateUAH,
			a.Year, a.Mileage, a.ModelID, a.Status,
			pgxmock.AnyArg(), a.ID, a.Version,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "expected ErrConflict, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// RecordRejection
// ---------------------------------------------------------------------------

func TestAdRepository_RecordRejection_BelowThreshold(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("UPDATE ads").
		WithArgs("ad-1234", 3).
		WillReturnRows(pgxmock.NewRows([]string{"rejection_count", "status"}).
			AddRow(1, domain.AdStatusActive))

	out, err := repo.RecordRejection(context.Background(), "ad-1234", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, out.RejectionCount)
	assert.Equal(t, domain.AdStatusActive, out.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdRepository_RecordRejection_ReachesThreshold(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("UPDATE ads").
		WithArgs("ad-1234", 3).
		WillReturnRows(pgxmock.NewRows([]string{"rejection_count", "status"}).
			AddRow(3, domain.AdStatusRejected))

	out, err := repo.RecordRejection(context.Background(), "ad-1234", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, out.RejectionCount)
	assert.Equal(t, domain.AdStatusRejected, out.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdRepository_RecordRejection_NotFound(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("UPDATE ads").
		WithArgs("missing-id", 3).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.RecordRejection(context.Background(), "missing-id", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// IncrementViews / Delete
// ---------------------------------------------------------------------------

func TestAdRepository_IncrementViews(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	mock.ExpectExec(`UPDATE ads SET views = views \+ 1`).
		WithArgs("ad-1234").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.IncrementViews(context.Background(), "ad-1234")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdRepository_Delete_NotFound(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM ads").
		WithArgs("missing-id").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListActive
// ---------------------------------------------------------------------------

func TestAdRepository_ListActive(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	a := sampleAd()
	cols := append(adColumnNames(), "total_count")
	rows := pgxmock.NewRows(cols).AddRow(
		a.ID, a.SellerID, a.Title, a.Description, a.PriceAmount, a.Currency,
		a.PriceUSD, a.PriceEUR, a.PriceUAH, a.RateUSD, a.RateEUR, a.RateUAH,
		a.Year, a.Mileage, a.ModelID, a.Status, a.RejectionCount, a.Views,
		a.Version, a.CreatedAt, a.UpdatedAt, 1,
	)

	mock.ExpectQuery("SELECT .+ FROM ads").
		WithArgs(20, 0).
		WillReturnRows(rows)

	ads, total, err := repo.ListActive(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Len(t, ads, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdRepository_ListActive_Empty(t *testing.T) {
	repo, mock := newAdTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM ads").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(append(adColumnNames(), "total_count")))

	ads, total, err := repo.ListActive(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.NotNil(t, ads)
	assert.Empty(t, ads)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
