package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/event"
	"github.com/prodigy2/autoRiaClone/internal/moderation"
	"github.com/prodigy2/autoRiaClone/internal/quota"
	"github.com/prodigy2/autoRiaClone/internal/repository"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
	pkgkafka "github.com/prodigy2/autoRiaClone/pkg/kafka"
)

// --- Mock Repositories ---

type mockAdRepository struct {
	mock.Mock
}

func (m *mockAdRepository) Create(ctx context.Context, ad *domain.Ad) error {
	args := m.Called(ctx, ad)
	return args.Error(0)
}

func (m *mockAdRepository) GetByID(ctx context.Context, id string) (*domain.Ad, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ad), args.Error(1)
}

func (m *mockAdRepository) ListActive(ctx context.Context, limit, offset int) ([]domain.Ad, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.Ad), args.Int(1), args.Error(2)
}

func (m *mockAdRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]domain.Ad, int, error) {
	args := m.Called(ctx, sellerID, limit, offset)
	return args.Get(0).([]domain.Ad), args.Int(1), args.Error(2)
}

func (m *mockAdRepository) CountBySeller(ctx context.Context, sellerID string) (int, error) {
	args := m.Called(ctx, sellerID)
	return args.Int(0), args.Error(1)
}

func (m *mockAdRepository) Update(ctx context.Context, ad *domain.Ad) error {
	args := m.Called(ctx, ad)
	return args.Error(0)
}

func (m *mockAdRepository) RecordRejection(ctx context.Context, adID string, threshold int) (repository.RejectionOutcome, error) {
	args := m.Called(ctx, adID, threshold)
	return args.Get(0).(repository.RejectionOutcome), args.Error(1)
}

func (m *mockAdRepository) IncrementViews(ctx context.Context, adID string) error {
	args := m.Called(ctx, adID)
	return args.Error(0)
}

func (m *mockAdRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) AssignRole(ctx context.Context, userID, roleID string) error {
	args := m.Called(ctx, userID, roleID)
	return args.Error(0)
}

func (m *mockUserRepository) RemoveRole(ctx context.Context, userID, roleID string) error {
	args := m.Called(ctx, userID, roleID)
	return args.Error(0)
}

// stubConverter returns fixed conversions so tests don't need rates.
type stubConverter struct{}

func (stubConverter) Convert(_ context.Context, amount int64, _ string) (ConvertedPrices, error) {
	return ConvertedPrices{USD: amount, EUR: amount, UAH: amount * 40, RateUSD: 1, RateEUR: 1, RateUAH: 1}, nil
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer(logger *slog.Logger) *event.Producer {
	// A Kafka producer with no broker behind it; publishes fail and are
	// swallowed by the services.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestAdService(adRepo repository.AdRepository, userRepo repository.UserRepository) *AdService {
	logger := newTestLogger()
	classifier := moderation.NewDenylistClassifier([]string{"scam", "stolen"})
	return NewAdService(adRepo, userRepo, classifier, quota.NewEnforcer(1), stubConverter{},
		newTestProducer(logger), 3, logger)
}

func baseSeller() *domain.User {
	return &domain.User{ID: "seller-1", Email: "s@example.com", AccountTier: domain.TierBase, IsActive: true}
}

func premiumSeller() *domain.User {
	u := baseSeller()
	u.AccountTier = domain.TierPremium
	return u
}

func validCreateInput() CreateAdInput {
	return CreateAdInput{
		SellerID:    "seller-1",
		Title:       "2019 BMW X5",
		Description: "one owner",
		PriceAmount: 4200000,
		Currency:    "USD",
		Year:        2019,
		Mileage:     85000,
		ModelID:     "model-x5",
	}
}

// --- Create ---

func TestCreateAd_Success(t *testing.T) {
	adRepo := new(mockAdRepository)
	userRepo := new(mockUserRepository)
	svc := newTestAdService(adRepo, userRepo)
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "seller-1").Return(baseSeller(), nil)
	adRepo.On("CountBySeller", ctx, "seller-1").Return(0, nil)
	adRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ad")).Return(nil)

	ad, err := svc.CreateAd(ctx, validCreateInput())

	require.NoError(t, err)
	assert.NotEmpty(t, ad.ID)
	assert.Equal(t, domain.AdStatusActive, ad.Status, "new ads go live immediately")
	assert.Zero(t, ad.RejectionCount)
	assert.Equal(t, 1, ad.Version)
	adRepo.AssertExpectations(t)
}

func TestCreateAd_BaseTierQuotaExceeded(t *testing.T) {
	adRepo := new(mockAdRepository)
	userRepo := new(mockUserRepository)
	svc := newTestAdService(adRepo, userRepo)
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "seller-1").Return(baseSeller(), nil)
	// One existing ad of any status fills the base quota.
	adRepo.On("CountBySeller", ctx, "seller-1").Return(1, nil)

	_, err := svc.CreateAd(ctx, validCreateInput())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrQuotaExceeded), "expected ErrQuotaExceeded, got: %v", err)
	adRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateAd_PremiumTierUnlimited(t *testing.T) {
	adRepo := new(mockAdRepository)
	userRepo := new(mockUserRepository)
	svc := newTestAdService(adRepo, userRepo)
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "seller-1").Return(premiumSeller(), nil)
	adRepo.On("CountBySeller", ctx, "seller-1").Return(50, nil)
	adRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ad")).Return(nil)

	_, err := svc.CreateAd(ctx, validCreateInput())

	require.NoError(t, err)
	adRepo.AssertExpectations(t)
}

func TestCreateAd_ViolatingText_NoStrikeRecorded(t *testing.T) {
	adRepo := new(mockAdRepository)
	userRepo := new(mockUserRepository)
	svc := newTestAdService(adRepo, userRepo)
	ctx := context.Background()

	input := validCreateInput()
	input.Description = "definitely not a SCAM"

	_, err := svc.CreateAd(ctx, input)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrContentRejected), "expected ErrContentRejected, got: %v", err)
	assert.False(t, errors.Is(err, apperrors.ErrContentRejectedTerminal))
	// Creation-time violations create nothing and never touch a counter.
	adRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	adRepo.AssertNotCalled(t, "RecordRejection", mock.Anything, mock.Anything, mock.Anything)
	userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateAd_InvalidCurrency(t *testing.T) {
	svc := newTestAdService(new(mockAdRepository), new(mockUserRepository))

	input := validCreateInput()
	input.Currency = "GBP"

	_, err := svc.CreateAd(context.Background(), input)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// --- Update ---

func activeAd() *domain.Ad {
	return &domain.Ad{
		ID:          "ad-1",
		SellerID:    "seller-1",
		Title:       "2019 BMW X5",
		Description: "one owner",
		PriceAmount: 4200000,
		Currency:    domain.CurrencyUSD,
		Status:      domain.AdStatusActive,
		Version:     1,
	}
}

func TestUpdateAd_Success(t *testing.T) {
	adRepo := new(mockAdRepository)
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	adRepo.On("GetByID", ctx, "ad-1").Return(activeAd(), nil)
	adRepo.On("Update", ctx, mock.AnythingOfType("*domain.Ad")).Return(nil)

	title := "2019 BMW X5, price drop"
	ad, err := svc.UpdateAd(ctx, "ad-1", UpdateAdInput{ActorID: "seller-1", Title: &title})

	require.NoError(t, err)
	assert.Equal(t, title, ad.Title)
	adRepo.AssertExpectations(t)
}

func TestUpdateAd_NonOwnerForbidden(t *testing.T) {
	adRepo := new(mockAdRepository)
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	adRepo.On("GetByID", ctx, "ad-1").Return(activeAd(), nil)

	// Even violating text from a non-owner must not burn a strike.
	title := "total scam"
	_, err := svc.UpdateAd(ctx, "ad-1", UpdateAdInput{ActorID: "intruder", Title: &title})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden), "expected ErrForbidden, got: %v", err)
	adRepo.AssertNotCalled(t, "RecordRejection", mock.Anything, mock.Anything, mock.Anything)
	adRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateAd_ViolationBelowThreshold(t *testing.T) {
	adRepo := new(mockAdRepository)
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	adRepo.On("GetByID", ctx, "ad-1").Return(activeAd(), nil)
	adRepo.On("RecordRejection", ctx, "ad-1", 3).
		Return(repository.RejectionOutcome{RejectionCount: 1, Status: domain.AdStatusActive}, nil)

	title := "total scam"
	_, err := svc.UpdateAd(ctx, "ad-1", UpdateAdInput{ActorID: "seller-1", Title: &title})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrContentRejected), "expected ErrContentRejected, got: %v", err)
	assert.False(t, errors.Is(err, apperrors.ErrContentRejectedTerminal))
	adRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	adRepo.AssertExpectations(t)
}

func TestUpdateAd_ThirdViolationIsTerminal(t *testing.T) {
	adRepo := new(mockAdRepository)
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	ad := activeAd()
	ad.RejectionCount = 2

	adRepo.On("GetByID", ctx, "ad-1").Return(ad, nil)
	adRepo.On("RecordRejection", ctx, "ad-1", 3).
		Return(repository.RejectionOutcome{RejectionCount: 3, Status: domain.AdStatusRejected}, nil)

	title := "total scam"
	_, err := svc.UpdateAd(ctx, "ad-1", UpdateAdInput{ActorID: "seller-1", Title: &title})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrContentRejectedTerminal), "expected ErrContentRejectedTerminal, got: %v", err)
	adRepo.AssertExpectations(t)
}

func TestUpdateAd_VersionConflictSurfaces(t *testing.T) {
	adRepo := new(mockAdRepository)
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	adRepo.On("GetByID", ctx, "ad-1").Return(activeAd(), nil)
	adRepo.On("Update", ctx, mock.AnythingOfType("*domain.Ad")).
		Return(apperrors.Conflict("ad was modified concurrently, reload and retry"))

	title := "2019 BMW X5, price drop"
	_, err := svc.UpdateAd(ctx, "ad-1", UpdateAdInput{ActorID: "seller-1", Title: &title})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "expected ErrConflict, got: %v", err)
}

func TestUpdateAd_NotFound(t *testing.T) {
	adRepo := new(mockAdRepository)
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	adRepo.On("GetByID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	_, err := svc.UpdateAd(ctx, "missing", UpdateAdInput{ActorID: "seller-1"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// --- Views / Delete ---

func TestGetAd_IncrementsViews(t *testing.T) {
	adRepo := new(mockAdRepository)
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	// Views count even on a rejected listing.
	ad := activeAd()
	ad.Status = domain.AdStatusRejected
	ad.Views = 7

	adRepo.On("GetByID", ctx, "ad-1").Return(ad, nil)
	adRepo.On("IncrementViews", ctx, "ad-1").Return(nil)

	got, err := svc.GetAd(ctx, "ad-1")

	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Views)
	adRepo.AssertExpectations(t)
}

func TestDeleteAd_NonOwnerForbidden(t *testing.T) {
	adRepo := new(mockAdRepository)
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	adRepo.On("GetByID", ctx, "ad-1").Return(activeAd(), nil)

	err := svc.DeleteAd(ctx, "ad-1", "intruder")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	adRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// --- Concurrency ---

// fakeAdRepo is an in-memory repository with real mutual exclusion, used to
// exercise the per-seller serialization of the quota check.
type fakeAdRepo struct {
	mu  sync.Mutex
	ads map[string]*domain.Ad
}

func newFakeAdRepo() *fakeAdRepo {
	return &fakeAdRepo{ads: make(map[string]*domain.Ad)}
}

func (f *fakeAdRepo) Create(_ context.Context, ad *domain.Ad) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ad
	f.ads[ad.ID] = &cp
	return nil
}

func (f *fakeAdRepo) GetByID(_ context.Context, id string) (*domain.Ad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ad, ok := f.ads[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *ad
	return &cp, nil
}

func (f *fakeAdRepo) ListActive(_ context.Context, _, _ int) ([]domain.Ad, int, error) {
	return []domain.Ad{}, 0, nil
}

func (f *fakeAdRepo) ListBySeller(_ context.Context, _ string, _, _ int) ([]domain.Ad, int, error) {
	return []domain.Ad{}, 0, nil
}

func (f *fakeAdRepo) CountBySeller(_ context.Context, sellerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, ad := range f.ads {
		if ad.SellerID == sellerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAdRepo) Update(_ context.Context, ad *domain.Ad) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.ads[ad.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if cur.Version != ad.Version {
		return apperrors.Conflict("ad was modified concurrently, reload and retry")
	}
	cp := *ad
	cp.Version++
	f.ads[ad.ID] = &cp
	ad.Version++
	return nil
}

func (f *fakeAdRepo) RecordRejection(_ context.Context, adID string, threshold int) (repository.RejectionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ad, ok := f.ads[adID]
	if !ok {
		return repository.RejectionOutcome{}, apperrors.ErrNotFound
	}
	ad.RejectionCount++
	if ad.RejectionCount >= threshold {
		ad.Status = domain.AdStatusRejected
	}
	return repository.RejectionOutcome{RejectionCount: ad.RejectionCount, Status: ad.Status}, nil
}

func (f *fakeAdRepo) IncrementViews(_ context.Context, adID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ad, ok := f.ads[adID]
	if !ok {
		return apperrors.ErrNotFound
	}
	ad.Views++
	return nil
}

func (f *fakeAdRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ads[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.ads, id)
	return nil
}

func TestCreateAd_ConcurrentCreatesRespectQuota(t *testing.T) {
	adRepo := newFakeAdRepo()
	userRepo := new(mockUserRepository)
	svc := newTestAdService(adRepo, userRepo)

	userRepo.On("GetByID", mock.Anything, "seller-1").Return(baseSeller(), nil)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateAd(context.Background(), validCreateInput())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, apperrors.ErrQuotaExceeded), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent create may pass the base-tier quota")

	count, err := adRepo.CountBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateAd_ConcurrentStrikesAllCounted(t *testing.T) {
	adRepo := newFakeAdRepo()
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	ad := activeAd()
	require.NoError(t, adRepo.Create(ctx, ad))

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			title := "total scam"
			_, _ = svc.UpdateAd(ctx, ad.ID, UpdateAdInput{ActorID: "seller-1", Title: &title})
		}()
	}
	wg.Wait()

	got, err := adRepo.GetByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.RejectionCount, "no increments may be lost under concurrency")
	assert.Equal(t, domain.AdStatusRejected, got.Status)
}

func TestGetAd_RepeatedViewsAddUpExactly(t *testing.T) {
	adRepo := newFakeAdRepo()
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	ad := activeAd()
	ad.Views = 7
	require.NoError(t, adRepo.Create(ctx, ad))

	first, err := svc.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	second, err := svc.GetAd(ctx, ad.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(8), first.Views)
	assert.Equal(t, int64(9), second.Views)

	got, err := adRepo.GetByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Views, "two views must move the counter by exactly two")
}

func TestGetAd_ConcurrentViewsAllCounted(t *testing.T) {
	adRepo := newFakeAdRepo()
	svc := newTestAdService(adRepo, new(mockUserRepository))
	ctx := context.Background()

	ad := activeAd()
	require.NoError(t, adRepo.Create(ctx, ad))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetAd(ctx, ad.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := adRepo.GetByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views, "interleaved views may not lose increments")
}
