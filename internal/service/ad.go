package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/event"
	"github.com/prodigy2/autoRiaClone/internal/moderation"
	"github.com/prodigy2/autoRiaClone/internal/quota"
	"github.com/prodigy2/autoRiaClone/internal/repository"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// ConvertedPrices carries the ad price converted into every supported
// currency plus the rates used, so readers see the rate snapshot.
type ConvertedPrices struct {
	USD     int64
	EUR     int64
	UAH     int64
	RateUSD float64
	RateEUR float64
	RateUAH float64
}

// PriceConverter converts an amount in minor units from the given currency
// into all supported currencies.
type PriceConverter interface {
	Convert(ctx context.Context, amount int64, from string) (ConvertedPrices, error)
}

// AdService implements the business logic for car sale listings: content
// moderation, tier quotas, rejection escalation and price conversion.
type AdService struct {
	adRepo     repository.AdRepository
	userRepo   repository.UserRepository
	classifier moderation.Classifier
	quota      *quota.Enforcer
	converter  PriceConverter
	producer   *event.Producer
	logger     *slog.Logger

	// rejectionThreshold is the violation count at which an ad becomes
	// terminally rejected.
	rejectionThreshold int

	// sellerMu serializes the quota check and insert per seller so two
	// concurrent creates cannot both pass the count.
	sellerMu sync.Mutex
	sellers  map[string]*sync.Mutex
}

// NewAdService creates a new ad service.
func NewAdService(
	adRepo repository.AdRepository,
	userRepo repository.UserRepository,
	classifier moderation.Classifier,
	enforcer *quota.Enforcer,
	converter PriceConverter,
	producer *event.Producer,
	rejectionThreshold int,
	logger *slog.Logger,
) *AdService {
	return &AdService{
		adRepo:             adRepo,
		userRepo:           userRepo,
		classifier:         classifier,
		quota:              enforcer,
		converter:          converter,
		producer:           producer,
		rejectionThreshold: rejectionThreshold,
		logger:             logger,
		sellers:            make(map[string]*sync.Mutex),
	}
}

func (s *AdService) sellerLock(sellerID string) *sync.Mutex {
	s.sellerMu.Lock()
	defer s.sellerMu.Unlock()
	mu, ok := s.sellers[sellerID]
	if !ok {
		mu = &sync.Mutex{}
		s.sellers[sellerID] = mu
	}
	return mu
}

// CreateAdInput holds the parameters for creating an ad.
type CreateAdInput struct {
	SellerID    string
	Title       string
	Description string
	PriceAmount int64
	Currency    string
	Year        int
	Mileage     int
	ModelID     string
}

// CreateAd creates a new active listing. Text that fails moderation rejects
// the request without creating anything and without counting as a strike.
func (s *AdService) CreateAd(ctx context.Context, input CreateAdInput) (*domain.Ad, error) {
	if input.SellerID == "" {
		return nil, apperrors.InvalidInput("seller_id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if input.PriceAmount <= 0 {
		return nil, apperrors.InvalidInput("price_amount must be positive")
	}
	input.Currency = strings.ToUpper(input.Currency)
	if !domain.IsValidCurrency(input.Currency) {
		return nil, apperrors.InvalidInput("currency must be one of USD, EUR, UAH")
	}

	if res := s.classify(input.Title, input.Description); res.Violating {
		s.logger.InfoContext(ctx, "ad creation rejected by moderation",
			slog.String("seller_id", input.SellerID),
			slog.String("matched_term", res.MatchedTerm),
		)
		return nil, apperrors.ContentRejected(fmt.Sprintf("listing text contains prohibited term %q", res.MatchedTerm))
	}

	seller, err := s.userRepo.GetByID(ctx, input.SellerID)
	if err != nil {
		return nil, fmt.Errorf("load seller: %w", err)
	}

	prices, err := s.converter.Convert(ctx, input.PriceAmount, input.Currency)
	if err != nil {
		return nil, fmt.Errorf("convert ad price: %w", err)
	}

	now := time.Now().UTC()
	ad := &domain.Ad{
		ID:          uuid.New().String(),
		SellerID:    input.SellerID,
		Title:       input.Title,
		Description: input.Description,
		PriceAmount: input.PriceAmount,
		Currency:    input.Currency,
		PriceUSD:    prices.USD,
		PriceEUR:    prices.EUR,
		PriceUAH:    prices.UAH,
		RateUSD:     prices.RateUSD,
		RateEUR:     prices.RateEUR,
		RateUAH:     prices.RateUAH,
		Year:        input.Year,
		Mileage:     input.Mileage,
		ModelID:     input.ModelID,
		Status:      domain.AdStatusActive,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The count and insert must be atomic per seller, otherwise two
	// concurrent requests both see the pre-insert count and a base-tier
	// account ends up over quota.
	mu := s.sellerLock(input.SellerID)
	mu.Lock()
	defer mu.Unlock()

	count, err := s.adRepo.CountBySeller(ctx, input.SellerID)
	if err != nil {
		return nil, fmt.Errorf("count seller ads: %w", err)
	}

	if !s.quota.CanCreate(seller.AccountTier, count) {
		return nil, apperrors.QuotaExceeded(fmt.Sprintf(
			"account tier %q allows at most %d listing(s), upgrade to premium for unlimited listings",
			seller.AccountTier, s.quota.BaseLimit()))
	}

	if err := s.adRepo.Create(ctx, ad); err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}

	if err := s.producer.PublishAdCreated(ctx, event.AdCreatedData{
		AdID:     ad.ID,
		SellerID: ad.SellerID,
		Title:    ad.Title,
		ModelID:  ad.ModelID,
		Currency: ad.Currency,
		Price:    ad.PriceAmount,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish ad.created event",
			slog.String("ad_id", ad.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "ad created",
		slog.String("ad_id", ad.ID),
		slog.String("seller_id", ad.SellerID),
		slog.String("currency", ad.Currency),
	)

	return ad, nil
}

// UpdateAdInput holds the parameters for updating an ad. Nil fields are
// left unchanged.
type UpdateAdInput struct {
	ActorID     string
	Title       *string
	Description *string
	PriceAmount *int64
	Currency    *string
	Year        *int
	Mileage     *int
	ModelID     *string
}

// UpdateAd edits a listing. Only the owner may edit. Text that fails
// moderation records a strike on the listing; the third strike rejects the
// listing permanently and notifies the review queue.
func (s *AdService) UpdateAd(ctx context.Context, adID string, input UpdateAdInput) (*domain.Ad, error) {
	ad, err := s.adRepo.GetByID(ctx, adID)
	if err != nil {
		return nil, fmt.Errorf("get ad by id: %w", err)
	}

	// Ownership is checked before moderation so a non-owner probing with
	// bad text cannot burn the owner's strikes.
	if ad.SellerID != input.ActorID {
		return nil, apperrors.Forbidden("only the listing owner may edit it")
	}

	title := ad.Title
	if input.Title != nil {
		title = *input.Title
	}
	description := ad.Description
	if input.Description != nil {
		description = *input.Description
	}

	if res := s.classify(title, description); res.Violating {
		return nil, s.recordStrike(ctx, ad, res.MatchedTerm)
	}

	ad.Title = title
	ad.Description = description
	if input.Year != nil {
		ad.Year = *input.Year
	}
	if input.Mileage != nil {
		ad.Mileage = *input.Mileage
	}
	if input.ModelID != nil {
		ad.ModelID = *input.ModelID
	}

	if input.PriceAmount != nil || input.Currency != nil {
		if input.PriceAmount != nil {
			if *input.PriceAmount <= 0 {
				return nil, apperrors.InvalidInput("price_amount must be positive")
			}
			ad.PriceAmount = *input.PriceAmount
		}
		if input.Currency != nil {
			currency := strings.ToUpper(*input.Currency)
			if !domain.IsValidCurrency(currency) {
				return nil, apperrors.InvalidInput("currency must be one of USD, EUR, UAH")
			}
			ad.Currency = currency
		}

		prices, err := s.converter.Convert(ctx, ad.PriceAmount, ad.Currency)
		if err != nil {
			return nil, fmt.Errorf("convert ad price: %w", err)
		}
		ad.PriceUSD = prices.USD
		ad.PriceEUR = prices.EUR
		ad.PriceUAH = prices.UAH
		ad.RateUSD = prices.RateUSD
		ad.RateEUR = prices.RateEUR
		ad.RateUAH = prices.RateUAH
	}

	ad.UpdatedAt = time.Now().UTC()

	if err := s.adRepo.Update(ctx, ad); err != nil {
		return nil, fmt.Errorf("update ad: %w", err)
	}

	s.logger.InfoContext(ctx, "ad updated",
		slog.String("ad_id", ad.ID),
		slog.String("seller_id", ad.SellerID),
	)

	return ad, nil
}

// recordStrike increments the listing's rejection counter and maps the
// outcome to the right error for the caller.
func (s *AdService) recordStrike(ctx context.Context, ad *domain.Ad, matchedTerm string) error {
	out, err := s.adRepo.RecordRejection(ctx, ad.ID, s.rejectionThreshold)
	if err != nil {
		return fmt.Errorf("record ad rejection: %w", err)
	}

	terminal := out.RejectionCount >= s.rejectionThreshold

	s.logger.InfoContext(ctx, "ad update rejected by moderation",
		slog.String("ad_id", ad.ID),
		slog.String("seller_id", ad.SellerID),
		slog.String("matched_term", matchedTerm),
		slog.Int("rejection_count", out.RejectionCount),
		slog.Bool("terminal", terminal),
	)

	if terminal {
		if err := s.producer.PublishAdRejected(ctx, event.AdRejectedData{
			AdID:           ad.ID,
			SellerID:       ad.SellerID,
			Reason:         fmt.Sprintf("prohibited term %q", matchedTerm),
			RejectionCount: out.RejectionCount,
			Status:         out.Status,
			Terminal:       true,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish ad.rejected event",
				slog.String("ad_id", ad.ID),
				slog.String("error", err.Error()),
			)
			// Do not fail the operation if event publishing fails.
		}
		return apperrors.ContentRejectedTerminal(fmt.Sprintf(
			"listing rejected after %d content violations and deactivated", out.RejectionCount))
	}

	return apperrors.ContentRejected(fmt.Sprintf(
		"listing text contains prohibited term %q (violation %d of %d)",
		matchedTerm, out.RejectionCount, s.rejectionThreshold))
}

// GetAd retrieves a listing and counts the view. The view counter is
// best-effort and never fails the read.
func (s *AdService) GetAd(ctx context.Context, id string) (*domain.Ad, error) {
	ad, err := s.adRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ad by id: %w", err)
	}

	if err := s.adRepo.IncrementViews(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to increment ad views",
			slog.String("ad_id", id),
			slog.String("error", err.Error()),
		)
	} else {
		ad.Views++
	}

	return ad, nil
}

// ListActiveAds returns a page of active listings.
func (s *AdService) ListActiveAds(ctx context.Context, limit, offset int) ([]domain.Ad, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	ads, total, err := s.adRepo.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list active ads: %w", err)
	}

	return ads, total, nil
}

// ListSellerAds returns a page of the seller's own listings in every status.
func (s *AdService) ListSellerAds(ctx context.Context, sellerID string, limit, offset int) ([]domain.Ad, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	ads, total, err := s.adRepo.ListBySeller(ctx, sellerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list seller ads: %w", err)
	}

	return ads, total, nil
}

// DeleteAd removes a listing. Only the owner may delete.
func (s *AdService) DeleteAd(ctx context.Context, adID, actorID string) error {
	ad, err := s.adRepo.GetByID(ctx, adID)
	if err != nil {
		return fmt.Errorf("get ad by id: %w", err)
	}

	if ad.SellerID != actorID {
		return apperrors.Forbidden("only the listing owner may delete it")
	}

	if err := s.adRepo.Delete(ctx, adID); err != nil {
		return fmt.Errorf("delete ad: %w", err)
	}

	s.logger.InfoContext(ctx, "ad deleted",
		slog.String("ad_id", adID),
		slog.String("seller_id", actorID),
	)

	return nil
}

// classify runs the moderation classifier over title and description.
func (s *AdService) classify(title, description string) moderation.Result {
	if res := s.classifier.Classify(title); res.Violating {
		return res
	}
	return s.classifier.Classify(description)
}
