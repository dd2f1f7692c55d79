package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/repository"
	"github.com/prodigy2/autoRiaClone/pkg/httpclient"
)

const (
	rateCacheKeyPrefix = "currency:rate:"
	rateCacheTTL       = 10 * time.Minute
)

// bankRate mirrors one entry of the public exchange rate API response.
type bankRate struct {
	CCY     string `json:"ccy"`
	BaseCCY string `json:"base_ccy"`
	Buy     string `json:"buy"`
	Sale    string `json:"sale"`
}

// CurrencyService fetches exchange rates from a public bank API, caches
// them in Redis and persists snapshots for history. It converts ad prices
// between the supported currencies. The fetch goes through a circuit
// breaker: when the bank API is down the periodic refresh fails fast and
// conversions keep serving the cached and stored rates.
type CurrencyService struct {
	rateRepo repository.CurrencyRateRepository
	redis    *redis.Client
	client   *httpclient.CircuitBreakerClient
	apiURL   string
	logger   *slog.Logger
}

// NewCurrencyService creates a new currency service.
func NewCurrencyService(
	rateRepo repository.CurrencyRateRepository,
	redisClient *redis.Client,
	client *httpclient.CircuitBreakerClient,
	apiURL string,
	logger *slog.Logger,
) *CurrencyService {
	return &CurrencyService{
		rateRepo: rateRepo,
		redis:    redisClient,
		client:   client,
		apiURL:   apiURL,
		logger:   logger,
	}
}

// RefreshRates pulls fresh UAH rates from the bank API, stores snapshots
// and refreshes the cache.
func (s *CurrencyService) RefreshRates(ctx context.Context) error {
	resp, err := s.client.Get(ctx, s.apiURL)
	if err != nil {
		return fmt.Errorf("fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read exchange rates response: %w", err)
	}

	var rates []bankRate
	if err := json.Unmarshal(body, &rates); err != nil {
		return fmt.Errorf("decode exchange rates: %w", err)
	}

	now := time.Now().UTC()
	stored := 0
	for _, r := range rates {
		if !domain.IsValidCurrency(r.CCY) {
			continue
		}
		rate, err := strconv.ParseFloat(r.Sale, 64)
		if err != nil || rate <= 0 {
			s.logger.WarnContext(ctx, "skipping malformed exchange rate",
				slog.String("currency", r.CCY),
				slog.String("sale", r.Sale),
			)
			continue
		}

		// The API quotes how much UAH one unit of CCY costs.
		snapshot := &domain.CurrencyRate{
			ID:             uuid.New().String(),
			BaseCurrency:   r.CCY,
			TargetCurrency: domain.CurrencyUAH,
			Rate:           rate,
			FetchedAt:      now,
		}
		if err := s.rateRepo.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("save exchange rate: %w", err)
		}

		if err := s.cacheRate(ctx, r.CCY, rate); err != nil {
			s.logger.WarnContext(ctx, "failed to cache exchange rate",
				slog.String("currency", r.CCY),
				slog.String("error", err.Error()),
			)
		}
		stored++
	}

	if stored == 0 {
		return errors.New("exchange rate response contained no usable rates")
	}

	s.logger.InfoContext(ctx, "exchange rates refreshed",
		slog.Int("count", stored),
	)

	return nil
}

// RateToUAH returns how much UAH one unit of the given currency costs,
// preferring the cache over the latest stored snapshot.
func (s *CurrencyService) RateToUAH(ctx context.Context, currency string) (float64, error) {
	if currency == domain.CurrencyUAH {
		return 1, nil
	}

	if s.redis != nil {
		val, err := s.redis.Get(ctx, rateCacheKeyPrefix+currency).Result()
		if err == nil {
			if rate, perr := strconv.ParseFloat(val, 64); perr == nil {
				return rate, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "rate cache read failed",
				slog.String("currency", currency),
				slog.String("error", err.Error()),
			)
		}
	}

	snapshot, err := s.rateRepo.Latest(ctx, currency, domain.CurrencyUAH)
	if err != nil {
		return 0, fmt.Errorf("no exchange rate available for %s: %w", currency, err)
	}

	if cerr := s.cacheRate(ctx, currency, snapshot.Rate); cerr != nil {
		s.logger.WarnContext(ctx, "failed to cache exchange rate",
			slog.String("currency", currency),
			slog.String("error", cerr.Error()),
		)
	}

	return snapshot.Rate, nil
}

// Convert converts an amount in minor units from the given currency into
// all supported currencies via UAH.
func (s *CurrencyService) Convert(ctx context.Context, amount int64, from string) (ConvertedPrices, error) {
	fromRate, err := s.RateToUAH(ctx, from)
	if err != nil {
		return ConvertedPrices{}, err
	}
	usdRate, err := s.RateToUAH(ctx, domain.CurrencyUSD)
	if err != nil {
		return ConvertedPrices{}, err
	}
	eurRate, err := s.RateToUAH(ctx, domain.CurrencyEUR)
	if err != nil {
		return ConvertedPrices{}, err
	}

	inUAH := float64(amount) * fromRate

	return ConvertedPrices{
		USD:     int64(math.Round(inUAH / usdRate)),
		EUR:     int64(math.Round(inUAH / eurRate)),
		UAH:     int64(math.Round(inUAH)),
		RateUSD: usdRate,
		RateEUR: eurRate,
		RateUAH: 1,
	}, nil
}

// StartRefresher refreshes rates immediately and then on the given interval
// until the context is canceled.
func (s *CurrencyService) StartRefresher(ctx context.Context, interval time.Duration) {
	if err := s.RefreshRates(ctx); err != nil {
		s.logger.ErrorContext(ctx, "initial exchange rate refresh failed",
			slog.String("error", err.Error()),
		)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RefreshRates(ctx); err != nil {
				s.logger.ErrorContext(ctx, "exchange rate refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (s *CurrencyService) cacheRate(ctx context.Context, currency string, rate float64) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Set(ctx, rateCacheKeyPrefix+currency,
		strconv.FormatFloat(rate, 'f', -1, 64), rateCacheTTL).Err()
}
