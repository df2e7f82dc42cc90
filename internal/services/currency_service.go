package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/fx"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// RateFetcher is satisfied by *fx.Client.
type RateFetcher interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
}

const (
	rateSourceCache    = "cache"
	rateSourceAPI      = "api"
	rateSourceDB       = "db"
	rateSourceStatic   = "static"
	rateSourceNone     = "unavailable"
	rateSourceIdentity = "identity"
)

// CurrencyService resolves exchange rates through the chain
// cache -> FX API -> last persisted rate -> static config.
type CurrencyService struct {
	fetcher  RateFetcher
	rates    repositories.ExchangeRateRepository
	cache    *expirable.LRU[string, float64]
	fallback map[string]float64
	metrics  *Metrics
	now      func() time.Time
}

func NewCurrencyService(cfg *config.Config, fetcher RateFetcher, rates repositories.ExchangeRateRepository, metrics *Metrics) *CurrencyService {
	ttl := cfg.FXCacheTTL
	if ttl <= 0 {
		ttl = constants.DefaultFXCacheTTL
	}
	return &CurrencyService{
		fetcher:  fetcher,
		rates:    rates,
		cache:    expirable.NewLRU[string, float64](constants.FXCacheSize, nil, ttl),
		fallback: cfg.FXFallbackRates,
		metrics:  metrics,
		now:      time.Now,
	}
}

func pairKey(base, quote string) string {
	return base + ":" + quote
}

// Convert returns the converted amount and the rate used.
func (s *CurrencyService) Convert(ctx context.Context, cents int64, from, to string) (int64, float64, error) {
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}
	return utils.ConvertMinorUnits(cents, rate), rate, nil
}

func (s *CurrencyService) Rate(ctx context.Context, base, quote string) (float64, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	if base == quote {
		s.metrics.fxLookup(rateSourceIdentity)
		return 1, nil
	}
	logger := utils.Logger.WithFields(logrus.Fields{"base": base, "quote": quote})

	if rate, ok := s.cache.Get(pairKey(base, quote)); ok {
		s.metrics.fxLookup(rateSourceCache)
		return rate, nil
	}

	if s.fetcher != nil {
		rate, err := s.fetchAndStore(ctx, base, quote)
		if err == nil {
			s.metrics.fxLookup(rateSourceAPI)
			return rate, nil
		}
		logger.WithError(err).Warn("FX API lookup failed, falling back")
	}

	stored, err := s.rates.Get(ctx, base, quote)
	if err != nil {
		logger.WithError(err).Warn("Failed to read persisted FX rate")
	} else if stored != nil && stored.Rate > 0 {
		s.metrics.fxLookup(rateSourceDB)
		logger.WithField("fetchedAt", stored.FetchedAt).Info("Using last persisted FX rate")
		return stored.Rate, nil
	}

	if rate, ok := s.staticRate(base, quote); ok {
		s.metrics.fxLookup(rateSourceStatic)
		logger.Warn("Using static fallback FX rate")
		return rate, nil
	}

	s.metrics.fxLookup(rateSourceNone)
	return 0, internal_utils.NewDomainError(http.StatusServiceUnavailable, internal_utils.ErrFXRateUnavailable,
		"Currency conversion is temporarily unavailable")
}

// RefreshRates warms the cache and the table for "BASE:QUOTE" pairs.
func (s *CurrencyService) RefreshRates(ctx context.Context, pairs []string) error {
	if s.fetcher == nil {
		return nil
	}
	byBase := map[string][]string{}
	for _, p := range pairs {
		base, quote, ok := strings.Cut(strings.ToUpper(p), ":")
		if !ok || base == "" || quote == "" {
			continue
		}
		byBase[base] = append(byBase[base], quote)
	}

	var firstErr error
	for base, quotes := range byBase {
		rates, err := s.fetcher.FetchRates(ctx, base)
		if err != nil {
			utils.Logger.WithError(err).WithField("base", base).Error("FX refresh failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, quote := range quotes {
			rate, ok := rates[quote]
			if !ok || rate <= 0 {
				utils.Logger.WithFields(logrus.Fields{"base": base, "quote": quote}).Warn("FX refresh missing pair")
				continue
			}
			if err := s.store(ctx, base, quote, rate); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *CurrencyService) fetchAndStore(ctx context.Context, base, quote string) (float64, error) {
	rates, err := s.fetcher.FetchRates(ctx, base)
	if err != nil {
		return 0, err
	}
	rate, ok := rates[quote]
	if !ok || rate <= 0 {
		return 0, fx.ErrRateMissing
	}
	if err := s.store(ctx, base, quote, rate); err != nil {
		utils.Logger.WithError(err).Warn("Failed to persist FX rate")
	}
	return rate, nil
}

func (s *CurrencyService) store(ctx context.Context, base, quote string, rate float64) error {
	s.cache.Add(pairKey(base, quote), rate)
	return s.rates.Upsert(ctx, &models.ExchangeRate{
		Base:      base,
		Quote:     quote,
		Rate:      rate,
		FetchedAt: s.now().UTC(),
	})
}

// staticRate also accepts a configured inverse pair.
func (s *CurrencyService) staticRate(base, quote string) (float64, bool) {
	if r, ok := s.fallback[pairKey(base, quote)]; ok && r > 0 {
		return r, true
	}
	if r, ok := s.fallback[pairKey(quote, base)]; ok && r > 0 {
		return 1 / r, true
	}
	return 0, false
}
