package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/amortization"
	"github.com/segyhp/repayment-engine/internal/domain"
)

const defaultCalculationTTL = time.Hour

func (s *BillingService) CalculateEqualInstallment(ctx context.Context, req amortization.CalculationRequest) (*amortization.Result, error) {
	key := calculationKey("ei", req)
	return cached(ctx, s, key, func() (*amortization.Result, error) {
		return amortization.CalculateEqualInstallment(req.Principal, req.AnnualRatePercent, req.Months)
	})
}

func (s *BillingService) CalculateEqualPrincipal(ctx context.Context, req amortization.CalculationRequest) (*amortization.Result, error) {
	key := calculationKey("ep", req)
	return cached(ctx, s, key, func() (*amortization.Result, error) {
		return amortization.CalculateEqualPrincipal(req.Principal, req.AnnualRatePercent, req.Months)
	})
}

func (s *BillingService) CompareRepaymentMethods(ctx context.Context, req amortization.CalculationRequest) (*amortization.Comparison, error) {
	key := calculationKey("cmp", req)
	return cached(ctx, s, key, func() (*amortization.Comparison, error) {
		return amortization.CompareRepaymentMethods(req.Principal, req.AnnualRatePercent, req.Months)
	})
}

func (s *BillingService) CalculatePrepayment(ctx context.Context, req amortization.PrepaymentRequest) (*amortization.PrepaymentResult, error) {
	if req.Method == "" {
		req.Method = domain.MethodEqualInstallment
	}
	key := fmt.Sprintf("calc:pre:%s:%s:%s:%d:%d:%s", req.Method, req.Principal, req.AnnualRatePercent,
		req.OriginalMonths, req.PaidMonths, req.PrepaymentAmount)
	return cached(ctx, s, key, func() (*amortization.PrepaymentResult, error) {
		return amortization.CalculatePrepayment(req)
	})
}

func calculationKey(kind string, req amortization.CalculationRequest) string {
	return fmt.Sprintf("calc:%s:%s:%s:%d", kind, req.Principal, req.AnnualRatePercent, req.Months)
}

// cached serves a pure calculation from the cache when possible. Cache failures
// are logged and the calculation runs anyway.
func cached[T any](ctx context.Context, s *BillingService, key string, compute func() (*T, error)) (*T, error) {
	if s.cache != nil {
		var hit T
		found, err := s.cache.Get(ctx, key, &hit)
		if err != nil {
			s.log.Warn("calculation cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.CacheLookup(found)
		if found {
			return &hit, nil
		}
	}

	result, err := compute()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.calculationTTL()); err != nil {
			s.log.Warn("calculation cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

func (s *BillingService) calculationTTL() time.Duration {
	if s.config != nil && s.config.Redis.CacheTTL > 0 {
		return s.config.Redis.CacheTTL
	}
	return defaultCalculationTTL
}
