package cache

import (
	"context"
	"time"

	"billquick/backend/internal/domain"
)

type InsightsCache interface {
	Get(ctx context.Context, key string) (*domain.Insights, bool, error)
	Set(ctx context.Context, key string, value *domain.Insights, ttl time.Duration) error
}

type NoopInsightsCache struct{}

func (NoopInsightsCache) Get(_ context.Context, _ string) (*domain.Insights, bool, error) {
	return nil, false, nil
}

func (NoopInsightsCache) Set(_ context.Context, _ string, _ *domain.Insights, _ time.Duration) error {
	return nil
}
