package cache

import (
	"context"
	"fmt"
	"time"
)

// SummaryCache stores JSON-encoded read models such as dashboard metrics and
// contractor earnings. Misses are reported with ok == false and a nil error.
type SummaryCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const MetricsKey = "ledgerdesk:metrics"

func ContractorEarningsKey(contractorID int64) string {
	return fmt.Sprintf("ledgerdesk:contractor:%d:earnings", contractorID)
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Delete(_ context.Context, _ ...string) error {
	return nil
}
