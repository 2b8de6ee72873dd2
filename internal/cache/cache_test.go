package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

type earnings struct {
	ServiceEarnings float64 `json:"service_earnings"`
	TotalServices   int     `json:"total_services"`
}

func TestContractorEarningsKeyIsPerContractor(t *testing.T) {
	if ContractorEarningsKey(1) == ContractorEarningsKey(2) {
		t.Fatalf("expected distinct keys per contractor")
	}
	if ContractorEarningsKey(7) == MetricsKey {
		t.Fatalf("earnings key must not collide with metrics key")
	}
}

func TestNoopSummaryCacheAlwaysMisses(t *testing.T) {
	var c SummaryCache = NoopSummaryCache{}
	ctx := context.Background()
	if err := c.Set(ctx, MetricsKey, earnings{ServiceEarnings: 1}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out earnings
	ok, err := c.Get(ctx, MetricsKey, &out)
	if err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisSummaryCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("LEDGERDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEDGERDESK_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c := NewRedisSummaryCache(addr, "", 0)
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	key := ContractorEarningsKey(time.Now().UnixNano())
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	var out earnings
	if ok, err := c.Get(ctx, key, &out); err != nil || ok {
		t.Fatalf("expected initial miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, key, earnings{ServiceEarnings: 30, TotalServices: 1}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	ok, err := c.Get(ctx, key, &out)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if out.ServiceEarnings != 30 || out.TotalServices != 1 {
		t.Fatalf("unexpected cached value: %+v", out)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := c.Get(ctx, key, &out); ok {
		t.Fatalf("expected miss after delete")
	}
}
