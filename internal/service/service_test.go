package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"ledgerdesk/backend/internal/cache"
	"ledgerdesk/backend/internal/commission"
	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
	"ledgerdesk/backend/internal/store/memory"
)

// Seeded ids from memory.NewSeeded.
const (
	shampooID   int64 = 1 // qty 5, in 10, out 20, commission 10
	waxID       int64 = 3 // qty 8, in 4, out 11, commission 15
	haircutID   int64 = 1 // 50
	beardTrimID int64 = 2 // 25
	yolandaID   int64 = 1 // location fee 40
	xavierID    int64 = 2 // location fee 30
)

type mapCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	deletes []string
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
		c.deletes = append(c.deletes, key)
	}
	return nil
}

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	return New(repo, commission.Float{}, newMapCache(), time.Minute, nil), repo
}

func ptr[T any](v T) *T {
	return &v
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func mustSale(t *testing.T, svc *Service, req domain.SaleRequest) domain.SaleResponse {
	t.Helper()
	resp, err := svc.ProcessSale(context.Background(), req)
	if err != nil {
		t.Fatalf("process sale: %v", err)
	}
	return resp
}

func assertLedgerBalanced(t *testing.T, svc *Service, contractorID int64) float64 {
	t.Helper()
	ctx := context.Background()
	c, err := svc.GetContractor(ctx, contractorID)
	if err != nil {
		t.Fatalf("get contractor: %v", err)
	}
	unpaid, err := svc.UnpaidSales(ctx, contractorID)
	if err != nil {
		t.Fatalf("unpaid sales: %v", err)
	}
	sum := 0.0
	for _, row := range unpaid {
		sum += row.ContractorEarnings
	}
	if !approx(c.AccumulatedCommission, sum) {
		t.Fatalf("accumulated commission %v != unpaid earnings %v", c.AccumulatedCommission, sum)
	}
	return sum
}

func productQuantity(t *testing.T, svc *Service, id int64) int {
	t.Helper()
	p, err := svc.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.Quantity
}

func TestProcessSaleCreditsProductCommission(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	resp := mustSale(t, svc, domain.SaleRequest{
		Products: []domain.SaleProductLine{{ProductID: shampooID, Quantity: 2}},
		Services: []domain.SaleServiceLine{{ServiceID: beardTrimID, ContractorID: ptr(xavierID)}},
	})
	if !resp.Success || len(resp.SaleIDs) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := productQuantity(t, svc, shampooID); got != 3 {
		t.Fatalf("expected quantity 3, got %d", got)
	}

	sales, total, err := svc.ListSales(ctx, domain.SalesFilter{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 sale rows, got %d", total)
	}
	var product domain.SaleListEntry
	for _, s := range sales {
		if s.ID == resp.SaleIDs[0] {
			product = s
		}
	}
	if product.TotalValue != 40 || product.NetProfit != 20 || product.Type != "Product" {
		t.Fatalf("unexpected product row: %+v", product)
	}

	unpaid, err := svc.UnpaidSales(ctx, xavierID)
	if err != nil {
		t.Fatalf("unpaid: %v", err)
	}
	var productEarnings float64
	for _, row := range unpaid {
		if row.ID == resp.SaleIDs[0] {
			productEarnings = row.ContractorEarnings
		}
	}
	if !approx(productEarnings, 4) {
		t.Fatalf("expected product commission 4, got %v", productEarnings)
	}

	c, _ := svc.GetContractor(ctx, xavierID)
	if !approx(c.AccumulatedCommission, 4+17.5) {
		t.Fatalf("expected accumulated 21.5, got %v", c.AccumulatedCommission)
	}
	assertLedgerBalanced(t, svc, xavierID)
}

func TestProcessSaleSplitsServicePrice(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	resp := mustSale(t, svc, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID), ClientName: "Ana"}},
	})

	history, total, err := svc.ServiceHistory(ctx, haircutID, domain.Page{})
	if err != nil {
		t.Fatalf("service history: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 service record, got %d", total)
	}
	rec := history[0]
	if rec.SaleID != resp.SaleIDs[0] || rec.BusinessEarnings != 20 || rec.ContractorEarnings != 30 || rec.ClientName != "Ana" {
		t.Fatalf("unexpected service record: %+v", rec)
	}

	unpaid, err := svc.UnpaidSales(ctx, yolandaID)
	if err != nil {
		t.Fatalf("unpaid: %v", err)
	}
	if len(unpaid) != 1 || unpaid[0].ID != resp.SaleIDs[0] || unpaid[0].ContractorEarnings != 30 || unpaid[0].Kind != domain.SaleKindService {
		t.Fatalf("unexpected unpaid rows: %+v", unpaid)
	}
	earnings, err := svc.ContractorEarnings(ctx, yolandaID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if earnings.ServiceEarnings != 30 || earnings.TotalServices != 1 || earnings.TotalProducts != 0 {
		t.Fatalf("unexpected earnings: %+v", earnings)
	}
}

func TestProcessSaleProductWithoutContractorEarnsNothing(t *testing.T) {
	svc, _ := newTestService()

	mustSale(t, svc, domain.SaleRequest{
		Products: []domain.SaleProductLine{{ProductID: shampooID, Quantity: 1}},
		Services: []domain.SaleServiceLine{{ServiceID: haircutID}},
	})
	for _, id := range []int64{yolandaID, xavierID} {
		if sum := assertLedgerBalanced(t, svc, id); sum != 0 {
			t.Fatalf("expected no earnings for contractor %d, got %v", id, sum)
		}
	}
}

func TestProcessSaleInsufficientStockRollsBackBatch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ProcessSale(ctx, domain.SaleRequest{
		Products: []domain.SaleProductLine{
			{ProductID: waxID, Quantity: 2},
			{ProductID: shampooID, Quantity: 6},
		},
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID)}},
	})
	var rule *RuleError
	if !errors.As(err, &rule) || rule.Code != ReasonInsufficientStock {
		t.Fatalf("expected insufficient_stock rule error, got %v", err)
	}

	if got := productQuantity(t, svc, waxID); got != 8 {
		t.Fatalf("expected wax quantity untouched at 8, got %d", got)
	}
	if got := productQuantity(t, svc, shampooID); got != 5 {
		t.Fatalf("expected shampoo quantity untouched at 5, got %d", got)
	}
	_, total, err := svc.ListSales(ctx, domain.SalesFilter{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no sale rows, got %d", total)
	}
	c, _ := svc.GetContractor(ctx, yolandaID)
	if c.AccumulatedCommission != 0 {
		t.Fatalf("expected no commission after rollback, got %v", c.AccumulatedCommission)
	}
}

func TestProcessSaleRepeatedLinesDrainSameStock(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ProcessSale(context.Background(), domain.SaleRequest{
		Products: []domain.SaleProductLine{
			{ProductID: shampooID, Quantity: 3},
			{ProductID: shampooID, Quantity: 3},
		},
	})
	var rule *RuleError
	if !errors.As(err, &rule) || rule.Code != ReasonInsufficientStock {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	if got := productQuantity(t, svc, shampooID); got != 5 {
		t.Fatalf("expected quantity 5, got %d", got)
	}
}

func TestProcessSaleUnknownReferences(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.SaleRequest
	}{
		{"product", domain.SaleRequest{Products: []domain.SaleProductLine{{ProductID: 99, Quantity: 1}}}},
		{"service", domain.SaleRequest{Services: []domain.SaleServiceLine{{ServiceID: 99}}}},
		{"contractor", domain.SaleRequest{Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(int64(99))}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ProcessSale(ctx, tc.req); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestProcessSaleRejectsInactiveContractorAndEmptyBatch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SetContractorActive(ctx, xavierID, domain.StatusRequest{IsActive: ptr(false)}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := svc.ProcessSale(ctx, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(xavierID)}},
	})
	var rule *RuleError
	if !errors.As(err, &rule) || rule.Code != ReasonContractorInactive {
		t.Fatalf("expected contractor_inactive, got %v", err)
	}

	_, err = svc.ProcessSale(ctx, domain.SaleRequest{})
	if !errors.As(err, &rule) || rule.Code != ReasonEmptySale {
		t.Fatalf("expected empty_sale, got %v", err)
	}

	_, err = svc.ProcessSale(ctx, domain.SaleRequest{Products: []domain.SaleProductLine{{ProductID: shampooID, Quantity: 0}}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBatchContractorIsFirstServiceContractor(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustSale(t, svc, domain.SaleRequest{
		Products: []domain.SaleProductLine{{ProductID: waxID, Quantity: 2}},
		Services: []domain.SaleServiceLine{
			{ServiceID: beardTrimID},
			{ServiceID: haircutID, ContractorID: ptr(yolandaID)},
			{ServiceID: beardTrimID, ContractorID: ptr(xavierID)},
		},
	})

	yolanda, _ := svc.ContractorEarnings(ctx, yolandaID)
	if !approx(yolanda.ProductCommissions, 3.3) || !approx(yolanda.ServiceEarnings, 30) {
		t.Fatalf("unexpected yolanda earnings: %+v", yolanda)
	}
	xavier, _ := svc.ContractorEarnings(ctx, xavierID)
	if xavier.ProductCommissions != 0 || !approx(xavier.ServiceEarnings, 17.5) {
		t.Fatalf("unexpected xavier earnings: %+v", xavier)
	}
	assertLedgerBalanced(t, svc, yolandaID)
	assertLedgerBalanced(t, svc, xavierID)
}

func TestAccumulatedCommissionTracksBatches(t *testing.T) {
	svc, _ := newTestService()

	expected := 0.0
	for i := 0; i < 4; i++ {
		mustSale(t, svc, domain.SaleRequest{
			Products: []domain.SaleProductLine{{ProductID: waxID, Quantity: 1}},
			Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID)}},
		})
		expected += 11*0.15 + 30
		if got := assertLedgerBalanced(t, svc, yolandaID); !approx(got, expected) {
			t.Fatalf("batch %d: expected %v, got %v", i+1, expected, got)
		}
	}
}

func TestPayContractorZeroesBalanceOnPartialPayment(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := mustSale(t, svc, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID)}},
	})
	mustSale(t, svc, domain.SaleRequest{
		Products: []domain.SaleProductLine{{ProductID: shampooID, Quantity: 1}},
		Services: []domain.SaleServiceLine{{ServiceID: beardTrimID, ContractorID: ptr(yolandaID)}},
	})

	resp, err := svc.PayContractor(ctx, domain.ContractorPaymentRequest{
		ContractorID: yolandaID,
		SaleIDs:      []int64{first.SaleIDs[0]},
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if len(resp.PaidSaleIDs) != 1 || resp.TotalPaid != 30 {
		t.Fatalf("unexpected payment response: %+v", resp)
	}

	c, _ := svc.GetContractor(ctx, yolandaID)
	if c.AccumulatedCommission != 0 {
		t.Fatalf("expected accumulated commission reset to 0, got %v", c.AccumulatedCommission)
	}
	unpaid, _ := svc.UnpaidSales(ctx, yolandaID)
	if len(unpaid) != 2 {
		t.Fatalf("expected 2 rows still unpaid, got %+v", unpaid)
	}

	history, total, err := svc.ListContractorPayments(ctx, domain.Page{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 1 || history[0].ContractorEarnings != 30 || history[0].BusinessEarnings != 20 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestPayContractorPaysProductAndServiceRows(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sale := mustSale(t, svc, domain.SaleRequest{
		Products: []domain.SaleProductLine{{ProductID: shampooID, Quantity: 2}},
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID)}},
	})
	resp, err := svc.PayContractor(ctx, domain.ContractorPaymentRequest{ContractorID: yolandaID, SaleIDs: sale.SaleIDs})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if len(resp.PaidSaleIDs) != 2 || !approx(resp.TotalPaid, 34) {
		t.Fatalf("unexpected payment: %+v", resp)
	}
	if sum := assertLedgerBalanced(t, svc, yolandaID); sum != 0 {
		t.Fatalf("expected nothing unpaid, got %v", sum)
	}
}

func TestPayContractorRejectsDuplicatePayment(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := mustSale(t, svc, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID)}},
	})
	req := domain.ContractorPaymentRequest{ContractorID: yolandaID, SaleIDs: first.SaleIDs}
	if _, err := svc.PayContractor(ctx, req); err != nil {
		t.Fatalf("first payment: %v", err)
	}

	second := mustSale(t, svc, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: beardTrimID, ContractorID: ptr(yolandaID)}},
	})
	_, err := svc.PayContractor(ctx, domain.ContractorPaymentRequest{
		ContractorID: yolandaID,
		SaleIDs:      append([]int64{second.SaleIDs[0]}, first.SaleIDs...),
	})
	var rule *RuleError
	if !errors.As(err, &rule) || rule.Code != ReasonAlreadyPaid {
		t.Fatalf("expected already_paid, got %v", err)
	}

	c, _ := svc.GetContractor(ctx, yolandaID)
	if !approx(c.AccumulatedCommission, 15) {
		t.Fatalf("expected rejected payment to leave balance 15, got %v", c.AccumulatedCommission)
	}
	unpaid, _ := svc.UnpaidSales(ctx, yolandaID)
	if len(unpaid) != 1 || unpaid[0].ID != second.SaleIDs[0] {
		t.Fatalf("expected second sale still unpaid, got %+v", unpaid)
	}
}

func TestPayContractorIgnoresOtherContractorsSales(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	other := mustSale(t, svc, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(xavierID)}},
	})
	resp, err := svc.PayContractor(ctx, domain.ContractorPaymentRequest{ContractorID: yolandaID, SaleIDs: other.SaleIDs})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if len(resp.PaidSaleIDs) != 0 {
		t.Fatalf("expected nothing paid, got %+v", resp)
	}
	assertLedgerBalanced(t, svc, xavierID)

	if _, err := svc.PayContractor(ctx, domain.ContractorPaymentRequest{ContractorID: 99, SaleIDs: []int64{1}}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown contractor, got %v", err)
	}
}

func TestEarningsCacheInvalidatedBySale(t *testing.T) {
	repo := memory.NewSeeded()
	summaries := newMapCache()
	svc := New(repo, commission.Float{}, summaries, time.Minute, nil)
	ctx := context.Background()

	before, err := svc.ContractorEarnings(ctx, yolandaID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if before.TotalServices != 0 {
		t.Fatalf("expected empty earnings, got %+v", before)
	}

	mustSale(t, svc, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID)}},
	})
	if !slices.Contains(summaries.deletes, cache.ContractorEarningsKey(yolandaID)) || !slices.Contains(summaries.deletes, cache.MetricsKey) {
		t.Fatalf("expected earnings and metrics keys invalidated, got %v", summaries.deletes)
	}
	if slices.Contains(summaries.deletes, cache.ContractorEarningsKey(xavierID)) {
		t.Fatalf("uncredited contractor should keep its cached earnings")
	}
	after, err := svc.ContractorEarnings(ctx, yolandaID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if after.TotalServices != 1 || after.ServiceEarnings != 30 {
		t.Fatalf("expected fresh earnings after sale, got %+v", after)
	}

	metrics, err := svc.Metrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.TotalSales != 50 || metrics.NetProfit != 20 {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}
}

func TestDecimalCalculatorKeepsInvariant(t *testing.T) {
	repo := memory.NewSeeded()
	svc := New(repo, commission.Decimal{Places: 2}, nil, 0, nil)
	ctx := context.Background()

	if _, err := svc.UpdateContractorFee(ctx, yolandaID, domain.ContractorUpdateRequest{LocationFeePercentage: 33.3}); err != nil {
		t.Fatalf("update fee: %v", err)
	}
	for i := 0; i < 3; i++ {
		mustSale(t, svc, domain.SaleRequest{
			Products: []domain.SaleProductLine{{ProductID: waxID, Quantity: 1}},
			Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID)}},
		})
	}
	assertLedgerBalanced(t, svc, yolandaID)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(context.Context, ...string) error {
	return errors.New("connection refused")
}

func TestCacheFailuresDoNotFailLedgerOperations(t *testing.T) {
	svc := New(memory.NewSeeded(), commission.Float{}, brokenCache{}, time.Minute, nil)
	ctx := context.Background()

	mustSale(t, svc, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: haircutID, ContractorID: ptr(yolandaID)}},
	})
	earnings, err := svc.ContractorEarnings(ctx, yolandaID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if earnings.ServiceEarnings != 30 {
		t.Fatalf("unexpected earnings: %+v", earnings)
	}
	if _, err := svc.Metrics(ctx); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}
