package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

func TestUpdateDiscardsWritesOnError(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.AdjustStock(ctx, 1, -2, store.Now()); err != nil {
			return err
		}
		if err := tx.AddAccumulatedCommission(ctx, 1, 12.5); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, 1)
		if err != nil {
			t.Fatalf("get product: %v", err)
		}
		if p.Quantity != 5 {
			t.Fatalf("expected quantity 5 after rollback, got %d", p.Quantity)
		}
		c, err := tx.GetContractor(ctx, 1)
		if err != nil {
			t.Fatalf("get contractor: %v", err)
		}
		if c.AccumulatedCommission != 0 {
			t.Fatalf("expected untouched commission, got %v", c.AccumulatedCommission)
		}
		return nil
	})
}

func TestAdjustStockRejectsNegativeQuantity(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	err := s.Update(ctx, func(tx store.Tx) error {
		return tx.AdjustStock(ctx, 1, -6, store.Now())
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.AdjustStock(ctx, 999, 1, store.Now())
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnpaidSalesExcludePaidRows(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	contractorID := int64(1)
	serviceID := int64(1)
	productID := int64(1)
	now := store.Now()

	var serviceSaleID, productSaleID int64
	err := s.Update(ctx, func(tx store.Tx) error {
		var err error
		serviceSaleID, err = tx.InsertSale(ctx, domain.SaleRecord{
			ServiceID: &serviceID, Quantity: 1, OutboundPricePerUnit: 50,
			TotalValue: 50, NetProfit: 20, ContractorID: &contractorID, ContractorEarnings: 30, DateSold: now,
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertServiceRecord(ctx, domain.ServiceRecord{
			SaleID: serviceSaleID, ServiceID: serviceID, ContractorID: &contractorID,
			PriceCharged: 50, BusinessEarnings: 20, ContractorEarnings: 30, DatePerformed: now,
		}); err != nil {
			return err
		}
		productSaleID, err = tx.InsertSale(ctx, domain.SaleRecord{
			ProductID: &productID, Quantity: 2, InboundPricePerUnit: 10, OutboundPricePerUnit: 20,
			TotalValue: 40, NetProfit: 16, ContractorID: &contractorID, ContractorEarnings: 4, DateSold: now.Add(time.Second),
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		unpaid, err := tx.ListUnpaidSales(ctx, contractorID)
		if err != nil {
			t.Fatalf("list unpaid: %v", err)
		}
		if len(unpaid) != 2 {
			t.Fatalf("expected 2 unpaid rows, got %d", len(unpaid))
		}
		if unpaid[0].ID != productSaleID || unpaid[0].Kind != domain.SaleKindProduct {
			t.Fatalf("expected newest product row first, got %+v", unpaid[0])
		}
		payable, err := tx.ListPayableSales(ctx, contractorID, []int64{serviceSaleID, productSaleID, 999})
		if err != nil {
			t.Fatalf("list payable: %v", err)
		}
		if len(payable) != 2 {
			t.Fatalf("expected 2 payable rows, got %d", len(payable))
		}
		if payable[1].BusinessEarnings != 36 {
			t.Fatalf("expected product business earnings 36, got %v", payable[1].BusinessEarnings)
		}
		return nil
	})

	err = s.Update(ctx, func(tx store.Tx) error {
		_, err := tx.InsertContractorPayment(ctx, domain.ContractorPayment{
			ContractorID: contractorID, SaleID: serviceSaleID, ContractorEarnings: 30, BusinessEarnings: 20, PaymentDate: now,
		})
		return err
	})
	if err != nil {
		t.Fatalf("pay service sale: %v", err)
	}

	err = s.Update(ctx, func(tx store.Tx) error {
		_, err := tx.InsertContractorPayment(ctx, domain.ContractorPayment{
			ContractorID: contractorID, SaleID: serviceSaleID, PaymentDate: now,
		})
		return err
	})
	if !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		unpaid, err := tx.ListUnpaidSales(ctx, contractorID)
		if err != nil {
			t.Fatalf("list unpaid: %v", err)
		}
		if len(unpaid) != 1 || unpaid[0].ID != productSaleID {
			t.Fatalf("expected only the product sale unpaid, got %+v", unpaid)
		}
		history, total, err := tx.ListContractorPayments(ctx, domain.Page{})
		if err != nil {
			t.Fatalf("list payments: %v", err)
		}
		if total != 1 || history[0].ItemName != "Haircut" || history[0].ContractorName != "Yolanda Reyes" {
			t.Fatalf("unexpected payment history: %+v", history)
		}
		earnings, err := tx.GetContractorEarnings(ctx, contractorID)
		if err != nil {
			t.Fatalf("earnings: %v", err)
		}
		if earnings.ServiceEarnings != 30 || earnings.ProductCommissions != 4 || earnings.TotalServices != 1 || earnings.TotalProducts != 1 {
			t.Fatalf("unexpected earnings: %+v", earnings)
		}
		return nil
	})
}

func TestOverlappingAppointments(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	contractorID := int64(2)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	var firstID int64
	err := s.Update(ctx, func(tx store.Tx) error {
		var err error
		firstID, err = tx.CreateAppointment(ctx, domain.Appointment{
			Title: "Cut", StartTime: start, EndTime: start.Add(time.Hour), ContractorID: &contractorID, CreatedAt: start,
		})
		return err
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	cases := []struct {
		name      string
		start     time.Time
		end       time.Time
		excludeID int64
		want      int
	}{
		{"inside", start.Add(15 * time.Minute), start.Add(30 * time.Minute), 0, 1},
		{"touching end", start.Add(time.Hour), start.Add(2 * time.Hour), 0, 0},
		{"touching start", start.Add(-time.Hour), start, 0, 0},
		{"self excluded", start, start.Add(time.Hour), firstID, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_ = s.View(ctx, func(tx store.Tx) error {
				n, err := tx.CountOverlappingAppointments(ctx, &contractorID, nil, tc.start, tc.end, tc.excludeID)
				if err != nil {
					t.Fatalf("count overlap: %v", err)
				}
				if n != tc.want {
					t.Fatalf("expected %d overlaps, got %d", tc.want, n)
				}
				return nil
			})
		})
	}
}

func TestDeleteEmployeeRemovesLinkedAccounts(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	contractorID := int64(1)

	var employeeID int64
	err := s.Update(ctx, func(tx store.Tx) error {
		var err error
		employeeID, err = tx.CreateEmployee(ctx, domain.Employee{
			Name: "Yolanda Reyes", Position: "Stylist", HireDate: store.Now(), ContractorID: &contractorID, IsActive: true,
		})
		if err != nil {
			return err
		}
		_, err = tx.CreateUser(ctx, domain.UserAccount{Username: "yolanda", Password: "x", Role: domain.RoleController, IsActive: true, EmployeeID: &employeeID})
		return err
	})
	if err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	if err := s.Update(ctx, func(tx store.Tx) error { return tx.DeleteEmployee(ctx, employeeID) }); err != nil {
		t.Fatalf("delete employee: %v", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUserByUsername(ctx, "yolanda"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected user removed, got %v", err)
		}
		if _, err := tx.GetContractor(ctx, contractorID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected linked contractor removed, got %v", err)
		}
		return nil
	})
}
