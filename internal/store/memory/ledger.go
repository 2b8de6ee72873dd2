package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

func (st *state) ListContractors(_ context.Context) ([]domain.Contractor, error) {
	contractors := slices.Collect(maps.Values(st.contractors))
	slices.SortFunc(contractors, func(a, b domain.Contractor) int {
		return strings.Compare(a.Name, b.Name)
	})
	return contractors, nil
}

func (st *state) GetContractor(_ context.Context, id int64) (domain.Contractor, error) {
	c, ok := st.contractors[id]
	if !ok {
		return domain.Contractor{}, store.ErrNotFound
	}
	return c, nil
}

func (st *state) CreateContractor(_ context.Context, contractor domain.Contractor) (int64, error) {
	for _, existing := range st.contractors {
		if existing.Name == contractor.Name {
			return 0, store.ErrConflict
		}
	}
	contractor.ID = st.nextID("contractors")
	st.contractors[contractor.ID] = contractor
	return contractor.ID, nil
}

func (st *state) UpdateContractorFee(_ context.Context, id int64, locationFee float64) error {
	return st.mutateContractor(id, func(c *domain.Contractor) { c.LocationFeePercentage = locationFee })
}

func (st *state) SetContractorActive(_ context.Context, id int64, active bool) error {
	return st.mutateContractor(id, func(c *domain.Contractor) { c.IsActive = active })
}

func (st *state) AddAccumulatedCommission(_ context.Context, id int64, amount float64) error {
	return st.mutateContractor(id, func(c *domain.Contractor) { c.AccumulatedCommission += amount })
}

func (st *state) ResetAccumulatedCommission(_ context.Context, id int64) error {
	return st.mutateContractor(id, func(c *domain.Contractor) { c.AccumulatedCommission = 0 })
}

func (st *state) mutateContractor(id int64, fn func(c *domain.Contractor)) error {
	c, ok := st.contractors[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&c)
	st.contractors[id] = c
	return nil
}

func (st *state) DeleteContractor(_ context.Context, id int64) error {
	if _, ok := st.contractors[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.contractors, id)
	for empID, emp := range st.employees {
		if sameID(emp.ContractorID, id) {
			emp.ContractorID = nil
			st.employees[empID] = emp
		}
	}
	for apptID, appt := range st.appointments {
		if sameID(appt.ContractorID, id) {
			appt.ContractorID = nil
			st.appointments[apptID] = appt
		}
	}
	return nil
}

func (st *state) CountContractorHistory(_ context.Context, id int64) (int, error) {
	count := 0
	for _, rec := range st.serviceRecords {
		if sameID(rec.ContractorID, id) {
			count++
		}
	}
	for _, sale := range st.sales {
		if sameID(sale.ContractorID, id) {
			count++
		}
	}
	return count, nil
}

func (st *state) ListContractorServiceHistory(_ context.Context, id int64, page domain.Page) ([]domain.ServiceRecord, int, error) {
	return st.serviceHistory(func(rec domain.ServiceRecord) bool { return sameID(rec.ContractorID, id) }, page)
}

func (st *state) InsertSale(_ context.Context, sale domain.SaleRecord) (int64, error) {
	sale.ID = st.nextID("sales_history")
	st.sales = append(st.sales, sale)
	return sale.ID, nil
}

func (st *state) InsertServiceRecord(_ context.Context, record domain.ServiceRecord) (int64, error) {
	record.ID = st.nextID("services_history")
	record.ServiceName = ""
	st.serviceRecords = append(st.serviceRecords, record)
	return record.ID, nil
}

func (st *state) ListSales(_ context.Context, filter domain.SalesFilter) ([]domain.SaleListEntry, int, error) {
	entries := make([]domain.SaleListEntry, 0, len(st.sales))
	for _, sale := range st.sales {
		if !inRange(sale.DateSold, filter.From, filter.To) {
			continue
		}
		entry := domain.SaleListEntry{
			ID:         sale.ID,
			DateSold:   sale.DateSold,
			Quantity:   sale.Quantity,
			TotalValue: sale.TotalValue,
			NetProfit:  sale.NetProfit,
		}
		if sale.ProductID != nil {
			entry.ItemName = st.products[*sale.ProductID].Name
			entry.Type = "Product"
		} else if sale.ServiceID != nil {
			entry.ItemName = st.services[*sale.ServiceID].Name
			entry.Type = "Service"
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b domain.SaleListEntry) int {
		return newestFirst(a.DateSold, b.DateSold, a.ID, b.ID)
	})
	items, total := paginate(entries, domain.Page{Limit: filter.Limit, Offset: filter.Offset})
	return items, total, nil
}

func (st *state) paidSales() map[int64]bool {
	paid := make(map[int64]bool, len(st.payments))
	for _, p := range st.payments {
		paid[p.SaleID] = true
	}
	return paid
}

// contractorLedger lists every ledger line owned by the contractor in the
// shape of the unpaid view.
func (st *state) contractorLedger(contractorID int64) []domain.UnpaidSale {
	rows := make([]domain.UnpaidSale, 0)
	for _, rec := range st.serviceRecords {
		if !sameID(rec.ContractorID, contractorID) {
			continue
		}
		rows = append(rows, domain.UnpaidSale{
			ID:                 rec.SaleID,
			ServiceName:        st.services[rec.ServiceID].Name,
			DatePerformed:      rec.DatePerformed,
			PriceCharged:       rec.PriceCharged,
			ContractorEarnings: rec.ContractorEarnings,
			Kind:               domain.SaleKindService,
		})
	}
	for _, sale := range st.sales {
		if sale.ProductID == nil || !sameID(sale.ContractorID, contractorID) {
			continue
		}
		rows = append(rows, domain.UnpaidSale{
			ID:                 sale.ID,
			ServiceName:        st.products[*sale.ProductID].Name,
			DatePerformed:      sale.DateSold,
			PriceCharged:       sale.TotalValue,
			ContractorEarnings: sale.ContractorEarnings,
			Kind:               domain.SaleKindProduct,
		})
	}
	return rows
}

func (st *state) ListUnpaidSales(_ context.Context, contractorID int64) ([]domain.UnpaidSale, error) {
	paid := st.paidSales()
	unpaid := make([]domain.UnpaidSale, 0)
	for _, row := range st.contractorLedger(contractorID) {
		if !paid[row.ID] {
			unpaid = append(unpaid, row)
		}
	}
	slices.SortFunc(unpaid, func(a, b domain.UnpaidSale) int {
		return newestFirst(a.DatePerformed, b.DatePerformed, a.ID, b.ID)
	})
	return unpaid, nil
}

func (st *state) ListPayableSales(_ context.Context, contractorID int64, saleIDs []int64) ([]domain.PayableSale, error) {
	wanted := make(map[int64]bool, len(saleIDs))
	for _, id := range saleIDs {
		wanted[id] = true
	}
	salesByID := make(map[int64]domain.SaleRecord, len(st.sales))
	for _, sale := range st.sales {
		salesByID[sale.ID] = sale
	}

	payable := make([]domain.PayableSale, 0, len(saleIDs))
	for _, rec := range st.serviceRecords {
		if wanted[rec.SaleID] && sameID(rec.ContractorID, contractorID) {
			payable = append(payable, domain.PayableSale{
				SaleID:             rec.SaleID,
				Kind:               domain.SaleKindService,
				ContractorEarnings: rec.ContractorEarnings,
				BusinessEarnings:   rec.BusinessEarnings,
			})
		}
	}
	for id := range wanted {
		sale, ok := salesByID[id]
		if !ok || sale.ProductID == nil || !sameID(sale.ContractorID, contractorID) {
			continue
		}
		payable = append(payable, domain.PayableSale{
			SaleID:             sale.ID,
			Kind:               domain.SaleKindProduct,
			ContractorEarnings: sale.ContractorEarnings,
			BusinessEarnings:   sale.TotalValue - sale.ContractorEarnings,
		})
	}
	slices.SortFunc(payable, func(a, b domain.PayableSale) int {
		return cmp.Compare(a.SaleID, b.SaleID)
	})
	return payable, nil
}

func (st *state) InsertContractorPayment(_ context.Context, payment domain.ContractorPayment) (int64, error) {
	for _, existing := range st.payments {
		if existing.SaleID == payment.SaleID {
			return 0, store.ErrAlreadyPaid
		}
	}
	payment.ID = st.nextID("contractor_payments")
	st.payments = append(st.payments, payment)
	return payment.ID, nil
}

func (st *state) ListContractorPayments(_ context.Context, page domain.Page) ([]domain.PaymentHistoryEntry, int, error) {
	salesByID := make(map[int64]domain.SaleRecord, len(st.sales))
	for _, sale := range st.sales {
		salesByID[sale.ID] = sale
	}

	entries := make([]domain.PaymentHistoryEntry, 0, len(st.payments))
	for _, p := range st.payments {
		entry := domain.PaymentHistoryEntry{
			ID:                 p.ID,
			ContractorID:       p.ContractorID,
			ContractorName:     st.contractors[p.ContractorID].Name,
			SaleID:             p.SaleID,
			ContractorEarnings: p.ContractorEarnings,
			BusinessEarnings:   p.BusinessEarnings,
			PaymentDate:        p.PaymentDate,
		}
		if sale, ok := salesByID[p.SaleID]; ok {
			if sale.ProductID != nil {
				entry.ItemName = st.products[*sale.ProductID].Name
			} else if sale.ServiceID != nil {
				entry.ItemName = st.services[*sale.ServiceID].Name
			}
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b domain.PaymentHistoryEntry) int {
		return newestFirst(a.PaymentDate, b.PaymentDate, a.ID, b.ID)
	})
	items, total := paginate(entries, page)
	return items, total, nil
}

func (st *state) GetContractorEarnings(_ context.Context, contractorID int64) (domain.ContractorEarnings, error) {
	var earnings domain.ContractorEarnings
	for _, rec := range st.serviceRecords {
		if sameID(rec.ContractorID, contractorID) {
			earnings.ServiceEarnings += rec.ContractorEarnings
			earnings.TotalServices++
		}
	}
	for _, sale := range st.sales {
		if sale.ProductID != nil && sameID(sale.ContractorID, contractorID) {
			earnings.ProductCommissions += sale.ContractorEarnings
			earnings.TotalProducts++
		}
	}
	return earnings, nil
}
