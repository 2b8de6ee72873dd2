package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

// Store keeps the whole ledger in process memory. Update runs fn against a
// copy of the state and swaps it in on success, so a failed unit leaves no
// trace.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	seq              map[string]int64
	products         map[int64]domain.Product
	receiving        []domain.ReceiveRecord
	returns          []domain.ReturnRecord
	services         map[int64]domain.Service
	contractors      map[int64]domain.Contractor
	sales            []domain.SaleRecord
	serviceRecords   []domain.ServiceRecord
	payments         []domain.ContractorPayment
	employees        map[int64]domain.Employee
	employeePayments []domain.EmployeePayment
	appointments     map[int64]domain.Appointment
	settings         domain.BusinessSettings
	users            map[int64]domain.UserAccount
}

var (
	_ store.Repository = (*Store)(nil)
	_ store.Tx         = (*state)(nil)
)

func New() *Store {
	return &Store{state: &state{
		seq:          make(map[string]int64),
		products:     make(map[int64]domain.Product),
		services:     make(map[int64]domain.Service),
		contractors:  make(map[int64]domain.Contractor),
		employees:    make(map[int64]domain.Employee),
		appointments: make(map[int64]domain.Appointment),
		users:        make(map[int64]domain.UserAccount),
	}}
}

// NewSeeded returns a store with a small demo catalog and two active
// contractors. No user accounts are seeded; the first one comes from setup.
func NewSeeded() *Store {
	s := New()
	now := store.Now()
	st := s.state

	for _, p := range []domain.Product{
		{Name: "Argan Shampoo", SKU: "SHP-001", Quantity: 5, InboundPrice: 10, OutboundPrice: 20, Supplier: "Salon Supply Co", CommissionPercentage: 10},
		{Name: "Repair Conditioner", SKU: "CND-001", Quantity: 12, InboundPrice: 6, OutboundPrice: 15, Supplier: "Salon Supply Co"},
		{Name: "Matte Hair Wax", SKU: "WAX-001", Quantity: 8, InboundPrice: 4, OutboundPrice: 11, Supplier: "Barber Goods", CommissionPercentage: 15},
	} {
		p.ID = st.nextID("products")
		p.LastUpdated = now
		st.products[p.ID] = p
	}
	for _, svc := range []domain.Service{
		{Name: "Haircut", Description: "Wash, cut and style", BasePrice: 50},
		{Name: "Beard Trim", Description: "Trim and line-up", BasePrice: 25},
		{Name: "Full Color", Description: "Single process color", BasePrice: 120},
	} {
		svc.ID = st.nextID("services")
		st.services[svc.ID] = svc
	}
	for _, c := range []domain.Contractor{
		{Name: "Yolanda Reyes", LocationFeePercentage: 40},
		{Name: "Xavier Molina", LocationFeePercentage: 30},
	} {
		c.ID = st.nextID("contractors")
		c.StartDate = now
		c.IsActive = true
		st.contractors[c.ID] = c
	}
	return s
}

func (s *Store) View(_ context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *Store) Update(_ context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(working); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (st *state) clone() *state {
	return &state{
		seq:              maps.Clone(st.seq),
		products:         maps.Clone(st.products),
		receiving:        slices.Clone(st.receiving),
		returns:          slices.Clone(st.returns),
		services:         maps.Clone(st.services),
		contractors:      maps.Clone(st.contractors),
		sales:            slices.Clone(st.sales),
		serviceRecords:   slices.Clone(st.serviceRecords),
		payments:         slices.Clone(st.payments),
		employees:        maps.Clone(st.employees),
		employeePayments: slices.Clone(st.employeePayments),
		appointments:     maps.Clone(st.appointments),
		settings:         st.settings,
		users:            maps.Clone(st.users),
	}
}

func (st *state) nextID(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

func (st *state) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	products := make([]domain.Product, 0, len(st.products))
	for _, p := range st.products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) && !strings.Contains(strings.ToLower(p.SKU), query) {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		var c int
		switch filter.SortBy {
		case "sku":
			c = strings.Compare(a.SKU, b.SKU)
		case "quantity":
			c = cmp.Compare(a.Quantity, b.Quantity)
		case "lastUpdated":
			c = a.LastUpdated.Compare(b.LastUpdated)
		default:
			c = strings.Compare(a.Name, b.Name)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if filter.Desc {
			return -c
		}
		return c
	})

	items, total := paginate(products, domain.Page{Limit: filter.Limit, Offset: filter.Offset})
	return items, total, nil
}

func (st *state) ListSoldProducts(_ context.Context) ([]domain.Product, error) {
	sold := make(map[int64]bool)
	for _, sale := range st.sales {
		if sale.ProductID != nil {
			sold[*sale.ProductID] = true
		}
	}
	products := make([]domain.Product, 0, len(sold))
	for id := range sold {
		if p, ok := st.products[id]; ok {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (st *state) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (st *state) CreateProduct(_ context.Context, product domain.Product) (int64, error) {
	for _, existing := range st.products {
		if existing.SKU == product.SKU || existing.Name == product.Name {
			return 0, store.ErrConflict
		}
	}
	product.ID = st.nextID("products")
	st.products[product.ID] = product
	return product.ID, nil
}

func (st *state) UpdateProduct(_ context.Context, product domain.Product) error {
	if _, ok := st.products[product.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range st.products {
		if existing.ID != product.ID && existing.Name == product.Name {
			return store.ErrConflict
		}
	}
	st.products[product.ID] = product
	return nil
}

func (st *state) AdjustStock(_ context.Context, productID int64, delta int, at time.Time) error {
	p, ok := st.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if p.Quantity+delta < 0 {
		return store.ErrInsufficientStock
	}
	p.Quantity += delta
	p.LastUpdated = at
	st.products[productID] = p
	return nil
}

func (st *state) CreateReceiving(_ context.Context, record domain.ReceiveRecord) (int64, error) {
	if _, ok := st.products[record.ProductID]; !ok {
		return 0, store.ErrNotFound
	}
	record.ID = st.nextID("receiving_history")
	st.receiving = append(st.receiving, record)
	return record.ID, nil
}

func (st *state) ListReceiving(_ context.Context, page domain.Page) ([]domain.ReceiveRecord, int, error) {
	records := make([]domain.ReceiveRecord, 0, len(st.receiving))
	for _, r := range st.receiving {
		r.ProductName = st.products[r.ProductID].Name
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b domain.ReceiveRecord) int {
		return newestFirst(a.DateReceived, b.DateReceived, a.ID, b.ID)
	})
	items, total := paginate(records, page)
	return items, total, nil
}

func (st *state) CreateReturn(_ context.Context, record domain.ReturnRecord) (int64, error) {
	if _, ok := st.products[record.ProductID]; !ok {
		return 0, store.ErrNotFound
	}
	record.ID = st.nextID("returns_history")
	st.returns = append(st.returns, record)
	return record.ID, nil
}

func (st *state) ListReturns(_ context.Context, page domain.Page) ([]domain.ReturnRecord, int, error) {
	records := make([]domain.ReturnRecord, 0, len(st.returns))
	for _, r := range st.returns {
		r.ProductName = st.products[r.ProductID].Name
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b domain.ReturnRecord) int {
		return newestFirst(a.DateReturned, b.DateReturned, a.ID, b.ID)
	})
	items, total := paginate(records, page)
	return items, total, nil
}

func (st *state) GetMetrics(_ context.Context) (domain.Metrics, error) {
	var m domain.Metrics
	for _, p := range st.products {
		m.InventoryValue += float64(p.Quantity) * p.InboundPrice
		m.PotentialValue += float64(p.Quantity) * p.OutboundPrice
	}
	for _, sale := range st.sales {
		m.TotalSales += sale.TotalValue
		m.NetProfit += sale.NetProfit
	}
	for _, r := range st.returns {
		m.TotalReturns += r.ReturnAmount
	}
	return m, nil
}

func (st *state) ListServices(_ context.Context, page domain.Page) ([]domain.Service, int, error) {
	services := slices.Collect(maps.Values(st.services))
	slices.SortFunc(services, func(a, b domain.Service) int {
		return strings.Compare(a.Name, b.Name)
	})
	items, total := paginate(services, page)
	return items, total, nil
}

func (st *state) GetService(_ context.Context, id int64) (domain.Service, error) {
	svc, ok := st.services[id]
	if !ok {
		return domain.Service{}, store.ErrNotFound
	}
	return svc, nil
}

func (st *state) CreateService(_ context.Context, service domain.Service) (int64, error) {
	for _, existing := range st.services {
		if existing.Name == service.Name {
			return 0, store.ErrConflict
		}
	}
	service.ID = st.nextID("services")
	st.services[service.ID] = service
	return service.ID, nil
}

func (st *state) DeleteService(_ context.Context, id int64) error {
	if _, ok := st.services[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.services, id)
	for apptID, appt := range st.appointments {
		if appt.ServiceID != nil && *appt.ServiceID == id {
			appt.ServiceID = nil
			st.appointments[apptID] = appt
		}
	}
	return nil
}

func (st *state) CountServiceHistory(_ context.Context, serviceID int64) (int, error) {
	count := 0
	for _, rec := range st.serviceRecords {
		if rec.ServiceID == serviceID {
			count++
		}
	}
	return count, nil
}

func (st *state) ListServiceHistory(_ context.Context, serviceID int64, page domain.Page) ([]domain.ServiceRecord, int, error) {
	return st.serviceHistory(func(rec domain.ServiceRecord) bool { return rec.ServiceID == serviceID }, page)
}

func (st *state) serviceHistory(match func(domain.ServiceRecord) bool, page domain.Page) ([]domain.ServiceRecord, int, error) {
	records := make([]domain.ServiceRecord, 0)
	for _, rec := range st.serviceRecords {
		if !match(rec) {
			continue
		}
		rec.ServiceName = st.services[rec.ServiceID].Name
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b domain.ServiceRecord) int {
		return newestFirst(a.DatePerformed, b.DatePerformed, a.ID, b.ID)
	})
	items, total := paginate(records, page)
	return items, total, nil
}

func paginate[T any](items []T, page domain.Page) ([]T, int) {
	total := len(items)
	if page.Offset > 0 {
		if page.Offset >= total {
			return []T{}, total
		}
		items = items[page.Offset:]
	}
	if page.Limit > 0 && len(items) > page.Limit {
		items = items[:page.Limit]
	}
	return items, total
}

func newestFirst(a, b time.Time, aID, bID int64) int {
	if c := b.Compare(a); c != 0 {
		return c
	}
	return cmp.Compare(bID, aID)
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func sameID(a *int64, id int64) bool {
	return a != nil && *a == id
}
