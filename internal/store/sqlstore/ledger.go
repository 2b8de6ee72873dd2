package sqlstore

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

const contractorColumns = `id, name, location_fee_percentage, accumulated_commission, start_date, is_active`

func (q *queries) ListContractors(ctx context.Context) ([]domain.Contractor, error) {
	contractors := []domain.Contractor{}
	err := q.selectAll(ctx, &contractors, `SELECT `+contractorColumns+` FROM contractors ORDER BY name`)
	return contractors, err
}

func (q *queries) GetContractor(ctx context.Context, id int64) (domain.Contractor, error) {
	var c domain.Contractor
	err := q.get(ctx, &c, `SELECT `+contractorColumns+` FROM contractors WHERE id = ?`, id)
	return c, err
}

func (q *queries) CreateContractor(ctx context.Context, c domain.Contractor) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO contractors (name, location_fee_percentage, accumulated_commission, start_date, is_active)
		VALUES (?, ?, ?, ?, ?)
	`, c.Name, c.LocationFeePercentage, c.AccumulatedCommission, c.StartDate, c.IsActive)
}

func (q *queries) UpdateContractorFee(ctx context.Context, id int64, locationFee float64) error {
	return q.execOne(ctx, `UPDATE contractors SET location_fee_percentage = ? WHERE id = ?`, locationFee, id)
}

func (q *queries) SetContractorActive(ctx context.Context, id int64, active bool) error {
	return q.execOne(ctx, `UPDATE contractors SET is_active = ? WHERE id = ?`, active, id)
}

func (q *queries) AddAccumulatedCommission(ctx context.Context, id int64, amount float64) error {
	return q.execOne(ctx, `UPDATE contractors SET accumulated_commission = accumulated_commission + ? WHERE id = ?`, amount, id)
}

func (q *queries) ResetAccumulatedCommission(ctx context.Context, id int64) error {
	return q.execOne(ctx, `UPDATE contractors SET accumulated_commission = 0 WHERE id = ?`, id)
}

func (q *queries) DeleteContractor(ctx context.Context, id int64) error {
	if _, err := q.exec(ctx, `UPDATE employees SET contractor_id = NULL WHERE contractor_id = ?`, id); err != nil {
		return err
	}
	if _, err := q.exec(ctx, `UPDATE appointments SET contractor_id = NULL WHERE contractor_id = ?`, id); err != nil {
		return err
	}
	return q.execOne(ctx, `DELETE FROM contractors WHERE id = ?`, id)
}

func (q *queries) CountContractorHistory(ctx context.Context, id int64) (int, error) {
	return q.count(ctx, `
		SELECT
			(SELECT COUNT(*) FROM services_history WHERE contractor_id = ?) +
			(SELECT COUNT(*) FROM sales_history WHERE contractor_id = ?)
	`, id, id)
}

func (q *queries) ListContractorServiceHistory(ctx context.Context, id int64, page domain.Page) ([]domain.ServiceRecord, int, error) {
	return q.serviceHistory(ctx, `sh.contractor_id = ?`, id, page)
}

func (q *queries) InsertSale(ctx context.Context, sale domain.SaleRecord) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO sales_history (
			product_id, service_id, quantity, inbound_price_per_unit, outbound_price_per_unit,
			total_value, net_profit, contractor_id, contractor_earnings, date_sold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sale.ProductID, sale.ServiceID, sale.Quantity, sale.InboundPricePerUnit, sale.OutboundPricePerUnit,
		sale.TotalValue, sale.NetProfit, sale.ContractorID, sale.ContractorEarnings, sale.DateSold)
}

func (q *queries) InsertServiceRecord(ctx context.Context, rec domain.ServiceRecord) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO services_history (
			sale_id, service_id, contractor_id, client_name, price_charged,
			business_earnings, contractor_earnings, date_performed, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.SaleID, rec.ServiceID, rec.ContractorID, rec.ClientName, rec.PriceCharged,
		rec.BusinessEarnings, rec.ContractorEarnings, rec.DatePerformed, rec.Notes)
}

func (q *queries) ListSales(ctx context.Context, filter domain.SalesFilter) ([]domain.SaleListEntry, int, error) {
	where := ` WHERE 1 = 1`
	args := []any{}
	if filter.From != nil {
		where += ` AND s.date_sold >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where += ` AND s.date_sold <= ?`
		args = append(args, *filter.To)
	}

	total, err := q.count(ctx, `SELECT COUNT(*) FROM sales_history s`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	limit, pageArgs := pageClause(filter.Limit, filter.Offset)
	entries := []domain.SaleListEntry{}
	err = q.selectAll(ctx, &entries, `
		SELECT
			s.id,
			s.date_sold,
			COALESCE(p.name, srv.name, '') AS item_name,
			CASE WHEN s.product_id IS NOT NULL THEN 'Product' ELSE 'Service' END AS type,
			s.quantity,
			s.total_value,
			s.net_profit
		FROM sales_history s
		LEFT JOIN products p ON s.product_id = p.id
		LEFT JOIN services srv ON s.service_id = srv.id`+where+`
		ORDER BY s.date_sold DESC, s.id DESC`+limit, append(args, pageArgs...)...)
	return entries, total, err
}

const unpaidServicesQuery = `
	SELECT sh.sale_id AS id, s.name AS service_name, sh.date_performed, sh.price_charged,
		sh.contractor_earnings, 'service' AS kind
	FROM services_history sh
	JOIN services s ON s.id = sh.service_id
	LEFT JOIN contractor_payments cp ON cp.sale_id = sh.sale_id
	WHERE sh.contractor_id = ? AND cp.id IS NULL`

const unpaidProductsQuery = `
	SELECT s.id, p.name AS service_name, s.date_sold AS date_performed, s.total_value AS price_charged,
		s.contractor_earnings, 'product' AS kind
	FROM sales_history s
	JOIN products p ON p.id = s.product_id
	LEFT JOIN contractor_payments cp ON cp.sale_id = s.id
	WHERE s.contractor_id = ? AND cp.id IS NULL`

// ListUnpaidSales merges the two views in Go; SQLite only reports column
// types for plain selects, which the timestamp decoding relies on.
func (q *queries) ListUnpaidSales(ctx context.Context, contractorID int64) ([]domain.UnpaidSale, error) {
	services := []domain.UnpaidSale{}
	if err := q.selectAll(ctx, &services, unpaidServicesQuery, contractorID); err != nil {
		return nil, err
	}
	products := []domain.UnpaidSale{}
	if err := q.selectAll(ctx, &products, unpaidProductsQuery, contractorID); err != nil {
		return nil, err
	}

	unpaid := append(services, products...)
	slices.SortFunc(unpaid, func(a, b domain.UnpaidSale) int {
		if c := b.DatePerformed.Compare(a.DatePerformed); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return unpaid, nil
}

func (q *queries) ListPayableSales(ctx context.Context, contractorID int64, saleIDs []int64) ([]domain.PayableSale, error) {
	if len(saleIDs) == 0 {
		return []domain.PayableSale{}, nil
	}
	payable := []domain.PayableSale{}
	err := q.selectIn(ctx, &payable, `
		SELECT sale_id, 'service' AS kind, contractor_earnings, business_earnings
		FROM services_history
		WHERE contractor_id = ? AND sale_id IN (?)
	`, contractorID, saleIDs)
	if err != nil {
		return nil, err
	}
	products := []domain.PayableSale{}
	err = q.selectIn(ctx, &products, `
		SELECT id AS sale_id, 'product' AS kind, contractor_earnings, total_value - contractor_earnings AS business_earnings
		FROM sales_history
		WHERE contractor_id = ? AND product_id IS NOT NULL AND id IN (?)
	`, contractorID, saleIDs)
	if err != nil {
		return nil, err
	}

	payable = append(payable, products...)
	slices.SortFunc(payable, func(a, b domain.PayableSale) int {
		return cmp.Compare(a.SaleID, b.SaleID)
	})
	return payable, nil
}

func (q *queries) InsertContractorPayment(ctx context.Context, p domain.ContractorPayment) (int64, error) {
	id, err := q.insert(ctx, `
		INSERT INTO contractor_payments (contractor_id, sale_id, contractor_earnings, business_earnings, payment_date)
		VALUES (?, ?, ?, ?, ?)
	`, p.ContractorID, p.SaleID, p.ContractorEarnings, p.BusinessEarnings, p.PaymentDate)
	if errors.Is(err, store.ErrConflict) {
		return 0, store.ErrAlreadyPaid
	}
	return id, err
}

func (q *queries) ListContractorPayments(ctx context.Context, page domain.Page) ([]domain.PaymentHistoryEntry, int, error) {
	total, err := q.count(ctx, `SELECT COUNT(*) FROM contractor_payments`)
	if err != nil {
		return nil, 0, err
	}
	limit, args := pageClause(page.Limit, page.Offset)
	entries := []domain.PaymentHistoryEntry{}
	err = q.selectAll(ctx, &entries, `
		SELECT
			cp.id,
			cp.contractor_id,
			c.name AS contractor_name,
			cp.sale_id,
			COALESCE(p.name, srv.name, '') AS item_name,
			cp.contractor_earnings,
			cp.business_earnings,
			cp.payment_date
		FROM contractor_payments cp
		JOIN contractors c ON c.id = cp.contractor_id
		JOIN sales_history s ON s.id = cp.sale_id
		LEFT JOIN products p ON p.id = s.product_id
		LEFT JOIN services srv ON srv.id = s.service_id
		ORDER BY cp.payment_date DESC, cp.id DESC`+limit, args...)
	return entries, total, err
}

func (q *queries) GetContractorEarnings(ctx context.Context, contractorID int64) (domain.ContractorEarnings, error) {
	var earnings domain.ContractorEarnings
	err := q.get(ctx, &earnings, `
		SELECT
			(SELECT COALESCE(SUM(contractor_earnings), 0) FROM services_history WHERE contractor_id = ?) AS service_earnings,
			(SELECT COALESCE(SUM(contractor_earnings), 0) FROM sales_history WHERE contractor_id = ? AND product_id IS NOT NULL) AS product_commissions,
			(SELECT COUNT(*) FROM services_history WHERE contractor_id = ?) AS total_services,
			(SELECT COUNT(*) FROM sales_history WHERE contractor_id = ? AND product_id IS NOT NULL) AS total_products
	`, contractorID, contractorID, contractorID, contractorID)
	return earnings, err
}
