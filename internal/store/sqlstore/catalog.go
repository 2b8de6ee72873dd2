package sqlstore

import (
	"context"
	"time"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

const productColumns = `id, name, sku, quantity, inbound_price, outbound_price, supplier, commission_percentage, last_updated`

var productSortColumns = map[string]string{
	"name":        "name",
	"sku":         "sku",
	"quantity":    "quantity",
	"lastUpdated": "last_updated",
}

func (q *queries) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	where := ""
	args := []any{}
	if filter.Query != "" {
		where = ` WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\'`
		pattern := likePattern(filter.Query)
		args = append(args, pattern, pattern)
	}

	total, err := q.count(ctx, `SELECT COUNT(*) FROM products`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	column, ok := productSortColumns[filter.SortBy]
	if !ok {
		column = "name"
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	limit, pageArgs := pageClause(filter.Limit, filter.Offset)

	products := []domain.Product{}
	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + column + ` ` + direction + `, id ` + direction + limit
	if err := q.selectAll(ctx, &products, query, append(args, pageArgs...)...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (q *queries) ListSoldProducts(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	err := q.selectAll(ctx, &products, `
		SELECT `+productColumns+`
		FROM products
		WHERE id IN (SELECT product_id FROM sales_history WHERE product_id IS NOT NULL)
		ORDER BY name
	`)
	return products, err
}

func (q *queries) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := q.get(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return p, err
}

func (q *queries) CreateProduct(ctx context.Context, p domain.Product) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO products (name, sku, quantity, inbound_price, outbound_price, supplier, commission_percentage, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.SKU, p.Quantity, p.InboundPrice, p.OutboundPrice, p.Supplier, p.CommissionPercentage, p.LastUpdated)
}

func (q *queries) UpdateProduct(ctx context.Context, p domain.Product) error {
	return q.execOne(ctx, `
		UPDATE products
		SET name = ?, inbound_price = ?, outbound_price = ?, supplier = ?, commission_percentage = ?, last_updated = ?
		WHERE id = ?
	`, p.Name, p.InboundPrice, p.OutboundPrice, p.Supplier, p.CommissionPercentage, p.LastUpdated, p.ID)
}

func (q *queries) AdjustStock(ctx context.Context, productID int64, delta int, at time.Time) error {
	res, err := q.exec(ctx, `
		UPDATE products
		SET quantity = quantity + ?, last_updated = ?
		WHERE id = ? AND quantity + ? >= 0
	`, delta, at, productID, delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if _, err := q.GetProduct(ctx, productID); err != nil {
		return err
	}
	return store.ErrInsufficientStock
}

func (q *queries) CreateReceiving(ctx context.Context, r domain.ReceiveRecord) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO receiving_history (product_id, quantity, price_per_unit, date_received)
		VALUES (?, ?, ?, ?)
	`, r.ProductID, r.Quantity, r.PricePerUnit, r.DateReceived)
}

func (q *queries) ListReceiving(ctx context.Context, page domain.Page) ([]domain.ReceiveRecord, int, error) {
	total, err := q.count(ctx, `SELECT COUNT(*) FROM receiving_history`)
	if err != nil {
		return nil, 0, err
	}
	limit, args := pageClause(page.Limit, page.Offset)
	records := []domain.ReceiveRecord{}
	err = q.selectAll(ctx, &records, `
		SELECT r.id, r.product_id, p.name AS product_name, r.quantity, r.price_per_unit, r.date_received
		FROM receiving_history r
		JOIN products p ON p.id = r.product_id
		ORDER BY r.date_received DESC, r.id DESC`+limit, args...)
	return records, total, err
}

func (q *queries) CreateReturn(ctx context.Context, r domain.ReturnRecord) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO returns_history (product_id, quantity, return_amount, date_returned)
		VALUES (?, ?, ?, ?)
	`, r.ProductID, r.Quantity, r.ReturnAmount, r.DateReturned)
}

func (q *queries) ListReturns(ctx context.Context, page domain.Page) ([]domain.ReturnRecord, int, error) {
	total, err := q.count(ctx, `SELECT COUNT(*) FROM returns_history`)
	if err != nil {
		return nil, 0, err
	}
	limit, args := pageClause(page.Limit, page.Offset)
	records := []domain.ReturnRecord{}
	err = q.selectAll(ctx, &records, `
		SELECT r.id, r.product_id, p.name AS product_name, r.quantity, r.return_amount, r.date_returned
		FROM returns_history r
		JOIN products p ON p.id = r.product_id
		ORDER BY r.date_returned DESC, r.id DESC`+limit, args...)
	return records, total, err
}

func (q *queries) GetMetrics(ctx context.Context) (domain.Metrics, error) {
	var m domain.Metrics
	err := q.get(ctx, &m, `
		SELECT
			(SELECT COALESCE(SUM(quantity * inbound_price), 0) FROM products) AS inventory_value,
			(SELECT COALESCE(SUM(quantity * outbound_price), 0) FROM products) AS potential_value,
			(SELECT COALESCE(SUM(total_value), 0) FROM sales_history) AS total_sales,
			(SELECT COALESCE(SUM(net_profit), 0) FROM sales_history) AS net_profit,
			(SELECT COALESCE(SUM(return_amount), 0) FROM returns_history) AS total_returns
	`)
	return m, err
}

const serviceColumns = `id, name, description, base_price, commission_percentage`

func (q *queries) ListServices(ctx context.Context, page domain.Page) ([]domain.Service, int, error) {
	total, err := q.count(ctx, `SELECT COUNT(*) FROM services`)
	if err != nil {
		return nil, 0, err
	}
	limit, args := pageClause(page.Limit, page.Offset)
	services := []domain.Service{}
	err = q.selectAll(ctx, &services, `SELECT `+serviceColumns+` FROM services ORDER BY name, id`+limit, args...)
	return services, total, err
}

func (q *queries) GetService(ctx context.Context, id int64) (domain.Service, error) {
	var svc domain.Service
	err := q.get(ctx, &svc, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id)
	return svc, err
}

func (q *queries) CreateService(ctx context.Context, svc domain.Service) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO services (name, description, base_price, commission_percentage)
		VALUES (?, ?, ?, ?)
	`, svc.Name, svc.Description, svc.BasePrice, svc.CommissionPercentage)
}

func (q *queries) DeleteService(ctx context.Context, id int64) error {
	if _, err := q.exec(ctx, `UPDATE appointments SET service_id = NULL WHERE service_id = ?`, id); err != nil {
		return err
	}
	return q.execOne(ctx, `DELETE FROM services WHERE id = ?`, id)
}

func (q *queries) CountServiceHistory(ctx context.Context, serviceID int64) (int, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM services_history WHERE service_id = ?`, serviceID)
}

const serviceRecordSelect = `
	SELECT sh.id, sh.sale_id, sh.service_id, s.name AS service_name, sh.contractor_id, sh.client_name,
		sh.price_charged, sh.business_earnings, sh.contractor_earnings, sh.date_performed, sh.notes
	FROM services_history sh
	JOIN services s ON s.id = sh.service_id`

func (q *queries) ListServiceHistory(ctx context.Context, serviceID int64, page domain.Page) ([]domain.ServiceRecord, int, error) {
	return q.serviceHistory(ctx, `sh.service_id = ?`, serviceID, page)
}

func (q *queries) serviceHistory(ctx context.Context, where string, id int64, page domain.Page) ([]domain.ServiceRecord, int, error) {
	total, err := q.count(ctx, `SELECT COUNT(*) FROM services_history sh WHERE `+where, id)
	if err != nil {
		return nil, 0, err
	}
	limit, pageArgs := pageClause(page.Limit, page.Offset)
	records := []domain.ServiceRecord{}
	err = q.selectAll(ctx, &records, serviceRecordSelect+`
		WHERE `+where+`
		ORDER BY sh.date_performed DESC, sh.id DESC`+limit, append([]any{id}, pageArgs...)...)
	return records, total, err
}
