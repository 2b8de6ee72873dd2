package sqlstore

import "strings"

// schema is written once and specialised per dialect through the
// placeholders below.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS contractors (
		id {{id}},
		name TEXT NOT NULL UNIQUE,
		location_fee_percentage {{money}} NOT NULL,
		accumulated_commission {{money}} NOT NULL DEFAULT 0,
		start_date {{ts}} NOT NULL,
		is_active {{bool}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id {{id}},
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		salary {{money}},
		hire_date {{ts}} NOT NULL,
		contractor_id BIGINT REFERENCES contractors(id),
		is_active {{bool}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id {{id}},
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('superadmin', 'admin', 'controller')),
		is_active {{bool}} NOT NULL,
		last_login {{ts}},
		employee_id BIGINT REFERENCES employees(id)
	)`,
	`CREATE TABLE IF NOT EXISTS employee_payments (
		id {{id}},
		employee_id BIGINT NOT NULL REFERENCES employees(id),
		payment_amount {{money}} NOT NULL,
		payment_date {{ts}} NOT NULL,
		payment_period_start {{ts}} NOT NULL,
		payment_period_end {{ts}} NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id {{id}},
		name TEXT NOT NULL UNIQUE,
		sku TEXT NOT NULL UNIQUE,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		inbound_price {{money}} NOT NULL,
		outbound_price {{money}} NOT NULL,
		supplier TEXT NOT NULL DEFAULT '',
		commission_percentage {{money}} NOT NULL DEFAULT 0,
		last_updated {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS receiving_history (
		id {{id}},
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL,
		price_per_unit {{money}} NOT NULL,
		date_received {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS returns_history (
		id {{id}},
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL,
		return_amount {{money}} NOT NULL,
		date_returned {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id {{id}},
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		base_price {{money}} NOT NULL,
		commission_percentage {{money}} NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sales_history (
		id {{id}},
		product_id BIGINT REFERENCES products(id),
		service_id BIGINT REFERENCES services(id),
		quantity INTEGER NOT NULL,
		inbound_price_per_unit {{money}} NOT NULL,
		outbound_price_per_unit {{money}} NOT NULL,
		total_value {{money}} NOT NULL,
		net_profit {{money}} NOT NULL,
		contractor_id BIGINT REFERENCES contractors(id),
		contractor_earnings {{money}} NOT NULL DEFAULT 0,
		date_sold {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS services_history (
		id {{id}},
		sale_id BIGINT NOT NULL UNIQUE REFERENCES sales_history(id),
		service_id BIGINT NOT NULL REFERENCES services(id),
		contractor_id BIGINT REFERENCES contractors(id),
		client_name TEXT NOT NULL DEFAULT '',
		price_charged {{money}} NOT NULL,
		business_earnings {{money}} NOT NULL,
		contractor_earnings {{money}} NOT NULL,
		date_performed {{ts}} NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS contractor_payments (
		id {{id}},
		contractor_id BIGINT NOT NULL REFERENCES contractors(id),
		sale_id BIGINT NOT NULL UNIQUE REFERENCES sales_history(id),
		contractor_earnings {{money}} NOT NULL,
		business_earnings {{money}} NOT NULL,
		payment_date {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS business_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		name TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		tax_id TEXT NOT NULL DEFAULT '',
		default_commission {{money}} NOT NULL DEFAULT 0,
		default_location_fee {{money}} NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id {{id}},
		title TEXT NOT NULL,
		start_time {{ts}} NOT NULL,
		end_time {{ts}} NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_by BIGINT NOT NULL,
		contractor_id BIGINT REFERENCES contractors(id),
		employee_id BIGINT REFERENCES employees(id),
		client_name TEXT NOT NULL DEFAULT '',
		service_id BIGINT REFERENCES services(id),
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_history_contractor ON sales_history (contractor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_history_date ON sales_history (date_sold)`,
	`CREATE INDEX IF NOT EXISTS idx_services_history_contractor ON services_history (contractor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_services_history_service ON services_history (service_id)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_start ON appointments (start_time)`,
}

var dialectTypes = map[Dialect]*strings.Replacer{
	SQLite: strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{money}}", "REAL",
		"{{ts}}", "TIMESTAMP",
		"{{bool}}", "INTEGER",
	),
	Postgres: strings.NewReplacer(
		"{{id}}", "BIGSERIAL PRIMARY KEY",
		"{{money}}", "DOUBLE PRECISION",
		"{{ts}}", "TIMESTAMPTZ",
		"{{bool}}", "BOOLEAN",
	),
}

func schemaFor(dialect Dialect) []string {
	replacer := dialectTypes[dialect]
	statements := make([]string, 0, len(schema))
	for _, stmt := range schema {
		statements = append(statements, replacer.Replace(stmt))
	}
	return statements
}
