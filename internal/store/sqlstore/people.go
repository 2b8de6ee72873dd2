package sqlstore

import (
	"context"
	"errors"
	"time"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

const employeeSelect = `
	SELECT e.id, e.name, e.position, e.salary, e.hire_date, e.contractor_id, e.is_active,
		c.location_fee_percentage
	FROM employees e
	LEFT JOIN contractors c ON c.id = e.contractor_id`

func (q *queries) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	employees := []domain.Employee{}
	err := q.selectAll(ctx, &employees, employeeSelect+` ORDER BY e.name, e.id`)
	return employees, err
}

func (q *queries) GetEmployee(ctx context.Context, id int64) (domain.Employee, error) {
	var emp domain.Employee
	err := q.get(ctx, &emp, employeeSelect+` WHERE e.id = ?`, id)
	return emp, err
}

func (q *queries) CreateEmployee(ctx context.Context, e domain.Employee) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO employees (name, position, salary, hire_date, contractor_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Name, e.Position, e.Salary, e.HireDate, e.ContractorID, e.IsActive)
}

func (q *queries) UpdateEmployee(ctx context.Context, e domain.Employee) error {
	return q.execOne(ctx, `
		UPDATE employees
		SET name = ?, position = ?, salary = ?, is_active = ?
		WHERE id = ?
	`, e.Name, e.Position, e.Salary, e.IsActive, e.ID)
}

func (q *queries) DeleteEmployee(ctx context.Context, id int64) error {
	emp, err := q.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	steps := []struct {
		query string
		arg   int64
	}{
		{`DELETE FROM users WHERE employee_id = ?`, id},
		{`UPDATE appointments SET employee_id = NULL WHERE employee_id = ?`, id},
	}
	for _, step := range steps {
		if _, err := q.exec(ctx, step.query, step.arg); err != nil {
			return err
		}
	}
	if err := q.execOne(ctx, `DELETE FROM employees WHERE id = ?`, id); err != nil {
		return err
	}
	if emp.ContractorID != nil {
		if err := q.DeleteContractor(ctx, *emp.ContractorID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (q *queries) CountEmployeePayments(ctx context.Context, employeeID int64, since time.Time) (int, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM employee_payments WHERE employee_id = ? AND payment_date >= ?`, employeeID, since)
}

func (q *queries) CreateEmployeePayment(ctx context.Context, p domain.EmployeePayment) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO employee_payments (employee_id, payment_amount, payment_date, payment_period_start, payment_period_end, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.EmployeeID, p.Amount, p.PaymentDate, p.PeriodStart, p.PeriodEnd, p.Notes)
}

func (q *queries) ListEmployeePayments(ctx context.Context, page domain.Page) ([]domain.EmployeePayment, int, error) {
	total, err := q.count(ctx, `SELECT COUNT(*) FROM employee_payments`)
	if err != nil {
		return nil, 0, err
	}
	limit, args := pageClause(page.Limit, page.Offset)
	payments := []domain.EmployeePayment{}
	err = q.selectAll(ctx, &payments, `
		SELECT ep.id, ep.employee_id, e.name AS employee_name, ep.payment_amount, ep.payment_date,
			ep.payment_period_start, ep.payment_period_end, ep.notes
		FROM employee_payments ep
		JOIN employees e ON e.id = ep.employee_id
		ORDER BY ep.payment_date DESC, ep.id DESC`+limit, args...)
	return payments, total, err
}

const appointmentColumns = `id, title, start_time, end_time, notes, created_by, contractor_id, employee_id, client_name, service_id, created_at`

func (q *queries) ListAppointments(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1 = 1`
	args := []any{}
	if filter.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND end_time <= ?`
		args = append(args, *filter.To)
	}
	if filter.ContractorID != nil {
		query += ` AND contractor_id = ?`
		args = append(args, *filter.ContractorID)
	}
	if filter.EmployeeID != nil {
		query += ` AND employee_id = ?`
		args = append(args, *filter.EmployeeID)
	}

	appointments := []domain.Appointment{}
	err := q.selectAll(ctx, &appointments, query+` ORDER BY start_time, id`, args...)
	return appointments, err
}

func (q *queries) GetAppointment(ctx context.Context, id int64) (domain.Appointment, error) {
	var appt domain.Appointment
	err := q.get(ctx, &appt, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	return appt, err
}

func (q *queries) CreateAppointment(ctx context.Context, a domain.Appointment) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO appointments (title, start_time, end_time, notes, created_by, contractor_id, employee_id, client_name, service_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Title, a.StartTime, a.EndTime, a.Notes, a.CreatedBy, a.ContractorID, a.EmployeeID, a.ClientName, a.ServiceID, a.CreatedAt)
}

func (q *queries) UpdateAppointment(ctx context.Context, a domain.Appointment) error {
	return q.execOne(ctx, `
		UPDATE appointments
		SET title = ?, start_time = ?, end_time = ?, notes = ?, contractor_id = ?, employee_id = ?, client_name = ?, service_id = ?
		WHERE id = ?
	`, a.Title, a.StartTime, a.EndTime, a.Notes, a.ContractorID, a.EmployeeID, a.ClientName, a.ServiceID, a.ID)
}

func (q *queries) DeleteAppointment(ctx context.Context, id int64) error {
	return q.execOne(ctx, `DELETE FROM appointments WHERE id = ?`, id)
}

func (q *queries) CountOverlappingAppointments(ctx context.Context, contractorID *int64, employeeID *int64, start time.Time, end time.Time, excludeID int64) (int, error) {
	if contractorID == nil && employeeID == nil {
		return 0, nil
	}
	owner := `1 = 0`
	args := []any{}
	if contractorID != nil {
		owner += ` OR contractor_id = ?`
		args = append(args, *contractorID)
	}
	if employeeID != nil {
		owner += ` OR employee_id = ?`
		args = append(args, *employeeID)
	}
	args = append(args, end, start, excludeID)
	return q.count(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE (`+owner+`) AND start_time < ? AND end_time > ? AND id <> ?
	`, args...)
}

func (q *queries) CountUpcomingAppointments(ctx context.Context, employeeID int64, after time.Time) (int, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM appointments WHERE employee_id = ? AND start_time > ?`, employeeID, after)
}

func (q *queries) GetBusinessSettings(ctx context.Context) (domain.BusinessSettings, error) {
	var settings domain.BusinessSettings
	err := q.get(ctx, &settings, `
		SELECT name, address, phone, email, tax_id, default_commission, default_location_fee, notes
		FROM business_settings
		WHERE id = 1
	`)
	if errors.Is(err, store.ErrNotFound) {
		return domain.BusinessSettings{}, nil
	}
	return settings, err
}

func (q *queries) SaveBusinessSettings(ctx context.Context, s domain.BusinessSettings) error {
	_, err := q.exec(ctx, `
		INSERT INTO business_settings (id, name, address, phone, email, tax_id, default_commission, default_location_fee, notes)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			phone = excluded.phone,
			email = excluded.email,
			tax_id = excluded.tax_id,
			default_commission = excluded.default_commission,
			default_location_fee = excluded.default_location_fee,
			notes = excluded.notes
	`, s.Name, s.Address, s.Phone, s.Email, s.TaxID, s.DefaultCommission, s.DefaultLocationFee, s.Notes)
	return err
}

const userColumns = `id, username, password, role, is_active, last_login, employee_id`

func (q *queries) CountUsers(ctx context.Context) (int, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (q *queries) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := []domain.UserAccount{}
	err := q.selectAll(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`)
	return users, err
}

func (q *queries) GetUser(ctx context.Context, id int64) (domain.UserAccount, error) {
	var user domain.UserAccount
	err := q.get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return user, err
}

func (q *queries) GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error) {
	var user domain.UserAccount
	err := q.get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return user, err
}

func (q *queries) CreateUser(ctx context.Context, u domain.UserAccount) (int64, error) {
	return q.insert(ctx, `
		INSERT INTO users (username, password, role, is_active, employee_id)
		VALUES (?, ?, ?, ?, ?)
	`, u.Username, u.Password, u.Role, u.IsActive, u.EmployeeID)
}

func (q *queries) SetUserActive(ctx context.Context, id int64, active bool) error {
	return q.execOne(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id)
}

func (q *queries) DeleteUser(ctx context.Context, id int64) error {
	return q.execOne(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (q *queries) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return q.execOne(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at, id)
}
