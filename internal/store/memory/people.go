package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

func (st *state) withContractorFee(emp domain.Employee) domain.Employee {
	emp.LocationFeePercentage = nil
	if emp.ContractorID != nil {
		if c, ok := st.contractors[*emp.ContractorID]; ok {
			fee := c.LocationFeePercentage
			emp.LocationFeePercentage = &fee
		}
	}
	return emp
}

func (st *state) ListEmployees(_ context.Context) ([]domain.Employee, error) {
	employees := make([]domain.Employee, 0, len(st.employees))
	for _, emp := range st.employees {
		employees = append(employees, st.withContractorFee(emp))
	}
	slices.SortFunc(employees, func(a, b domain.Employee) int {
		return strings.Compare(a.Name, b.Name)
	})
	return employees, nil
}

func (st *state) GetEmployee(_ context.Context, id int64) (domain.Employee, error) {
	emp, ok := st.employees[id]
	if !ok {
		return domain.Employee{}, store.ErrNotFound
	}
	return st.withContractorFee(emp), nil
}

func (st *state) CreateEmployee(_ context.Context, employee domain.Employee) (int64, error) {
	if employee.ContractorID != nil {
		if _, ok := st.contractors[*employee.ContractorID]; !ok {
			return 0, store.ErrNotFound
		}
	}
	employee.ID = st.nextID("employees")
	employee.LocationFeePercentage = nil
	st.employees[employee.ID] = employee
	return employee.ID, nil
}

func (st *state) UpdateEmployee(_ context.Context, employee domain.Employee) error {
	if _, ok := st.employees[employee.ID]; !ok {
		return store.ErrNotFound
	}
	employee.LocationFeePercentage = nil
	st.employees[employee.ID] = employee
	return nil
}

func (st *state) DeleteEmployee(_ context.Context, id int64) error {
	emp, ok := st.employees[id]
	if !ok {
		return store.ErrNotFound
	}
	for userID, user := range st.users {
		if sameID(user.EmployeeID, id) {
			delete(st.users, userID)
		}
	}
	for apptID, appt := range st.appointments {
		if sameID(appt.EmployeeID, id) {
			appt.EmployeeID = nil
			st.appointments[apptID] = appt
		}
	}
	delete(st.employees, id)
	if emp.ContractorID != nil {
		contractorID := *emp.ContractorID
		delete(st.contractors, contractorID)
		for apptID, appt := range st.appointments {
			if sameID(appt.ContractorID, contractorID) {
				appt.ContractorID = nil
				st.appointments[apptID] = appt
			}
		}
	}
	return nil
}

func (st *state) CountEmployeePayments(_ context.Context, employeeID int64, since time.Time) (int, error) {
	count := 0
	for _, p := range st.employeePayments {
		if p.EmployeeID == employeeID && !p.PaymentDate.Before(since) {
			count++
		}
	}
	return count, nil
}

func (st *state) CreateEmployeePayment(_ context.Context, payment domain.EmployeePayment) (int64, error) {
	if _, ok := st.employees[payment.EmployeeID]; !ok {
		return 0, store.ErrNotFound
	}
	payment.ID = st.nextID("employee_payments")
	payment.EmployeeName = ""
	st.employeePayments = append(st.employeePayments, payment)
	return payment.ID, nil
}

func (st *state) ListEmployeePayments(_ context.Context, page domain.Page) ([]domain.EmployeePayment, int, error) {
	payments := make([]domain.EmployeePayment, 0, len(st.employeePayments))
	for _, p := range st.employeePayments {
		p.EmployeeName = st.employees[p.EmployeeID].Name
		payments = append(payments, p)
	}
	slices.SortFunc(payments, func(a, b domain.EmployeePayment) int {
		return newestFirst(a.PaymentDate, b.PaymentDate, a.ID, b.ID)
	})
	items, total := paginate(payments, page)
	return items, total, nil
}

func (st *state) ListAppointments(_ context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	appointments := make([]domain.Appointment, 0, len(st.appointments))
	for _, appt := range st.appointments {
		if filter.From != nil && appt.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && appt.EndTime.After(*filter.To) {
			continue
		}
		if filter.ContractorID != nil && !sameID(appt.ContractorID, *filter.ContractorID) {
			continue
		}
		if filter.EmployeeID != nil && !sameID(appt.EmployeeID, *filter.EmployeeID) {
			continue
		}
		appointments = append(appointments, appt)
	}
	slices.SortFunc(appointments, func(a, b domain.Appointment) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return appointments, nil
}

func (st *state) GetAppointment(_ context.Context, id int64) (domain.Appointment, error) {
	appt, ok := st.appointments[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return appt, nil
}

func (st *state) CreateAppointment(_ context.Context, appointment domain.Appointment) (int64, error) {
	appointment.ID = st.nextID("appointments")
	st.appointments[appointment.ID] = appointment
	return appointment.ID, nil
}

func (st *state) UpdateAppointment(_ context.Context, appointment domain.Appointment) error {
	existing, ok := st.appointments[appointment.ID]
	if !ok {
		return store.ErrNotFound
	}
	appointment.CreatedBy = existing.CreatedBy
	appointment.CreatedAt = existing.CreatedAt
	st.appointments[appointment.ID] = appointment
	return nil
}

func (st *state) DeleteAppointment(_ context.Context, id int64) error {
	if _, ok := st.appointments[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.appointments, id)
	return nil
}

func (st *state) CountOverlappingAppointments(_ context.Context, contractorID *int64, employeeID *int64, start time.Time, end time.Time, excludeID int64) (int, error) {
	count := 0
	for _, appt := range st.appointments {
		if appt.ID == excludeID {
			continue
		}
		owner := (contractorID != nil && sameID(appt.ContractorID, *contractorID)) ||
			(employeeID != nil && sameID(appt.EmployeeID, *employeeID))
		if owner && appt.StartTime.Before(end) && appt.EndTime.After(start) {
			count++
		}
	}
	return count, nil
}

func (st *state) CountUpcomingAppointments(_ context.Context, employeeID int64, after time.Time) (int, error) {
	count := 0
	for _, appt := range st.appointments {
		if sameID(appt.EmployeeID, employeeID) && appt.StartTime.After(after) {
			count++
		}
	}
	return count, nil
}

func (st *state) GetBusinessSettings(_ context.Context) (domain.BusinessSettings, error) {
	return st.settings, nil
}

func (st *state) SaveBusinessSettings(_ context.Context, settings domain.BusinessSettings) error {
	st.settings = settings
	return nil
}

func (st *state) CountUsers(_ context.Context) (int, error) {
	return len(st.users), nil
}

func (st *state) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	users := slices.Collect(maps.Values(st.users))
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (st *state) GetUser(_ context.Context, id int64) (domain.UserAccount, error) {
	user, ok := st.users[id]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return user, nil
}

func (st *state) GetUserByUsername(_ context.Context, username string) (domain.UserAccount, error) {
	for _, user := range st.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.UserAccount{}, store.ErrNotFound
}

func (st *state) CreateUser(_ context.Context, user domain.UserAccount) (int64, error) {
	for _, existing := range st.users {
		if existing.Username == user.Username {
			return 0, store.ErrConflict
		}
	}
	if user.EmployeeID != nil {
		if _, ok := st.employees[*user.EmployeeID]; !ok {
			return 0, store.ErrNotFound
		}
	}
	user.ID = st.nextID("users")
	st.users[user.ID] = user
	return user.ID, nil
}

func (st *state) SetUserActive(_ context.Context, id int64, active bool) error {
	user, ok := st.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.IsActive = active
	st.users[id] = user
	return nil
}

func (st *state) DeleteUser(_ context.Context, id int64) error {
	if _, ok := st.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.users, id)
	return nil
}

func (st *state) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	user, ok := st.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.LastLogin = &at
	st.users[id] = user
	return nil
}
