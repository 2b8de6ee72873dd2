package service

import (
	"context"
	"strings"
	"time"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

// Employees are paid through their own linked contractor, which keeps the
// whole service price for the business.
const (
	employeeLocationFee  = 100
	pendingPaymentWindow = 30 * 24 * time.Hour
)

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	var employees []domain.Employee
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		employees, err = tx.ListEmployees(ctx)
		return err
	})
	return employees, err
}

func (s *Service) GetEmployee(ctx context.Context, id int64) (domain.Employee, error) {
	var emp domain.Employee
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		emp, err = tx.GetEmployee(ctx, id)
		return notFound("employee", id, err)
	})
	return emp, err
}

// CreateEmployee creates the employee together with its linked contractor.
func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Position = strings.TrimSpace(req.Position)
	if err := validate(req); err != nil {
		return domain.Employee{}, err
	}

	now := s.now()
	var emp domain.Employee
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		contractorID, err := tx.CreateContractor(ctx, domain.Contractor{
			Name:                  req.Name,
			LocationFeePercentage: employeeLocationFee,
			StartDate:             now,
			IsActive:              true,
		})
		if err != nil {
			return conflict("employee name", err)
		}
		id, err := tx.CreateEmployee(ctx, domain.Employee{
			Name:         req.Name,
			Position:     req.Position,
			Salary:       req.Salary,
			HireDate:     now,
			ContractorID: &contractorID,
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		emp, err = tx.GetEmployee(ctx, id)
		return err
	})
	return emp, err
}

// UpdateEmployee applies a partial update. Deactivation is refused while the
// employee was paid in the last 30 days or has appointments ahead.
func (s *Service) UpdateEmployee(ctx context.Context, id int64, req domain.EmployeeUpdateRequest) (domain.Employee, error) {
	if err := validate(req); err != nil {
		return domain.Employee{}, err
	}
	if req.Name == nil && req.Position == nil && req.Salary == nil && req.IsActive == nil {
		return domain.Employee{}, invalidField("name", "required_without_all")
	}

	now := s.now()
	var emp domain.Employee
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		var err error
		emp, err = tx.GetEmployee(ctx, id)
		if err != nil {
			return notFound("employee", id, err)
		}

		if req.IsActive != nil && !*req.IsActive && emp.IsActive {
			n, err := tx.CountEmployeePayments(ctx, id, now.Add(-pendingPaymentWindow))
			if err != nil {
				return err
			}
			if n > 0 {
				return ruleError(ReasonPendingPayments, "cannot deactivate employee with payments in the last 30 days")
			}
			n, err = tx.CountUpcomingAppointments(ctx, id, now)
			if err != nil {
				return err
			}
			if n > 0 {
				return ruleError(ReasonUpcomingAppointments, "cannot deactivate employee with %d upcoming appointments", n)
			}
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalidField("name", "required")
			}
			emp.Name = name
		}
		if req.Position != nil {
			position := strings.TrimSpace(*req.Position)
			if position == "" {
				return invalidField("position", "required")
			}
			emp.Position = position
		}
		if req.Salary != nil {
			emp.Salary = req.Salary
		}
		if req.IsActive != nil {
			emp.IsActive = *req.IsActive
		}
		if err := tx.UpdateEmployee(ctx, emp); err != nil {
			return err
		}
		emp, err = tx.GetEmployee(ctx, id)
		return err
	})
	return emp, err
}

// DeleteEmployee removes an employee without payment history along with its
// user accounts and linked contractor.
func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	return s.repo.Update(ctx, func(tx store.Tx) error {
		emp, err := tx.GetEmployee(ctx, id)
		if err != nil {
			return notFound("employee", id, err)
		}
		n, err := tx.CountEmployeePayments(ctx, id, time.Time{})
		if err != nil {
			return err
		}
		if n > 0 {
			return ruleError(ReasonHasHistory, "employee %s has payment history and cannot be deleted", emp.Name)
		}
		if emp.ContractorID != nil {
			n, err := tx.CountContractorHistory(ctx, *emp.ContractorID)
			if err != nil {
				return err
			}
			if n > 0 {
				return ruleError(ReasonHasHistory, "employee %s has recorded sales and cannot be deleted", emp.Name)
			}
		}
		return tx.DeleteEmployee(ctx, id)
	})
}

func (s *Service) CreateEmployeePayment(ctx context.Context, req domain.EmployeePaymentRequest) (domain.EmployeePayment, error) {
	req.Notes = strings.TrimSpace(req.Notes)
	if err := validate(req); err != nil {
		return domain.EmployeePayment{}, err
	}

	payment := domain.EmployeePayment{
		EmployeeID:  req.EmployeeID,
		Amount:      req.Amount,
		PaymentDate: s.now(),
		PeriodStart: ledgerTime(req.PeriodStart),
		PeriodEnd:   ledgerTime(req.PeriodEnd),
		Notes:       req.Notes,
	}
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		emp, err := tx.GetEmployee(ctx, req.EmployeeID)
		if err != nil {
			return notFound("employee", req.EmployeeID, err)
		}
		payment.EmployeeName = emp.Name
		payment.ID, err = tx.CreateEmployeePayment(ctx, payment)
		return err
	})
	if err != nil {
		return domain.EmployeePayment{}, err
	}
	return payment, nil
}

func (s *Service) ListEmployeePayments(ctx context.Context, page domain.Page) ([]domain.EmployeePayment, int, error) {
	var (
		payments []domain.EmployeePayment
		total    int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		payments, total, err = tx.ListEmployeePayments(ctx, page)
		return err
	})
	return payments, total, err
}
