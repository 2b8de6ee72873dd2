package store

import (
	"context"
	"errors"
	"time"

	"ledgerdesk/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyPaid       = errors.New("sale already paid")
)

// Repository hands out a Tx scoped to one unit of work. Update commits when
// fn returns nil and discards every write otherwise. View must not write.
type Repository interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type Tx interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	ListSoldProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (int64, error)
	UpdateProduct(ctx context.Context, product domain.Product) error
	// AdjustStock adds delta to the product quantity and fails with
	// ErrInsufficientStock instead of going below zero.
	AdjustStock(ctx context.Context, productID int64, delta int, at time.Time) error
	CreateReceiving(ctx context.Context, record domain.ReceiveRecord) (int64, error)
	ListReceiving(ctx context.Context, page domain.Page) ([]domain.ReceiveRecord, int, error)
	CreateReturn(ctx context.Context, record domain.ReturnRecord) (int64, error)
	ListReturns(ctx context.Context, page domain.Page) ([]domain.ReturnRecord, int, error)
	GetMetrics(ctx context.Context) (domain.Metrics, error)

	ListServices(ctx context.Context, page domain.Page) ([]domain.Service, int, error)
	GetService(ctx context.Context, id int64) (domain.Service, error)
	CreateService(ctx context.Context, service domain.Service) (int64, error)
	DeleteService(ctx context.Context, id int64) error
	CountServiceHistory(ctx context.Context, serviceID int64) (int, error)
	ListServiceHistory(ctx context.Context, serviceID int64, page domain.Page) ([]domain.ServiceRecord, int, error)

	ListContractors(ctx context.Context) ([]domain.Contractor, error)
	GetContractor(ctx context.Context, id int64) (domain.Contractor, error)
	CreateContractor(ctx context.Context, contractor domain.Contractor) (int64, error)
	UpdateContractorFee(ctx context.Context, id int64, locationFee float64) error
	SetContractorActive(ctx context.Context, id int64, active bool) error
	// DeleteContractor removes the contractor and unlinks its employees.
	DeleteContractor(ctx context.Context, id int64) error
	AddAccumulatedCommission(ctx context.Context, id int64, amount float64) error
	ResetAccumulatedCommission(ctx context.Context, id int64) error
	CountContractorHistory(ctx context.Context, id int64) (int, error)
	ListContractorServiceHistory(ctx context.Context, id int64, page domain.Page) ([]domain.ServiceRecord, int, error)

	InsertSale(ctx context.Context, sale domain.SaleRecord) (int64, error)
	InsertServiceRecord(ctx context.Context, record domain.ServiceRecord) (int64, error)
	ListSales(ctx context.Context, filter domain.SalesFilter) ([]domain.SaleListEntry, int, error)
	ListUnpaidSales(ctx context.Context, contractorID int64) ([]domain.UnpaidSale, error)
	// ListPayableSales returns the ledger rows among saleIDs that belong to
	// the contractor, paid or not.
	ListPayableSales(ctx context.Context, contractorID int64, saleIDs []int64) ([]domain.PayableSale, error)
	// InsertContractorPayment fails with ErrAlreadyPaid when the sale already
	// has a payment row.
	InsertContractorPayment(ctx context.Context, payment domain.ContractorPayment) (int64, error)
	ListContractorPayments(ctx context.Context, page domain.Page) ([]domain.PaymentHistoryEntry, int, error)
	GetContractorEarnings(ctx context.Context, contractorID int64) (domain.ContractorEarnings, error)

	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	GetEmployee(ctx context.Context, id int64) (domain.Employee, error)
	CreateEmployee(ctx context.Context, employee domain.Employee) (int64, error)
	UpdateEmployee(ctx context.Context, employee domain.Employee) error
	// DeleteEmployee removes the employee, its user accounts and its
	// linked contractor.
	DeleteEmployee(ctx context.Context, id int64) error
	CountEmployeePayments(ctx context.Context, employeeID int64, since time.Time) (int, error)
	CreateEmployeePayment(ctx context.Context, payment domain.EmployeePayment) (int64, error)
	ListEmployeePayments(ctx context.Context, page domain.Page) ([]domain.EmployeePayment, int, error)

	ListAppointments(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (domain.Appointment, error)
	CreateAppointment(ctx context.Context, appointment domain.Appointment) (int64, error)
	UpdateAppointment(ctx context.Context, appointment domain.Appointment) error
	DeleteAppointment(ctx context.Context, id int64) error
	// CountOverlappingAppointments counts appointments of the contractor or
	// employee intersecting [start, end), ignoring excludeID.
	CountOverlappingAppointments(ctx context.Context, contractorID *int64, employeeID *int64, start time.Time, end time.Time, excludeID int64) (int, error)
	CountUpcomingAppointments(ctx context.Context, employeeID int64, after time.Time) (int, error)

	GetBusinessSettings(ctx context.Context) (domain.BusinessSettings, error)
	SaveBusinessSettings(ctx context.Context, settings domain.BusinessSettings) error

	CountUsers(ctx context.Context) (int, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	GetUser(ctx context.Context, id int64) (domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) (int64, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	DeleteUser(ctx context.Context, id int64) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// Now is the ledger clock: UTC truncated to the second so stored
// timestamps compare the same way in every backend.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
