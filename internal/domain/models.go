package domain

import "time"

const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleController = "controller"
)

type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Product struct {
	ID                   int64     `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	SKU                  string    `json:"sku" db:"sku"`
	Quantity             int       `json:"quantity" db:"quantity"`
	InboundPrice         float64   `json:"inboundPrice" db:"inbound_price"`
	OutboundPrice        float64   `json:"outboundPrice" db:"outbound_price"`
	Supplier             string    `json:"supplier" db:"supplier"`
	CommissionPercentage float64   `json:"commissionPercentage" db:"commission_percentage"`
	LastUpdated          time.Time `json:"lastUpdated" db:"last_updated"`
}

type ProductCreateRequest struct {
	Name                 string  `json:"name" validate:"required,max=120"`
	SKU                  string  `json:"sku" validate:"required,max=64"`
	Quantity             int     `json:"quantity" validate:"gte=0"`
	InboundPrice         float64 `json:"inboundPrice" validate:"gte=0"`
	OutboundPrice        float64 `json:"outboundPrice" validate:"gtfield=InboundPrice"`
	Supplier             string  `json:"supplier" validate:"max=120"`
	CommissionPercentage float64 `json:"commissionPercentage" validate:"gte=0,lte=100"`
}

type ProductUpdateRequest struct {
	Name                 *string  `json:"name" validate:"omitempty,min=1,max=120"`
	InboundPrice         *float64 `json:"inboundPrice" validate:"omitempty,gte=0"`
	OutboundPrice        *float64 `json:"outboundPrice" validate:"omitempty,gte=0"`
	Supplier             *string  `json:"supplier" validate:"omitempty,max=120"`
	CommissionPercentage *float64 `json:"commissionPercentage" validate:"omitempty,gte=0,lte=100"`
}

type ProductFilter struct {
	Query  string
	SortBy string
	Desc   bool
	Limit  int
	Offset int
}

type Service struct {
	ID                   int64   `json:"id" db:"id"`
	Name                 string  `json:"name" db:"name"`
	Description          string  `json:"description" db:"description"`
	BasePrice            float64 `json:"basePrice" db:"base_price"`
	CommissionPercentage float64 `json:"commissionPercentage" db:"commission_percentage"`
}

type ServiceCreateRequest struct {
	Name                 string  `json:"name" validate:"required,max=120"`
	Description          string  `json:"description" validate:"max=500"`
	BasePrice            float64 `json:"basePrice" validate:"gte=0"`
	CommissionPercentage float64 `json:"commissionPercentage" validate:"gte=0,lte=100"`
}

type Contractor struct {
	ID                    int64     `json:"id" db:"id"`
	Name                  string    `json:"name" db:"name"`
	LocationFeePercentage float64   `json:"locationFeePercentage" db:"location_fee_percentage"`
	AccumulatedCommission float64   `json:"accumulatedCommission" db:"accumulated_commission"`
	StartDate             time.Time `json:"startDate" db:"start_date"`
	IsActive              bool      `json:"isActive" db:"is_active"`
}

type ContractorCreateRequest struct {
	Name                  string  `json:"name" validate:"required,max=120"`
	LocationFeePercentage float64 `json:"locationFeePercentage" validate:"gte=0,lte=100"`
}

type ContractorUpdateRequest struct {
	LocationFeePercentage float64 `json:"locationFeePercentage" validate:"gte=0,lte=100"`
}

type StatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// SaleRecord is one sales_history row. Service sales carry quantity 1 and
// the base price as outbound price.
type SaleRecord struct {
	ID                   int64     `json:"id" db:"id"`
	ProductID            *int64    `json:"productId,omitempty" db:"product_id"`
	ServiceID            *int64    `json:"serviceId,omitempty" db:"service_id"`
	Quantity             int       `json:"quantity" db:"quantity"`
	InboundPricePerUnit  float64   `json:"inboundPricePerUnit" db:"inbound_price_per_unit"`
	OutboundPricePerUnit float64   `json:"outboundPricePerUnit" db:"outbound_price_per_unit"`
	TotalValue           float64   `json:"totalValue" db:"total_value"`
	NetProfit            float64   `json:"netProfit" db:"net_profit"`
	ContractorID         *int64    `json:"contractorId,omitempty" db:"contractor_id"`
	ContractorEarnings   float64   `json:"contractorEarnings" db:"contractor_earnings"`
	DateSold             time.Time `json:"dateSold" db:"date_sold"`
}

// ServiceRecord is one services_history row, paired with the sales_history
// row written for the same line.
type ServiceRecord struct {
	ID                 int64     `json:"id" db:"id"`
	SaleID             int64     `json:"saleId" db:"sale_id"`
	ServiceID          int64     `json:"serviceId" db:"service_id"`
	ServiceName        string    `json:"serviceName,omitempty" db:"service_name"`
	ContractorID       *int64    `json:"contractorId,omitempty" db:"contractor_id"`
	ClientName         string    `json:"clientName" db:"client_name"`
	PriceCharged       float64   `json:"priceCharged" db:"price_charged"`
	BusinessEarnings   float64   `json:"businessEarnings" db:"business_earnings"`
	ContractorEarnings float64   `json:"contractorEarnings" db:"contractor_earnings"`
	DatePerformed      time.Time `json:"datePerformed" db:"date_performed"`
	Notes              string    `json:"notes" db:"notes"`
}

type SaleRequest struct {
	Products []SaleProductLine `json:"products" validate:"dive"`
	Services []SaleServiceLine `json:"services" validate:"dive"`
}

type SaleProductLine struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

type SaleServiceLine struct {
	ServiceID    int64  `json:"serviceId" validate:"gt=0"`
	ContractorID *int64 `json:"contractorId,omitempty" validate:"omitempty,gt=0"`
	ClientName   string `json:"clientName,omitempty" validate:"max=120"`
	Notes        string `json:"notes,omitempty" validate:"max=500"`
}

type SaleResponse struct {
	Success bool    `json:"success"`
	SaleIDs []int64 `json:"saleIds"`
}

type SaleListEntry struct {
	ID         int64     `json:"id" db:"id"`
	DateSold   time.Time `json:"date_sold" db:"date_sold"`
	ItemName   string    `json:"item_name" db:"item_name"`
	Type       string    `json:"type" db:"type"`
	Quantity   int       `json:"quantity" db:"quantity"`
	TotalValue float64   `json:"total_value" db:"total_value"`
	NetProfit  float64   `json:"net_profit" db:"net_profit"`
}

type SalesFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

const (
	SaleKindService = "service"
	SaleKindProduct = "product"
)

// UnpaidSale is one row of a contractor's unpaid view. ID is always a
// sales_history id.
type UnpaidSale struct {
	ID                 int64     `json:"id" db:"id"`
	ServiceName        string    `json:"service_name" db:"service_name"`
	DatePerformed      time.Time `json:"date_performed" db:"date_performed"`
	PriceCharged       float64   `json:"price_charged" db:"price_charged"`
	ContractorEarnings float64   `json:"contractor_earnings" db:"contractor_earnings"`
	Kind               string    `json:"kind" db:"kind"`
}

// PayableSale is a ledger row owned by a contractor with the split that a
// payment freezes.
type PayableSale struct {
	SaleID             int64   `db:"sale_id"`
	Kind               string  `db:"kind"`
	ContractorEarnings float64 `db:"contractor_earnings"`
	BusinessEarnings   float64 `db:"business_earnings"`
}

type ContractorPayment struct {
	ID                 int64     `json:"id" db:"id"`
	ContractorID       int64     `json:"contractorId" db:"contractor_id"`
	SaleID             int64     `json:"saleId" db:"sale_id"`
	ContractorEarnings float64   `json:"contractorEarnings" db:"contractor_earnings"`
	BusinessEarnings   float64   `json:"businessEarnings" db:"business_earnings"`
	PaymentDate        time.Time `json:"paymentDate" db:"payment_date"`
}

type ContractorPaymentRequest struct {
	ContractorID int64   `json:"contractorId" validate:"gt=0"`
	SaleIDs      []int64 `json:"saleIds" validate:"required,min=1,dive,gt=0"`
}

type ContractorPaymentResponse struct {
	Success     bool    `json:"success"`
	PaidSaleIDs []int64 `json:"paidSaleIds"`
	TotalPaid   float64 `json:"totalPaid"`
}

type PaymentHistoryEntry struct {
	ID                 int64     `json:"id" db:"id"`
	ContractorID       int64     `json:"contractor_id" db:"contractor_id"`
	ContractorName     string    `json:"contractor_name" db:"contractor_name"`
	SaleID             int64     `json:"sale_id" db:"sale_id"`
	ItemName           string    `json:"item_name" db:"item_name"`
	ContractorEarnings float64   `json:"contractor_earnings" db:"contractor_earnings"`
	BusinessEarnings   float64   `json:"business_earnings" db:"business_earnings"`
	PaymentDate        time.Time `json:"payment_date" db:"payment_date"`
}

type ContractorEarnings struct {
	ServiceEarnings    float64 `json:"service_earnings" db:"service_earnings"`
	ProductCommissions float64 `json:"product_commissions" db:"product_commissions"`
	TotalServices      int     `json:"total_services" db:"total_services"`
	TotalProducts      int     `json:"total_products" db:"total_products"`
}

type Employee struct {
	ID                    int64     `json:"id" db:"id"`
	Name                  string    `json:"name" db:"name"`
	Position              string    `json:"position" db:"position"`
	Salary                *float64  `json:"salary" db:"salary"`
	HireDate              time.Time `json:"hire_date" db:"hire_date"`
	ContractorID          *int64    `json:"contractor_id" db:"contractor_id"`
	IsActive              bool      `json:"is_active" db:"is_active"`
	LocationFeePercentage *float64  `json:"location_fee_percentage,omitempty" db:"location_fee_percentage"`
}

type EmployeeCreateRequest struct {
	Name     string   `json:"name" validate:"required,max=120"`
	Position string   `json:"position" validate:"required,max=120"`
	Salary   *float64 `json:"salary" validate:"omitempty,gte=0"`
}

type EmployeeUpdateRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Position *string  `json:"position" validate:"omitempty,min=1,max=120"`
	Salary   *float64 `json:"salary" validate:"omitempty,gte=0"`
	IsActive *bool    `json:"is_active"`
}

type EmployeePayment struct {
	ID           int64     `json:"id" db:"id"`
	EmployeeID   int64     `json:"employee_id" db:"employee_id"`
	EmployeeName string    `json:"employee_name" db:"employee_name"`
	Amount       float64   `json:"payment_amount" db:"payment_amount"`
	PaymentDate  time.Time `json:"payment_date" db:"payment_date"`
	PeriodStart  time.Time `json:"payment_period_start" db:"payment_period_start"`
	PeriodEnd    time.Time `json:"payment_period_end" db:"payment_period_end"`
	Notes        string    `json:"notes" db:"notes"`
}

type EmployeePaymentRequest struct {
	EmployeeID  int64     `json:"employeeId" validate:"gt=0"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	PeriodStart time.Time `json:"periodStart" validate:"required"`
	PeriodEnd   time.Time `json:"periodEnd" validate:"required,gtefield=PeriodStart"`
	Notes       string    `json:"notes" validate:"max=500"`
}

type ReceiveRecord struct {
	ID           int64     `json:"id" db:"id"`
	ProductID    int64     `json:"product_id" db:"product_id"`
	ProductName  string    `json:"product_name" db:"product_name"`
	Quantity     int       `json:"quantity" db:"quantity"`
	PricePerUnit float64   `json:"price_per_unit" db:"price_per_unit"`
	DateReceived time.Time `json:"date_received" db:"date_received"`
}

type ReceiveRequest struct {
	ProductID    int64   `json:"productId" validate:"gt=0"`
	Quantity     int     `json:"quantity" validate:"gt=0"`
	PricePerUnit float64 `json:"pricePerUnit" validate:"gt=0"`
}

type ReturnRecord struct {
	ID           int64     `json:"id" db:"id"`
	ProductID    int64     `json:"product_id" db:"product_id"`
	ProductName  string    `json:"product_name" db:"product_name"`
	Quantity     int       `json:"quantity" db:"quantity"`
	ReturnAmount float64   `json:"return_amount" db:"return_amount"`
	DateReturned time.Time `json:"date_returned" db:"date_returned"`
}

type ReturnRequest struct {
	ProductID    int64   `json:"productId" validate:"gt=0"`
	Quantity     int     `json:"quantity" validate:"gt=0"`
	ReturnAmount float64 `json:"returnAmount" validate:"gt=0"`
}

type Metrics struct {
	InventoryValue float64 `json:"inventoryValue" db:"inventory_value"`
	PotentialValue float64 `json:"potentialValue" db:"potential_value"`
	TotalSales     float64 `json:"totalSales" db:"total_sales"`
	NetProfit      float64 `json:"netProfit" db:"net_profit"`
	TotalReturns   float64 `json:"totalReturns" db:"total_returns"`
}

type Appointment struct {
	ID           int64     `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	StartTime    time.Time `json:"start_time" db:"start_time"`
	EndTime      time.Time `json:"end_time" db:"end_time"`
	Notes        string    `json:"notes" db:"notes"`
	CreatedBy    int64     `json:"created_by" db:"created_by"`
	ContractorID *int64    `json:"contractor_id" db:"contractor_id"`
	EmployeeID   *int64    `json:"employee_id" db:"employee_id"`
	ClientName   string    `json:"client_name" db:"client_name"`
	ServiceID    *int64    `json:"service_id" db:"service_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type AppointmentRequest struct {
	Title        string    `json:"title" validate:"required,max=200"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Notes        string    `json:"notes" validate:"max=1000"`
	ContractorID *int64    `json:"contractor_id" validate:"omitempty,gt=0"`
	EmployeeID   *int64    `json:"employee_id" validate:"omitempty,gt=0"`
	ClientName   string    `json:"client_name" validate:"max=120"`
	ServiceID    *int64    `json:"service_id" validate:"omitempty,gt=0"`
}

type AppointmentFilter struct {
	From         *time.Time
	To           *time.Time
	ContractorID *int64
	EmployeeID   *int64
}

type BusinessSettings struct {
	Name               string  `json:"name" db:"name" validate:"max=200"`
	Address            string  `json:"address" db:"address" validate:"max=300"`
	Phone              string  `json:"phone" db:"phone" validate:"max=50"`
	Email              string  `json:"email" db:"email" validate:"omitempty,email"`
	TaxID              string  `json:"taxId" db:"tax_id" validate:"max=50"`
	DefaultCommission  float64 `json:"defaultCommission" db:"default_commission" validate:"gte=0,lte=100"`
	DefaultLocationFee float64 `json:"defaultLocationFee" db:"default_location_fee" validate:"gte=0,lte=100"`
	Notes              string  `json:"notes" db:"notes" validate:"max=2000"`
}

type UserAccount struct {
	ID         int64      `json:"id" db:"id"`
	Username   string     `json:"username" db:"username"`
	Password   string     `json:"-" db:"password"`
	Role       string     `json:"role" db:"role"`
	IsActive   bool       `json:"isActive" db:"is_active"`
	LastLogin  *time.Time `json:"lastLogin" db:"last_login"`
	EmployeeID *int64     `json:"employeeId" db:"employee_id"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Username    string `json:"username"`
	ExpiresAt   string `json:"expires_at"`
}

type SetupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type UserCreateRequest struct {
	Username   string `json:"username" validate:"required,min=3,max=64"`
	Password   string `json:"password" validate:"required,min=6,max=128"`
	Role       string `json:"role" validate:"required,oneof=admin controller"`
	EmployeeID *int64 `json:"employeeId" validate:"omitempty,gt=0"`
}

type Page struct {
	Limit  int
	Offset int
}
