package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials and
// display attribution.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Name      string
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Payment struct {
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	MethodType string          `json:"methodType,omitempty"`
}

type PaymentHistoryEntry struct {
	Timestamp      time.Time       `json:"timestamp"`
	Action         string          `json:"action"`
	Total          decimal.Decimal `json:"total"`
	Paid           decimal.Decimal `json:"paid"`
	CumulativePaid decimal.Decimal `json:"cumulativePaid"`
	Remaining      decimal.Decimal `json:"remaining"`
	Payments       []Payment       `json:"payments"`
	Description    string          `json:"description,omitempty"`
}

type PaymentModeChange struct {
	Timestamp time.Time `json:"timestamp"`
	From      []string  `json:"from"`
	To        []string  `json:"to"`
}

type PaymentHistory struct {
	TotalPaid      decimal.Decimal       `json:"totalPaid"`
	Entries        []PaymentHistoryEntry `json:"entries"`
	ChangeSequence []PaymentModeChange   `json:"changeSequence"`
}

type Order struct {
	ID             string           `json:"id"`
	OrderNumber    string           `json:"orderNumber"`
	BranchID       string           `json:"branchId"`
	Status         string           `json:"status"`
	Canceled       bool             `json:"canceled"`
	IsDeleted      bool             `json:"isDeleted"`
	SalesType      string           `json:"salesType"`
	OrderType      string           `json:"orderType"`
	Total          decimal.Decimal  `json:"total"`
	PayableAmount  decimal.Decimal  `json:"payableAmount"`
	TotalDiscount  decimal.Decimal  `json:"totalDiscount"`
	Vat            decimal.Decimal  `json:"vat"`
	Payments       []Payment        `json:"payments"`
	CumulativePaid *decimal.Decimal `json:"cumulativePaid,omitempty"`
	PaymentHistory PaymentHistory   `json:"paymentHistory"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

type OrderCreateRequest struct {
	BranchID      string           `json:"branchId"`
	OrderNumber   string           `json:"orderNumber"`
	Status        string           `json:"status"`
	SalesType     string           `json:"salesType"`
	OrderType     string           `json:"orderType"`
	Total         decimal.Decimal  `json:"total"`
	PayableAmount *decimal.Decimal `json:"payableAmount,omitempty"`
	TotalDiscount decimal.Decimal  `json:"totalDiscount"`
	Vat           decimal.Decimal  `json:"vat"`
	Payments      []Payment        `json:"payments"`
}

// OrderUpdateRequest carries the payment-relevant fields of an order edit.
// Nil fields are left unchanged.
type OrderUpdateRequest struct {
	Status        *string          `json:"status,omitempty"`
	Canceled      *bool            `json:"canceled,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	PayableAmount *decimal.Decimal `json:"payableAmount,omitempty"`
	TotalDiscount *decimal.Decimal `json:"totalDiscount,omitempty"`
	Vat           *decimal.Decimal `json:"vat,omitempty"`
	Payments      []Payment        `json:"payments,omitempty"`
	Description   string           `json:"description,omitempty"`
}

type PaymentModeChangeRequest struct {
	Mode string `json:"mode"`
}

type OrderResponse struct {
	Order Order `json:"order"`
}

type PaymentTotals struct {
	Cash   decimal.Decimal `json:"cash"`
	Card   decimal.Decimal `json:"card"`
	Online decimal.Decimal `json:"online"`
}

type SalesByType struct {
	Restaurant decimal.Decimal `json:"restaurant"`
	Online     decimal.Decimal `json:"online"`
	Membership decimal.Decimal `json:"membership"`
}

type MembershipBreakdown struct {
	MembershipMeal     decimal.Decimal `json:"membershipMeal"`
	MembershipRegister decimal.Decimal `json:"membershipRegister"`
}

type SalesSnapshot struct {
	TotalOrders         int                 `json:"totalOrders"`
	TotalSales          decimal.Decimal     `json:"totalSales"`
	TotalDiscount       decimal.Decimal     `json:"totalDiscount"`
	TotalVat            decimal.Decimal     `json:"totalVat"`
	Payments            PaymentTotals       `json:"payments"`
	SalesByType         SalesByType         `json:"salesByType"`
	MembershipBreakdown MembershipBreakdown `json:"membershipBreakdown"`
}

// Add returns the field-wise sum of two snapshots.
func (s SalesSnapshot) Add(o SalesSnapshot) SalesSnapshot {
	return SalesSnapshot{
		TotalOrders:   s.TotalOrders + o.TotalOrders,
		TotalSales:    s.TotalSales.Add(o.TotalSales),
		TotalDiscount: s.TotalDiscount.Add(o.TotalDiscount),
		TotalVat:      s.TotalVat.Add(o.TotalVat),
		Payments: PaymentTotals{
			Cash:   s.Payments.Cash.Add(o.Payments.Cash),
			Card:   s.Payments.Card.Add(o.Payments.Card),
			Online: s.Payments.Online.Add(o.Payments.Online),
		},
		SalesByType: SalesByType{
			Restaurant: s.SalesByType.Restaurant.Add(o.SalesByType.Restaurant),
			Online:     s.SalesByType.Online.Add(o.SalesByType.Online),
			Membership: s.SalesByType.Membership.Add(o.SalesByType.Membership),
		},
		MembershipBreakdown: MembershipBreakdown{
			MembershipMeal:     s.MembershipBreakdown.MembershipMeal.Add(o.MembershipBreakdown.MembershipMeal),
			MembershipRegister: s.MembershipBreakdown.MembershipRegister.Add(o.MembershipBreakdown.MembershipRegister),
		},
	}
}

// Denomination is a physical cash count. TotalCash is always derived from
// the note counts and never taken from the client.
type Denomination struct {
	Note1000  int             `json:"note1000"`
	Note500   int             `json:"note500"`
	Note200   int             `json:"note200"`
	Note100   int             `json:"note100"`
	Note50    int             `json:"note50"`
	Note20    int             `json:"note20"`
	Note10    int             `json:"note10"`
	Note5     int             `json:"note5"`
	Note2     int             `json:"note2"`
	Note1     int             `json:"note1"`
	TotalCash decimal.Decimal `json:"totalCash"`
}

type Shift struct {
	ID               string         `json:"id"`
	ShiftNumber      int            `json:"shiftNumber"`
	BranchID         string         `json:"branchId"`
	StartDate        string         `json:"startDate"`
	StartTime        time.Time      `json:"startTime"`
	EndDate          string         `json:"endDate,omitempty"`
	EndTime          *time.Time     `json:"endTime,omitempty"`
	ScheduledEnd     bool           `json:"scheduledEnd"`
	LogoutTime       *time.Time     `json:"logoutTime,omitempty"`
	Status           string         `json:"status"`
	CreatedBy        string         `json:"createdBy"`
	ClosedBy         string         `json:"closedBy,omitempty"`
	Note             string         `json:"note,omitempty"`
	Denominations    *Denomination  `json:"denominations,omitempty"`
	Sales            *SalesSnapshot `json:"sales,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	CreatedByDetails *UserProfile   `json:"createdByDetails"`
	ClosedByDetails  *UserProfile   `json:"closedByDetails"`
}

// DayClose is the closing record of a business day on which no shift was
// opened.
type DayClose struct {
	ID               string        `json:"id"`
	BranchID         string        `json:"branchId"`
	StartDate        string        `json:"startDate"`
	StartTime        time.Time     `json:"startTime"`
	EndDate          string        `json:"endDate"`
	EndTime          time.Time     `json:"endTime"`
	Status           string        `json:"status"`
	CreatedBy        string        `json:"createdBy"`
	ClosedBy         string        `json:"closedBy"`
	Note             string        `json:"note,omitempty"`
	Denominations    Denomination  `json:"denominations"`
	Sales            SalesSnapshot `json:"sales"`
	CreatedAt        time.Time     `json:"createdAt"`
	CreatedByDetails *UserProfile  `json:"createdByDetails"`
	ClosedByDetails  *UserProfile  `json:"closedByDetails"`
}

type ShiftSummary struct {
	ShiftID     string        `json:"shiftId"`
	ShiftNumber int           `json:"shiftNumber"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     *time.Time    `json:"endTime,omitempty"`
	LogoutTime  *time.Time    `json:"logoutTime,omitempty"`
	Sales       SalesSnapshot `json:"sales"`
}

// DaySales is the write-once snapshot of a closed business day.
type DaySales struct {
	ID              string          `json:"id"`
	Date            string          `json:"date"`
	BranchID        string          `json:"branchId"`
	DayCloseID      string          `json:"dayCloseId,omitempty"`
	DaySales        SalesSnapshot   `json:"daySales"`
	ShiftWiseSales  SalesSnapshot   `json:"shiftWiseSales"`
	Shifts          []ShiftSummary  `json:"shifts"`
	TotalShifts     int             `json:"totalShifts"`
	DayCloseTime    time.Time       `json:"dayCloseTime"`
	ClosedBy        string          `json:"closedBy"`
	Note            string          `json:"note,omitempty"`
	Denomination    Denomination    `json:"denomination"`
	CashVariance    decimal.Decimal `json:"cashVariance"`
	CreatedAt       time.Time       `json:"createdAt"`
	ClosedByDetails *UserProfile    `json:"closedByDetails"`
}

type ShiftOpenRequest struct {
	BranchID  string `json:"branchId"`
	Date      string `json:"date,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

type ShiftCloseRequest struct {
	BranchID      string        `json:"branchId"`
	LogoutTime    string        `json:"logoutTime,omitempty"`
	Denominations *Denomination `json:"denominations,omitempty"`
}

type ShiftResponse struct {
	Shift        Shift            `json:"shift"`
	CashVariance *decimal.Decimal `json:"cashVariance,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}

type ShiftListResponse struct {
	Shifts []Shift `json:"shifts"`
}

type ShiftPurgeResponse struct {
	BranchID string `json:"branchId"`
	Date     string `json:"date"`
	Deleted  int    `json:"deleted"`
}

type DayCloseRequest struct {
	BranchID      string       `json:"branchId"`
	Date          string       `json:"date,omitempty"`
	Denominations Denomination `json:"denominations"`
	Note          string       `json:"note,omitempty"`
}

type DayCloseResponse struct {
	DaySales DaySales  `json:"daySales"`
	DayClose *DayClose `json:"dayClose,omitempty"`
	Resumed  bool      `json:"resumed"`
	Warnings []string  `json:"warnings,omitempty"`
}

type DaySalesListResponse struct {
	Reports []DaySales `json:"reports"`
}

type UnpaidOrder struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	DueAmount   decimal.Decimal `json:"dueAmount"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branch_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	OrderStatusPaid    = "paid"
	OrderStatusUnpaid  = "unpaid"
	OrderStatusPartial = "partial"
)

const (
	SalesTypeRestaurant = "restaurant"
	SalesTypeOnline     = "online"
	SalesTypeMembership = "membership"
)

const (
	OrderTypeMembershipMeal = "MembershipMeal"
	OrderTypeNewMembership  = "NewMembership"
)

const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentOnline = "online"
)

const (
	LedgerActionCreated           = "created"
	LedgerActionAddItem           = "add_item"
	LedgerActionRemoveItem        = "remove_item"
	LedgerActionPaymentReceived   = "payment_received"
	LedgerActionPaymentAdjusted   = "payment_adjusted"
	LedgerActionPaymentModeChange = "payment_mode_changed"
	LedgerActionEdited            = "edited"
)

const (
	ShiftStatusOpen     = "open"
	ShiftStatusClosed   = "closed"
	ShiftStatusDayClose = "day-close"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
