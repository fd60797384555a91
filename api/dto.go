/*
dto.go - Request and response shapes for the billing API

PURPOSE:
  Decouples the wire contract from the core and store types. Monetary
  amounts cross the wire as decimal strings ("4838.71"), never floats, and
  dates as "2006-01-02" strings.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO:     Response types returned to clients

VALIDATION:
  DTOs are pure data carriers. Parsing happens in handlers; semantic
  validation happens in the billing core, which names the offending field.

SEE ALSO:
  - handlers.go: Parses and populates these types
*/
package api

// =============================================================================
// REQUESTS
// =============================================================================

// CreateTenantRequest registers a tenant with their move-in snapshot.
type CreateTenantRequest struct {
	Name            string `json:"name"`
	RentStartDate   string `json:"rent_start_date"`
	AdvancePayment  string `json:"advance_payment"`
	SecurityDeposit string `json:"security_deposit"`
	MonthlyRent     string `json:"monthly_rent"`
	ElectricityRate string `json:"electricity_rate"`
	WaterRate       string `json:"water_rate"`
}

// GenerateBillRequest carries the per-cycle inputs for bill generation.
type GenerateBillRequest struct {
	PreviousReading string `json:"previous_reading"`
	PresentReading  string `json:"present_reading"`
	ExtraFee        string `json:"extra_fee,omitempty"`
}

// RecordPaymentRequest submits one payment against a bill.
type RecordPaymentRequest struct {
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Method    string `json:"method,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// MoveOutRequest carries the final-settlement inputs.
type MoveOutRequest struct {
	MoveOutDate     string `json:"move_out_date"`
	PreviousReading string `json:"previous_reading"`
	PresentReading  string `json:"present_reading"`
	ExtraFee        string `json:"extra_fee,omitempty"`
	RoomTransfer    bool   `json:"room_transfer,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// TenantDTO represents a tenant in API responses.
type TenantDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	RentStartDate   string `json:"rent_start_date"`
	AdvancePayment  string `json:"advance_payment"`
	SecurityDeposit string `json:"security_deposit"`
	MonthlyRent     string `json:"monthly_rent"`
	ElectricityRate string `json:"electricity_rate"`
	WaterRate       string `json:"water_rate"`
	Active          bool   `json:"active"`
}

// ComponentsDTO is the per-category breakdown of a bill.
type ComponentsDTO struct {
	Penalty     string `json:"penalty"`
	ExtraFee    string `json:"extra_fee"`
	Electricity string `json:"electricity"`
	Water       string `json:"water"`
	Rent        string `json:"rent"`
}

// BillDTO represents a bill in API responses.
type BillDTO struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenant_id"`
	CycleNumber int           `json:"cycle_number"`
	CycleStart  string        `json:"cycle_start"`
	CycleEnd    string        `json:"cycle_end"`
	DueDate     string        `json:"due_date"`
	Components  ComponentsDTO `json:"components"`
	TotalDue    string        `json:"total_due"`
	AmountPaid  string        `json:"amount_paid"`
	Status      string        `json:"status"`
}

// PenaltyPreviewDTO is the non-destructive "potential penalty" response.
type PenaltyPreviewDTO struct {
	BillID  string `json:"bill_id"`
	AsOf    string `json:"as_of"`
	DueDate string `json:"due_date"`
	Penalty string `json:"penalty"`
	Overdue bool   `json:"overdue"`
}

// PaymentComponentDTO is one category's share of a recorded payment.
type PaymentComponentDTO struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// PaymentResultDTO reports how a payment was allocated. Unallocated is the
// overpayment remainder the engine surfaced for the caller's decision.
type PaymentResultDTO struct {
	PaymentID   string                `json:"payment_id"`
	BillID      string                `json:"bill_id"`
	Components  []PaymentComponentDTO `json:"components"`
	Allocated   string                `json:"allocated"`
	Unallocated string                `json:"unallocated"`
	BillStatus  string                `json:"bill_status"`
}

// SettlementDTO is the move-out settlement response. FinalBalance is
/// signed: positive means the tenant owes, negative means a refund is due.
type SettlementDTO struct {
	TenantID     string        `json:"tenant_id"`
	CycleStart   string        `json:"cycle_start"`
	CycleEnd     string        `json:"cycle_end"`
	MoveOutDate  string        `json:"move_out_date"`
	Breakdown    ComponentsDTO `json:"breakdown"`
	TotalOwed    string        `json:"total_owed"`
	Available    string        `json:"deposit_available"`
	Applied      string        `json:"deposit_applied"`
	Forfeited    string        `json:"deposit_forfeited"`
	Refund       string        `json:"deposit_refund"`
	FinalBalance string        `json:"final_balance"`
	RoomTransfer bool          `json:"room_transfer"`
}

// ErrorDTO is the uniform error envelope.
type ErrorDTO struct {
	Error string `json:"error"`
}
