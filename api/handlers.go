/*
handlers.go - HTTP handlers for the billing server

PURPOSE:
  The orchestrating call sites: each handler fetches the snapshots the
  calculation core needs from the store, invokes the engine, and persists
  the result. All four use cases (generate, preview, pay, move out) go
  through the same billing.Engine so their numbers can never drift apart.

ENDPOINTS:
  Tenants:
    POST   /api/tenants                      Register a tenant
    GET    /api/tenants                      List tenants
    GET    /api/tenants/{id}                 Tenant details
    GET    /api/tenants/{id}/bills           Bill history
    POST   /api/tenants/{id}/bills           Generate the next bill
    POST   /api/tenants/{id}/move-out        Final settlement

  Bills:
    GET    /api/bills/{id}                   Bill details
    GET    /api/bills/{id}/penalty-preview   Potential penalty (no writes)
    POST   /api/bills/{id}/penalty           Apply the penalty to the bill
    POST   /api/bills/{id}/payments          Record a payment

ERROR HANDLING:
  The core's error classes map onto status codes:
  - 400: validation errors (the response names the failing input)
  - 404: unknown tenant/bill
  - 409: consistency errors (component totals out of tolerance)
  - 500: everything else

PENALTY RATE:
  The rate is read from configuration once per request and passed into the
  engine explicitly. The core never sees the configuration; changing the
  rate affects the next evaluation only.

SEE ALSO:
  - dto.go:    Wire shapes
  - server.go: Router and middleware
*/
package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds the API dependencies.
type Handler struct {
	Store             *sqlite.Store
	Engine            billing.Engine
	PenaltyRate       decimal.Decimal
	DueDateOffsetDays int
}

// NewHandler creates a handler with the given store and billing settings.
func NewHandler(store *sqlite.Store, penaltyRate decimal.Decimal, dueDateOffsetDays int) *Handler {
	return &Handler{
		Store:             store,
		PenaltyRate:       penaltyRate,
		DueDateOffsetDays: dueDateOffsetDays,
	}
}

// =============================================================================
// TENANTS
// =============================================================================

func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name: must be set")
		return
	}

	anchor, err := billing.ParseDate(req.RentStartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rent_start_date: expected YYYY-MM-DD")
		return
	}

	amounts := map[string]string{
		"advance_payment":  req.AdvancePayment,
		"security_deposit": req.SecurityDeposit,
		"monthly_rent":     req.MonthlyRent,
		"electricity_rate": req.ElectricityRate,
		"water_rate":       req.WaterRate,
	}
	parsed := make(map[string]decimal.Decimal, len(amounts))
	for field, raw := range amounts {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, field+": expected a decimal amount")
			return
		}
		parsed[field] = d
	}

	tenant := sqlite.Tenant{
		ID:              newID("tnt"),
		Name:            req.Name,
		RentStartDate:   anchor,
		AdvancePayment:  parsed["advance_payment"],
		SecurityDeposit: parsed["security_deposit"],
		MonthlyRent:     parsed["monthly_rent"],
		ElectricityRate: parsed["electricity_rate"],
		WaterRate:       parsed["water_rate"],
		Active:          true,
	}

	// Reject invalid snapshots before they are persisted; the engine would
	// refuse them on every later call anyway.
	if err := tenant.Snapshot().Validate(); err != nil {
		h.writeEngineError(w, err)
		return
	}
	if err := tenant.Rates().Validate(); err != nil {
		h.writeEngineError(w, err)
		return
	}

	if err := h.Store.CreateTenant(r.Context(), tenant); err != nil {
		h.writeEngineError(w, err)
		return
	}

	log.Info().Str("tenant_id", tenant.ID).Str("name", tenant.Name).Msg("tenant registered")
	writeJSON(w, http.StatusCreated, tenantDTO(tenant))
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Store.ListTenants(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]TenantDTO, 0, len(tenants))
	for _, t := range tenants {
		dtos = append(dtos, tenantDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.Store.GetTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantDTO(tenant))
}

func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.Store.ListBillsByTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]BillDTO, 0, len(bills))
	for _, b := range bills {
		dtos = append(dtos, billDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BILL GENERATION
// =============================================================================

func (h *Handler) GenerateBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "id")

	var req GenerateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tenant, err := h.Store.GetTenant(ctx, tenantID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	previous, err := decimal.NewFromString(req.PreviousReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "previous_reading: expected a decimal amount")
		return
	}
	present, err := decimal.NewFromString(req.PresentReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "present_reading: expected a decimal amount")
		return
	}
	extraFee, err := optionalAmount(req.ExtraFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "extra_fee: expected a decimal amount")
		return
	}

	count, err := h.Store.FullyPaidBillCount(ctx, tenantID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	generated, err := h.Engine.GenerateBill(billing.GenerateBillInput{
		Tenant:             tenant.Snapshot(),
		Rates:              tenant.Rates(),
		Electricity:        billing.MeterReading{Previous: previous, Present: present},
		ExtraFee:           extraFee,
		FullyPaidBillCount: count,
		DueDateOffsetDays:  h.DueDateOffsetDays,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	bill := sqlite.Bill{
		ID:          newID("bill"),
		TenantID:    tenantID,
		CycleNumber: generated.Cycle.Number,
		CycleStart:  generated.Cycle.Start,
		CycleEnd:    generated.Cycle.End,
		DueDate:     generated.DueDate,
		Components:  generated.Components,
		TotalDue:    generated.TotalDue,
		AmountPaid:  decimal.Zero,
		Status:      sqlite.BillStatusUnpaid,
	}
	if err := h.Store.CreateBill(ctx, bill); err != nil {
		h.writeEngineError(w, err)
		return
	}

	log.Info().
		Str("tenant_id", tenantID).
		Str("bill_id", bill.ID).
		Int("cycle", bill.CycleNumber).
		Str("total_due", bill.TotalDue.Round(2).String()).
		Msg("bill generated")
	writeJSON(w, http.StatusCreated, billDTO(bill))
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.Store.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, billDTO(bill))
}

// =============================================================================
// PENALTY
// =============================================================================

// PreviewPenalty computes the potential penalty without touching the bill.
// Safe to call any number of times.
func (h *Handler) PreviewPenalty(w http.ResponseWriter, r *http.Request) {
	bill, asOf, ok := h.billAndAsOf(w, r)
	if !ok {
		return
	}

	outstanding := bill.TotalDue.Sub(bill.AmountPaid)
	penalty, err := h.Engine.PreviewPenalty(outstanding, asOf, bill.DueDate, h.PenaltyRate)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PenaltyPreviewDTO{
		BillID:  bill.ID,
		AsOf:    asOf.String(),
		DueDate: bill.DueDate.String(),
		Penalty: penalty.Round(2).String(),
		Overdue: asOf.After(bill.DueDate),
	})
}

// ApplyPenalty computes the penalty through the same engine path as the
// preview and writes it onto the bill.
func (h *Handler) ApplyPenalty(w http.ResponseWriter, r *http.Request) {
	bill, asOf, ok := h.billAndAsOf(w, r)
	if !ok {
		return
	}

	outstanding := bill.TotalDue.Sub(bill.AmountPaid)
	penalty, err := h.Engine.PreviewPenalty(outstanding, asOf, bill.DueDate, h.PenaltyRate)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if penalty.IsZero() {
		writeError(w, http.StatusBadRequest, "bill is not overdue, no penalty to apply")
		return
	}

	if err := h.Store.ApplyPenalty(r.Context(), bill.ID, penalty); err != nil {
		h.writeEngineError(w, err)
		return
	}

	updated, err := h.Store.GetBill(r.Context(), bill.ID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	log.Info().
		Str("bill_id", bill.ID).
		Str("penalty", penalty.Round(2).String()).
		Msg("penalty applied")
	writeJSON(w, http.StatusOK, billDTO(updated))
}

func (h *Handler) billAndAsOf(w http.ResponseWriter, r *http.Request) (sqlite.Bill, billing.Date, bool) {
	bill, err := h.Store.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return sqlite.Bill{}, billing.Date{}, false
	}

	asOf := billing.Today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := billing.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of: expected YYYY-MM-DD")
			return sqlite.Bill{}, billing.Date{}, false
		}
		asOf = parsed
	}
	return bill, asOf, true
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	billID := chi.URLParam(r, "id")

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount: expected a decimal amount")
		return
	}
	paidAt, err := billing.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date: expected YYYY-MM-DD")
		return
	}

	bill, err := h.Store.GetBill(ctx, billID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	paid, err := h.Store.PaidComponentTotals(ctx, billID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	result, err := h.Engine.RecordPayment(billing.RecordPaymentInput{
		Payment: billing.PaymentRequest{
			Amount:    amount,
			Date:      paidAt,
			Method:    req.Method,
			Reference: req.Reference,
		},
		Outstanding: bill.Outstanding(paid),
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	payment := sqlite.Payment{
		ID:        newID("pay"),
		BillID:    billID,
		Amount:    amount,
		PaidAt:    paidAt,
		Method:    req.Method,
		Reference: req.Reference,
	}
	if err := h.Store.RecordPayment(ctx, payment, result.Components); err != nil {
		h.writeEngineError(w, err)
		return
	}

	updated, err := h.Store.GetBill(ctx, billID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	components := make([]PaymentComponentDTO, 0, len(result.Components))
	for _, pc := range result.Components {
		components = append(components, PaymentComponentDTO{
			Category: string(pc.Category),
			Amount:   pc.Amount.Round(2).String(),
		})
	}

	if result.Unallocated.IsPositive() {
		log.Warn().
			Str("bill_id", billID).
			Str("unallocated", result.Unallocated.Round(2).String()).
			Msg("payment exceeded outstanding total")
	}
	log.Info().
		Str("bill_id", billID).
		Str("payment_id", payment.ID).
		Str("allocated", result.Allocated.Round(2).String()).
		Msg("payment recorded")

	writeJSON(w, http.StatusCreated, PaymentResultDTO{
		PaymentID:   payment.ID,
		BillID:      billID,
		Components:  components,
		Allocated:   result.Allocated.Round(2).String(),
		Unallocated: result.Unallocated.Round(2).String(),
		BillStatus:  updated.Status,
	})
}

// =============================================================================
// MOVE-OUT SETTLEMENT
// =============================================================================

func (h *Handler) MoveOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "id")

	var req MoveOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	moveOutDate, err := billing.ParseDate(req.MoveOutDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "move_out_date: expected YYYY-MM-DD")
		return
	}
	previous, err := decimal.NewFromString(req.PreviousReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "previous_reading: expected a decimal amount")
		return
	}
	present, err := decimal.NewFromString(req.PresentReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "present_reading: expected a decimal amount")
		return
	}
	extraFee, err := optionalAmount(req.ExtraFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "extra_fee: expected a decimal amount")
		return
	}

	tenant, err := h.Store.GetTenant(ctx, tenantID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	count, err := h.Store.FullyPaidBillCount(ctx, tenantID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	outstanding, err := h.Store.OutstandingBalance(ctx, tenantID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	outcome, err := h.Engine.MoveOut(billing.MoveOutInput{
		Tenant:             tenant.Snapshot(),
		Rates:              tenant.Rates(),
		Electricity:        billing.MeterReading{Previous: previous, Present: present},
		ExtraFee:           extraFee,
		MoveOutDate:        moveOutDate,
		FullyPaidBillCount: count,
		OutstandingBalance: outstanding,
		RoomTransfer:       req.RoomTransfer,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	cycleNumber, _ := billing.CurrentCycleNumber(count)
	cycle, _ := billing.CycleFor(tenant.RentStartDate, cycleNumber)

	if err := h.Store.DeactivateTenant(ctx, tenantID); err != nil {
		h.writeEngineError(w, err)
		return
	}

	// Which email goes out (balance-due vs refund-due) is decided by the
	// notification layer off this response, not here.
	log.Info().
		Str("tenant_id", tenantID).
		Str("final_balance", outcome.FinalBalance.Round(2).String()).
		Bool("room_transfer", req.RoomTransfer).
		Msg("tenant settled")

	writeJSON(w, http.StatusOK, SettlementDTO{
		TenantID:     tenantID,
		CycleStart:   cycle.Start.String(),
		CycleEnd:     cycle.End.String(),
		MoveOutDate:  moveOutDate.String(),
		Breakdown:    componentsDTO(outcome.Breakdown),
		TotalOwed:    outcome.Breakdown.Total().Add(outstanding).Round(2).String(),
		Available:    outcome.Deposit.Available.Round(2).String(),
		Applied:      outcome.Deposit.Applied.Round(2).String(),
		Forfeited:    outcome.Deposit.Forfeited.Round(2).String(),
		Refund:       outcome.Deposit.Refund.Round(2).String(),
		FinalBalance: outcome.FinalBalance.Round(2).String(),
		RoomTransfer: outcome.Deposit.RoomTransfer,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func optionalAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func newID(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}

func tenantDTO(t sqlite.Tenant) TenantDTO {
	return TenantDTO{
		ID:              t.ID,
		Name:            t.Name,
		RentStartDate:   t.RentStartDate.String(),
		AdvancePayment:  t.AdvancePayment.Round(2).String(),
		SecurityDeposit: t.SecurityDeposit.Round(2).String(),
		MonthlyRent:     t.MonthlyRent.Round(2).String(),
		ElectricityRate: t.ElectricityRate.String(),
		WaterRate:       t.WaterRate.Round(2).String(),
		Active:          t.Active,
	}
}

func componentsDTO(c billing.BillComponents) ComponentsDTO {
	return ComponentsDTO{
		Penalty:     c.Penalty.Round(2).String(),
		ExtraFee:    c.ExtraFee.Round(2).String(),
		Electricity: c.Electricity.Round(2).String(),
		Water:       c.Water.Round(2).String(),
		Rent:        c.Rent.Round(2).String(),
	}
}

func billDTO(b sqlite.Bill) BillDTO {
	return BillDTO{
		ID:          b.ID,
		TenantID:    b.TenantID,
		CycleNumber: b.CycleNumber,
		CycleStart:  b.CycleStart.String(),
		CycleEnd:    b.CycleEnd.String(),
		DueDate:     b.DueDate.String(),
		Components:  componentsDTO(b.Components),
		TotalDue:    b.TotalDue.Round(2).String(),
		AmountPaid:  b.AmountPaid.Round(2).String(),
		Status:      b.Status,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorDTO{Error: msg})
}

// writeEngineError maps the core's error classes and store errors onto
// status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case billing.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case billing.IsConsistency(err):
		// Component totals out of tolerance are a data-integrity signal.
		log.Error().Err(err).Msg("allocation consistency failure")
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
