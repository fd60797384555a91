package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, decimal.NewFromInt(5), 10)
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func registerTenant(t *testing.T, server *httptest.Server) api.TenantDTO {
	t.Helper()

	var tenant api.TenantDTO
	status := doJSON(t, http.MethodPost, server.URL+"/api/tenants", api.CreateTenantRequest{
		Name:            "Maria Santos",
		RentStartDate:   "2025-03-17",
		AdvancePayment:  "5000",
		SecurityDeposit: "5000",
		MonthlyRent:     "5000",
		ElectricityRate: "12",
		WaterRate:       "300",
	}, &tenant)
	if status != http.StatusCreated {
		t.Fatalf("create tenant: status %d", status)
	}
	return tenant
}

func generateBill(t *testing.T, server *httptest.Server, tenantID string) api.BillDTO {
	t.Helper()

	var bill api.BillDTO
	status := doJSON(t, http.MethodPost, server.URL+"/api/tenants/"+tenantID+"/bills",
		api.GenerateBillRequest{PreviousReading: "1300", PresentReading: "1345.5"}, &bill)
	if status != http.StatusCreated {
		t.Fatalf("generate bill: status %d", status)
	}
	return bill
}

// =============================================================================
// END-TO-END FLOWS
// =============================================================================

func TestAPI_GenerateBill(t *testing.T) {
	server := newTestServer(t)
	tenant := registerTenant(t, server)

	bill := generateBill(t, server, tenant.ID)

	if bill.CycleNumber != 1 {
		t.Errorf("cycle number: got %d, want 1", bill.CycleNumber)
	}
	if bill.CycleStart != "2025-03-17" || bill.CycleEnd != "2025-04-16" {
		t.Errorf("cycle: got [%s, %s]", bill.CycleStart, bill.CycleEnd)
	}
	if bill.DueDate != "2025-03-27" {
		t.Errorf("due date: got %s", bill.DueDate)
	}
	if bill.Components.Penalty != "0" {
		t.Errorf("penalty on fresh bill: got %s", bill.Components.Penalty)
	}
	if bill.TotalDue != "5846" {
		t.Errorf("total due: got %s, want 5846", bill.TotalDue)
	}
	if bill.Status != sqlite.BillStatusUnpaid {
		t.Errorf("status: got %s", bill.Status)
	}
}

func TestAPI_PenaltyPreviewDoesNotMutateBill(t *testing.T) {
	server := newTestServer(t)
	tenant := registerTenant(t, server)
	bill := generateBill(t, server, tenant.ID)

	var preview api.PenaltyPreviewDTO
	url := server.URL + "/api/bills/" + bill.ID + "/penalty-preview?as_of=2025-04-10"
	if status := doJSON(t, http.MethodGet, url, nil, &preview); status != http.StatusOK {
		t.Fatalf("preview: status %d", status)
	}

	// 5846 * 5% = 292.30
	if preview.Penalty != "292.3" {
		t.Errorf("penalty: got %s, want 292.3", preview.Penalty)
	}
	if !preview.Overdue {
		t.Error("bill should be overdue on 2025-04-10")
	}

	// Repeated previews are free of side effects: the bill is unchanged.
	for i := 0; i < 3; i++ {
		var again api.PenaltyPreviewDTO
		doJSON(t, http.MethodGet, url, nil, &again)
		if again.Penalty != preview.Penalty {
			t.Errorf("preview drifted on repeat: %s vs %s", again.Penalty, preview.Penalty)
		}
	}

	var fetched api.BillDTO
	doJSON(t, http.MethodGet, server.URL+"/api/bills/"+bill.ID, nil, &fetched)
	if fetched.Components.Penalty != "0" || fetched.TotalDue != "5846" {
		t.Errorf("preview mutated the bill: penalty %s, total %s",
			fetched.Components.Penalty, fetched.TotalDue)
	}
}

func TestAPI_PreviewBeforeDueDateIsZero(t *testing.T) {
	server := newTestServer(t)
	tenant := registerTenant(t, server)
	bill := generateBill(t, server, tenant.ID)

	var preview api.PenaltyPreviewDTO
	url := server.URL + "/api/bills/" + bill.ID + "/penalty-preview?as_of=2025-03-27"
	doJSON(t, http.MethodGet, url, nil, &preview)

	if preview.Penalty != "0" || preview.Overdue {
		t.Errorf("on the due date: penalty %s, overdue %v", preview.Penalty, preview.Overdue)
	}
}

func TestAPI_RecordPaymentAllocatesByPriority(t *testing.T) {
	server := newTestServer(t)
	tenant := registerTenant(t, server)
	bill := generateBill(t, server, tenant.ID)

	// Apply the penalty first so it leads the allocation order.
	var withPenalty api.BillDTO
	status := doJSON(t, http.MethodPost,
		server.URL+"/api/bills/"+bill.ID+"/penalty?as_of=2025-04-10", nil, &withPenalty)
	if status != http.StatusOK {
		t.Fatalf("apply penalty: status %d", status)
	}
	if withPenalty.TotalDue != "6138.3" {
		t.Fatalf("total after penalty: got %s, want 6138.3", withPenalty.TotalDue)
	}

	var result api.PaymentResultDTO
	status = doJSON(t, http.MethodPost, server.URL+"/api/bills/"+bill.ID+"/payments",
		api.RecordPaymentRequest{Amount: "1000", Date: "2025-04-11", Method: "cash"}, &result)
	if status != http.StatusCreated {
		t.Fatalf("record payment: status %d", status)
	}

	if len(result.Components) != 3 {
		t.Fatalf("components: got %d, want 3 (%v)", len(result.Components), result.Components)
	}
	if result.Components[0].Category != "penalty" || result.Components[0].Amount != "292.3" {
		t.Errorf("first component: %+v, want penalty 292.3", result.Components[0])
	}
	if result.Components[1].Category != "electricity" || result.Components[1].Amount != "546" {
		t.Errorf("second component: %+v, want electricity 546", result.Components[1])
	}
	if result.Components[2].Category != "water" || result.Components[2].Amount != "161.7" {
		t.Errorf("third component: %+v, want water 161.7", result.Components[2])
	}
	if result.Unallocated != "0" {
		t.Errorf("unallocated: got %s", result.Unallocated)
	}
	if result.BillStatus != sqlite.BillStatusPartiallyPaid {
		t.Errorf("bill status: got %s", result.BillStatus)
	}
}

func TestAPI_OverpaymentIsReportedNotAbsorbed(t *testing.T) {
	server := newTestServer(t)
	tenant := registerTenant(t, server)
	bill := generateBill(t, server, tenant.ID)

	var result api.PaymentResultDTO
	status := doJSON(t, http.MethodPost, server.URL+"/api/bills/"+bill.ID+"/payments",
		api.RecordPaymentRequest{Amount: "6000", Date: "2025-04-01"}, &result)
	if status != http.StatusCreated {
		t.Fatalf("record payment: status %d", status)
	}

	if result.Allocated != "5846" {
		t.Errorf("allocated: got %s, want 5846", result.Allocated)
	}
	if result.Unallocated != "154" {
		t.Errorf("unallocated: got %s, want 154", result.Unallocated)
	}
	if result.BillStatus != sqlite.BillStatusFullyPaid {
		t.Errorf("bill status: got %s", result.BillStatus)
	}
}

func TestAPI_MoveOutSettlement(t *testing.T) {
	server := newTestServer(t)
	tenant := registerTenant(t, server)

	// No fully paid bills: the security deposit is forfeited and the
	// settlement prorates cycle 1 through March 31 (15 of 31 days).
	var settlement api.SettlementDTO
	status := doJSON(t, http.MethodPost, server.URL+"/api/tenants/"+tenant.ID+"/move-out",
		api.MoveOutRequest{
			MoveOutDate:     "2025-03-31",
			PreviousReading: "1300",
			PresentReading:  "1345.5",
		}, &settlement)
	if status != http.StatusOK {
		t.Fatalf("move out: status %d", status)
	}

	// rent 5000*15/31 = 2419.35, water 300*15/31 = 145.16,
	// electricity 546 -> total 3110.51 against 5000 advance.
	if settlement.Breakdown.Rent != "2419.35" {
		t.Errorf("rent: got %s, want 2419.35", settlement.Breakdown.Rent)
	}
	if settlement.Breakdown.Water != "145.16" {
		t.Errorf("water: got %s, want 145.16", settlement.Breakdown.Water)
	}
	if settlement.Forfeited != "5000" {
		t.Errorf("forfeited: got %s, want 5000", settlement.Forfeited)
	}
	if settlement.FinalBalance != "-1889.48" {
		t.Errorf("final balance: got %s, want -1889.48", settlement.FinalBalance)
	}
	if settlement.RoomTransfer {
		t.Error("room transfer flag set on a plain departure")
	}

	// The tenant is deactivated after settlement.
	var fetched api.TenantDTO
	doJSON(t, http.MethodGet, server.URL+"/api/tenants/"+tenant.ID, nil, &fetched)
	if fetched.Active {
		t.Error("tenant still active after move-out")
	}
}

func TestAPI_ValidationErrorsName400(t *testing.T) {
	server := newTestServer(t)
	tenant := registerTenant(t, server)

	// Meter regression is rejected by the core with a named field.
	var errResp api.ErrorDTO
	status := doJSON(t, http.MethodPost, server.URL+"/api/tenants/"+tenant.ID+"/bills",
		api.GenerateBillRequest{PreviousReading: "1400", PresentReading: "1350"}, &errResp)
	if status != http.StatusBadRequest {
		t.Fatalf("meter regression: status %d", status)
	}
	if errResp.Error == "" {
		t.Error("validation error body is empty")
	}

	// Unknown bill is a 404.
	status = doJSON(t, http.MethodPost, server.URL+"/api/bills/nope/payments",
		api.RecordPaymentRequest{Amount: "100", Date: "2025-04-01"}, nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown bill: status %d, want 404", status)
	}
}
