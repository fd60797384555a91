/*
Package sqlite provides the SQLite-backed collaborator layer for the billing
core.

PURPOSE:
  Persists tenants, bills, payments, and per-category payment components,
  and produces the aggregates the calculation core consumes as plain inputs
  (fully-paid bill count, outstanding balance, per-bill paid component
  totals). The core itself never touches this package; the API layer fetches
  here, calls the engine, and persists the results back.

SERIALIZATION CONTRACT:
  The core's calculators are pure and give no write-ordering guarantees, so
  this layer owns them: RecordPayment and ApplyPenalty run inside a single
  SQL transaction per bill, and a package-level mutex serializes writers on
  top of SQLite's single-writer model. Two concurrent payments against the
  same bill cannot both read a stale paid total.

MONEY AND DATES:
  Decimal amounts are stored as TEXT (exact round-trip through
  decimal.Decimal; REAL would reintroduce float error). Dates are stored as
  "2006-01-02" strings. Rounding to the currency unit happens here, once,
  at persistence time - never inside the calculators.

KEY TABLES:
  tenants:            Tenant snapshots (anchor date, deposits, room rates)
  bills:              One row per billing cycle, with the category breakdown
  payments:           One row per received payment
  payment_components: The per-category split of each payment

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/:        The calculation core this layer feeds
  - api/handlers.go: The orchestrating call sites
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// ErrNotFound is returned when a tenant, bill, or payment does not exist.
var ErrNotFound = errors.New("record not found")

// Bill status values. A bill is fully paid once amount_paid covers
// total_due; the fully-paid count drives cycle numbering and the deposit
// tenure rule.
const (
	BillStatusUnpaid        = "unpaid"
	BillStatusPartiallyPaid = "partially_paid"
	BillStatusFullyPaid     = "fully_paid"
)

// =============================================================================
// RECORDS
// =============================================================================

// Tenant is the persisted tenant record. The room rates live here rather
// than on a separate room table; one tenant occupies one room at a time and
// the rates are snapshotted per tenancy.
type Tenant struct {
	ID              string
	Name            string
	RentStartDate   billing.Date
	AdvancePayment  decimal.Decimal
	SecurityDeposit decimal.Decimal
	MonthlyRent     decimal.Decimal
	ElectricityRate decimal.Decimal
	WaterRate       decimal.Decimal
	Active          bool
	CreatedAt       time.Time
}

// Snapshot converts the record into the core's input shape.
func (t Tenant) Snapshot() billing.TenantSnapshot {
	return billing.TenantSnapshot{
		RentStartDate: t.RentStartDate,
		Deposit: billing.DepositAccount{
			AdvancePayment:  t.AdvancePayment,
			SecurityDeposit: t.SecurityDeposit,
		},
	}
}

// Rates converts the record into the core's rate shape.
func (t Tenant) Rates() billing.RoomRates {
	return billing.RoomRates{
		MonthlyRent:     t.MonthlyRent,
		ElectricityRate: t.ElectricityRate,
		WaterRate:       t.WaterRate,
	}
}

// Bill is one persisted billing cycle for a tenant.
type Bill struct {
	ID          string
	TenantID    string
	CycleNumber int
	CycleStart  billing.Date
	CycleEnd    billing.Date
	DueDate     billing.Date
	Components  billing.BillComponents
	TotalDue    decimal.Decimal
	AmountPaid  decimal.Decimal
	Status      string
	CreatedAt   time.Time
}

// Outstanding returns the per-category remainder after subtracting what
// earlier payments already covered. This is the allocation target set for
// the next payment.
func (b Bill) Outstanding(paid billing.BillComponents) billing.BillComponents {
	return billing.BillComponents{
		Penalty:     b.Components.Penalty.Sub(paid.Penalty),
		ExtraFee:    b.Components.ExtraFee.Sub(paid.ExtraFee),
		Electricity: b.Components.Electricity.Sub(paid.Electricity),
		Water:       b.Components.Water.Sub(paid.Water),
		Rent:        b.Components.Rent.Sub(paid.Rent),
	}
}

// Payment is one received payment against a bill.
type Payment struct {
	ID        string
	BillID    string
	Amount    decimal.Decimal
	PaidAt    billing.Date
	Method    string
	Reference string
	CreatedAt time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Store implements the persistence collaborator using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rent_start_date TEXT NOT NULL,
		advance_payment TEXT NOT NULL,
		security_deposit TEXT NOT NULL,
		monthly_rent TEXT NOT NULL,
		electricity_rate TEXT NOT NULL,
		water_rate TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		cycle_number INTEGER NOT NULL,
		cycle_start TEXT NOT NULL,
		cycle_end TEXT NOT NULL,
		due_date TEXT NOT NULL,
		penalty TEXT NOT NULL,
		extra_fee TEXT NOT NULL,
		electricity TEXT NOT NULL,
		water TEXT NOT NULL,
		rent TEXT NOT NULL,
		total_due TEXT NOT NULL,
		amount_paid TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'unpaid',
		created_at TEXT NOT NULL
	);

	-- One bill per tenant per cycle; duplicate generation is a caller bug
	-- the schema refuses to absorb.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_bills_tenant_cycle
		ON bills(tenant_id, cycle_number);
	CREATE INDEX IF NOT EXISTS idx_bills_tenant_status
		ON bills(tenant_id, status);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		bill_id TEXT NOT NULL REFERENCES bills(id),
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		method TEXT,
		reference TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_bill
		ON payments(bill_id);

	CREATE TABLE IF NOT EXISTS payment_components (
		payment_id TEXT NOT NULL REFERENCES payments(id),
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (payment_id, category)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANTS
// =============================================================================

// CreateTenant persists a new tenant.
func (s *Store) CreateTenant(ctx context.Context, t Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants
		(id, name, rent_start_date, advance_payment, security_deposit,
		 monthly_rent, electricity_rate, water_rate, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.RentStartDate.String(),
		t.AdvancePayment.String(),
		t.SecurityDeposit.String(),
		t.MonthlyRent.String(),
		t.ElectricityRate.String(),
		t.WaterRate.String(),
		t.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetTenant loads a tenant by ID.
func (s *Store) GetTenant(ctx context.Context, id string) (Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, rent_start_date, advance_payment, security_deposit,
		       monthly_rent, electricity_rate, water_rate, active, created_at
		FROM tenants WHERE id = ?`, id)
	return scanTenant(row)
}

// ListTenants returns all tenants, active first, newest first within each
// group.
func (s *Store) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, rent_start_date, advance_payment, security_deposit,
		       monthly_rent, electricity_rate, water_rate, active, created_at
		FROM tenants ORDER BY active DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// DeactivateTenant marks a tenant as moved out.
func (s *Store) DeactivateTenant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE tenants SET active = FALSE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// BILLS
// =============================================================================

// CreateBill persists a generated bill. Amounts are rounded to the currency
// unit here, once, per the core's rounding contract.
func (s *Store) CreateBill(ctx context.Context, b Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bills
		(id, tenant_id, cycle_number, cycle_start, cycle_end, due_date,
		 penalty, extra_fee, electricity, water, rent, total_due,
		 amount_paid, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.TenantID,
		b.CycleNumber,
		b.CycleStart.String(),
		b.CycleEnd.String(),
		b.DueDate.String(),
		b.Components.Penalty.Round(2).String(),
		b.Components.ExtraFee.Round(2).String(),
		b.Components.Electricity.Round(2).String(),
		b.Components.Water.Round(2).String(),
		b.Components.Rent.Round(2).String(),
		b.TotalDue.Round(2).String(),
		b.AmountPaid.String(),
		b.Status,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetBill loads a bill by ID.
func (s *Store) GetBill(ctx context.Context, id string) (Bill, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, cycle_number, cycle_start, cycle_end, due_date,
		       penalty, extra_fee, electricity, water, rent, total_due,
		       amount_paid, status, created_at
		FROM bills WHERE id = ?`, id)
	return scanBill(row)
}

// ListBillsByTenant returns a tenant's bills, newest cycle first.
func (s *Store) ListBillsByTenant(ctx context.Context, tenantID string) ([]Bill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, cycle_number, cycle_start, cycle_end, due_date,
		       penalty, extra_fee, electricity, water, rent, total_due,
		       amount_paid, status, created_at
		FROM bills WHERE tenant_id = ? ORDER BY cycle_number DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// FullyPaidBillCount returns the tenant's count of fully paid bills - the
// tenure signal for cycle numbering and the deposit rule.
func (s *Store) FullyPaidBillCount(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bills WHERE tenant_id = ? AND status = ?`,
		tenantID, BillStatusFullyPaid).Scan(&count)
	return count, err
}

// OutstandingBalance returns the sum of (total_due - amount_paid) across the
// tenant's unsettled bills.
func (s *Store) OutstandingBalance(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT total_due, amount_paid FROM bills
		WHERE tenant_id = ? AND status != ?`, tenantID, BillStatusFullyPaid)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var dueStr, paidStr string
		if err := rows.Scan(&dueStr, &paidStr); err != nil {
			return decimal.Zero, err
		}
		due, err := decimal.NewFromString(dueStr)
		if err != nil {
			return decimal.Zero, err
		}
		paid, err := decimal.NewFromString(paidStr)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(due.Sub(paid))
	}
	return total, rows.Err()
}

// PaidComponentTotals sums the recorded payment components per category for
// one bill, so the caller can derive the outstanding remainder the allocator
// works against.
func (s *Store) PaidComponentTotals(ctx context.Context, billID string) (billing.BillComponents, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pc.category, pc.amount
		FROM payment_components pc
		JOIN payments p ON p.id = pc.payment_id
		WHERE p.bill_id = ?`, billID)
	if err != nil {
		return billing.BillComponents{}, err
	}
	defer rows.Close()

	var paid billing.BillComponents
	for rows.Next() {
		var category, amountStr string
		if err := rows.Scan(&category, &amountStr); err != nil {
			return billing.BillComponents{}, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return billing.BillComponents{}, err
		}
		switch billing.Category(category) {
		case billing.CategoryPenalty:
			paid.Penalty = paid.Penalty.Add(amount)
		case billing.CategoryExtraFee:
			paid.ExtraFee = paid.ExtraFee.Add(amount)
		case billing.CategoryElectricity:
			paid.Electricity = paid.Electricity.Add(amount)
		case billing.CategoryWater:
			paid.Water = paid.Water.Add(amount)
		case billing.CategoryRent:
			paid.Rent = paid.Rent.Add(amount)
		}
	}
	return paid, rows.Err()
}

// ApplyPenalty writes a computed penalty onto a persisted bill, raising its
// total due. Refused once a penalty is present: the surcharge is flat, not
// compounding, and retroactive recomputation is never allowed.
func (s *Store) ApplyPenalty(ctx context.Context, billID string, penalty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var penaltyStr, totalStr string
	err = tx.QueryRowContext(ctx,
		`SELECT penalty, total_due FROM bills WHERE id = ?`, billID).
		Scan(&penaltyStr, &totalStr)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	existing, err := decimal.NewFromString(penaltyStr)
	if err != nil {
		return err
	}
	if !existing.IsZero() {
		return fmt.Errorf("bill %s already carries a penalty of %s", billID, existing)
	}
	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return err
	}

	rounded := penalty.Round(2)
	_, err = tx.ExecContext(ctx,
		`UPDATE bills SET penalty = ?, total_due = ? WHERE id = ?`,
		rounded.String(), total.Add(rounded).String(), billID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPayment persists a payment and its component split, and moves the
// bill's paid total and status forward - all inside a single SQL transaction
// so concurrent payments against one bill serialize instead of both reading
// a stale paid total.
func (s *Store) RecordPayment(ctx context.Context, p Payment, components []billing.PaymentComponent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var paidStr, totalStr string
	err = tx.QueryRowContext(ctx,
		`SELECT amount_paid, total_due FROM bills WHERE id = ?`, p.BillID).
		Scan(&paidStr, &totalStr)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	paid, err := decimal.NewFromString(paidStr)
	if err != nil {
		return err
	}
	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, bill_id, amount, paid_at, method, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.BillID,
		p.Amount.Round(2).String(),
		p.PaidAt.String(),
		p.Method,
		p.Reference,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	for _, pc := range components {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_components (payment_id, category, amount)
			VALUES (?, ?, ?)`,
			p.ID, string(pc.Category), pc.Amount.Round(2).String())
		if err != nil {
			return err
		}
	}

	// The bill advances by what was ALLOCATED, not what was tendered;
	// overpayment never inflates amount_paid past the components.
	newPaid := paid.Add(billing.ComponentSum(components).Round(2))
	status := BillStatusPartiallyPaid
	if newPaid.GreaterThanOrEqual(total) {
		status = BillStatusFullyPaid
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bills SET amount_paid = ?, status = ? WHERE id = ?`,
		newPaid.String(), status, p.BillID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListPayments returns a bill's payments, oldest first.
func (s *Store) ListPayments(ctx context.Context, billID string) ([]Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bill_id, amount, paid_at, method, reference, created_at
		FROM payments WHERE bill_id = ? ORDER BY created_at ASC, id ASC`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		var amountStr, paidAtStr, createdStr string
		var method, reference sql.NullString
		if err := rows.Scan(&p.ID, &p.BillID, &amountStr, &paidAtStr, &method, &reference, &createdStr); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, err
		}
		if p.PaidAt, err = billing.ParseDate(paidAtStr); err != nil {
			return nil, err
		}
		p.Method = method.String
		p.Reference = reference.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (Tenant, error) {
	var t Tenant
	var startStr, advanceStr, securityStr, rentStr, elecStr, waterStr, createdStr string
	err := row.Scan(&t.ID, &t.Name, &startStr, &advanceStr, &securityStr,
		&rentStr, &elecStr, &waterStr, &t.Active, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	if err != nil {
		return Tenant{}, err
	}

	if t.RentStartDate, err = billing.ParseDate(startStr); err != nil {
		return Tenant{}, err
	}
	if t.AdvancePayment, err = decimal.NewFromString(advanceStr); err != nil {
		return Tenant{}, err
	}
	if t.SecurityDeposit, err = decimal.NewFromString(securityStr); err != nil {
		return Tenant{}, err
	}
	if t.MonthlyRent, err = decimal.NewFromString(rentStr); err != nil {
		return Tenant{}, err
	}
	if t.ElectricityRate, err = decimal.NewFromString(elecStr); err != nil {
		return Tenant{}, err
	}
	if t.WaterRate, err = decimal.NewFromString(waterStr); err != nil {
		return Tenant{}, err
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return t, nil
}

func scanBill(row rowScanner) (Bill, error) {
	var b Bill
	var startStr, endStr, dueStr, createdStr string
	var penaltyStr, feeStr, elecStr, waterStr, rentStr, totalStr, paidStr string
	err := row.Scan(&b.ID, &b.TenantID, &b.CycleNumber, &startStr, &endStr, &dueStr,
		&penaltyStr, &feeStr, &elecStr, &waterStr, &rentStr, &totalStr,
		&paidStr, &b.Status, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Bill{}, ErrNotFound
	}
	if err != nil {
		return Bill{}, err
	}

	if b.CycleStart, err = billing.ParseDate(startStr); err != nil {
		return Bill{}, err
	}
	if b.CycleEnd, err = billing.ParseDate(endStr); err != nil {
		return Bill{}, err
	}
	if b.DueDate, err = billing.ParseDate(dueStr); err != nil {
		return Bill{}, err
	}
	if b.Components.Penalty, err = decimal.NewFromString(penaltyStr); err != nil {
		return Bill{}, err
	}
	if b.Components.ExtraFee, err = decimal.NewFromString(feeStr); err != nil {
		return Bill{}, err
	}
	if b.Components.Electricity, err = decimal.NewFromString(elecStr); err != nil {
		return Bill{}, err
	}
	if b.Components.Water, err = decimal.NewFromString(waterStr); err != nil {
		return Bill{}, err
	}
	if b.Components.Rent, err = decimal.NewFromString(rentStr); err != nil {
		return Bill{}, err
	}
	if b.TotalDue, err = decimal.NewFromString(totalStr); err != nil {
		return Bill{}, err
	}
	if b.AmountPaid, err = decimal.NewFromString(paidStr); err != nil {
		return Bill{}, err
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return b, nil
}
