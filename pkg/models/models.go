package models

import "time"

// Counterparty is a canonical registry entry for a supplier or customer.
// The registry is loaded once per run and is immutable while the run is in flight.
type Counterparty struct {
	ID          string `json:"id" db:"id"`
	DisplayName string `json:"display_name" db:"display_name"`
}

// CostCenter is a canonical registry entry for a cost center (site, project).
// Both Name and Code are usable as resolver keys.
type CostCenter struct {
	ID   string  `json:"id" db:"id"`
	Name string  `json:"name" db:"name"`
	Code *string `json:"code,omitempty" db:"code"`
}

// Tristate is a settlement marker parsed from a source cell: explicitly set,
// explicitly cleared, or not present at all. The distinction matters during
// merge, where an absent authoritative value must never blank a populated one.
type Tristate int

const (
	Unknown Tristate = iota
	False
	True
)

// Bool collapses the marker for status derivation; only an explicit True counts.
func (t Tristate) Bool() bool {
	return t == True
}

// Or overlays an authoritative marker onto a base one. An explicit True always
// wins; Unknown defers to the base value.
func (t Tristate) Or(base Tristate) Tristate {
	if t == True || base == True {
		return True
	}
	if t == Unknown {
		return base
	}
	return t
}

// SourceRow is the unit the reconciliation engine operates on: one obligation
// as described by a single origin, after field normalization.
type SourceRow struct {
	SourceTag string // origin tag, used for merge precedence, never persisted
	Index     int    // positional index within the origin, used for placeholder refs

	CounterpartyText string // normalized free-text name, resolved later
	CostCenterText   string // normalized free-text cost center, optional

	InvoiceRefRaw  string // display value
	InvoiceRefNorm string // match key (lowercase alphanumerics only)

	AmountTotal float64
	AmountPaid  float64

	DateIssued *time.Time
	DateDue    *time.Time
	DatePaid   *time.Time

	Settled       Tristate
	PaymentMethod string
	Notes         string

	// Filled in by the resolver stage.
	CounterpartyID string
	CostCenterID   string
}

// Status is the derived payment status of a schedule entry.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPartial Status = "partial"
	StatusOverdue Status = "overdue"
	StatusPending Status = "pending"
)

// EntryTypePayable marks entries produced by the reconciliation pipeline.
// The schedule table also holds receivables maintained by other collaborators.
const EntryTypePayable = "payable"

// ScheduleEntry is one payable obligation in the payment schedule. Created on
// first sight of an obligation; afterwards only the allow-listed mutable field
// set is ever updated. PlannedDate is set at insert time and then owned by
// downstream human edits.
type ScheduleEntry struct {
	ID             string     `json:"id" db:"id"`
	EntryType      string     `json:"entry_type" db:"entry_type"`
	CounterpartyID string     `json:"counterparty_id" db:"counterparty_id"`
	CostCenterID   *string    `json:"cost_center_id,omitempty" db:"cost_center_id"`
	InvoiceRef     string     `json:"invoice_ref" db:"invoice_ref"`
	AmountTotal    float64    `json:"amount_total" db:"amount_total"`
	AmountPaid     float64    `json:"amount_paid" db:"amount_paid"`
	DateIssued     *time.Time `json:"date_issued,omitempty" db:"date_issued"`
	DateDue        time.Time  `json:"date_due" db:"date_due"`
	PlannedDate    time.Time  `json:"planned_date" db:"planned_date"`
	DatePaid       *time.Time `json:"date_paid,omitempty" db:"date_paid"`
	Status         Status     `json:"status" db:"status"`
	PaymentMethod  *string    `json:"payment_method,omitempty" db:"payment_method"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
	Fingerprint    string     `json:"fingerprint" db:"fingerprint"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
