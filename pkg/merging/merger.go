package merging

import (
	"math"
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Key is the logical obligation triple. Amounts are held in cents so two rows
// that print the same amount can never land in different groups through float
// representation noise.
type Key struct {
	CounterpartyID string
	InvoiceRef     string
	AmountCents    int64
}

// NewKey builds the obligation key for a resolved row.
func NewKey(row *models.SourceRow) Key {
	return Key{
		CounterpartyID: row.CounterpartyID,
		InvoiceRef:     row.InvoiceRefNorm,
		AmountCents:    int64(math.Round(row.AmountTotal * 100)),
	}
}

// Merger collapses rows from all origins into one row per obligation.
//
// One origin is authoritative for payment state: its settlement marker, paid
// amount, paid date, method, cost center and notes override the others, but
// only when populated. An empty authoritative value never blanks a populated
// one. Due dates run the other way: the existence origins hold the reliable
// due date, the authoritative origin is only a fallback.
type Merger struct {
	authoritativeTag string
}

// NewMerger creates a merger treating rows tagged authoritativeTag as the
// payment-state origin.
func NewMerger(authoritativeTag string) *Merger {
	return &Merger{authoritativeTag: authoritativeTag}
}

// Merge returns one row per obligation key, in deterministic order.
// Rows present only in the authoritative origin still come through; their due
// date is whatever that origin carries.
func (m *Merger) Merge(rows []*models.SourceRow) []*models.SourceRow {
	authoritative := make(map[Key]*models.SourceRow)
	for _, row := range rows {
		if row.SourceTag == m.authoritativeTag {
			authoritative[NewKey(row)] = row
		}
	}

	merged := make(map[Key]*models.SourceRow)
	var order []Key
	for _, row := range rows {
		if row.SourceTag == m.authoritativeTag {
			continue
		}
		key := NewKey(row)
		if _, ok := merged[key]; ok {
			continue
		}
		out := *row
		if auth, ok := authoritative[key]; ok {
			overlay(&out, auth)
		}
		merged[key] = &out
		order = append(order, key)
	}

	// authoritative-only rows still represent real obligations
	var authOnly []Key
	for key, row := range authoritative {
		if _, ok := merged[key]; ok {
			continue
		}
		out := *row
		merged[key] = &out
		authOnly = append(authOnly, key)
	}
	sort.Slice(authOnly, func(i, j int) bool {
		return authoritative[authOnly[i]].Index < authoritative[authOnly[j]].Index
	})
	order = append(order, authOnly...)

	result := make([]*models.SourceRow, 0, len(order))
	for _, key := range order {
		result = append(result, merged[key])
	}
	return result
}

// overlay copies the authoritative payment-state fields onto a base row,
// skipping empty values.
func overlay(base, auth *models.SourceRow) {
	base.Settled = auth.Settled.Or(base.Settled)
	if auth.AmountPaid > 0 {
		base.AmountPaid = auth.AmountPaid
	}
	if auth.DatePaid != nil {
		base.DatePaid = auth.DatePaid
	}
	if auth.PaymentMethod != "" {
		base.PaymentMethod = auth.PaymentMethod
	}
	if auth.CostCenterText != "" {
		base.CostCenterText = auth.CostCenterText
	}
	if auth.CostCenterID != "" {
		base.CostCenterID = auth.CostCenterID
	}
	if auth.Notes != "" {
		base.Notes = auth.Notes
	}
	if base.DateDue == nil && auth.DateDue != nil {
		base.DateDue = auth.DateDue
	}
}
