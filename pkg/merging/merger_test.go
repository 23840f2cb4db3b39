package merging

import (
	"testing"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datep(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNewKey(t *testing.T) {
	a := &models.SourceRow{CounterpartyID: "cp-1", InvoiceRefNorm: "2024015", AmountTotal: 1000.00}
	b := &models.SourceRow{CounterpartyID: "cp-1", InvoiceRefNorm: "2024015", AmountTotal: 999.9999999}

	assert.Equal(t, NewKey(a), NewKey(b))
	assert.NotEqual(t, NewKey(a), NewKey(&models.SourceRow{CounterpartyID: "cp-1", InvoiceRefNorm: "2024015", AmountTotal: 1000.01}))
}

func TestMerger_Merge(t *testing.T) {
	merger := NewMerger("cash")

	existence := &models.SourceRow{
		SourceTag:      "report",
		Index:          0,
		CounterpartyID: "cp-1",
		InvoiceRefNorm: "2024015",
		AmountTotal:    1000.00,
		DateIssued:     datep(2024, 1, 15),
		DateDue:        datep(2024, 3, 31),
		PaymentMethod:  "bank transfer",
	}
	auth := &models.SourceRow{
		SourceTag:      "cash",
		Index:          0,
		CounterpartyID: "cp-1",
		InvoiceRefNorm: "2024015",
		AmountTotal:    1000.00,
		AmountPaid:     400.00,
		DatePaid:       datep(2024, 4, 10),
		DateDue:        datep(2024, 4, 30),
		Settled:        models.Unknown,
		CostCenterID:   "cc-1",
	}

	out := merger.Merge([]*models.SourceRow{existence, auth})
	require.Len(t, out, 1)
	row := out[0]

	assert.Equal(t, 400.00, row.AmountPaid)
	assert.Equal(t, datep(2024, 4, 10), row.DatePaid)
	assert.Equal(t, "cc-1", row.CostCenterID)

	// due date prefers the existence origin
	assert.Equal(t, datep(2024, 3, 31), row.DateDue)

	// empty authoritative method must not blank the populated one
	assert.Equal(t, "bank transfer", row.PaymentMethod)
}

func TestMerger_Merge_SettledOverlay(t *testing.T) {
	merger := NewMerger("cash")

	tests := []struct {
		name     string
		base     models.Tristate
		auth     models.Tristate
		expected models.Tristate
	}{
		{"auth true wins", models.Unknown, models.True, models.True},
		{"auth unknown defers", models.True, models.Unknown, models.True},
		{"auth false cannot clear true", models.True, models.False, models.True},
		{"both unknown", models.Unknown, models.Unknown, models.Unknown},
		{"auth false over unknown", models.Unknown, models.False, models.False},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := merger.Merge([]*models.SourceRow{
				{SourceTag: "report", CounterpartyID: "cp-1", InvoiceRefNorm: "x", AmountTotal: 10, Settled: tt.base},
				{SourceTag: "cash", CounterpartyID: "cp-1", InvoiceRefNorm: "x", AmountTotal: 10, Settled: tt.auth},
			})
			require.Len(t, out, 1)
			assert.Equal(t, tt.expected, out[0].Settled)
		})
	}
}

func TestMerger_Merge_AuthOnlyRowsSurvive(t *testing.T) {
	merger := NewMerger("cash")

	out := merger.Merge([]*models.SourceRow{
		{SourceTag: "report", Index: 0, CounterpartyID: "cp-1", InvoiceRefNorm: "a", AmountTotal: 100},
		{SourceTag: "cash", Index: 0, CounterpartyID: "cp-2", InvoiceRefNorm: "b", AmountTotal: 200, AmountPaid: 200, DateDue: datep(2024, 5, 1)},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].InvoiceRefNorm)
	assert.Equal(t, "b", out[1].InvoiceRefNorm)
	assert.Equal(t, datep(2024, 5, 1), out[1].DateDue)
}

func TestMerger_Merge_Deterministic(t *testing.T) {
	merger := NewMerger("cash")

	rows := []*models.SourceRow{
		{SourceTag: "report", Index: 0, CounterpartyID: "cp-1", InvoiceRefNorm: "a", AmountTotal: 100},
		{SourceTag: "report", Index: 1, CounterpartyID: "cp-2", InvoiceRefNorm: "b", AmountTotal: 200},
		{SourceTag: "cash", Index: 0, CounterpartyID: "cp-3", InvoiceRefNorm: "c", AmountTotal: 300},
		{SourceTag: "cash", Index: 1, CounterpartyID: "cp-4", InvoiceRefNorm: "d", AmountTotal: 400},
	}

	first := merger.Merge(rows)
	for i := 0; i < 20; i++ {
		again := merger.Merge(rows)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].InvoiceRefNorm, again[j].InvoiceRefNorm)
		}
	}
}

func TestMerger_Merge_InputRowsUntouched(t *testing.T) {
	merger := NewMerger("cash")

	existence := &models.SourceRow{SourceTag: "report", CounterpartyID: "cp-1", InvoiceRefNorm: "a", AmountTotal: 100}
	auth := &models.SourceRow{SourceTag: "cash", CounterpartyID: "cp-1", InvoiceRefNorm: "a", AmountTotal: 100, AmountPaid: 100}

	merger.Merge([]*models.SourceRow{existence, auth})

	assert.Equal(t, 0.0, existence.AmountPaid)
}
