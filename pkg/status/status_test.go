package status

import (
	"testing"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestCalculator_Derive(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)

	tests := []struct {
		name     string
		total    float64
		paid     float64
		settled  models.Tristate
		due      time.Time
		expected models.Status
	}{
		{
			name:     "settled marker wins over zero paid",
			total:    1000.00,
			paid:     0,
			settled:  models.True,
			due:      past,
			expected: models.StatusPaid,
		},
		{
			name:     "fully paid",
			total:    1000.00,
			paid:     1000.00,
			due:      future,
			expected: models.StatusPaid,
		},
		{
			name:     "paid within tolerance",
			total:    100.00,
			paid:     99.99,
			due:      future,
			expected: models.StatusPaid,
		},
		{
			name:     "paid at tolerance boundary",
			total:    100.00,
			paid:     99.98,
			due:      future,
			expected: models.StatusPaid,
		},
		{
			name:     "paid just outside tolerance",
			total:    100.00,
			paid:     99.97,
			due:      future,
			expected: models.StatusPartial,
		},
		{
			name:     "partial payment past due stays partial",
			total:    1000.00,
			paid:     400.00,
			due:      past,
			expected: models.StatusPartial,
		},
		{
			name:     "unpaid past due",
			total:    1000.00,
			paid:     0,
			due:      past,
			expected: models.StatusOverdue,
		},
		{
			name:     "unpaid due today is not overdue",
			total:    1000.00,
			paid:     0,
			due:      time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			expected: models.StatusPending,
		},
		{
			name:     "unpaid due in the future",
			total:    1000.00,
			paid:     0,
			due:      future,
			expected: models.StatusPending,
		},
		{
			name:     "explicitly cleared marker does not settle",
			total:    1000.00,
			paid:     0,
			settled:  models.False,
			due:      future,
			expected: models.StatusPending,
		},
	}

	calc := NewCalculator()
	calc.Now = func() time.Time { return now }

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calc.Derive(tt.total, tt.paid, tt.settled, tt.due))
		})
	}
}
