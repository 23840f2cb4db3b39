package status

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// DefaultEpsilon absorbs rounding noise when comparing paid against total.
const DefaultEpsilon = 0.02

// Calculator derives the payment status of an entry from its amounts, its
// settlement marker, and its due date. Now is injectable so overdue boundaries
// can be tested without touching the clock.
type Calculator struct {
	Epsilon float64
	Now     func() time.Time
}

// NewCalculator creates a calculator with the default tolerance.
func NewCalculator() *Calculator {
	return &Calculator{
		Epsilon: DefaultEpsilon,
		Now:     time.Now,
	}
}

// Derive returns the status for the given amounts and settlement marker.
// An explicit settled marker short-circuits everything else; after that the
// rules run strictly in order: fully paid, partially paid, past due, pending.
func (c *Calculator) Derive(amountTotal, amountPaid float64, settled models.Tristate, dateDue time.Time) models.Status {
	if settled.Bool() {
		return models.StatusPaid
	}
	if amountPaid >= amountTotal-c.Epsilon {
		return models.StatusPaid
	}
	if amountPaid > 0 {
		return models.StatusPartial
	}
	if dateDue.Before(c.today()) {
		return models.StatusOverdue
	}
	return models.StatusPending
}

func (c *Calculator) today() time.Time {
	now := c.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
