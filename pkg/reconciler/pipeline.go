package reconciler

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/Ramsey-B/fern/pkg/status"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Default similarity floors for the two registries. Counterparty names are
// longer and more distinctive than cost center labels, so they get the
// tighter floor.
const (
	DefaultCounterpartyFloor = 0.88
	DefaultCostCenterFloor   = 0.85
)

// Input is everything one pipeline pass consumes: the registry snapshots and
// the normalized rows of every source.
type Input struct {
	Counterparties []models.Counterparty
	CostCenters    []models.CostCenter
	Rows           []*models.SourceRow
}

// Pipeline turns raw source rows into schedule entries: resolve free-text
// names, synthesize references, merge origins, derive status and identity.
// It is pure computation; nothing here touches a store.
type Pipeline struct {
	logger            ectologger.Logger
	merger            *merging.Merger
	calculator        *status.Calculator
	counterpartyFloor float64
	costCenterFloor   float64
	now               func() time.Time
}

// NewPipeline creates a pipeline treating rows tagged authoritativeTag as the
// payment-state origin.
func NewPipeline(authoritativeTag string, logger ectologger.Logger) *Pipeline {
	return &Pipeline{
		logger:            logger,
		merger:            merging.NewMerger(authoritativeTag),
		calculator:        status.NewCalculator(),
		counterpartyFloor: DefaultCounterpartyFloor,
		costCenterFloor:   DefaultCostCenterFloor,
		now:               time.Now,
	}
}

// WithFloors overrides the resolver similarity floors.
func (p *Pipeline) WithFloors(counterparty, costCenter float64) *Pipeline {
	if counterparty > 0 {
		p.counterpartyFloor = counterparty
	}
	if costCenter > 0 {
		p.costCenterFloor = costCenter
	}
	return p
}

// WithEpsilon overrides the paid-amount comparison tolerance.
func (p *Pipeline) WithEpsilon(epsilon float64) *Pipeline {
	p.calculator.Epsilon = epsilon
	return p
}

// WithNow overrides the clock.
func (p *Pipeline) WithNow(now func() time.Time) *Pipeline {
	p.now = now
	p.calculator.Now = now
	return p
}

// Run executes the pipeline over one input batch, filling the given report as
// it goes. The returned entries are in merge order, which is deterministic for
// a fixed input.
func (p *Pipeline) Run(ctx context.Context, in Input, report *models.Report) []*models.ScheduleEntry {
	ctx, span := tracing.StartSpan(ctx, "Pipeline.Run")
	defer span.End()

	counterparties := matching.NewResolver(
		matching.CounterpartyRegistry(in.Counterparties), nil, p.counterpartyFloor)
	costCenters := matching.NewResolver(
		matching.CostCenterRegistry(in.CostCenters), nil, p.costCenterFloor)

	kept := p.resolve(ctx, in.Rows, counterparties, costCenters, report)
	merged := p.merger.Merge(kept)
	report.RowsMerged = len(merged)

	entries := make([]*models.ScheduleEntry, 0, len(merged))
	for _, row := range merged {
		entry := p.buildEntry(row)
		report.EntriesByStatus[entry.Status]++
		entries = append(entries, entry)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"rows":    len(in.Rows),
		"dropped": report.RowsDropped,
		"merged":  len(merged),
	}).Info("pipeline pass complete")

	return entries
}

// resolve drops unusable rows, maps free-text names onto registry identities,
// and synthesizes references for ref-less rows. Rows whose counterparty stays
// unresolved are kept; they sync under the anonymous identity so the money is
// still visible, and the report calls out the name for registry maintenance.
func (p *Pipeline) resolve(ctx context.Context, rows []*models.SourceRow, counterparties, costCenters *matching.Resolver, report *models.Report) []*models.SourceRow {
	var kept []*models.SourceRow
	for _, row := range rows {
		report.RowsBySource[row.SourceTag]++

		if row.AmountTotal == 0 || row.CounterpartyText == "" {
			report.RowsDropped++
			continue
		}

		if id, ok := counterparties.Resolve(row.CounterpartyText); ok {
			row.CounterpartyID = id
		} else {
			report.UnresolvedCounterparties[row.CounterpartyText]++
		}

		if row.CostCenterText != "" {
			if id, ok := costCenters.Resolve(row.CostCenterText); ok {
				row.CostCenterID = id
			} else {
				report.UnresolvedCostCenters[row.CostCenterText]++
			}
		}

		if row.InvoiceRefNorm == "" {
			ref := identity.PlaceholderRef(row.SourceTag, row.CounterpartyText, row.Index)
			row.InvoiceRefRaw = ref
			row.InvoiceRefNorm = normalize.InvoiceRef(ref)
		}

		kept = append(kept, row)
	}
	return kept
}

// buildEntry derives the final schedule entry for one merged row.
func (p *Pipeline) buildEntry(row *models.SourceRow) *models.ScheduleEntry {
	settled := row.Settled.Bool()

	amountPaid := row.AmountPaid
	if settled && amountPaid == 0 {
		amountPaid = row.AmountTotal
	}

	due := p.dueDate(row)

	entry := &models.ScheduleEntry{
		ID:             identity.EntryID(row.CounterpartyID, row.InvoiceRefNorm, row.AmountTotal),
		EntryType:      models.EntryTypePayable,
		CounterpartyID: row.CounterpartyID,
		CostCenterID:   optional(row.CostCenterID),
		InvoiceRef:     row.InvoiceRefRaw,
		AmountTotal:    row.AmountTotal,
		AmountPaid:     amountPaid,
		DateIssued:     row.DateIssued,
		DateDue:        due,
		PlannedDate:    due,
		DatePaid:       row.DatePaid,
		Status:         p.calculator.Derive(row.AmountTotal, amountPaid, row.Settled, due),
		PaymentMethod:  optional(row.PaymentMethod),
		Notes:          optional(row.Notes),
	}
	entry.Fingerprint = identity.Fingerprint(entry)
	return entry
}

// dueDate falls back from due to issue date to today, so every entry lands
// somewhere on the schedule.
func (p *Pipeline) dueDate(row *models.SourceRow) time.Time {
	if row.DateDue != nil {
		return *row.DateDue
	}
	if row.DateIssued != nil {
		return *row.DateIssued
	}
	now := p.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
