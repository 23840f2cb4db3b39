package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ScheduleRepository defines the interface for schedule entry persistence
type ScheduleRepository interface {
	Existing(ctx context.Context, ids []string) (map[string]string, error)
	InsertBatch(ctx context.Context, entries []*models.ScheduleEntry) error
	UpdateMutable(ctx context.Context, entry *models.ScheduleEntry) error
	GetByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
}

// Repository implements ScheduleRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new schedule entry repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "schedule_entries"

// insertColumns is the full column set written on first sight of an entry.
var insertColumns = []string{
	"id", "entry_type", "counterparty_id", "cost_center_id", "invoice_ref",
	"amount_total", "amount_paid", "date_issued", "date_due", "planned_date",
	"date_paid", "status", "payment_method", "notes", "fingerprint",
	"created_at", "updated_at",
}

type existingRow struct {
	ID          string `db:"id"`
	Fingerprint string `db:"fingerprint"`
}

// Existing returns the stored fingerprint for each of the given IDs that is
// present in the table. The caller chunks the ID list.
func (r *Repository) Existing(ctx context.Context, ids []string) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "ScheduleRepository.Existing")
	defer span.End()

	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	sb := database.NewSelectBuilder()
	sb.Select("id", "fingerprint")
	sb.From(tableName)
	sb.Where(sb.In("id", sliceToAny(ids)...))

	query, args := sb.Build()

	var rows []existingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check existing schedule entries")
		return nil, fmt.Errorf("failed to check existing schedule entries: %w", err)
	}

	existing := make(map[string]string, len(rows))
	for _, row := range rows {
		existing[row.ID] = row.Fingerprint
	}
	return existing, nil
}

// InsertBatch writes new entries in one multi-row insert. IDs are
// deterministic, so a concurrent duplicate insert is a conflict, not
// corruption; the batch fails and the next run converges.
func (r *Repository) InsertBatch(ctx context.Context, entries []*models.ScheduleEntry) error {
	ctx, span := tracing.StartSpan(ctx, "ScheduleRepository.InsertBatch")
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName)
	ib.Cols(insertColumns...)
	for _, e := range entries {
		ib.Values(
			e.ID, e.EntryType, nullable(e.CounterpartyID), e.CostCenterID, e.InvoiceRef,
			e.AmountTotal, e.AmountPaid, e.DateIssued, e.DateDue, e.PlannedDate,
			e.DatePaid, e.Status, e.PaymentMethod, e.Notes, e.Fingerprint,
			now, now,
		)
	}

	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(entries),
		}).Error("failed to insert schedule entries")
		return fmt.Errorf("failed to insert schedule entries: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(entries),
	}).Info("inserted schedule entries")

	return nil
}

// UpdateMutable rewrites the allow-listed mutable columns of one entry.
// planned_date and created_at are never touched after insert; human edits to
// the schedule slot survive every subsequent run.
func (r *Repository) UpdateMutable(ctx context.Context, entry *models.ScheduleEntry) error {
	ctx, span := tracing.StartSpan(ctx, "ScheduleRepository.UpdateMutable")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("counterparty_id", nullable(entry.CounterpartyID)),
		ub.Assign("cost_center_id", entry.CostCenterID),
		ub.Assign("invoice_ref", entry.InvoiceRef),
		ub.Assign("amount_total", entry.AmountTotal),
		ub.Assign("amount_paid", entry.AmountPaid),
		ub.Assign("date_issued", entry.DateIssued),
		ub.Assign("date_due", entry.DateDue),
		ub.Assign("date_paid", entry.DatePaid),
		ub.Assign("status", entry.Status),
		ub.Assign("payment_method", entry.PaymentMethod),
		ub.Assign("notes", entry.Notes),
		ub.Assign("fingerprint", entry.Fingerprint),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", entry.ID))

	query, args := ub.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entry_id": entry.ID,
		}).Error("failed to update schedule entry")
		return fmt.Errorf("failed to update schedule entry: %w", err)
	}

	return nil
}

// GetByID gets a schedule entry by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "ScheduleRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(insertColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var entry models.ScheduleEntry
	err := r.db.GetContext(ctx, &entry, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get schedule entry by ID")
		return nil, fmt.Errorf("failed to get schedule entry: %w", err)
	}

	return &entry, nil
}

// nullable maps the anonymous counterparty sentinel (empty string) to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func sliceToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
