package syncer

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DefaultCheckChunk is how many IDs a single existence query carries.
const DefaultCheckChunk = 50

// DefaultWriteChunk is how many entries a single insert statement carries.
const DefaultWriteChunk = 500

// Store is the persistence surface the driver plans against. Existing returns
// the stored fingerprint for every ID it finds; absent IDs are simply missing
// from the map.
type Store interface {
	Existing(ctx context.Context, ids []string) (map[string]string, error)
	InsertBatch(ctx context.Context, entries []*models.ScheduleEntry) error
	UpdateMutable(ctx context.Context, entry *models.ScheduleEntry) error
}

// Plan is the outcome of comparing a batch against the store: what to insert,
// what to update, and how many entries already match.
type Plan struct {
	Changes   []models.PlannedChange
	Unchanged int
}

// Driver decides, for a batch of derived entries, which rows are new, which
// changed, and which are already in sync. It never deletes: entries that
// disappear from the sources are left alone.
type Driver struct {
	store      Store
	logger     ectologger.Logger
	checkChunk int
	writeChunk int
}

// NewDriver creates a sync driver over a store.
func NewDriver(store Store, logger ectologger.Logger) *Driver {
	return &Driver{
		store:      store,
		logger:     logger,
		checkChunk: DefaultCheckChunk,
		writeChunk: DefaultWriteChunk,
	}
}

// WithChunkSizes overrides the query and write batch sizes.
func (d *Driver) WithChunkSizes(check, write int) *Driver {
	if check > 0 {
		d.checkChunk = check
	}
	if write > 0 {
		d.writeChunk = write
	}
	return d
}

// BuildPlan dedupes the batch, looks up which IDs already exist, and decides
// an action per entry. Entries whose stored fingerprint matches are counted as
// unchanged and produce no store operation at all, which is what makes a
// repeated run a no-op.
func (d *Driver) BuildPlan(ctx context.Context, entries []*models.ScheduleEntry) (*Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "SyncDriver.BuildPlan")
	defer span.End()

	deduped := Dedupe(entries)

	ids := make([]string, 0, len(deduped))
	for _, entry := range deduped {
		ids = append(ids, entry.ID)
	}

	existing, err := d.lookupExisting(ctx, ids)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, entry := range deduped {
		stored, exists := existing[entry.ID]
		switch {
		case !exists:
			plan.Changes = append(plan.Changes, models.PlannedChange{
				Action: models.SyncActionInsert,
				Entry:  *entry,
			})
		case stored == identity.Fingerprint(entry):
			plan.Unchanged++
		default:
			plan.Changes = append(plan.Changes, models.PlannedChange{
				Action: models.SyncActionUpdate,
				Entry:  *entry,
			})
		}
	}

	d.logger.WithContext(ctx).WithFields(map[string]any{
		"batch":     len(entries),
		"deduped":   len(deduped),
		"existing":  len(existing),
		"unchanged": plan.Unchanged,
	}).Info("built sync plan")

	return plan, nil
}

// Apply executes a plan: inserts in chunks, updates one row at a time against
// the allow-listed column set.
func (d *Driver) Apply(ctx context.Context, plan *Plan) error {
	ctx, span := tracing.StartSpan(ctx, "SyncDriver.Apply")
	defer span.End()

	var inserts []*models.ScheduleEntry
	for i := range plan.Changes {
		change := &plan.Changes[i]
		switch change.Action {
		case models.SyncActionInsert:
			inserts = append(inserts, &change.Entry)
		case models.SyncActionUpdate:
			if err := d.store.UpdateMutable(ctx, &change.Entry); err != nil {
				d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"entry_id": change.Entry.ID,
				}).Error("failed to update schedule entry")
				return fmt.Errorf("failed to update schedule entry %s: %w", change.Entry.ID, err)
			}
		}
	}

	for start := 0; start < len(inserts); start += d.writeChunk {
		end := start + d.writeChunk
		if end > len(inserts) {
			end = len(inserts)
		}
		if err := d.store.InsertBatch(ctx, inserts[start:end]); err != nil {
			d.logger.WithContext(ctx).WithError(err).Error("failed to insert schedule entries")
			return fmt.Errorf("failed to insert schedule entries: %w", err)
		}
	}

	return nil
}

func (d *Driver) lookupExisting(ctx context.Context, ids []string) (map[string]string, error) {
	existing := make(map[string]string)
	for start := 0; start < len(ids); start += d.checkChunk {
		end := start + d.checkChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunk, err := d.store.Existing(ctx, ids[start:end])
		if err != nil {
			d.logger.WithContext(ctx).WithError(err).Error("failed to check existing schedule entries")
			return nil, fmt.Errorf("failed to check existing schedule entries: %w", err)
		}
		for id, fingerprint := range chunk {
			existing[id] = fingerprint
		}
	}
	return existing, nil
}

// Dedupe collapses duplicate IDs within a batch. The first occurrence keeps
// its position; the last occurrence supplies the values.
func Dedupe(entries []*models.ScheduleEntry) []*models.ScheduleEntry {
	index := make(map[string]int, len(entries))
	var out []*models.ScheduleEntry
	for _, entry := range entries {
		if at, ok := index[entry.ID]; ok {
			out[at] = entry
			continue
		}
		index[entry.ID] = len(out)
		out = append(out, entry)
	}
	return out
}
