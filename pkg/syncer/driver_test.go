package syncer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	fingerprints  map[string]string
	queryChunks   [][]string
	inserted      []*models.ScheduleEntry
	updated       []*models.ScheduleEntry
	insertBatches int
}

func newFakeStore() *fakeStore {
	return &fakeStore{fingerprints: make(map[string]string)}
}

func (s *fakeStore) Existing(_ context.Context, ids []string) (map[string]string, error) {
	s.queryChunks = append(s.queryChunks, ids)
	found := make(map[string]string)
	for _, id := range ids {
		if fp, ok := s.fingerprints[id]; ok {
			found[id] = fp
		}
	}
	return found, nil
}

func (s *fakeStore) InsertBatch(_ context.Context, entries []*models.ScheduleEntry) error {
	s.insertBatches++
	for _, e := range entries {
		s.inserted = append(s.inserted, e)
		s.fingerprints[e.ID] = identity.Fingerprint(e)
	}
	return nil
}

func (s *fakeStore) UpdateMutable(_ context.Context, entry *models.ScheduleEntry) error {
	s.updated = append(s.updated, entry)
	s.fingerprints[entry.ID] = identity.Fingerprint(entry)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func entry(id string, paid float64) *models.ScheduleEntry {
	return &models.ScheduleEntry{
		ID:             id,
		EntryType:      models.EntryTypePayable,
		CounterpartyID: "cp-1",
		InvoiceRef:     "2024/" + id,
		AmountTotal:    1000.00,
		AmountPaid:     paid,
		DateDue:        time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:         models.StatusPending,
	}
}

func TestDriver_BuildPlan(t *testing.T) {
	store := newFakeStore()
	stored := entry("known", 0)
	store.fingerprints["known"] = identity.Fingerprint(stored)
	changed := entry("changed", 0)
	store.fingerprints["changed"] = identity.Fingerprint(changed)

	driver := NewDriver(store, testLogger())

	updated := entry("changed", 400)
	plan, err := driver.BuildPlan(context.Background(), []*models.ScheduleEntry{
		entry("new", 0),
		entry("known", 0),
		updated,
	})
	require.NoError(t, err)

	require.Len(t, plan.Changes, 2)
	assert.Equal(t, models.SyncActionInsert, plan.Changes[0].Action)
	assert.Equal(t, "new", plan.Changes[0].Entry.ID)
	assert.Equal(t, models.SyncActionUpdate, plan.Changes[1].Action)
	assert.Equal(t, "changed", plan.Changes[1].Entry.ID)
	assert.Equal(t, 1, plan.Unchanged)
}

func TestDriver_BuildPlan_Chunking(t *testing.T) {
	store := newFakeStore()
	driver := NewDriver(store, testLogger()).WithChunkSizes(50, 500)

	var batch []*models.ScheduleEntry
	for i := 0; i < 120; i++ {
		batch = append(batch, entry(fmt.Sprintf("e-%03d", i), 0))
	}

	_, err := driver.BuildPlan(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, store.queryChunks, 3)
	assert.Len(t, store.queryChunks[0], 50)
	assert.Len(t, store.queryChunks[1], 50)
	assert.Len(t, store.queryChunks[2], 20)
}

func TestDriver_Apply_InsertChunking(t *testing.T) {
	store := newFakeStore()
	driver := NewDriver(store, testLogger()).WithChunkSizes(50, 100)

	var batch []*models.ScheduleEntry
	for i := 0; i < 250; i++ {
		batch = append(batch, entry(fmt.Sprintf("e-%03d", i), 0))
	}

	plan, err := driver.BuildPlan(context.Background(), batch)
	require.NoError(t, err)
	require.NoError(t, driver.Apply(context.Background(), plan))

	assert.Equal(t, 3, store.insertBatches)
	assert.Len(t, store.inserted, 250)
}

func TestDriver_RepeatedRunIsNoOp(t *testing.T) {
	store := newFakeStore()
	driver := NewDriver(store, testLogger())

	batch := []*models.ScheduleEntry{entry("a", 0), entry("b", 500)}

	plan, err := driver.BuildPlan(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, plan.Changes, 2)
	require.NoError(t, driver.Apply(context.Background(), plan))

	again, err := driver.BuildPlan(context.Background(), batch)
	require.NoError(t, err)
	assert.Empty(t, again.Changes)
	assert.Equal(t, 2, again.Unchanged)
}

func TestDedupe_LastOccurrenceWins(t *testing.T) {
	first := entry("dup", 100)
	last := entry("dup", 900)

	out := Dedupe([]*models.ScheduleEntry{first, entry("other", 0), last})

	require.Len(t, out, 2)
	assert.Equal(t, "dup", out[0].ID)
	assert.Equal(t, 900.00, out[0].AmountPaid)
	assert.Equal(t, "other", out[1].ID)
}
