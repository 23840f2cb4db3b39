package identity

import (
	"testing"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryID(t *testing.T) {
	id := EntryID("cp-1", "2024015", 1000.00)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	// stable across calls
	assert.Equal(t, id, EntryID("cp-1", "2024015", 1000.00))

	// any key component changes the identity
	assert.NotEqual(t, id, EntryID("cp-2", "2024015", 1000.00))
	assert.NotEqual(t, id, EntryID("cp-1", "2024016", 1000.00))
	assert.NotEqual(t, id, EntryID("cp-1", "2024015", 1000.01))

	// sub-cent differences collapse to the same identity
	assert.Equal(t, id, EntryID("cp-1", "2024015", 1000.001))
}

func TestEntryID_AnonymousFallback(t *testing.T) {
	withEmpty := EntryID("", "2024015", 500.00)
	withLiteral := EntryID(AnonymousCounterparty, "2024015", 500.00)

	assert.Equal(t, withLiteral, withEmpty)
}

func TestPlaceholderRef(t *testing.T) {
	ref := PlaceholderRef("bank", "ACME Srl", 7)
	assert.Equal(t, "auto bank acme srl 7", ref)

	// distinct positions never collide
	assert.NotEqual(t, ref, PlaceholderRef("bank", "ACME Srl", 8))

	// missing counterparty text still yields a usable reference
	assert.Equal(t, "auto bank anonymous 3", PlaceholderRef("bank", "", 3))
}

func TestFingerprint(t *testing.T) {
	due := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	method := "bank transfer"

	base := func() *models.ScheduleEntry {
		return &models.ScheduleEntry{
			ID:             "e-1",
			CounterpartyID: "cp-1",
			InvoiceRef:     "2024/015",
			AmountTotal:    1000.00,
			AmountPaid:     400.00,
			DateDue:        due,
			Status:         models.StatusPartial,
			PaymentMethod:  &method,
		}
	}

	a, b := base(), base()
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	// insert-only fields do not participate
	b.PlannedDate = due.AddDate(0, 1, 0)
	b.CreatedAt = time.Now()
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	// any mutable field changes the digest
	b = base()
	b.AmountPaid = 1000.00
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))

	b = base()
	b.Notes = strp("sollecito inviato")
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))

	b = base()
	b.DateDue = due.AddDate(0, 0, 15)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func strp(s string) *string { return &s }
