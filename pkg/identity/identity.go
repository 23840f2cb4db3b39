package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/google/uuid"
)

// AnonymousCounterparty is substituted into the identity key when a row's
// counterparty could not be resolved, so such rows still get stable IDs.
const AnonymousCounterparty = "anonymous"

// EntryID derives the deterministic primary key for a schedule entry. The key
// is a name-based UUID over counterparty identity, normalized invoice
// reference, and total amount rounded to cents, so the same obligation seen in
// any later run maps onto the same row.
func EntryID(counterpartyID, invoiceRefNorm string, amountTotal float64) string {
	cid := counterpartyID
	if cid == "" {
		cid = AnonymousCounterparty
	}
	key := fmt.Sprintf("%s_%s_%.2f", cid, invoiceRefNorm, amountTotal)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// PlaceholderRef synthesizes an invoice reference for rows that carry none.
// It folds in the origin tag, the counterparty text, and the row position, so
// two ref-less rows from the same origin never collide, yet the same row keeps
// the same reference across runs.
func PlaceholderRef(sourceTag, counterpartyText string, index int) string {
	name := normalize.InvoiceRef(counterpartyText)
	if name == "" {
		name = AnonymousCounterparty
	}
	return fmt.Sprintf("auto %s %s %d", strings.ToLower(sourceTag), name, index)
}

// Fingerprint hashes the mutable fields of an entry into a short digest.
// Two entries with equal fingerprints need no update, which is what lets a
// repeated run write nothing.
func Fingerprint(entry *models.ScheduleEntry) string {
	var b strings.Builder

	writeField(&b, fmt.Sprintf("%.2f", entry.AmountTotal))
	writeField(&b, fmt.Sprintf("%.2f", entry.AmountPaid))
	writeField(&b, string(entry.Status))
	writeField(&b, entry.InvoiceRef)
	writeField(&b, entry.CounterpartyID)
	writeField(&b, strPtr(entry.CostCenterID))
	writeField(&b, datePtr(entry.DateIssued))
	writeField(&b, entry.DateDue.Format(time.DateOnly))
	writeField(&b, datePtr(entry.DatePaid))
	writeField(&b, strPtr(entry.PaymentMethod))
	writeField(&b, strPtr(entry.Notes))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeField(b *strings.Builder, v string) {
	b.WriteString(v)
	b.WriteByte('|')
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func datePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
