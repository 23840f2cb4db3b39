package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
)

// deliveryNotePattern pulls delivery note numbers out of free-text invoice
// line descriptions ("DDT n. 123 del ...", "Rif. bolla nr 45").
var deliveryNotePattern = regexp.MustCompile(`(?i)(?:DDT|Doc|Bolla|Rif)\.?\s*(?:n\.?|nr\.?)?\s*0*(\d+)`)

// invoiceDocument is the subset of an electronic invoice file this engine
// cares about. Tag paths use local names only, so namespace prefixes in the
// wild do not matter.
type invoiceDocument struct {
	Supplier string        `xml:"FatturaElettronicaHeader>CedentePrestatore>DatiAnagrafici>Anagrafica>Denominazione"`
	Bodies   []invoiceBody `xml:"FatturaElettronicaBody"`
}

type invoiceBody struct {
	Number   string        `xml:"DatiGenerali>DatiGeneraliDocumento>Numero"`
	Date     string        `xml:"DatiGenerali>DatiGeneraliDocumento>Data"`
	Total    string        `xml:"DatiGenerali>DatiGeneraliDocumento>ImportoTotaleDocumento"`
	Lines    []invoiceLine `xml:"DatiBeniServizi>DettaglioLinee"`
	Payments []paymentTerm `xml:"DatiPagamento>DettaglioPagamento"`
}

type invoiceLine struct {
	Description string `xml:"Descrizione"`
}

type paymentTerm struct {
	DueDate string `xml:"DataScadenzaPagamento"`
	Method  string `xml:"ModalitaPagamento"`
}

// InvoiceXMLSource reads a directory of electronic invoice XML files. Every
// document body becomes one source row; delivery note references found in the
// line descriptions are carried along in the notes field.
type InvoiceXMLSource struct {
	cfg Config
}

// NewInvoiceXMLSource creates an invoice XML adapter for a source declaration.
func NewInvoiceXMLSource(cfg Config) *InvoiceXMLSource {
	return &InvoiceXMLSource{cfg: cfg}
}

func (s *InvoiceXMLSource) Tag() string {
	return s.cfg.Tag
}

func (s *InvoiceXMLSource) Role() string {
	return s.cfg.Role
}

// Read parses every .xml file under the configured path, in name order so row
// positions are stable across runs.
func (s *InvoiceXMLSource) Read(ctx context.Context) ([]*models.SourceRow, error) {
	matches, err := filepath.Glob(filepath.Join(s.cfg.Path, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice files for source %s: %w", s.cfg.Tag, err)
	}
	sort.Strings(matches)

	var rows []*models.SourceRow
	position := 0
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read invoice file %s: %w", filepath.Base(path), err)
		}

		var doc invoiceDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse invoice file %s: %w", filepath.Base(path), err)
		}

		for _, body := range doc.Bodies {
			rows = append(rows, s.buildRow(doc.Supplier, body, position))
			position++
		}
	}
	return rows, nil
}

func (s *InvoiceXMLSource) buildRow(supplier string, body invoiceBody, position int) *models.SourceRow {
	row := &models.SourceRow{
		SourceTag:        s.cfg.Tag,
		Index:            position,
		CounterpartyText: normalize.Text(supplier),
		InvoiceRefRaw:    strings.TrimSpace(body.Number),
		InvoiceRefNorm:   normalize.InvoiceRef(body.Number),
		AmountTotal:      normalize.Amount(body.Total),
		DateIssued:       normalize.Date(body.Date),
		Notes:            deliveryNotes(body.Lines),
	}
	for _, term := range body.Payments {
		if row.DateDue == nil {
			row.DateDue = normalize.Date(term.DueDate)
		}
		if row.PaymentMethod == "" {
			row.PaymentMethod = normalize.Text(term.Method)
		}
	}
	return row
}

// deliveryNotes extracts delivery note numbers from line descriptions,
// deduplicated in first-seen order.
func deliveryNotes(lines []invoiceLine) string {
	seen := make(map[string]bool)
	var refs []string
	for _, line := range lines {
		for _, match := range deliveryNotePattern.FindAllStringSubmatch(line.Description, -1) {
			number := match[1]
			if seen[number] {
				continue
			}
			seen[number] = true
			refs = append(refs, "DDT "+number)
		}
	}
	return strings.Join(refs, ", ")
}
