package sources

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Source kinds supported by the adapter factory.
const (
	KindXLS        = "xls"
	KindCSV        = "csv"
	KindInvoiceXML = "invoice_xml"
)

// Roles a source plays during the merge. One source enumerates obligations,
// the other is trusted for payment state.
const (
	RoleExistence = "existence"
	RolePayment   = "payment"
)

// Canonical field keys used by the column alias tables.
const (
	FieldCounterparty  = "counterparty"
	FieldCostCenter    = "cost_center"
	FieldInvoiceRef    = "invoice_ref"
	FieldAmountTotal   = "amount_total"
	FieldAmountPaid    = "amount_paid"
	FieldDateIssued    = "date_issued"
	FieldDateDue       = "date_due"
	FieldDatePaid      = "date_paid"
	FieldSettled       = "settled"
	FieldPaymentMethod = "payment_method"
	FieldNotes         = "notes"
)

// Config declares one source in the manifest.
type Config struct {
	Tag         string              `yaml:"tag" validate:"required"`
	Kind        string              `yaml:"kind" validate:"required,oneof=xls csv invoice_xml"`
	Path        string              `yaml:"path" validate:"required"`
	Sheet       int                 `yaml:"sheet"`
	Role        string              `yaml:"role" validate:"required,oneof=existence payment"`
	SkipSettled bool                `yaml:"skip_settled"`
	Columns     map[string][]string `yaml:"columns"`
}

// Manifest is the full set of sources for a run.
type Manifest struct {
	Sources []Config `yaml:"sources" validate:"required,min=1,dive"`
}

// LoadManifest reads and validates a YAML source manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse source manifest: %w", err)
	}

	if err := validator.New().Struct(&manifest); err != nil {
		return nil, fmt.Errorf("invalid source manifest: %w", err)
	}

	tags := make(map[string]bool)
	for _, src := range manifest.Sources {
		if tags[src.Tag] {
			return nil, fmt.Errorf("invalid source manifest: duplicate tag %q", src.Tag)
		}
		tags[src.Tag] = true
	}

	return &manifest, nil
}

// Reader yields the normalized rows of one source.
type Reader interface {
	Tag() string
	Role() string
	Read(ctx context.Context) ([]*models.SourceRow, error)
}

// New builds the adapter for a source declaration.
func New(cfg Config) (Reader, error) {
	switch cfg.Kind {
	case KindXLS:
		return NewXLSSource(cfg), nil
	case KindCSV:
		return NewCSVSource(cfg), nil
	case KindInvoiceXML:
		return NewInvoiceXMLSource(cfg), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// defaultAliases maps canonical field keys to the header spellings seen in the
// workbooks and exports this engine ingests.
var defaultAliases = map[string][]string{
	FieldCounterparty:  {"fornitore", "ragione sociale", "soggetto", "supplier", "counterparty"},
	FieldCostCenter:    {"cantiere", "commessa", "centro di costo", "cost center"},
	FieldInvoiceRef:    {"numero fattura", "n. fattura", "n fattura", "fattura", "documento", "invoice"},
	FieldAmountTotal:   {"importo totale", "importo", "totale", "totale documento", "amount"},
	FieldAmountPaid:    {"importo pagato", "pagato", "acconto", "paid"},
	FieldDateIssued:    {"data emissione", "data fattura", "emissione", "data doc", "issue date"},
	FieldDateDue:       {"data scadenza", "scadenza", "due date"},
	FieldDatePaid:      {"data pagamento", "data pag", "paid date"},
	FieldSettled:       {"saldato", "saldata", "pagata", "settled"},
	FieldPaymentMethod: {"modalita pagamento", "modalità pagamento", "metodo", "payment method"},
	FieldNotes:         {"note", "notes", "descrizione"},
}

// columnIndex maps a canonical field to its position in a header row. Per
// source overrides take precedence over the default alias table; the first
// header cell matching any alias wins.
func columnIndex(cfg Config, headers []string) map[string]int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalize.Text(h)
	}

	index := make(map[string]int)
	for field, aliases := range defaultAliases {
		candidates := aliases
		if override, ok := cfg.Columns[field]; ok {
			candidates = override
		}
		for _, alias := range candidates {
			want := normalize.Text(alias)
			for i, h := range normalized {
				if h == want {
					index[field] = i
					break
				}
			}
			if _, ok := index[field]; ok {
				break
			}
		}
	}
	return index
}

// cell returns the raw cell value for a canonical field, or "".
func cell(row []string, index map[string]int, field string) string {
	i, ok := index[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// buildRow turns one raw record into a normalized source row.
func buildRow(cfg Config, index map[string]int, raw []string, position int) *models.SourceRow {
	refRaw := cell(raw, index, FieldInvoiceRef)
	return &models.SourceRow{
		SourceTag:        cfg.Tag,
		Index:            position,
		CounterpartyText: normalize.Text(cell(raw, index, FieldCounterparty)),
		CostCenterText:   normalize.Text(cell(raw, index, FieldCostCenter)),
		InvoiceRefRaw:    refRaw,
		InvoiceRefNorm:   normalize.InvoiceRef(refRaw),
		AmountTotal:      normalize.Amount(cell(raw, index, FieldAmountTotal)),
		AmountPaid:       normalize.Amount(cell(raw, index, FieldAmountPaid)),
		DateIssued:       normalize.Date(cell(raw, index, FieldDateIssued)),
		DateDue:          normalize.Date(cell(raw, index, FieldDateDue)),
		DatePaid:         normalize.Date(cell(raw, index, FieldDatePaid)),
		Settled:          normalize.Settled(cell(raw, index, FieldSettled)),
		PaymentMethod:    normalize.Text(cell(raw, index, FieldPaymentMethod)),
		Notes:            strings.TrimSpace(cell(raw, index, FieldNotes)),
	}
}
