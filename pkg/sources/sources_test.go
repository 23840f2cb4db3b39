package sources

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - tag: report
    kind: xls
    path: data/scadenzario.xls
    sheet: 1
    role: existence
    skip_settled: true
  - tag: cash
    kind: csv
    path: data/cassa.csv
    role: payment
    columns:
      counterparty: ["beneficiario"]
`), 0o644))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, manifest.Sources, 2)

	report := manifest.Sources[0]
	assert.Equal(t, "report", report.Tag)
	assert.Equal(t, KindXLS, report.Kind)
	assert.Equal(t, 1, report.Sheet)
	assert.True(t, report.SkipSettled)

	cash := manifest.Sources[1]
	assert.Equal(t, RolePayment, cash.Role)
	assert.Equal(t, []string{"beneficiario"}, cash.Columns[FieldCounterparty])
}

func TestLoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown kind",
			yaml: "sources:\n  - {tag: a, kind: parquet, path: x, role: existence}\n",
		},
		{
			name: "missing role",
			yaml: "sources:\n  - {tag: a, kind: csv, path: x}\n",
		},
		{
			name: "no sources",
			yaml: "sources: []\n",
		},
		{
			name: "duplicate tags",
			yaml: "sources:\n  - {tag: a, kind: csv, path: x, role: existence}\n  - {tag: a, kind: csv, path: y, role: payment}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "sources.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadManifest(path)
			assert.Error(t, err)
		})
	}
}

func TestCSVSource_Read(t *testing.T) {
	csv := strings.Join([]string{
		"Fornitore,Numero Fattura,Importo Totale,Pagato,Scadenza,Saldato,Note",
		`ACME Srl,2024/015,"1.234,56","400,00",31/03/2024,,prima rata`,
		"Beta SpA,2024/020,500,500,15/04/2024,x,",
	}, "\n")

	dir := t.TempDir()
	path := filepath.Join(dir, "cassa.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	src := NewCSVSource(Config{Tag: "cash", Kind: KindCSV, Path: path, Role: RolePayment})
	rows, err := src.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "cash", first.SourceTag)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "acme srl", first.CounterpartyText)
	assert.Equal(t, "2024/015", first.InvoiceRefRaw)
	assert.Equal(t, "2024015", first.InvoiceRefNorm)
	assert.Equal(t, 1234.56, first.AmountTotal)
	assert.Equal(t, 400.00, first.AmountPaid)
	require.NotNil(t, first.DateDue)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), *first.DateDue)
	assert.Equal(t, models.Unknown, first.Settled)
	assert.Equal(t, "prima rata", first.Notes)

	assert.Equal(t, models.True, rows[1].Settled)
}

func TestCSVSource_Read_SkipSettled(t *testing.T) {
	csv := strings.Join([]string{
		"Fornitore,Importo,Saldato",
		"ACME Srl,100,",
		"Beta SpA,200,x",
		"Gamma Snc,300,",
	}, "\n")

	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	src := NewCSVSource(Config{Tag: "report", Kind: KindCSV, Path: path, Role: RoleExistence, SkipSettled: true})
	rows, err := src.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "acme srl", rows[0].CounterpartyText)
	assert.Equal(t, "gamma snc", rows[1].CounterpartyText)

	// skipped rows still consume a position
	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, 2, rows[1].Index)
}

func TestCSVSource_Read_ColumnOverride(t *testing.T) {
	csv := "Beneficiario,Importo\nACME Srl,100\n"

	dir := t.TempDir()
	path := filepath.Join(dir, "cassa.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	src := NewCSVSource(Config{
		Tag:     "cash",
		Kind:    KindCSV,
		Path:    path,
		Role:    RolePayment,
		Columns: map[string][]string{FieldCounterparty: {"beneficiario"}},
	})
	rows, err := src.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "acme srl", rows[0].CounterpartyText)
}

const sampleInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<p:FatturaElettronica xmlns:p="http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2" versione="FPR12">
  <FatturaElettronicaHeader>
    <CedentePrestatore>
      <DatiAnagrafici>
        <Anagrafica>
          <Denominazione>ACME Srl</Denominazione>
        </Anagrafica>
      </DatiAnagrafici>
    </CedentePrestatore>
  </FatturaElettronicaHeader>
  <FatturaElettronicaBody>
    <DatiGenerali>
      <DatiGeneraliDocumento>
        <Data>2024-01-15</Data>
        <Numero>2024/015</Numero>
        <ImportoTotaleDocumento>1000.00</ImportoTotaleDocumento>
      </DatiGeneraliDocumento>
    </DatiGenerali>
    <DatiBeniServizi>
      <DettaglioLinee>
        <Descrizione>Fornitura materiale rif. DDT n. 0123 del 10/01/2024</Descrizione>
      </DettaglioLinee>
      <DettaglioLinee>
        <Descrizione>Trasporto come da bolla nr 45</Descrizione>
      </DettaglioLinee>
      <DettaglioLinee>
        <Descrizione>Fornitura DDT 123 seconda consegna</Descrizione>
      </DettaglioLinee>
    </DatiBeniServizi>
    <DatiPagamento>
      <DettaglioPagamento>
        <ModalitaPagamento>MP05</ModalitaPagamento>
        <DataScadenzaPagamento>2024-03-31</DataScadenzaPagamento>
      </DettaglioPagamento>
    </DatiPagamento>
  </FatturaElettronicaBody>
</p:FatturaElettronica>`

func TestInvoiceXMLSource_Read(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "IT123_0001.xml"), []byte(sampleInvoice), 0o644))

	src := NewInvoiceXMLSource(Config{Tag: "invoices", Kind: KindInvoiceXML, Path: dir, Role: RoleExistence})
	rows, err := src.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "acme srl", row.CounterpartyText)
	assert.Equal(t, "2024/015", row.InvoiceRefRaw)
	assert.Equal(t, "2024015", row.InvoiceRefNorm)
	assert.Equal(t, 1000.00, row.AmountTotal)
	require.NotNil(t, row.DateIssued)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *row.DateIssued)
	require.NotNil(t, row.DateDue)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), *row.DateDue)
	assert.Equal(t, "mp05", row.PaymentMethod)

	// delivery note references, deduplicated, leading zeros stripped
	assert.Equal(t, "DDT 123, DDT 45", row.Notes)
}

func TestInvoiceXMLSource_Read_EmptyDir(t *testing.T) {
	src := NewInvoiceXMLSource(Config{Tag: "invoices", Kind: KindInvoiceXML, Path: t.TempDir(), Role: RoleExistence})
	rows, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNew_Factory(t *testing.T) {
	xlsSrc, err := New(Config{Tag: "a", Kind: KindXLS, Path: "x", Role: RoleExistence})
	require.NoError(t, err)
	assert.IsType(t, &XLSSource{}, xlsSrc)

	csvSrc, err := New(Config{Tag: "b", Kind: KindCSV, Path: "x", Role: RolePayment})
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, csvSrc)

	xmlSrc, err := New(Config{Tag: "c", Kind: KindInvoiceXML, Path: "x", Role: RoleExistence})
	require.NoError(t, err)
	assert.IsType(t, &InvoiceXMLSource{}, xmlSrc)

	_, err = New(Config{Tag: "d", Kind: "parquet", Path: "x", Role: RoleExistence})
	assert.Error(t, err)
}
