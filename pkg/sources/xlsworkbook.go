package sources

import (
	"context"
	"fmt"
	"os"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/extrame/xls"
)

// headerScanDepth bounds how far down a sheet the header row is searched for.
const headerScanDepth = 20

// XLSSource reads one sheet of a legacy Excel workbook. The header row is not
// assumed to be the first row: title banners above the table are common, so
// the adapter scans for the first row that matches at least two known columns.
type XLSSource struct {
	cfg Config
}

// NewXLSSource creates an XLS adapter for a source declaration.
func NewXLSSource(cfg Config) *XLSSource {
	return &XLSSource{cfg: cfg}
}

func (s *XLSSource) Tag() string {
	return s.cfg.Tag
}

func (s *XLSSource) Role() string {
	return s.cfg.Role
}

// Read parses the configured sheet into normalized rows. With SkipSettled set,
// rows already marked settled are ignored at read time.
func (s *XLSSource) Read(ctx context.Context) ([]*models.SourceRow, error) {
	file, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xls source %s: %w", s.cfg.Tag, err)
	}
	defer file.Close()

	workbook, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook for source %s: %w", s.cfg.Tag, err)
	}
	if s.cfg.Sheet >= workbook.NumSheets() {
		return nil, fmt.Errorf("source %s: sheet %d not found (workbook has %d)", s.cfg.Tag, s.cfg.Sheet, workbook.NumSheets())
	}
	sheet := workbook.GetSheet(s.cfg.Sheet)
	if sheet == nil {
		return nil, fmt.Errorf("source %s: sheet %d could not be read", s.cfg.Tag, s.cfg.Sheet)
	}

	maxRow := int(sheet.MaxRow)
	headerAt, index := s.findHeader(sheet, maxRow)
	if headerAt < 0 {
		return nil, fmt.Errorf("source %s: no header row found in sheet %d", s.cfg.Tag, s.cfg.Sheet)
	}

	var rows []*models.SourceRow
	position := 0
	for i := headerAt + 1; i <= maxRow; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record := rowCells(sheet, i)
		if record == nil {
			continue
		}

		row := buildRow(s.cfg, index, record, position)
		position++
		if s.cfg.SkipSettled && row.Settled.Bool() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// findHeader locates the header row and resolves the column index from it.
func (s *XLSSource) findHeader(sheet *xls.WorkSheet, maxRow int) (int, map[string]int) {
	for i := 0; i <= maxRow && i < headerScanDepth; i++ {
		record := rowCells(sheet, i)
		if record == nil {
			continue
		}
		index := columnIndex(s.cfg, record)
		if len(index) >= 2 {
			return i, index
		}
	}
	return -1, nil
}

// rowCells reads one sheet row into a string slice, nil for absent rows.
func rowCells(sheet *xls.WorkSheet, i int) []string {
	row := sheet.Row(i)
	if row == nil {
		return nil
	}
	last := row.LastCol()
	if last == 0 {
		return nil
	}
	cells := make([]string, last)
	for col := 0; col < last; col++ {
		cells[col] = row.Col(col)
	}
	return cells
}
