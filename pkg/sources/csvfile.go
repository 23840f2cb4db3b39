package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/Ramsey-B/fern/pkg/models"
)

// CSVSource reads a header-mapped CSV export. The first record is the header
// row; columns are located through the alias tables.
type CSVSource struct {
	cfg Config
}

// NewCSVSource creates a CSV adapter for a source declaration.
func NewCSVSource(cfg Config) *CSVSource {
	return &CSVSource{cfg: cfg}
}

func (s *CSVSource) Tag() string {
	return s.cfg.Tag
}

func (s *CSVSource) Role() string {
	return s.cfg.Role
}

// Read parses the file into normalized rows. Ragged records are tolerated;
// short rows simply yield empty cells for the missing columns.
func (s *CSVSource) Read(ctx context.Context) ([]*models.SourceRow, error) {
	file, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv source %s: %w", s.cfg.Tag, err)
	}
	defer file.Close()

	return s.parse(ctx, file)
}

func (s *CSVSource) parse(ctx context.Context, r io.Reader) ([]*models.SourceRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header for source %s: %w", s.cfg.Tag, err)
	}
	index := columnIndex(s.cfg, headers)

	var rows []*models.SourceRow
	for position := 0; ; position++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv source %s: %w", s.cfg.Tag, err)
		}

		row := buildRow(s.cfg, index, record, position)
		if s.cfg.SkipSettled && row.Settled.Bool() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
