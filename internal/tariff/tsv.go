package tariff

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadTSV reads a header-less, tab-separated table with one row per
// category and one column per hour of the day.
func LoadTSV(r io.Reader, b Bucketing) (Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	var rows [][]float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read %s table: %w", b, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := make([]float64, 0, len(record))
		for col, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return Table{}, fmt.Errorf("%s table row %d column %d: %w", b, len(rows), col, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}

	return NewTable(b, rows)
}

// LoadTSVFile reads a table from path with LoadTSV.
func LoadTSVFile(path string, b Bucketing) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open %s table: %w", b, err)
	}
	defer func() { _ = f.Close() }()

	t, err := LoadTSV(f, b)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteTSV writes a bucketed table in the format read by LoadTSV.
func WriteTSV(w io.Writer, t Table) error {
	if t.IsScalar() {
		return fmt.Errorf("%w: scalar tables have no rows", ErrShape)
	}
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	for _, row := range t.rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := writer.Write(fields); err != nil {
			return fmt.Errorf("write %s table: %w", t.bucketing, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
