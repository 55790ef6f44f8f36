package tariff

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tsvRows(n int, value func(row, hour int) string) string {
	var sb strings.Builder
	for r := 0; r < n; r++ {
		for h := 0; h < HoursPerDay; h++ {
			if h > 0 {
				sb.WriteByte('\t')
			}
			sb.WriteString(value(r, h))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestLoadTSV_Price(t *testing.T) {
	data := tsvRows(2, func(r, h int) string {
		if r == 0 {
			return "1.25"
		}
		return "0.75"
	})

	tbl, err := LoadTSV(strings.NewReader(data), ByWeekday)
	require.NoError(t, err)
	assert.Equal(t, 1.25, tbl.Rate(time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0.75, tbl.Rate(time.Date(2024, 5, 11, 12, 0, 0, 0, time.UTC)))
}

func TestLoadTSV_CarbonWithComment(t *testing.T) {
	data := "# month x hour, gCO2/kWh\n" + tsvRows(12, func(r, h int) string {
		if r == 6 && h == 13 {
			return "42"
		}
		return "150"
	})

	tbl, err := LoadTSV(strings.NewReader(data), ByMonth)
	require.NoError(t, err)
	assert.Equal(t, 42.0, tbl.Rate(time.Date(2024, 7, 1, 13, 30, 0, 0, time.UTC)))
	assert.Equal(t, 150.0, tbl.Rate(time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)))
}

func TestLoadTSV_Errors(t *testing.T) {
	_, err := LoadTSV(strings.NewReader(tsvRows(2, func(int, int) string { return "x" })), ByWeekday)
	assert.Error(t, err)

	_, err = LoadTSV(strings.NewReader(tsvRows(3, func(int, int) string { return "1" })), ByWeekday)
	assert.ErrorIs(t, err, ErrShape)

	_, err = LoadTSV(strings.NewReader("1\t2\t3\n1\t2\t3\n"), ByWeekday)
	assert.ErrorIs(t, err, ErrShape)
}

func TestWriteTSV_RoundTrip(t *testing.T) {
	orig := monthTable(t)

	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, orig))

	back, err := LoadTSV(&buf, ByMonth)
	require.NoError(t, err)
	assert.Equal(t, orig, back)

	assert.ErrorIs(t, WriteTSV(&buf, Scalar(1)), ErrShape)
}

func TestLoadTSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price.tsv")
	require.NoError(t, os.WriteFile(path, []byte(tsvRows(2, func(int, int) string { return "2" })), 0o644))

	tbl, err := LoadTSVFile(path, ByWeekday)
	require.NoError(t, err)
	assert.Equal(t, 2.0, tbl.Rate(time.Now()))

	_, err = LoadTSVFile(filepath.Join(t.TempDir(), "missing.tsv"), ByWeekday)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
