package scrape

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobcarbon.prom")
	res := Result{
		Watermark:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		FilesRead:    2,
		FilesMissing: 1,
		RowsInserted: 17,
		Finished:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, WriteMetrics(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# TYPE jobcarbon_scrape_rows_inserted gauge")
	assert.Contains(t, text, "jobcarbon_scrape_rows_inserted 17")
	assert.Contains(t, text, "jobcarbon_scrape_files_read 2")
	assert.Contains(t, text, "jobcarbon_scrape_files_missing 1")
	assert.Contains(t, text, "jobcarbon_scrape_last_run_timestamp_seconds")
}

func TestWriteMetrics_BadPath(t *testing.T) {
	err := WriteMetrics(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"), Result{})
	assert.Error(t, err)
}
