package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kycstack/aadhaar-extractor/internal/extract"
)

func sampleRecord(t *testing.T) *extract.Record {
	t.Helper()
	ex := extract.NewExtractor(extract.Config{}, nil)
	rec := ex.ExtractText("GOVERNMENT OF INDIA\nRahul Kumar\nDOB: 15/08/1990\nMale\n1234 5678 9012")
	rec.InvocationID = "inv-test"
	return rec
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAppendCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extractions.csv")
	rec := sampleRecord(t)

	require.NoError(t, AppendCSV(path, rec, false))
	require.NoError(t, AppendCSV(path, rec, false))

	rows := readRows(t, path)
	require.Len(t, rows, 3, "one header plus two data rows")
	assert.Equal(t, csvHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "inv-test", row[1])
	assert.Equal(t, "1234 5678 9012", row[2])
	assert.Equal(t, "Rahul Kumar", row[3])
	assert.Equal(t, "1990-08-15", row[4])
	assert.Equal(t, "Male", row[5])
	assert.Equal(t, "true", row[6])
}

func TestAppendCSVMasked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extractions.csv")

	require.NoError(t, AppendCSV(path, sampleRecord(t), true))

	rows := readRows(t, path)
	assert.Equal(t, "XXXX XXXX 9012", rows[1][2])
}

func TestAppendCSVNotFoundFieldsBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extractions.csv")
	ex := extract.NewExtractor(extract.Config{}, nil)
	rec := ex.ExtractText("nothing useful")
	rec.InvocationID = "inv-empty"

	require.NoError(t, AppendCSV(path, rec, false))

	row := readRows(t, path)[1]
	assert.Equal(t, "", row[2])
	assert.Equal(t, "", row[3])
	assert.Equal(t, "", row[4])
	assert.Equal(t, "", row[5])
	assert.Equal(t, "true", row[6])
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "XXXX XXXX 9012", MaskValue("1234 5678 9012"))
	assert.Equal(t, "XXXXXXXX9012", MaskValue("123456789012"))
	assert.Equal(t, "9012", MaskValue("9012"))
	assert.Equal(t, "", MaskValue(""))
}
