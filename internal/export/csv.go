/**
 * CSV export of extraction records
 *
 * Presentation-layer concern: consumes immutable ExtractionRecords from the
 * pipeline and appends them to a tabular log. The core owns no persisted
 * state; this writer belongs to the CLI caller.
 */

package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/kycstack/aadhaar-extractor/internal/extract"
)

var csvHeader = []string{"timestamp", "invocation_id", "aadhaar_number", "name", "dob", "gender", "success"}

// AppendCSV appends one record to the CSV log at path, writing the header
// when the file is new.
func AppendCSV(path string, rec *extract.Record, maskID bool) error {
	info, err := os.Stat(path)
	writeHeader := os.IsNotExist(err) || (err == nil && info.Size() == 0)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stat csv log: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	if err := w.Write(recordRow(rec, maskID)); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	return w.Error()
}

func recordRow(rec *extract.Record, maskID bool) []string {
	idValue := fieldValue(rec, extract.FieldIDNumber)
	if maskID && idValue != "" {
		idValue = MaskValue(idValue)
	}

	return []string{
		time.Now().UTC().Format(time.RFC3339),
		rec.InvocationID,
		idValue,
		fieldValue(rec, extract.FieldName),
		fieldValue(rec, extract.FieldDateOfBirth),
		fieldValue(rec, extract.FieldGender),
		fmt.Sprintf("%t", rec.Success),
	}
}

func fieldValue(rec *extract.Record, kind extract.FieldKind) string {
	f := rec.Field(kind)
	if !f.Found {
		return ""
	}
	return f.Value
}

// MaskValue renders an ID value for display with all but the last four
// digits hidden, for callers honoring the mask-id display option.
func MaskValue(value string) string {
	total := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			total++
		}
	}
	out := make([]rune, 0, len(value))
	seen := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			seen++
			if seen <= total-4 {
				out = append(out, 'X')
				continue
			}
		}
		out = append(out, r)
	}
	return string(out)
}
