/**
 * Extraction data model
 *
 * An ExtractionRecord carries exactly one slot per field kind: either found
 * with a validated value, or explicitly marked not-found. Field-level misses
 * are never errors; they surface as warnings on the record.
 */

package extract

import "time"

// FieldKind identifies one of the target identity fields
type FieldKind string

const (
	FieldIDNumber    FieldKind = "ID_NUMBER"
	FieldName        FieldKind = "NAME"
	FieldDateOfBirth FieldKind = "DATE_OF_BIRTH"
	FieldGender      FieldKind = "GENDER"
)

// fieldOrder fixes extraction order: anchors (ID, DOB) are resolved before
// the name heuristic that positions itself relative to them.
var fieldOrder = []FieldKind{FieldIDNumber, FieldDateOfBirth, FieldGender, FieldName}

// Strategy records which rule produced a field value
type Strategy string

const (
	StrategyPrimaryPattern    Strategy = "primary_pattern"
	StrategyFallbackHeuristic Strategy = "fallback_heuristic"
)

// Field is one extracted field slot
type Field struct {
	Kind     FieldKind  `json:"kind"`
	Found    bool       `json:"found"`
	RawValue string     `json:"raw_value,omitempty"` // as matched in the OCR text
	Value    string     `json:"value,omitempty"`     // normalized, validated form
	Date     *time.Time `json:"date,omitempty"`      // set for DATE_OF_BIRTH with a full calendar date; nil for year-only
	Strategy Strategy   `json:"strategy,omitempty"`
}

// Record is the aggregate result of one extraction. Immutable after
// construction; ownership transfers to the caller.
type Record struct {
	InvocationID string              `json:"invocation_id,omitempty"`
	Success      bool                `json:"success"`
	Fields       map[FieldKind]Field `json:"fields"`
	Warnings     []string            `json:"warnings,omitempty"`
	Language     string              `json:"language,omitempty"`   // OCR language model used
	Confidence   float64             `json:"confidence,omitempty"` // engine-reported, -1 when unknown
}

// Field returns the slot for the given kind; every kind is always present.
func (r *Record) Field(kind FieldKind) Field {
	return r.Fields[kind]
}

// FoundCount reports how many of the four fields were extracted.
func (r *Record) FoundCount() int {
	n := 0
	for _, f := range r.Fields {
		if f.Found {
			n++
		}
	}
	return n
}

// newRecord builds a record with every field slot pre-populated as not-found.
func newRecord() *Record {
	fields := make(map[FieldKind]Field, len(fieldOrder))
	for _, kind := range fieldOrder {
		fields[kind] = Field{Kind: kind}
	}
	return &Record{Fields: fields}
}
