/**
 * Field Extractor for the Aadhaar extraction worker
 *
 * Parses raw OCR text into the target field set using the ordered rule
 * tables in rules.go. Never fails hard: every field that cannot be
 * confidently extracted is marked not-found with a warning, because partial
 * information is more useful to the caller than an all-or-nothing failure.
 */

package extract

import (
	"fmt"
	"strings"

	"github.com/kycstack/aadhaar-extractor/internal/logging"
	"github.com/kycstack/aadhaar-extractor/internal/ocr"
)

// Config holds extractor configuration
type Config struct {
	// Checksum validates ID-number candidates; nil accepts any token with
	// the right digit count (for deployments where the authority rule is
	// unknown).
	Checksum ChecksumFunc
}

// Extractor parses OCR text into ExtractionRecords. Stateless and safe for
// concurrent use.
type Extractor struct {
	checksum ChecksumFunc
	logger   *logging.Logger
}

// NewExtractor creates a new field extractor
func NewExtractor(cfg Config, logger *logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{
		checksum: cfg.Checksum,
		logger:   logger,
	}
}

// Extract parses a recognition result into an ExtractionRecord.
func (e *Extractor) Extract(res *ocr.Result) *Record {
	rec := e.ExtractText(res.Text)
	rec.Language = res.Language
	rec.Confidence = res.Confidence
	rec.Warnings = append(rec.Warnings, res.Warnings...)
	return rec
}

// ExtractText runs the field rules over raw text. Split out from Extract so
// extraction rules are testable against text fixtures without an OCR
// engine.
func (e *Extractor) ExtractText(text string) *Record {
	rec := newRecord()

	cleaned := normalizeText(text)
	if cleaned == "" {
		rec.Success = false
		rec.Warnings = append(rec.Warnings, "no text detected in image")
		for _, kind := range fieldOrder {
			rec.Warnings = append(rec.Warnings, notFoundWarning(kind))
		}
		return rec
	}

	rec.Success = true
	doc := newDocument(cleaned)

	for _, kind := range fieldOrder {
		field, warnings, found := e.extractField(doc, kind)
		rec.Warnings = append(rec.Warnings, warnings...)
		if found {
			rec.Fields[kind] = field
		} else {
			rec.Warnings = append(rec.Warnings, notFoundWarning(kind))
		}
	}

	return rec
}

// extractField walks the ordered rule table for one field kind; the first
// candidate that validates wins.
func (e *Extractor) extractField(doc *document, kind FieldKind) (Field, []string, bool) {
	var warnings []string

	for _, rule := range fieldRules[kind] {
		candidates := rule.match(doc)
		if len(candidates) == 0 {
			continue
		}

		if rule.warnAmbiguous && distinctCandidates(candidates) > 1 {
			warnings = append(warnings,
				fmt.Sprintf("multiple %s-like tokens found; using first in reading order", kind))
		}

		for _, c := range candidates {
			field, vWarnings, ok := rule.validate(e, doc, c)
			warnings = append(warnings, vWarnings...)
			if ok {
				field.Strategy = rule.strategy
				return field, warnings, true
			}
		}
	}

	return Field{Kind: kind}, warnings, false
}

// distinctCandidates counts candidates that differ once separators are
// stripped, so the same number printed twice on a card does not look
// ambiguous.
func distinctCandidates(candidates []candidate) int {
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		key := digitsOnly(c.raw)
		if key == "" {
			key = strings.ToUpper(strings.TrimSpace(c.raw))
		}
		seen[key] = true
	}
	return len(seen)
}

func notFoundWarning(kind FieldKind) string {
	switch kind {
	case FieldIDNumber:
		return "ID number not found: no token passed digit-count and checksum validation"
	case FieldName:
		return "name not found: no plausible name line located"
	case FieldDateOfBirth:
		return "date of birth not found: no plausible date token located"
	case FieldGender:
		return "gender not found: no vocabulary match"
	default:
		return fmt.Sprintf("%s not found", kind)
	}
}
