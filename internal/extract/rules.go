/**
 * Per-field extraction rule tables
 *
 * Each field kind owns an ordered list of rules (pattern, anchor strategy,
 * validator); the first candidate that validates wins. New card layouts are
 * supported by appending rules, not by branching extractor logic.
 */

package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// document is the parsed view of one OCR text, shared across field rules.
// Anchor line indexes are filled in as anchor fields resolve, in fieldOrder.
type document struct {
	text    string
	lines   []string
	idLine  int
	dobLine int
}

func newDocument(text string) *document {
	return &document{
		text:    text,
		lines:   strings.Split(text, "\n"),
		idLine:  -1,
		dobLine: -1,
	}
}

// candidate is one potential field value in reading order.
type candidate struct {
	raw  string
	line int // line index of the match, -1 when unknown
}

// fieldRule is one entry of a per-field rule table.
type fieldRule struct {
	strategy Strategy
	// match returns candidates in raster top-to-bottom reading order.
	match func(d *document) []candidate
	// validate normalizes and validates a candidate. Returned warnings are
	// attached to the record even when validation succeeds.
	validate func(e *Extractor, d *document, c candidate) (Field, []string, bool)
	// warnAmbiguous records a warning when match yields several distinct
	// candidates and the first is used.
	warnAmbiguous bool
}

var (
	// Twelve digits in groups of four, optionally space- or hyphen-
	// separated. Digit count and checksum are enforced by the validator,
	// not the pattern.
	reAadhaar = regexp.MustCompile(`\b[0-9]{4}[ -]?[0-9]{4}[ -]?[0-9]{4}\b`)

	reDOBLabeled = regexp.MustCompile(`(?i)(?:DOB|D\.?O\.?B\.?|Date of Birth|जन्म\s*तिथि)\s*[:।.]?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{4})`)
	reDOBBare    = regexp.MustCompile(`\b(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{4})\b`)
	reYearOnly   = regexp.MustCompile(`(?i)(?:Year of Birth|YoB)\s*[:।.]?\s*((?:19|20)\d{2})`)

	reGender = regexp.MustCompile(`(?i)\bfemale\b|\bmale\b|\btransgender\b|महिला|पुरुष|किन्नर`)

	reNameLabeled = regexp.MustCompile(`(?im)^(?:Name|नाम)\s*[:।]?\s*(.+)$`)

	// Characters tolerated inside a name after noise trimming.
	reNameNoise = regexp.MustCompile(`[^\p{L} .'\-]+`)
)

// nameStopTokens are label words that disqualify a line as a name candidate.
var nameStopTokens = map[string]bool{
	"GOVERNMENT": true, "INDIA": true, "INDIAN": true,
	"UNIQUE": true, "IDENTIFICATION": true, "AUTHORITY": true,
	"AADHAAR": true, "AADHAR": true, "UIDAI": true, "VID": true,
	"ENROLLMENT": true, "ENROLMENT": true, "DOWNLOAD": true, "ISSUE": true,
	"DOB": true, "BIRTH": true, "YEAR": true, "DATE": true,
	"MALE": true, "FEMALE": true, "TRANSGENDER": true,
	"FATHER": true, "MOTHER": true, "ADDRESS": true,
	"भारत": true, "सरकार": true, "पुरुष": true, "महिला": true,
}

// reNameCut truncates a label-captured name at trailing card text the OCR
// merged onto the same line. Latin tokens match on word boundaries so names
// embedding one ("Kamalesh") survive; \b is ASCII-only in RE2, so the
// Devanagari tokens match bare.
var reNameCut = regexp.MustCompile(`(?i)\b(?:DOB|Date of Birth|Year|Birth|Father|Mother|Male|Female|Transgender)\b|पिता|माता|जन्म|पुरुष|महिला`)

var fieldRules = map[FieldKind][]fieldRule{
	FieldIDNumber: {
		{
			strategy:      StrategyPrimaryPattern,
			match:         matchAadhaarPattern,
			validate:      validateIDNumber,
			warnAmbiguous: true,
		},
		{
			strategy: StrategyFallbackHeuristic,
			match:    matchDigitRunLines,
			validate: validateIDNumber,
		},
	},
	FieldDateOfBirth: {
		{
			strategy: StrategyPrimaryPattern,
			match:    matchLines(reDOBLabeled, 1),
			validate: validateDOB,
		},
		{
			strategy: StrategyFallbackHeuristic,
			match:    matchLines(reDOBBare, 1),
			validate: validateDOB,
		},
		{
			strategy: StrategyFallbackHeuristic,
			match:    matchLines(reYearOnly, 1),
			validate: validateYearOnly,
		},
	},
	FieldGender: {
		{
			strategy: StrategyPrimaryPattern,
			match:    matchLines(reGender, 0),
			validate: validateGender,
		},
	},
	FieldName: {
		{
			strategy: StrategyPrimaryPattern,
			match:    matchLines(reNameLabeled, 1),
			validate: validateLabeledName,
		},
		{
			strategy: StrategyFallbackHeuristic,
			match:    matchNameAboveAnchor,
			validate: validateHeuristicName,
		},
	},
}

// matchLines applies a regexp line by line so candidates carry positions in
// reading order. group selects the submatch used as the raw value (0 for
// the whole match).
func matchLines(re *regexp.Regexp, group int) func(d *document) []candidate {
	return func(d *document) []candidate {
		var out []candidate
		for i, line := range d.lines {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				if group < len(m) && m[group] != "" {
					out = append(out, candidate{raw: m[group], line: i})
				}
			}
		}
		return out
	}
}

func matchAadhaarPattern(d *document) []candidate {
	return matchLines(reAadhaar, 0)(d)
}

// matchDigitRunLines catches ID numbers the engine fractured with stray
// separators: any line whose digits alone form a 12-digit run.
func matchDigitRunLines(d *document) []candidate {
	var out []candidate
	for i, line := range d.lines {
		digits := digitsOnly(line)
		if len(digits) != 12 {
			continue
		}
		if digitRatio(line) < 0.6 {
			continue
		}
		out = append(out, candidate{raw: strings.TrimSpace(line), line: i})
	}
	return out
}

func validateIDNumber(e *Extractor, d *document, c candidate) (Field, []string, bool) {
	digits := digitsOnly(c.raw)
	if len(digits) != 12 {
		return Field{}, nil, false
	}
	if e.checksum != nil && !e.checksum(digits) {
		return Field{}, []string{fmt.Sprintf("ID candidate %q failed checksum validation", maskDigits(digits))}, false
	}

	d.idLine = c.line
	return Field{
		Kind:     FieldIDNumber,
		Found:    true,
		RawValue: c.raw,
		Value:    fmt.Sprintf("%s %s %s", digits[0:4], digits[4:8], digits[8:12]),
	}, nil, true
}

func validateDOB(e *Extractor, d *document, c candidate) (Field, []string, bool) {
	t, ok := parseCardDate(c.raw)
	if !ok {
		return Field{}, []string{fmt.Sprintf("date token %q is not a plausible calendar date", c.raw)}, false
	}

	d.dobLine = c.line
	return Field{
		Kind:     FieldDateOfBirth,
		Found:    true,
		RawValue: c.raw,
		Value:    t.Format("2006-01-02"),
		Date:     &t,
	}, nil, true
}

func validateYearOnly(e *Extractor, d *document, c candidate) (Field, []string, bool) {
	year := atoi(c.raw)
	if year < 1900 || year > time.Now().Year() {
		return Field{}, nil, false
	}

	d.dobLine = c.line
	return Field{
		Kind:     FieldDateOfBirth,
		Found:    true,
		RawValue: c.raw,
		Value:    c.raw,
	}, []string{"only year of birth present on card; full date unavailable"}, true
}

func validateGender(e *Extractor, d *document, c candidate) (Field, []string, bool) {
	var value string
	switch strings.ToLower(c.raw) {
	case "male", "पुरुष":
		value = "Male"
	case "female", "महिला":
		value = "Female"
	case "transgender", "किन्नर":
		value = "Transgender"
	default:
		return Field{}, nil, false
	}
	return Field{
		Kind:     FieldGender,
		Found:    true,
		RawValue: c.raw,
		Value:    value,
	}, nil, true
}

func validateLabeledName(e *Extractor, d *document, c candidate) (Field, []string, bool) {
	raw := c.raw
	// OCR often merges the next label onto the name line; cut there.
	cut := len(raw)
	if loc := reNameCut.FindStringIndex(raw); loc != nil {
		cut = loc[0]
	}
	return buildNameField(raw[:cut], c.raw)
}

// matchNameAboveAnchor scans upward from the DOB line (or the ID line when
// no DOB anchor resolved) for the nearest line of predominantly alphabetic
// tokens that is not card boilerplate.
func matchNameAboveAnchor(d *document) []candidate {
	anchor := d.dobLine
	if anchor < 0 {
		anchor = d.idLine
	}
	if anchor < 0 {
		return nil
	}

	var out []candidate
	for i := anchor - 1; i >= 0; i-- {
		line := strings.TrimSpace(d.lines[i])
		if line == "" {
			continue
		}
		if isLabelLine(line) || !predominantlyAlphabetic(line) {
			continue
		}
		out = append(out, candidate{raw: line, line: i})
	}
	return out
}

func validateHeuristicName(e *Extractor, d *document, c candidate) (Field, []string, bool) {
	f, warnings, ok := buildNameField(c.raw, c.raw)
	if !ok {
		return f, warnings, false
	}
	warnings = append(warnings, "name selected by position heuristic; best-effort only")
	return f, warnings, true
}

func buildNameField(value, raw string) (Field, []string, bool) {
	name := cleanName(value)
	if name == "" {
		return Field{}, nil, false
	}
	return Field{
		Kind:     FieldName,
		Found:    true,
		RawValue: strings.TrimSpace(raw),
		Value:    name,
	}, nil, true
}

// cleanName strips residual OCR noise and rejects strings that do not look
// like a person's name.
func cleanName(s string) string {
	s = reNameNoise.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " .'-")
	if len(s) < 3 || len(s) > 60 {
		return ""
	}
	if !predominantlyAlphabetic(s) || isLabelLine(s) {
		return ""
	}
	return s
}

func isLabelLine(line string) bool {
	for _, tok := range strings.Fields(strings.ToUpper(line)) {
		tok = strings.Trim(tok, ".:,;।")
		if nameStopTokens[tok] {
			return true
		}
	}
	return false
}

func predominantlyAlphabetic(s string) bool {
	letters, total := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 3 || total == 0 {
		return false
	}
	return float64(letters)/float64(total) >= 0.7
}

// parseCardDate parses a day/month/year token and rejects impossible dates
// rather than clamping them.
func parseCardDate(s string) (time.Time, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, month, year := atoi(parts[0]), atoi(parts[1]), atoi(parts[2])
	if year < 1900 || year > time.Now().Year() {
		return time.Time{}, false
	}
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	if day < 1 || day > daysInMonth(month, year) {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

func daysInMonth(month, year int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	default:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

func digitRatio(s string) float64 {
	digits, total := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// maskDigits hides all but the last four digits in log and warning output.
func maskDigits(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("X", len(digits)-4) + digits[len(digits)-4:]
}
