package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kycstack/aadhaar-extractor/internal/ocr"
)

const sampleCardText = "GOVERNMENT OF INDIA\nRahul Kumar\nDOB: 15/08/1990\nMale\n1234 5678 9012"

func newTestExtractor(checksum ChecksumFunc) *Extractor {
	return NewExtractor(Config{Checksum: checksum}, nil)
}

func TestExtractFullCard(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText(sampleCardText)

	require.True(t, rec.Success)

	id := rec.Field(FieldIDNumber)
	require.True(t, id.Found)
	assert.Equal(t, "1234 5678 9012", id.Value)
	assert.Equal(t, StrategyPrimaryPattern, id.Strategy)

	dob := rec.Field(FieldDateOfBirth)
	require.True(t, dob.Found)
	assert.Equal(t, "1990-08-15", dob.Value)
	require.NotNil(t, dob.Date)
	assert.Equal(t, 1990, dob.Date.Year())

	gender := rec.Field(FieldGender)
	require.True(t, gender.Found)
	assert.Equal(t, "Male", gender.Value)

	name := rec.Field(FieldName)
	require.True(t, name.Found)
	assert.Equal(t, "Rahul Kumar", name.Value)
	assert.Equal(t, StrategyFallbackHeuristic, name.Strategy)
}

func TestExtractEveryFieldSlotPresent(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("nothing useful here")

	require.Len(t, rec.Fields, 4)
	for _, kind := range []FieldKind{FieldIDNumber, FieldName, FieldDateOfBirth, FieldGender} {
		f := rec.Field(kind)
		assert.Equal(t, kind, f.Kind)
		assert.False(t, f.Found)
	}
	assert.True(t, rec.Success, "extraction never fails hard once text exists")
	assert.NotEmpty(t, rec.Warnings)
}

func TestExtractMissingIDKeepsOtherFields(t *testing.T) {
	text := "GOVERNMENT OF INDIA\nRahul Kumar\nDOB: 15/08/1990\nMale"
	rec := newTestExtractor(nil).ExtractText(text)

	assert.False(t, rec.Field(FieldIDNumber).Found)
	assert.True(t, rec.Field(FieldName).Found)
	assert.True(t, rec.Field(FieldDateOfBirth).Found)
	assert.True(t, rec.Field(FieldGender).Found)

	found := false
	for _, w := range rec.Warnings {
		if strings.Contains(w, "ID number not found") {
			found = true
		}
	}
	assert.True(t, found, "missing ID must carry a warning")
}

func TestExtractIDChecksumEnabled(t *testing.T) {
	ex := newTestExtractor(VerhoeffValid)

	// 234567890124 carries a valid Verhoeff check digit.
	rec := ex.ExtractText("ID 2345 6789 0124")
	id := rec.Field(FieldIDNumber)
	require.True(t, id.Found)
	assert.Equal(t, "2345 6789 0124", id.Value)

	// Same number with the check digit corrupted must reject to not-found,
	// never be returned unchecked.
	rec = ex.ExtractText("ID 2345 6789 0125")
	assert.False(t, rec.Field(FieldIDNumber).Found)

	warned := false
	for _, w := range rec.Warnings {
		if strings.Contains(w, "checksum") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestExtractIDChecksumDisabled(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("ID 2345 6789 0125")
	assert.True(t, rec.Field(FieldIDNumber).Found)
}

func TestExtractIDDigitRunFallback(t *testing.T) {
	// Stray separators break the grouped pattern; the digit-run fallback
	// still recovers the number.
	rec := newTestExtractor(VerhoeffValid).ExtractText("card no\n2345-6789_0124")

	id := rec.Field(FieldIDNumber)
	require.True(t, id.Found)
	assert.Equal(t, "2345 6789 0124", id.Value)
	assert.Equal(t, StrategyFallbackHeuristic, id.Strategy)
}

func TestExtractIDAmbiguityWarning(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("2345 6789 0124\n9876 5432 1098")

	id := rec.Field(FieldIDNumber)
	require.True(t, id.Found)
	assert.Equal(t, "2345 6789 0124", id.Value, "first token in reading order wins")

	warned := false
	for _, w := range rec.Warnings {
		if strings.Contains(w, "multiple") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestExtractIDWrongDigitCount(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("1234 5678 901")
	assert.False(t, rec.Field(FieldIDNumber).Found)

	rec = newTestExtractor(nil).ExtractText("1234567890123")
	assert.False(t, rec.Field(FieldIDNumber).Found)
}

func TestExtractDOBValidation(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		found bool
		value string
	}{
		{"labeled", "DOB: 15/08/1990", true, "1990-08-15"},
		{"dotted separators", "Date of Birth: 15.08.1990", true, "1990-08-15"},
		{"hyphenated", "DOB 15-08-1990", true, "1990-08-15"},
		{"unlabeled fallback", "some text 01/12/1985 more", true, "1985-12-01"},
		{"day out of range", "DOB: 32/01/1990", false, ""},
		{"month out of range", "DOB: 15/13/1990", false, ""},
		{"year too old", "DOB: 15/08/1899", false, ""},
		{"year in future", "DOB: 15/08/2099", false, ""},
		{"non leap february", "DOB: 29/02/1991", false, ""},
		{"leap february", "DOB: 29/02/1992", true, "1992-02-29"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := newTestExtractor(nil).ExtractText(tc.text)
			dob := rec.Field(FieldDateOfBirth)
			assert.Equal(t, tc.found, dob.Found)
			if tc.found {
				assert.Equal(t, tc.value, dob.Value)
			}
		})
	}
}

func TestExtractYearOfBirthFallback(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("Year of Birth: 1987")

	dob := rec.Field(FieldDateOfBirth)
	require.True(t, dob.Found)
	assert.Equal(t, "1987", dob.Value)
	assert.Nil(t, dob.Date, "year-only extraction carries no calendar date")
	assert.Equal(t, StrategyFallbackHeuristic, dob.Strategy)

	warned := false
	for _, w := range rec.Warnings {
		if strings.Contains(w, "year of birth") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestExtractGenderVocabulary(t *testing.T) {
	cases := []struct {
		text  string
		found bool
		value string
	}{
		{"Gender: Male", true, "Male"},
		{"FEMALE", true, "Female"},
		{"transgender", true, "Transgender"},
		{"महिला", true, "Female"},
		{"पुरुष", true, "Male"},
		{"no gender marker here", false, ""},
	}

	for _, tc := range cases {
		rec := newTestExtractor(nil).ExtractText(tc.text)
		g := rec.Field(FieldGender)
		assert.Equal(t, tc.found, g.Found, "text %q", tc.text)
		if tc.found {
			assert.Equal(t, tc.value, g.Value, "text %q", tc.text)
		}
	}
}

func TestExtractGenderNotMatchedInsideFemale(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("Female")
	assert.Equal(t, "Female", rec.Field(FieldGender).Value)
}

func TestExtractNameLabeled(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("Name: Priya Sharma\nDOB: 02/03/1988")

	name := rec.Field(FieldName)
	require.True(t, name.Found)
	assert.Equal(t, "Priya Sharma", name.Value)
	assert.Equal(t, StrategyPrimaryPattern, name.Strategy)
}

func TestExtractNameLabeledCutsTrailingLabels(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("Name: Priya Sharma DOB 02/03/1988")

	name := rec.Field(FieldName)
	require.True(t, name.Found)
	assert.Equal(t, "Priya Sharma", name.Value)
}

func TestExtractNameLabeledKeepsEmbeddedCutTokens(t *testing.T) {
	// "Kamalesh" contains "male"; cut tokens match whole words only.
	rec := newTestExtractor(nil).ExtractText("Name: Kamalesh Kumar\nDOB: 02/03/1988")

	name := rec.Field(FieldName)
	require.True(t, name.Found)
	assert.Equal(t, "Kamalesh Kumar", name.Value)
	assert.Equal(t, StrategyPrimaryPattern, name.Strategy)

	rec = newTestExtractor(nil).ExtractText("Name: Kamalesh Kumar Father: Ram Kumar")
	assert.Equal(t, "Kamalesh Kumar", rec.Field(FieldName).Value)
}

func TestExtractNameSkipsBoilerplate(t *testing.T) {
	text := "GOVERNMENT OF INDIA\nUnique Identification Authority\nAjay Singh\nDOB: 10/10/1975"
	rec := newTestExtractor(nil).ExtractText(text)

	name := rec.Field(FieldName)
	require.True(t, name.Found)
	assert.Equal(t, "Ajay Singh", name.Value)
}

func TestExtractNameAnchorsOnIDWithoutDOB(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("Sunita Devi\n2345 6789 0124")

	name := rec.Field(FieldName)
	require.True(t, name.Found)
	assert.Equal(t, "Sunita Devi", name.Value)
}

func TestExtractNameAbsentWithoutAnchor(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("Sunita Devi")
	assert.False(t, rec.Field(FieldName).Found, "no anchor means no positional guess")
}

func TestExtractEmptyText(t *testing.T) {
	for _, text := range []string{"", "   \n\n  "} {
		rec := newTestExtractor(nil).ExtractText(text)
		assert.False(t, rec.Success)
		assert.Contains(t, rec.Warnings, "no text detected in image")
		for _, f := range rec.Fields {
			assert.False(t, f.Found)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	ex := newTestExtractor(VerhoeffValid)
	res := &ocr.Result{Text: sampleCardText, Language: "eng+hin", Confidence: 0.91}

	first := ex.Extract(res)
	second := ex.Extract(res)
	assert.Equal(t, first, second)
}

func TestExtractCarriesEngineMetadata(t *testing.T) {
	ex := newTestExtractor(nil)
	res := &ocr.Result{
		Text:       sampleCardText,
		Language:   "eng",
		Confidence: 0.77,
		Warnings:   []string{"language model \"hin\" not installed, falling back to \"eng\""},
	}

	rec := ex.Extract(res)
	assert.Equal(t, "eng", rec.Language)
	assert.Equal(t, 0.77, rec.Confidence)
	assert.Contains(t, rec.Warnings, res.Warnings[0])
}

func TestRecordJSONOmitsAbsentDate(t *testing.T) {
	rec := newTestExtractor(nil).ExtractText("Year of Birth: 1987\nMale")

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "0001-01-01", "absent calendar dates must not serialize as the zero time")
	assert.NotContains(t, string(data), `"date"`)

	rec = newTestExtractor(nil).ExtractText("DOB: 15/08/1990")
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"1990-08-15T00:00:00Z"`)
}

func TestNormalizeTextCollapsesNoise(t *testing.T) {
	in := "a\r\nb\t\tc\n\n\n\nd   e\n-----\nf"
	out := normalizeText(in)
	assert.Equal(t, "a\nb c\n\nd e\n\nf", out)
}
