package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kycstack/aadhaar-extractor/internal/errors"
	"github.com/kycstack/aadhaar-extractor/internal/extract"
	"github.com/kycstack/aadhaar-extractor/internal/imaging"
	"github.com/kycstack/aadhaar-extractor/internal/logging"
	"github.com/kycstack/aadhaar-extractor/internal/ocr"
)

const fakeCardText = "GOVERNMENT OF INDIA\nRahul Kumar\nDOB: 15/08/1990\nMale\n1234 5678 9012"

// fakeEngine satisfies ocr.Engine without a Tesseract installation.
type fakeEngine struct {
	text         string
	recognizeErr error
	availableErr error
	calls        int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Available(ctx context.Context) error { return f.availableErr }

func (f *fakeEngine) Recognize(ctx context.Context, id string, img *imaging.NormalizedImage, languageHint string) (*ocr.Result, error) {
	f.calls++
	if f.recognizeErr != nil {
		return nil, f.recognizeErr
	}
	return &ocr.Result{
		Text:       f.text,
		Language:   "eng",
		Confidence: 0.92,
		Duration:   120 * time.Millisecond,
	}, nil
}

func newTestOrchestrator(engine ocr.Engine) *Orchestrator {
	return New(
		imaging.NewNormalizer(0, nil),
		engine,
		extract.NewExtractor(extract.Config{}, nil),
		logging.NewNopLogger(),
	)
}

func whitePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 20))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessSuccess(t *testing.T) {
	engine := &fakeEngine{text: fakeCardText}
	o := newTestOrchestrator(engine)

	rec, err := o.Process(context.Background(), imaging.RawImage{Data: whitePNG(t), MimeType: "image/png"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Len(t, rec.InvocationID, 36)
	assert.True(t, rec.Success)
	assert.Equal(t, 4, rec.FoundCount())
	assert.Equal(t, "eng", rec.Language)
	assert.Equal(t, 0.92, rec.Confidence)
	assert.Equal(t, 1, engine.calls)
}

func TestProcessNormalizationFailureSkipsEngine(t *testing.T) {
	engine := &fakeEngine{text: fakeCardText}
	o := newTestOrchestrator(engine)

	rec, err := o.Process(context.Background(), imaging.RawImage{Data: []byte("garbage"), MimeType: "image/png"}, Options{})
	require.Error(t, err)
	assert.Nil(t, rec)

	pe, ok := kerrors.AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, kerrors.StageNormalization, pe.Stage)
	assert.Equal(t, 0, engine.calls, "engine must not run on a failed normalization")
}

func TestProcessEngineUnavailable(t *testing.T) {
	engine := &fakeEngine{
		recognizeErr: kerrors.NewEngineUnavailableError("", errors.New("tesseract not on PATH")),
	}
	o := newTestOrchestrator(engine)

	rec, err := o.Process(context.Background(), imaging.RawImage{Data: whitePNG(t), MimeType: "image/png"}, Options{})
	require.Error(t, err)
	assert.Nil(t, rec)

	pe, ok := kerrors.AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, kerrors.StageRecognition, pe.Stage)
	assert.Equal(t, kerrors.ErrorEngineUnavailable, pe.Code)
}

func TestProcessRecognitionTimeout(t *testing.T) {
	engine := &fakeEngine{
		recognizeErr: kerrors.NewRecognitionTimeoutError("", 30*time.Second, context.DeadlineExceeded),
	}
	o := newTestOrchestrator(engine)

	_, err := o.Process(context.Background(), imaging.RawImage{Data: whitePNG(t), MimeType: "image/png"}, Options{})
	assert.True(t, kerrors.IsCode(err, kerrors.ErrorRecognitionTimeout))
}

func TestProcessBlankCardIsSoftFailure(t *testing.T) {
	// An unreadable but decodable image is not a pipeline error: the record
	// reports no text with every field not-found.
	engine := &fakeEngine{text: "   "}
	o := newTestOrchestrator(engine)

	rec, err := o.Process(context.Background(), imaging.RawImage{Data: whitePNG(t), MimeType: "image/png"}, Options{})
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, 0, rec.FoundCount())
	assert.Contains(t, rec.Warnings, "no text detected in image")
}

func TestProcessDistinctInvocationIDs(t *testing.T) {
	o := newTestOrchestrator(&fakeEngine{text: fakeCardText})
	raw := imaging.RawImage{Data: whitePNG(t), MimeType: "image/png"}

	first, err := o.Process(context.Background(), raw, Options{})
	require.NoError(t, err)
	second, err := o.Process(context.Background(), raw, Options{})
	require.NoError(t, err)

	assert.NotEqual(t, first.InvocationID, second.InvocationID)
}

func TestEngineAvailable(t *testing.T) {
	o := newTestOrchestrator(&fakeEngine{})
	assert.True(t, o.EngineAvailable(context.Background()))

	o = newTestOrchestrator(&fakeEngine{availableErr: errors.New("no language models installed")})
	assert.False(t, o.EngineAvailable(context.Background()))
}

func TestOutcomeLabel(t *testing.T) {
	ex := extract.NewExtractor(extract.Config{}, nil)

	assert.Equal(t, "no_text", outcomeLabel(ex.ExtractText("")))
	assert.Equal(t, "complete", outcomeLabel(ex.ExtractText(fakeCardText)))
	assert.Equal(t, "partial", outcomeLabel(ex.ExtractText("DOB: 15/08/1990")))
	assert.Equal(t, "empty", outcomeLabel(ex.ExtractText("nothing recognizable")))
}
