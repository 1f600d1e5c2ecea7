/**
 * Tesseract OCR adapter
 *
 * Wraps gosseract behind the Engine contract. A fresh client is created per
 * call (gosseract clients are not reentrant); overall concurrency is gated
 * by a weighted semaphore so a non-reentrant Tesseract install can be
 * serialized via AADHAAR_RECOGNITION_LIMIT=1.
 */

package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/sync/semaphore"

	kerrors "github.com/kycstack/aadhaar-extractor/internal/errors"
	"github.com/kycstack/aadhaar-extractor/internal/imaging"
	"github.com/kycstack/aadhaar-extractor/internal/logging"
)

// TesseractConfig holds Tesseract adapter configuration
type TesseractConfig struct {
	// TessdataPrefix overrides the traineddata directory; empty uses the
	// system default.
	TessdataPrefix string
	// DefaultLanguage is used when a requested language model is not
	// installed.
	DefaultLanguage string
	// PageSegMode is the Tesseract page segmentation mode (3 = fully
	// automatic, the setting that works best on card photos).
	PageSegMode int
	// RecognitionTimeout bounds a single recognition call.
	RecognitionTimeout time.Duration
	// MaxConcurrent limits simultaneous recognitions; 1 serializes access.
	MaxConcurrent int
}

// TesseractEngine implements Engine using the gosseract client
type TesseractEngine struct {
	cfg           TesseractConfig
	clientFactory func() *gosseract.Client
	sem           *semaphore.Weighted
	logger        *logging.Logger

	// Seams for tests without a Tesseract installation.
	availableLangs func() ([]string, error)
	run            func(pngData []byte, langs []string) (string, []Word, float64, error)
}

// NewTesseractEngine creates a new Tesseract-backed OCR engine
func NewTesseractEngine(cfg TesseractConfig, logger *logging.Logger) *TesseractEngine {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = LanguagePrimary
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = 3
	}
	if cfg.RecognitionTimeout <= 0 {
		cfg.RecognitionTimeout = 30 * time.Second
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	e := &TesseractEngine{
		cfg:            cfg,
		clientFactory:  gosseract.NewClient,
		sem:            semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger:         logger,
		availableLangs: gosseract.GetAvailableLanguages,
	}
	e.run = e.runClient
	return e
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Available probes the Tesseract installation without running recognition.
func (e *TesseractEngine) Available(ctx context.Context) error {
	langs, err := e.availableLangs()
	if err != nil {
		return fmt.Errorf("tesseract not invocable: %w", err)
	}
	if len(langs) == 0 {
		return fmt.Errorf("tesseract has no traineddata installed")
	}
	if !containsLang(langs, e.cfg.DefaultLanguage) {
		return fmt.Errorf("default language model %q not installed", e.cfg.DefaultLanguage)
	}
	return nil
}

// Recognize runs OCR over a normalized image within the configured time
// budget.
func (e *TesseractEngine) Recognize(ctx context.Context, id string, img *imaging.NormalizedImage, languageHint string) (*Result, error) {
	langs, warnings, err := e.resolveLanguages(languageHint)
	if err != nil {
		return nil, kerrors.NewEngineUnavailableError(id, err)
	}

	pngData, err := img.ToPNG()
	if err != nil {
		return nil, kerrors.NewEngineUnavailableError(id, err)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, kerrors.NewEngineUnavailableError(id, fmt.Errorf("recognition slot: %w", err))
	}

	start := time.Now()
	timeoutCtx, cancel := context.WithTimeout(ctx, e.cfg.RecognitionTimeout)
	defer cancel()

	type recognized struct {
		text  string
		words []Word
		conf  float64
		err   error
	}
	done := make(chan recognized, 1)

	// The goroutine owns the semaphore slot for the lifetime of the engine
	// call: a timed-out session keeps its slot until the client actually
	// returns, so MaxConcurrent=1 serializes the non-reentrant install even
	// across timeouts.
	go func() {
		defer e.sem.Release(1)
		text, words, conf, rerr := e.run(pngData, langs)
		done <- recognized{text: text, words: words, conf: conf, err: rerr}
	}()

	select {
	case <-timeoutCtx.Done():
		// The goroutine finishes on its own; the buffered channel lets it
		// exit without a reader.
		return nil, kerrors.NewRecognitionTimeoutError(id, e.cfg.RecognitionTimeout, timeoutCtx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, kerrors.NewEngineUnavailableError(id, r.err)
		}
		result := &Result{
			Text:       r.text,
			Language:   strings.Join(langs, "+"),
			Confidence: r.conf,
			Words:      r.words,
			Duration:   time.Since(start),
			Warnings:   warnings,
		}
		e.logger.Debug("recognition complete",
			"invocation_id", id, "language", result.Language,
			"confidence", result.Confidence, "duration", result.Duration,
			"chars", len(result.Text))
		return result, nil
	}
}

// runClient performs one blocking gosseract session.
func (e *TesseractEngine) runClient(pngData []byte, langs []string) (string, []Word, float64, error) {
	client := e.clientFactory()
	defer client.Close()

	if e.cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.cfg.TessdataPrefix); err != nil {
			return "", nil, -1, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", nil, -1, fmt.Errorf("set image: %w", err)
	}
	if err := client.SetLanguage(langs...); err != nil {
		return "", nil, -1, fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetVariable(gosseract.SettableVariable("tessedit_pageseg_mode"), strconv.Itoa(e.cfg.PageSegMode)); err != nil {
		return "", nil, -1, fmt.Errorf("set page segmentation mode: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", nil, -1, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	words, conf := extractWords(client)
	return text, words, conf, nil
}

// resolveLanguages maps a language hint to installed traineddata, falling
// back to the default model with a warning rather than failing outright.
func (e *TesseractEngine) resolveLanguages(hint string) ([]string, []string, error) {
	installed, err := e.availableLangs()
	if err != nil {
		return nil, nil, fmt.Errorf("tesseract not invocable: %w", err)
	}

	var requested []string
	switch hint {
	case "", LanguagePrimary:
		requested = []string{LanguagePrimary}
	case LanguageSecondary:
		requested = []string{LanguageSecondary}
	case LanguageAuto:
		requested = []string{LanguagePrimary, LanguageSecondary}
	default:
		requested = []string{hint}
	}

	var langs, warnings []string
	for _, lang := range requested {
		if containsLang(installed, lang) {
			langs = append(langs, lang)
		} else {
			warnings = append(warnings,
				fmt.Sprintf("language model %q not installed, falling back to %q", lang, e.cfg.DefaultLanguage))
		}
	}

	if len(langs) == 0 {
		if !containsLang(installed, e.cfg.DefaultLanguage) {
			return nil, nil, fmt.Errorf("neither requested nor default language model installed")
		}
		langs = []string{e.cfg.DefaultLanguage}
	}

	return langs, warnings, nil
}

// extractWords pulls per-word geometry and confidence from the client. A
// failure here degrades to text-only output rather than failing the call.
func extractWords(client *gosseract.Client) ([]Word, float64) {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, -1
	}

	words := make([]Word, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		sum += conf
		words = append(words, Word{
			Text:       b.Word,
			Confidence: conf,
			BoundingBox: BoundingBox{
				X:      b.Box.Min.X,
				Y:      b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
		})
	}
	return words, sum / float64(len(words))
}

func containsLang(langs []string, want string) bool {
	for _, l := range langs {
		if l == want {
			return true
		}
	}
	return false
}
