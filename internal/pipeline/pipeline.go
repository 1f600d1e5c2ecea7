/**
 * Extraction Orchestrator for the Aadhaar extraction worker
 *
 * Sequences the pipeline: normalize -> recognize -> extract. Hard failures
 * in normalization or recognition short-circuit with a typed PipelineError;
 * once recognition has produced text, extraction never fails hard and the
 * caller always receives a record.
 *
 * The orchestrator is stateless: invocations share nothing and may run
 * concurrently, bounded only by the engine's own recognition gate.
 */

package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/kycstack/aadhaar-extractor/internal/config"
	kerrors "github.com/kycstack/aadhaar-extractor/internal/errors"
	"github.com/kycstack/aadhaar-extractor/internal/extract"
	"github.com/kycstack/aadhaar-extractor/internal/imaging"
	"github.com/kycstack/aadhaar-extractor/internal/logging"
	"github.com/kycstack/aadhaar-extractor/internal/metrics"
	"github.com/kycstack/aadhaar-extractor/internal/ocr"
)

// Options controls one pipeline invocation
type Options struct {
	// Enhance applies contrast/denoise preprocessing before OCR.
	Enhance bool
	// Language selects the OCR model: "eng", "hin", or "auto".
	Language string
	// MaskID is a caller-side display concern carried through for the
	// presentation layer; the core does not enforce it.
	MaskID bool
}

// Orchestrator composes the pipeline stages behind a single boundary
// operation.
type Orchestrator struct {
	normalizer *imaging.Normalizer
	engine     ocr.Engine
	extractor  *extract.Extractor
	logger     *logging.Logger
}

// New creates an orchestrator from explicit stage implementations.
func New(normalizer *imaging.Normalizer, engine ocr.Engine, extractor *extract.Extractor, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Orchestrator{
		normalizer: normalizer,
		engine:     engine,
		extractor:  extractor,
		logger:     logger,
	}
}

// NewFromConfig wires the default Tesseract-backed pipeline.
func NewFromConfig(cfg *config.Config, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	var checksum extract.ChecksumFunc
	if cfg.ChecksumEnabled {
		checksum = extract.VerhoeffValid
	}

	return New(
		imaging.NewNormalizer(cfg.MaxImageBytes, logger),
		ocr.NewTesseractEngine(ocr.TesseractConfig{
			TessdataPrefix:     cfg.TesseractPrefix,
			DefaultLanguage:    cfg.DefaultLanguage,
			PageSegMode:        cfg.PageSegMode,
			RecognitionTimeout: cfg.RecognitionTimeout,
			MaxConcurrent:      cfg.RecognitionLimit,
		}, logger),
		extract.NewExtractor(extract.Config{Checksum: checksum}, logger),
		logger,
	)
}

// Process runs one image through the full pipeline. On success the returned
// record owns all per-field outcomes and warnings; on hard failure the
// error is a *errors.PipelineError identifying the failing stage.
func (o *Orchestrator) Process(ctx context.Context, raw imaging.RawImage, opts Options) (*extract.Record, error) {
	id := uuid.NewString()
	log := o.logger.With("invocation_id", id)

	log.Info("starting extraction pipeline",
		"bytes", len(raw.Data), "mime_type", raw.MimeType,
		"enhance", opts.Enhance, "language", opts.Language)

	// Stage 1: normalize
	img, err := o.normalizer.Normalize(id, raw, imaging.Options{Enhance: opts.Enhance})
	if err != nil {
		return nil, o.fail(log, err)
	}
	log.Info("image normalized", "width", img.Width, "height", img.Height, "rotation", img.Rotation)

	// Stage 2: recognize
	res, err := o.engine.Recognize(ctx, id, img, opts.Language)
	if err != nil {
		return nil, o.fail(log, err)
	}
	metrics.RecordRecognitionDuration(res.Language, res.Duration.Seconds())
	log.Info("recognition complete",
		"engine", o.engine.Name(), "language", res.Language,
		"confidence", res.Confidence, "chars", len(res.Text))

	// Stage 3: extract (never fails hard)
	rec := o.extractor.Extract(res)
	rec.InvocationID = id
	rec.Warnings = append(img.Warnings, rec.Warnings...)

	for _, f := range rec.Fields {
		if f.Found {
			metrics.RecordFieldFound(string(f.Kind), string(f.Strategy))
		}
	}
	metrics.RecordExtraction(outcomeLabel(rec))

	log.Info("extraction complete",
		"success", rec.Success, "fields_found", rec.FoundCount(),
		"warnings", len(rec.Warnings))

	return rec, nil
}

// EngineAvailable probes the OCR capability without running recognition,
// for external liveness checks.
func (o *Orchestrator) EngineAvailable(ctx context.Context) bool {
	if err := o.engine.Available(ctx); err != nil {
		o.logger.Warn("engine availability probe failed", "engine", o.engine.Name(), "error", err)
		return false
	}
	return true
}

func (o *Orchestrator) fail(log *logging.Logger, err error) error {
	if pe, ok := kerrors.AsPipelineError(err); ok {
		metrics.RecordStageFailure(string(pe.Stage), string(pe.Code))
		log.Error("pipeline stage failed",
			"stage", pe.Stage, "code", pe.Code, "error", pe.Message, "cause", pe.Cause)
	} else {
		log.Error("pipeline failed", "error", err)
	}
	metrics.RecordExtraction("error")
	return err
}

func outcomeLabel(rec *extract.Record) string {
	switch {
	case !rec.Success:
		return "no_text"
	case rec.FoundCount() == len(rec.Fields):
		return "complete"
	case rec.FoundCount() > 0:
		return "partial"
	default:
		return "empty"
	}
}
