/**
 * OCR engine contract
 *
 * The Engine interface is the single point of contact with the external OCR
 * capability. Any backend (local Tesseract, a remote service) can be
 * substituted behind it without touching the field extractor.
 */

package ocr

import (
	"context"
	"time"

	"github.com/kycstack/aadhaar-extractor/internal/imaging"
)

// Language hints accepted by Recognize.
const (
	LanguagePrimary   = "eng"  // English, the primary card script
	LanguageSecondary = "hin"  // Hindi, the secondary regional script
	LanguageAuto      = "auto" // both models combined
)

// Word represents a single recognized token with geometry
type Word struct {
	Text        string
	Confidence  float64
	BoundingBox BoundingBox
}

// BoundingBox represents pixel coordinates of a recognized region
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Result represents the raw output of one recognition call
type Result struct {
	Text       string
	Language   string  // language model actually used
	Confidence float64 // mean word confidence in [0,1]; -1 when unknown
	Words      []Word  // optional per-token geometry
	Duration   time.Duration
	Warnings   []string
}

// Engine is the OCR provider contract. Implementations must be safe for
// concurrent use; non-reentrant backends serialize internally.
type Engine interface {
	Name() string

	// Recognize runs OCR over a normalized image. The invocation ID is
	// carried through for log correlation.
	Recognize(ctx context.Context, id string, img *imaging.NormalizedImage, languageHint string) (*Result, error)

	// Available probes the engine without running recognition, so external
	// liveness checks stay cheap. Returns nil when the engine can be invoked.
	Available(ctx context.Context) error
}
