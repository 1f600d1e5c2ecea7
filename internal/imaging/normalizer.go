/**
 * Image Normalizer for the Aadhaar extraction worker
 *
 * Converts an arbitrary uploaded card image into a canonical single-channel
 * form favorable to OCR:
 * - Decode (PNG/JPEG via stdlib, BMP/TIFF/WebP via golang.org/x/image)
 * - Luminance-weighted grayscale conversion
 * - Optional contrast stretch + edge-preserving denoise
 * - Gross orientation correction via projection-profile analysis
 */

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	// Raster decoders registered for image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	kerrors "github.com/kycstack/aadhaar-extractor/internal/errors"
	"github.com/kycstack/aadhaar-extractor/internal/logging"
)

// RawImage is an uploaded card image: an opaque byte buffer plus the
// declared MIME type. It is never mutated by the pipeline.
type RawImage struct {
	Data     []byte
	MimeType string
}

// NormalizedImage is the canonical single-channel pixel buffer handed to the
// OCR engine. Immutable once produced.
type NormalizedImage struct {
	Pixels   *image.Gray
	Width    int
	Height   int
	Channels int // always 1 after grayscale conversion
	Rotation int // degrees of orientation correction applied (0/90/180/270)
	Warnings []string
}

// ToPNG encodes the normalized pixel buffer for engine submission.
func (n *NormalizedImage) ToPNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, n.Pixels); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}
	return buf.Bytes(), nil
}

// Options controls the quality/latency trade-offs of normalization.
type Options struct {
	// Enhance applies contrast stretching and denoising before OCR. Off by
	// default: it roughly doubles normalization cost.
	Enhance bool
}

// acceptedFormats are the raster MIME types the normalizer will decode.
var acceptedFormats = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

// Normalizer converts raw card images into NormalizedImages
type Normalizer struct {
	maxImageBytes int64
	logger        *logging.Logger
}

// NewNormalizer creates a new image normalizer
func NewNormalizer(maxImageBytes int64, logger *logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Normalizer{
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// Normalize converts a raw image into the canonical OCR-ready form. The
// invocation ID is carried through for log correlation only.
func (n *Normalizer) Normalize(id string, raw RawImage, opts Options) (*NormalizedImage, error) {
	if len(raw.Data) == 0 {
		return nil, kerrors.NewDecodeError(id, fmt.Errorf("empty image buffer"))
	}

	if n.maxImageBytes > 0 && int64(len(raw.Data)) > n.maxImageBytes {
		err := kerrors.NewUnsupportedFormatError(id, raw.MimeType)
		err.Message = fmt.Sprintf("Image exceeds maximum size: %d > %d bytes", len(raw.Data), n.maxImageBytes)
		return nil, err
	}

	// Correct missing or generic MIME declarations from magic bytes before
	// the accept check; browser uploads frequently arrive as octet-stream.
	mimeType := raw.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		if detected := DetectMimeType(raw.Data); detected != "" {
			n.logger.Debug("corrected MIME type from magic bytes",
				"invocation_id", id, "declared", raw.MimeType, "detected", detected)
			mimeType = detected
		}
	}

	if !acceptedFormats[mimeType] {
		return nil, kerrors.NewUnsupportedFormatError(id, mimeType)
	}

	img, format, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, kerrors.NewDecodeError(id, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, kerrors.NewDecodeError(id, fmt.Errorf("decoded image has zero dimensions"))
	}

	gray := toGrayscale(img)

	warnings := []string{}
	if opts.Enhance {
		gray = stretchContrast(gray)
		gray = denoise(gray)
	}

	rotation, confidence := detectOrientation(gray)
	if rotation != 0 {
		if confidence >= orientationConfidenceThreshold {
			gray = rotateGray(gray, rotation)
			// Projection profiles cannot tell 90 from 270 degrees.
			warnings = append(warnings,
				"sideways orientation corrected clockwise; a counter-clockwise original comes out inverted")
			n.logger.Debug("orientation corrected",
				"invocation_id", id, "rotation", rotation, "confidence", confidence)
		} else {
			warnings = append(warnings,
				fmt.Sprintf("orientation detection inconclusive (confidence %.2f), image left as-is", confidence))
			rotation = 0
		}
	}

	result := &NormalizedImage{
		Pixels:   gray,
		Width:    gray.Bounds().Dx(),
		Height:   gray.Bounds().Dy(),
		Channels: 1,
		Rotation: rotation,
		Warnings: warnings,
	}

	n.logger.Debug("image normalized",
		"invocation_id", id, "format", format,
		"width", result.Width, "height", result.Height,
		"enhanced", opts.Enhance, "rotation", rotation)

	return result, nil
}

// toGrayscale converts any decoded image to a single-channel buffer using
// Rec. 601 luminance weights.
func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// 16-bit channels; weights sum to 1.0
			lum := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
			if lum > 255 {
				lum = 255
			}
			gray.SetGray(x, y, color.Gray{Y: uint8(lum)})
		}
	}
	return gray
}

// DetectMimeType detects the actual MIME type from file content magic bytes.
// Essential when uploads arrive with a generic "application/octet-stream".
func DetectMimeType(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	// PNG: 0x89 'P' 'N' 'G' 0x0D 0x0A 0x1A 0x0A
	if len(data) >= 8 && bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "image/png"
	}

	// JPEG: 0xFF 0xD8 0xFF
	if bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) {
		return "image/jpeg"
	}

	// WebP: 'R' 'I' 'F' 'F' .... 'W' 'E' 'B' 'P'
	if len(data) > 12 && bytes.HasPrefix(data, []byte("RIFF")) && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}

	// TIFF: little-endian or big-endian byte-order mark
	if bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}) || bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}) {
		return "image/tiff"
	}

	// BMP: 'B' 'M'
	if bytes.HasPrefix(data, []byte("BM")) {
		return "image/bmp"
	}

	return ""
}
