package errors

import (
	"errors"
	"fmt"
	"time"
)

/**
 * Typed pipeline errors for the Aadhaar extraction worker
 *
 * Hard infrastructure failures (bad image, engine down, timeout) surface as
 * a PipelineError carrying the failing stage. Field-level extraction misses
 * are NOT errors; they are reported as not-found slots with warnings inside
 * a successful ExtractionRecord.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Normalization errors
	ErrorDecodeFailed      ErrorCode = "DECODE_FAILED"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// Recognition errors
	ErrorEngineUnavailable  ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorRecognitionTimeout ErrorCode = "RECOGNITION_TIMEOUT"
)

// Stage identifies the pipeline stage that produced a hard failure.
type Stage string

const (
	StageNormalization Stage = "NORMALIZATION"
	StageRecognition   Stage = "RECOGNITION"
)

// PipelineError represents a hard failure of a pipeline invocation
type PipelineError struct {
	Stage        Stage
	Code         ErrorCode
	Message      string
	InvocationID string
	Timestamp    time.Time
	Details      map[string]interface{}
	Cause        error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s/%s: %s (caused by: %v)", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s/%s: %s", e.Stage, e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Factory functions for the error taxonomy

func NewDecodeError(invocationID string, cause error) *PipelineError {
	return &PipelineError{
		Stage:        StageNormalization,
		Code:         ErrorDecodeFailed,
		Message:      "Image buffer could not be decoded",
		InvocationID: invocationID,
		Timestamp:    time.Now(),
		Cause:        cause,
	}
}

func NewUnsupportedFormatError(invocationID string, mimeType string) *PipelineError {
	return &PipelineError{
		Stage:        StageNormalization,
		Code:         ErrorUnsupportedFormat,
		Message:      fmt.Sprintf("Unsupported image format: %s", mimeType),
		InvocationID: invocationID,
		Timestamp:    time.Now(),
		Details: map[string]interface{}{
			"mime_type": mimeType,
		},
	}
}

func NewEngineUnavailableError(invocationID string, cause error) *PipelineError {
	return &PipelineError{
		Stage:        StageRecognition,
		Code:         ErrorEngineUnavailable,
		Message:      "OCR engine cannot be invoked",
		InvocationID: invocationID,
		Timestamp:    time.Now(),
		Cause:        cause,
	}
}

func NewRecognitionTimeoutError(invocationID string, budget time.Duration, cause error) *PipelineError {
	return &PipelineError{
		Stage:        StageRecognition,
		Code:         ErrorRecognitionTimeout,
		Message:      fmt.Sprintf("Recognition exceeded time budget of %v", budget),
		InvocationID: invocationID,
		Timestamp:    time.Now(),
		Details: map[string]interface{}{
			"timeout_budget": budget.String(),
		},
		Cause: cause,
	}
}

// IsCode reports whether err is a PipelineError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// AsPipelineError unwraps err into a PipelineError, if it is one.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	ok := errors.As(err, &pe)
	return pe, ok
}

// ToMap converts the error to a map for serialization
func (e *PipelineError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"stage":      string(e.Stage),
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
