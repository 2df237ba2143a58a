package quant

import (
	"fmt"
	"time"
)

// QuantizationErrorCode represents specific quantization error types
type QuantizationErrorCode int

const (
	ErrQuantUnknown QuantizationErrorCode = iota
	ErrQuantConfigInvalid
	ErrQuantTrainingFailed
	ErrQuantTrainingDataInsufficient
	ErrQuantCompressionFailed
	ErrQuantDecompressionFailed
	ErrQuantDistanceComputationFailed
	ErrQuantDimensionMismatch
	ErrQuantNotTrained
	ErrQuantMemoryExhausted
)

// QuantizationError represents a quantization-specific error
type QuantizationError struct {
	Code        QuantizationErrorCode `json:"code"`
	Message     string                `json:"message"`
	Component   string                `json:"component"`
	Operation   string                `json:"operation"`
	Recoverable bool                  `json:"recoverable"`
	Cause       error                 `json:"cause,omitempty"`
	Timestamp   time.Time             `json:"timestamp"`
}

func (qe *QuantizationError) Error() string {
	if qe.Cause != nil {
		return fmt.Sprintf("quantization error in %s.%s: %s (caused by: %v)",
			qe.Component, qe.Operation, qe.Message, qe.Cause)
	}
	return fmt.Sprintf("quantization error in %s.%s: %s",
		qe.Component, qe.Operation, qe.Message)
}

// Unwrap returns the underlying cause error
func (qe *QuantizationError) Unwrap() error {
	return qe.Cause
}

// NewQuantizationError creates a new quantization error
func NewQuantizationError(code QuantizationErrorCode, component, operation, message string) *QuantizationError {
	return &QuantizationError{
		Code:      code,
		Message:   message,
		Component: component,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

// WithCause adds a cause error
func (qe *QuantizationError) WithCause(cause error) *QuantizationError {
	qe.Cause = cause
	return qe
}

// WithRecoverable sets whether the error is recoverable
func (qe *QuantizationError) WithRecoverable(recoverable bool) *QuantizationError {
	qe.Recoverable = recoverable
	return qe
}

// ValidateQuantizationHealth checks the health of a quantizer
func ValidateQuantizationHealth(quantizer Quantizer) error {
	if !quantizer.IsTrained() {
		return NewQuantizationError(
			ErrQuantNotTrained,
			"quantizer",
			"validate",
			"quantizer is not trained",
		).WithRecoverable(true)
	}

	config := quantizer.Config()
	if config == nil {
		return NewQuantizationError(
			ErrQuantConfigInvalid,
			"quantizer",
			"validate",
			"quantizer configuration is nil",
		).WithRecoverable(false)
	}

	if err := config.Validate(); err != nil {
		return NewQuantizationError(
			ErrQuantConfigInvalid,
			"quantizer",
			"validate",
			"quantizer configuration is invalid",
		).WithCause(err).WithRecoverable(true)
	}

	if quantizer.MemoryUsage() < 0 {
		return NewQuantizationError(
			ErrQuantMemoryExhausted,
			"quantizer",
			"validate",
			"invalid memory usage reported",
		).WithRecoverable(true)
	}

	return nil
}
