package detectors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrConfiguration indicates invalid detector parameters.
	ErrConfiguration = errors.New("detectors: invalid configuration")

	// ErrInvalidInput indicates a malformed or too short input sequence.
	ErrInvalidInput = errors.New("detectors: invalid input")

	// ErrNotFitted indicates an inference call before a successful fit.
	ErrNotFitted = errors.New("detectors: model not fitted")
)

// InvalidInputf returns an error wrapping ErrInvalidInput.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ConfigErrorf returns an error wrapping ErrConfiguration.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
