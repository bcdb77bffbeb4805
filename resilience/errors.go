package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrNoCircuitDefinition is returned when neither a method-specific nor a
	// Default circuit definition exists.
	ErrNoCircuitDefinition = errors.New("resilience: no circuit definition")

	// ErrInvalidDefinition is returned when a circuit definition fails validation.
	ErrInvalidDefinition = errors.New("resilience: invalid circuit definition")

	// ErrEmptyMethodKey is returned when a call or admin operation has no method key.
	ErrEmptyMethodKey = errors.New("resilience: method key is empty")

	// ErrNilLayer is returned when a Registry is built without a cache layer.
	ErrNilLayer = errors.New("resilience: cache layer is nil")

	// ErrUnknownCircuit is returned by admin lookups for a method key that has no stored model.
	ErrUnknownCircuit = errors.New("resilience: unknown circuit")
)

// ConfigurationError reports a method key that no circuit definition covers.
type ConfigurationError struct {
	MethodKey string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("resilience: no circuit definition for %q and no %q fallback", e.MethodKey, DefaultCircuitName)
}

// Unwrap returns ErrNoCircuitDefinition.
func (e *ConfigurationError) Unwrap() error {
	return ErrNoCircuitDefinition
}

// PanicError wraps a value recovered from a panicking invocable so it can be
// recorded like any other exception.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("resilience: invocable panicked: %v", e.Value)
}
