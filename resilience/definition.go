package resilience

import "fmt"

// DefaultCircuitName is the definition every method key falls back to.
const DefaultCircuitName = "Default"

// CircuitDefinition configures the breaker for one method key, or for every
// key without its own entry when Name is DefaultCircuitName.
type CircuitDefinition struct {
	Name string `yaml:"name" json:"name"`

	// TimeoutSeconds is the elapsed time above which a completed call is
	// classified as a Timeout.
	TimeoutSeconds int `yaml:"timeoutSeconds" json:"timeoutSeconds"`

	// LimitBreak is the error count at which the circuit opens.
	LimitBreak int `yaml:"limitBreak" json:"limitBreak"`

	// CooldownSeconds is how long an Open circuit waits after its last
	// failure before letting one probe through.
	CooldownSeconds int `yaml:"cooldownSeconds" json:"cooldownSeconds"`

	// LogLevel selects which attempts are emitted as events.
	// Default: None
	LogLevel LogLevel `yaml:"logLevel" json:"logLevel"`
}

// Validate checks the definition's bounds.
func (d CircuitDefinition) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidDefinition)
	case d.TimeoutSeconds <= 0:
		return fmt.Errorf("%w: %s: timeoutSeconds must be > 0", ErrInvalidDefinition, d.Name)
	case d.LimitBreak <= 0:
		return fmt.Errorf("%w: %s: limitBreak must be > 0", ErrInvalidDefinition, d.Name)
	case d.CooldownSeconds < 0:
		return fmt.Errorf("%w: %s: cooldownSeconds must be >= 0", ErrInvalidDefinition, d.Name)
	case d.LogLevel < LogNone || d.LogLevel > LogAll:
		return fmt.Errorf("%w: %s: logLevel out of range", ErrInvalidDefinition, d.Name)
	}
	return nil
}

// Definitions indexes circuit definitions by name.
type Definitions map[string]CircuitDefinition

// NewDefinitions validates defs and indexes them. Later duplicates are rejected.
func NewDefinitions(defs []CircuitDefinition) (Definitions, error) {
	out := make(Definitions, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidDefinition, d.Name)
		}
		out[d.Name] = d
	}
	return out, nil
}

// Lookup returns the definition for methodKey, falling back to Default.
// Returns a *ConfigurationError when neither exists.
func (d Definitions) Lookup(methodKey string) (CircuitDefinition, error) {
	if def, ok := d[methodKey]; ok {
		return def, nil
	}
	if def, ok := d[DefaultCircuitName]; ok {
		return def, nil
	}
	return CircuitDefinition{}, &ConfigurationError{MethodKey: methodKey}
}
