package resilience

import (
	"fmt"
	"time"

	"github.com/jonwraymond/breakercache/observe"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateHalfOpen means recent failures are being worked off one success at a time.
	StateHalfOpen
	// StateOpen means calls are rejected without being attempted.
	StateOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateHalfOpen:
		return "HalfOpen"
	case StateOpen:
		return "Open"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FailureReason classifies the outcome of an attempt.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonTimeout
	ReasonException
	ReasonOpenCircuit
)

var reasonNames = [...]string{"None", "Timeout", "Exception", "OpenCircuit"}

func (r FailureReason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("FailureReason(%d)", int(r))
	}
	return reasonNames[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r FailureReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *FailureReason) UnmarshalText(text []byte) error {
	for i, name := range reasonNames {
		if name == string(text) {
			*r = FailureReason(i)
			return nil
		}
	}
	return fmt.Errorf("resilience: unknown failure reason %q", text)
}

// LogLevel selects which attempts are emitted as events. Levels are ordered
// and cumulative: a circuit at SuccessfulCalls also emits Errors and Timeouts.
type LogLevel int

const (
	LogNone LogLevel = iota
	LogErrors
	LogTimeouts
	LogSuccessfulCalls
	LogOpenCircuitFailures
	LogAll
)

var logLevelNames = [...]string{"None", "Errors", "Timeouts", "SuccessfulCalls", "OpenCircuitFailures", "All"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(logLevelNames) {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return logLevelNames[l]
}

// ParseLogLevel parses a level name. Matching is exact.
func ParseLogLevel(s string) (LogLevel, error) {
	for i, name := range logLevelNames {
		if name == s {
			return LogLevel(i), nil
		}
	}
	return LogNone, fmt.Errorf("resilience: unknown log level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LogLevel) UnmarshalText(text []byte) error {
	v, err := ParseLogLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Enables reports whether a circuit at level l emits events at level want.
func (l LogLevel) Enables(want LogLevel) bool {
	return want != LogNone && l >= want
}

// CircuitModel is the persisted health state of one guarded callable.
type CircuitModel struct {
	MethodKey     string `json:"methodKey"`
	Namespace     string `json:"namespace,omitempty"`
	DeclaringType string `json:"declaringType,omitempty"`
	MethodName    string `json:"methodName"`

	TimeoutSeconds  int      `json:"timeoutSeconds"`
	LimitBreak      int      `json:"limitBreak"`
	CooldownSeconds int      `json:"cooldownSeconds"`
	LogLevel        LogLevel `json:"logLevel"`

	Calls                      uint64        `json:"calls"`
	ErrorCount                 int           `json:"errorCount"`
	LastAttemptTimestamp       time.Time     `json:"lastAttemptTimestamp,omitzero"`
	LastAttemptTimeTakenMs     float64       `json:"lastAttemptTimeTakenMs"`
	LastAttemptFailureReason   FailureReason `json:"lastAttemptFailureReason"`
	LastFailedAttemptTimestamp time.Time     `json:"lastFailedAttemptTimestamp,omitzero"`
}

// NewCircuitModel creates a Closed model for methodKey from def.
func NewCircuitModel(methodKey string, def CircuitDefinition) CircuitModel {
	meta := observe.CallMetaFromKey(methodKey)
	return CircuitModel{
		MethodKey:       methodKey,
		Namespace:       meta.Namespace,
		DeclaringType:   meta.Type,
		MethodName:      meta.Method,
		TimeoutSeconds:  def.TimeoutSeconds,
		LimitBreak:      def.LimitBreak,
		CooldownSeconds: def.CooldownSeconds,
		LogLevel:        def.LogLevel,
	}
}

// BreakStatus derives the state from ErrorCount and LimitBreak.
func (m CircuitModel) BreakStatus() State {
	switch {
	case m.ErrorCount <= 0:
		return StateClosed
	case m.ErrorCount >= m.LimitBreak:
		return StateOpen
	default:
		return StateHalfOpen
	}
}

// Timeout returns the configured timeout as a duration.
func (m CircuitModel) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Cooldown returns the configured cooldown as a duration.
func (m CircuitModel) Cooldown() time.Duration {
	return time.Duration(m.CooldownSeconds) * time.Second
}

// CallMeta returns the telemetry identity of the model's callable.
func (m CircuitModel) CallMeta() observe.CallMeta {
	return observe.CallMeta{
		Key:       m.MethodKey,
		Namespace: m.Namespace,
		Type:      m.DeclaringType,
		Method:    m.MethodName,
	}
}

// recordAttempt applies the bookkeeping shared by every admitted attempt.
func (m *CircuitModel) recordAttempt(at time.Time, elapsed time.Duration) {
	m.Calls++
	m.LastAttemptTimestamp = at
	m.LastAttemptTimeTakenMs = float64(elapsed.Microseconds()) / 1000.0
}

// recordFailure counts a Timeout or Exception that started at start.
func (m *CircuitModel) recordFailure(reason FailureReason, start time.Time) {
	m.ErrorCount++
	m.LastAttemptFailureReason = reason
	m.LastFailedAttemptTimestamp = start
}

// recordSuccess works off one error. A probe admitted by cooldown has
// already been credited, so it only refreshes the reason.
func (m *CircuitModel) recordSuccess(probe bool) {
	if m.ErrorCount > 0 && !probe {
		m.ErrorCount--
		m.LastFailedAttemptTimestamp = time.Time{}
	}
	m.LastAttemptFailureReason = ReasonNone
}

// coolDown lowers an Open circuit by one notch once the cooldown has passed
// since the last failure. It reports whether it did.
func (m *CircuitModel) coolDown(now time.Time) bool {
	if !m.LastFailedAttemptTimestamp.IsZero() && now.Sub(m.LastFailedAttemptTimestamp) <= m.Cooldown() {
		return false
	}
	m.LastFailedAttemptTimestamp = time.Time{}
	m.LastAttemptFailureReason = ReasonNone
	if m.ErrorCount > 0 {
		m.ErrorCount--
	}
	return true
}
