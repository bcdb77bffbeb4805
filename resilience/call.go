package resilience

import (
	"context"
	"time"

	"github.com/jonwraymond/breakercache/observe"
)

// Attempt describes how the breaker handled one call.
type Attempt struct {
	MethodKey string
	// State is the circuit state the attempt was admitted or rejected under.
	State  State
	Reason FailureReason
	// Rejected is true when an Open circuit refused the call.
	Rejected bool
	// Bypassed is true when maintenance mode skipped the call entirely.
	Bypassed bool
	// Probe is true when the attempt was admitted by an Open circuit's cooldown.
	Probe   bool
	Elapsed time.Duration
}

// CallOption adds caller context to the attempt event.
type CallOption func(*callOptions)

type callOptions struct {
	caller  string
	request map[string]any
}

// WithCaller records the calling site in the attempt event.
func WithCaller(name string) CallOption {
	return func(o *callOptions) {
		o.caller = name
	}
}

// WithRequest records the call arguments in the attempt event.
func WithRequest(args map[string]any) CallOption {
	return func(o *callOptions) {
		o.request = args
	}
}

// Call runs fn under the circuit for methodKey and returns its result.
//
// A call rejected by an Open circuit returns the zero value and a nil error;
// use CallWithAttempt to tell a rejection from a legitimate zero result.
func Call[T any](ctx context.Context, r *Registry, methodKey string, fn func(context.Context) (T, error), opts ...CallOption) (T, error) {
	v, _, err := CallWithAttempt(ctx, r, methodKey, fn, opts...)
	return v, err
}

// CallWithAttempt is Call that also reports how the attempt was handled.
//
// Errors returned by fn come back unchanged. A panic in fn is recorded as an
// Exception and re-raised.
func CallWithAttempt[T any](ctx context.Context, r *Registry, methodKey string, fn func(context.Context) (T, error), opts ...CallOption) (T, Attempt, error) {
	var zero T
	if r == nil {
		return zero, Attempt{MethodKey: methodKey}, ErrNilLayer
	}
	if methodKey == "" {
		return zero, Attempt{}, ErrEmptyMethodKey
	}
	if r.InMaintenance(methodKey) {
		return zero, Attempt{MethodKey: methodKey, Bypassed: true}, nil
	}

	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	meta := observe.CallMetaFromKey(methodKey)
	ctx, span := r.tracer.StartSpan(ctx, meta)
	done := false
	defer func() {
		if done {
			return
		}
		p := recover()
		if p == nil {
			// runtime.Goexit in fn: let it unwind.
			r.tracer.EndSpan(span, observe.CallOutcome{})
			return
		}
		outcome := observe.CallOutcome{Reason: ReasonException.String(), Err: &PanicError{Value: p}}
		r.tracer.EndSpan(span, outcome)
		r.metrics.RecordCall(ctx, meta, outcome)
		panic(p)
	}()

	v, att, err := attempt(ctx, r, methodKey, fn, co, false)
	done = true

	outcome := observe.CallOutcome{
		State:    att.State.String(),
		Reason:   att.Reason.String(),
		Rejected: att.Rejected,
		Duration: att.Elapsed,
		Err:      err,
	}
	r.tracer.EndSpan(span, outcome)
	r.metrics.RecordCall(ctx, meta, outcome)
	return v, att, err
}

func attempt[T any](ctx context.Context, r *Registry, methodKey string, fn func(context.Context) (T, error), co callOptions, probe bool) (T, Attempt, error) {
	var zero T
	model, err := r.loadOrCreate(ctx, methodKey)
	if err != nil {
		return zero, Attempt{MethodKey: methodKey}, err
	}
	if state := model.BreakStatus(); state != StateOpen {
		return invoke(ctx, r, model, state, fn, co, probe)
	}

	now := r.now()
	fresh, err := r.freshest(ctx, model)
	if err != nil {
		return zero, Attempt{MethodKey: methodKey, State: StateOpen}, err
	}
	if !probe && fresh.coolDown(now) {
		if err := r.save(ctx, &fresh); err != nil {
			return zero, Attempt{MethodKey: methodKey, State: StateOpen}, err
		}
		r.logTransition(ctx, StateOpen, &fresh)
		if fresh.BreakStatus() != StateOpen {
			return attempt(ctx, r, methodKey, fn, co, true)
		}
	}
	return reject[T](ctx, r, fresh, now, co)
}

func reject[T any](ctx context.Context, r *Registry, m CircuitModel, now time.Time, co callOptions) (T, Attempt, error) {
	var zero T
	m.recordAttempt(now, 0)
	m.LastAttemptFailureReason = ReasonOpenCircuit
	att := Attempt{MethodKey: m.MethodKey, State: StateOpen, Reason: ReasonOpenCircuit, Rejected: true}
	if err := r.save(ctx, &m); err != nil {
		return zero, att, err
	}
	if m.LogLevel.Enables(LogOpenCircuitFailures) {
		r.emit(ctx, &m, co, attemptEvent{reason: ReasonOpenCircuit, rejected: true})
	}
	return zero, att, nil
}

func invoke[T any](ctx context.Context, r *Registry, m CircuitModel, state State, fn func(context.Context) (T, error), co callOptions, probe bool) (T, Attempt, error) {
	var zero T
	att := Attempt{MethodKey: m.MethodKey, State: state, Probe: probe}
	start := r.now()

	finished := false
	defer func() {
		if finished {
			return
		}
		p := recover()
		if p == nil {
			return
		}
		perr := &PanicError{Value: p}
		if _, err := finish(ctx, r, m, state, probe, start, r.now().Sub(start), ReasonException, co, nil, perr); err != nil {
			r.logger.WithCircuit(m.CallMeta()).Error(ctx, "record panicked call", observe.Field{Key: "error", Value: err})
		}
		panic(p)
	}()
	v, callErr := fn(ctx)
	finished = true

	att.Elapsed = r.now().Sub(start)
	switch {
	case callErr != nil:
		att.Reason = ReasonException
	case att.Elapsed > m.Timeout():
		att.Reason = ReasonTimeout
	}

	var response any
	if callErr == nil {
		response = v
	}
	if _, err := finish(ctx, r, m, state, probe, start, att.Elapsed, att.Reason, co, response, callErr); err != nil {
		if callErr != nil {
			r.logger.WithCircuit(m.CallMeta()).Error(ctx, "record failed call", observe.Field{Key: "error", Value: err})
			return zero, att, callErr
		}
		return v, att, err
	}

	switch att.Reason {
	case ReasonException:
		return zero, att, callErr
	case ReasonTimeout:
		if r.discardTimedOut {
			return zero, att, nil
		}
	}
	return v, att, nil
}

// finish folds one completed invocation into the freshest stored model.
func finish(ctx context.Context, r *Registry, m CircuitModel, before State, probe bool, start time.Time, elapsed time.Duration, reason FailureReason, co callOptions, response any, callErr error) (CircuitModel, error) {
	fresh, err := r.freshest(ctx, m)
	if err != nil {
		return m, err
	}
	fresh.recordAttempt(start.Add(elapsed), elapsed)
	if reason == ReasonNone {
		fresh.recordSuccess(probe)
	} else {
		fresh.recordFailure(reason, start)
	}
	if err := r.save(ctx, &fresh); err != nil {
		return fresh, err
	}
	r.logTransition(ctx, before, &fresh)

	level := LogSuccessfulCalls
	switch reason {
	case ReasonException:
		level = LogErrors
	case ReasonTimeout:
		level = LogTimeouts
	}
	if fresh.LogLevel.Enables(level) {
		r.emit(ctx, &fresh, co, attemptEvent{
			reason:   reason,
			elapsed:  elapsed,
			response: response,
			err:      callErr,
		})
	}
	return fresh, nil
}
