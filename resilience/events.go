package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event body keys.
const (
	EventMethod                       = "Method"
	EventCalledFrom                   = "CalledFrom"
	EventTimeTakenSeconds             = "TimeTakenSeconds"
	EventFailed                       = "Failed"
	EventRequest                      = "Request"
	EventResponse                     = "Response"
	EventResponseSerializationFailure = "ResponseSerializationFailure"
	EventException                    = "Exception"
)

type attemptEvent struct {
	reason   FailureReason
	rejected bool
	elapsed  time.Duration
	response any
	err      error
}

func (r *Registry) emit(ctx context.Context, m *CircuitModel, co callOptions, ev attemptEvent) {
	if r.sink == nil {
		return
	}
	body := map[string]any{EventMethod: m.MethodKey}
	if co.caller != "" {
		body[EventCalledFrom] = co.caller
	}
	if !ev.rejected {
		body[EventTimeTakenSeconds] = ev.elapsed.Seconds()
	}
	if ev.reason != ReasonNone {
		body[EventFailed] = ev.reason.String()
	}
	if co.request != nil {
		if req, err := detach(co.request); err == nil {
			body[EventRequest] = req
		}
	}
	if ev.response != nil {
		if resp, err := detach(ev.response); err != nil {
			body[EventResponseSerializationFailure] = err.Error()
		} else {
			body[EventResponse] = resp
		}
	}
	if ev.err != nil {
		body[EventException] = exceptionDetail(ev.err)
	}
	r.sink.Emit(ctx, body)
}

// detach returns a JSON round-trip copy of v. The event is written after
// Call returns, so it must not share maps or slices with the caller.
func detach(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// exceptionDetail flattens an error and its wrapped causes.
func exceptionDetail(err error) map[string]any {
	detail := map[string]any{
		"ClassName": fmt.Sprintf("%T", err),
		"Message":   err.Error(),
	}
	if inner := errors.Unwrap(err); inner != nil {
		detail["InnerException"] = inner.Error()
	}
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %s", e, e.Error()))
	}
	detail["Chain"] = chain
	return detail
}
