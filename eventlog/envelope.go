package eventlog

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TimeStampLayout renders Envelope.TimeStamp digits (yyyyMMddHHmmss).
const TimeStampLayout = "20060102150405"

// DefaultCollection is where events are written when no collection is configured.
const DefaultCollection = "circuitbreaker"

// Envelope wraps an event body with where and when it happened.
type Envelope struct {
	ID          string         `json:"Id" bson:"_id"`
	Data        map[string]any `json:"Data" bson:"Data"`
	URL         string         `json:"Url,omitempty" bson:"Url,omitempty"`
	Environment string         `json:"Environment" bson:"Environment"`
	TimeStamp   int64          `json:"TimeStamp" bson:"TimeStamp"`
}

// NewEnvelope wraps data, stamping it with at and the URL stored in ctx.
func NewEnvelope(ctx context.Context, environment string, at time.Time, data map[string]any) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		Data:        data,
		URL:         RequestURL(ctx),
		Environment: environment,
		TimeStamp:   FormatTimeStamp(at),
	}
}

// FormatTimeStamp renders t in UTC as yyyyMMddHHmmss digits.
func FormatTimeStamp(t time.Time) int64 {
	v, _ := strconv.ParseInt(t.UTC().Format(TimeStampLayout), 10, 64)
	return v
}

// Method returns the event's method key, or "".
func (e Envelope) Method() string {
	s, _ := e.Data["Method"].(string)
	return s
}

type requestURLKey struct{}

// WithRequestURL returns a context carrying the URL of the request being served.
func WithRequestURL(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, requestURLKey{}, url)
}

// RequestURL returns the URL stored by WithRequestURL, or "".
func RequestURL(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(requestURLKey{}).(string)
	return s
}
