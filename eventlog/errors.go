package eventlog

import "errors"

var (
	// ErrNilSink is returned when an Emitter is built without a sink.
	ErrNilSink = errors.New("eventlog: sink is nil")

	// ErrEmptyRoot is returned when a FileSink has no root directory.
	ErrEmptyRoot = errors.New("eventlog: file sink root is empty")

	// ErrEmptyURI is returned when connecting to Mongo without a URI.
	ErrEmptyURI = errors.New("eventlog: mongo uri is empty")

	// ErrEmitterClosed is returned by Close when called twice.
	ErrEmitterClosed = errors.New("eventlog: emitter closed")
)
