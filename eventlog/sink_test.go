package eventlog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/breakercache/observe"
)

type memorySink struct {
	mu   sync.Mutex
	envs []Envelope
	// failures makes the first n writes fail.
	failures int
	err      error
	release  chan struct{}
}

func (s *memorySink) Write(_ context.Context, env Envelope) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.failures > 0 {
		s.failures--
		return errors.New("transient")
	}
	s.envs = append(s.envs, env)
	return nil
}

func (s *memorySink) Envelopes() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.envs...)
}

func (s *memorySink) Recent(context.Context, string, string, int) ([]Envelope, error) {
	return s.Envelopes(), nil
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLoggerSink(observe.NewLoggerWithWriter("info", &buf))
	env := NewEnvelope(WithRequestURL(context.Background(), "/cart"), "prod", time.Now(), map[string]any{"Method": "Shop.Orders.Place"})

	if err := s.Write(context.Background(), env); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"circuit event", env.ID, "Shop.Orders.Place", "/cart"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	m := NewMultiSink(a, nil, b)
	env := NewEnvelope(context.Background(), "prod", time.Now(), nil)

	if err := m.Write(context.Background(), env); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(a.Envelopes()) != 1 || len(b.Envelopes()) != 1 {
		t.Errorf("writes = %d, %d, want 1 each", len(a.Envelopes()), len(b.Envelopes()))
	}

	boom := errors.New("disk full")
	failing := NewMultiSink(a, &memorySink{err: boom})
	if err := failing.Write(context.Background(), env); !errors.Is(err, boom) {
		t.Errorf("Write() error = %v, want %v", err, boom)
	}
	if len(a.Envelopes()) != 2 {
		t.Error("healthy sink skipped because another failed")
	}
}

func TestMultiSink_Recent(t *testing.T) {
	src := &memorySink{}
	m := NewMultiSink(NewLoggerSink(nil), src)
	_ = src.Write(context.Background(), Envelope{ID: "1"})

	got, err := m.Recent(context.Background(), "x", "prod", 5)
	if err != nil || len(got) != 1 {
		t.Errorf("Recent() = %v, %v", got, err)
	}
	if got, _ := NewMultiSink(NewLoggerSink(nil)).Recent(context.Background(), "x", "prod", 5); got != nil {
		t.Errorf("Recent() without a reader = %v", got)
	}
}
