package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewFileSink(t *testing.T) {
	if _, err := NewFileSink(" ", ""); !errors.Is(err, ErrEmptyRoot) {
		t.Errorf("NewFileSink(blank) error = %v", err)
	}
	s, err := NewFileSink("/var/log/breaker", "")
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	if s.Dir() != filepath.Join("/var/log/breaker", DefaultCollection) {
		t.Errorf("Dir() = %q", s.Dir())
	}
}

func TestFileSink_Write(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSink(root, "events")
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	env := NewEnvelope(context.Background(), "prod", time.Now(), map[string]any{"Method": "Shop.Orders.Place"})
	if err := s.Write(context.Background(), env); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "events", env.ID+".json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != env.ID || got.Method() != "Shop.Orders.Place" {
		t.Errorf("stored envelope = %+v", got)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "events"))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestFileSink_Recent(t *testing.T) {
	s, err := NewFileSink(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	write := func(env string, method string, at time.Time) {
		t.Helper()
		if err := s.Write(ctx, NewEnvelope(ctx, env, at, map[string]any{"Method": method})); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		write("prod", "Shop.Orders.Place", base.Add(time.Duration(i)*time.Minute))
	}
	write("staging", "Shop.Orders.Place", base.Add(time.Hour))
	write("prod", "Shop.Crm.Lookup", base.Add(time.Hour))

	got, err := s.Recent(ctx, "Shop.Orders.Place", "prod", 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d, want 3", len(got))
	}
	want := []int64{20240301120400, 20240301120300, 20240301120200}
	for i, env := range got {
		if env.TimeStamp != want[i] {
			t.Errorf("Recent()[%d].TimeStamp = %d, want %d", i, env.TimeStamp, want[i])
		}
	}
}

func TestFileSink_RecentMissingDir(t *testing.T) {
	s, _ := NewFileSink(filepath.Join(t.TempDir(), "absent"), "")
	got, err := s.Recent(context.Background(), "Shop.Orders.Place", "prod", 0)
	if err != nil || len(got) != 0 {
		t.Errorf("Recent() = %v, %v", got, err)
	}
}
