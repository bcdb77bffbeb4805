package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSink writes one JSON file per envelope to <root>/<collection>/<id>.json.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink under root. An empty collection uses
// DefaultCollection. The directory is created on first write.
func NewFileSink(root, collection string) (*FileSink, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrEmptyRoot
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &FileSink{dir: filepath.Join(root, collection)}, nil
}

// Dir returns the directory events are written to.
func (s *FileSink) Dir() string {
	return s.dir
}

// Write implements Sink.
func (s *FileSink) Write(_ context.Context, env Envelope) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("eventlog: create %s: %w", s.dir, err)
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("eventlog: encode %s: %w", env.ID, err)
	}

	// Write then rename so readers never see a partial file.
	path := filepath.Join(s.dir, env.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("eventlog: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("eventlog: write %s: %w", path, err)
	}
	return nil
}

// Recent implements RecentReader by scanning the directory.
func (s *FileSink) Recent(ctx context.Context, methodKey, environment string, n int) ([]Envelope, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eventlog: read %s: %w", s.dir, err)
	}

	var out []Envelope
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("eventlog: read %s: %w", e.Name(), err)
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.Method() == methodKey && env.Environment == environment {
			out = append(out, env)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeStamp != out[j].TimeStamp {
			return out[i].TimeStamp > out[j].TimeStamp
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

var (
	_ Sink         = (*FileSink)(nil)
	_ RecentReader = (*FileSink)(nil)
)
