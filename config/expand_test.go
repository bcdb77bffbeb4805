package config

import (
	"errors"
	"strings"
	"testing"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestExpandWith(t *testing.T) {
	env := mapLookup(map[string]string{"HOST": "redis", "PORT": "6379", "EMPTY": ""})
	tests := []struct {
		in   string
		want string
	}{
		{"${HOST}:${PORT}", "redis:6379"},
		{"$HOST", "redis"},
		{"$$${HOST}", "$redis"},
		{"price: $$5", "price: $5"},
		{"x${EMPTY}y", "xy"},
		{"no vars", "no vars"},
	}
	for _, tt := range tests {
		got, err := ExpandWith(tt.in, env)
		if err != nil || got != tt.want {
			t.Errorf("ExpandWith(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestExpandWith_Missing(t *testing.T) {
	_, err := ExpandWith("a=${B_VAR} b=${A_VAR} c=${B_VAR}", mapLookup(nil))
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("ExpandWith() error = %v, want ErrMissingEnv", err)
	}
	if !strings.HasSuffix(err.Error(), "A_VAR, B_VAR") {
		t.Errorf("error = %q, want sorted unique names", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("BREAKER_TEST_X", "y")
	out, err := ExpandEnv("$${BREAKER_TEST_X}=${BREAKER_TEST_X}")
	if err != nil || out != "${BREAKER_TEST_X}=y" {
		t.Errorf("ExpandEnv() = %q, %v", out, err)
	}
}
