package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFormatTimeStamp(t *testing.T) {
	tests := []struct {
		at   time.Time
		want int64
	}{
		{time.Date(2024, 3, 1, 12, 5, 9, 0, time.UTC), 20240301120509},
		{time.Date(1999, 12, 31, 23, 59, 59, 999, time.UTC), 19991231235959},
		{time.Date(2024, 3, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600)), 20240301120000},
	}
	for _, tt := range tests {
		if got := FormatTimeStamp(tt.at); got != tt.want {
			t.Errorf("FormatTimeStamp(%v) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

func TestNewEnvelope(t *testing.T) {
	ctx := WithRequestURL(context.Background(), "https://shop.example.com/cart")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	env := NewEnvelope(ctx, "prod", at, map[string]any{"Method": "Shop.Orders.Place"})

	if _, err := uuid.Parse(env.ID); err != nil {
		t.Errorf("ID = %q, not a uuid: %v", env.ID, err)
	}
	if env.URL != "https://shop.example.com/cart" || env.Environment != "prod" || env.TimeStamp != 20240301120000 {
		t.Errorf("envelope = %+v", env)
	}
	if env.Method() != "Shop.Orders.Place" {
		t.Errorf("Method() = %q", env.Method())
	}

	other := NewEnvelope(context.Background(), "prod", at, nil)
	if other.URL != "" || other.ID == env.ID {
		t.Errorf("second envelope = %+v", other)
	}
}

func TestRequestURL_Missing(t *testing.T) {
	if got := RequestURL(context.Background()); got != "" {
		t.Errorf("RequestURL() = %q, want empty", got)
	}
}
