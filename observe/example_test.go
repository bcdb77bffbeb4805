package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/breakercache/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "breakercache",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleCallMetaFromKey() {
	meta := observe.CallMetaFromKey("Shop.Crm.Customers.Lookup")
	fmt.Println(meta.Namespace)
	fmt.Println(meta.Type)
	fmt.Println(meta.Method)
	fmt.Println(meta.SpanName())
	// Output:
	// Shop.Crm
	// Customers
	// Lookup
	// circuit.call.Shop.Crm.Customers.Lookup
}

func ExampleLogger_WithCircuit() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	logger.WithCircuit(observe.CallMetaFromKey("Shop.Orders.Place")).
		Warn(context.Background(), "circuit opened", observe.Field{Key: "password", Value: "x"})

	out := buf.String()
	fmt.Println(strings.Contains(out, `"circuit.key":"Shop.Orders.Place"`))
	fmt.Println(strings.Contains(out, `"password":"[REDACTED]"`))
	// Output:
	// true
	// true
}
