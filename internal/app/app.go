// Package app assembles the breaker from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/breakercache/admin"
	"github.com/jonwraymond/breakercache/cache"
	"github.com/jonwraymond/breakercache/config"
	"github.com/jonwraymond/breakercache/eventlog"
	"github.com/jonwraymond/breakercache/health"
	"github.com/jonwraymond/breakercache/observe"
	"github.com/jonwraymond/breakercache/resilience"
)

// ServiceName identifies the process in telemetry.
const ServiceName = "breakercache"

// ErrAdminSecretRequired is returned by Serve when the admin API would be
// unauthenticated and ADMIN_INSECURE is not set.
var ErrAdminSecretRequired = errors.New("app: ADMIN_JWT_SECRET is required (set ADMIN_INSECURE=true to serve without authentication)")

// App holds the wired components.
type App struct {
	Env      config.Env
	File     *config.File
	Store    cache.Store
	Layer    *cache.Layer
	Keys     *cache.Registry
	Registry *resilience.Registry
	Emitter  *eventlog.Emitter
	Logs     eventlog.RecentReader
	Observer observe.Observer
	Logger   observe.Logger
	Health   *health.Aggregator
	Metrics  *prometheus.Registry

	closers []func(context.Context) error
}

// Option overrides a component, mainly for tests.
type Option func(*options)

type options struct {
	file      *config.File
	store     cache.Store
	clock     func() time.Time
	logWriter io.Writer
}

// WithFile uses f instead of loading Env.ConfigPath.
func WithFile(f *config.File) Option {
	return func(o *options) { o.file = f }
}

// WithStore uses store instead of the one Env selects.
func WithStore(store cache.Store) Option {
	return func(o *options) { o.store = store }
}

// WithLogWriter sends log lines to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

// WithClock sets the time source shared by the layer, registry and emitter.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New wires every component described by env. Close releases them.
func New(ctx context.Context, env config.Env, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	a := &App{Env: env, Metrics: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if a.File = o.file; a.File == nil {
		if a.File, err = config.Load(env.ConfigPath); err != nil {
			return nil, err
		}
	}
	if err := a.setupObserver(ctx, o.logWriter); err != nil {
		return nil, err
	}
	if err := a.setupStore(o.store, o.clock); err != nil {
		return nil, err
	}
	if err := a.setupEventLog(ctx, o.clock); err != nil {
		return nil, err
	}
	if err := a.setupRegistry(o.clock); err != nil {
		return nil, err
	}

	a.Health = health.NewAggregator()
	a.Health.Register(health.NewStoreChecker(a.Store))
	a.Health.Register(health.NewCircuitChecker(a.Registry, health.CircuitCheckerConfig{}))
	if a.Emitter != nil {
		a.Health.Register(health.NewEventLogChecker(a.Emitter))
	}
	return a, nil
}

func (a *App) setupObserver(ctx context.Context, logWriter io.Writer) error {
	traces := a.Env.OTelTraces != "" && a.Env.OTelTraces != "none"
	metrics := a.Env.OTelMetrics != "" && a.Env.OTelMetrics != "none"
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: ServiceName,
		Tracing:     observe.TracingConfig{Enabled: traces, Exporter: a.Env.OTelTraces, SamplePct: 1},
		Metrics:     observe.MetricsConfig{Enabled: metrics, Exporter: a.Env.OTelMetrics, Registerer: a.Metrics},
		Logging:     observe.LoggingConfig{Enabled: true, Level: a.Env.LogLevel, Format: a.Env.LogFormat, Writer: logWriter},
	})
	if err != nil {
		return fmt.Errorf("app: observer: %w", err)
	}
	a.Observer = obs
	a.Logger = obs.Logger()
	a.closers = append(a.closers, obs.Shutdown)
	return nil
}

func (a *App) setupStore(store cache.Store, now func() time.Time) error {
	switch rc, ok := a.Env.RedisConfig(); {
	case store != nil:
	case ok:
		rs, err := cache.NewRedisStoreFromConfig(rc)
		if err != nil {
			return fmt.Errorf("app: redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rs.Close() })
		store = rs
		a.Logger.Info(context.Background(), "using redis store", observe.Field{Key: "addrs", Value: rc.Addrs})
	default:
		store = cache.NewMemoryStoreWithClock(now)
		a.Logger.Warn(context.Background(), "no REDIS_ADDRS set, circuits are local to this process")
	}
	a.Store = store

	layer, err := cache.NewLayer(store, cache.WithEnvironment(a.File.Environment), cache.WithClock(now))
	if err != nil {
		return fmt.Errorf("app: cache layer: %w", err)
	}
	a.Layer = layer
	if a.Keys, err = a.File.Keys(); err != nil {
		return fmt.Errorf("app: cache keys: %w", err)
	}
	return nil
}

func (a *App) setupEventLog(ctx context.Context, now func() time.Time) error {
	var sinks []eventlog.Sink
	if a.Env.MongoURI != "" {
		ms, err := eventlog.ConnectMongo(ctx, eventlog.MongoConfig{
			URI:        a.Env.MongoURI,
			Database:   a.Env.MongoDatabase,
			Collection: a.Env.MongoCollection,
		})
		if err != nil {
			return fmt.Errorf("app: event log: %w", err)
		}
		a.closers = append(a.closers, ms.Close)
		sinks = append(sinks, ms)
	}
	if a.Env.LogDir != "" {
		fs, err := eventlog.NewFileSink(a.Env.LogDir, a.Env.MongoCollection)
		if err != nil {
			return fmt.Errorf("app: event log: %w", err)
		}
		sinks = append(sinks, fs)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, eventlog.NewLoggerSink(a.Logger))
	}

	sink := eventlog.NewMultiSink(sinks...)
	a.Logs = sink
	emitter, err := eventlog.NewEmitter(sink,
		eventlog.WithEnvironment(a.Layer.Environment()),
		eventlog.WithLogger(a.Logger),
		eventlog.WithClock(now),
	)
	if err != nil {
		return fmt.Errorf("app: event log: %w", err)
	}
	a.Emitter = emitter
	a.closers = append(a.closers, emitter.Close)
	return nil
}

func (a *App) setupRegistry(now func() time.Time) error {
	defs, err := a.File.Definitions()
	if err != nil {
		return fmt.Errorf("app: circuits: %w", err)
	}
	metrics, err := observe.MetricsFrom(a.Observer)
	if err != nil {
		return fmt.Errorf("app: metrics: %w", err)
	}
	maint := a.File.Maintenance
	a.Registry, err = resilience.NewRegistry(a.Layer, defs,
		resilience.WithClock(now),
		resilience.WithLogger(a.Logger),
		resilience.WithTracer(observe.TracerFrom(a.Observer)),
		resilience.WithMetrics(metrics),
		resilience.WithEventSink(a.Emitter),
		resilience.WithMaintenance(maint.Enabled || a.Env.MaintenanceMode, maint.Prefixes...),
	)
	if err != nil {
		return fmt.Errorf("app: registry: %w", err)
	}
	return nil
}

// Handler returns the HTTP surface: admin routes, health probes and /metrics.
func (a *App) Handler() (http.Handler, error) {
	adminHandler, err := admin.NewHandler(admin.Config{
		Registry: a.Registry,
		Layer:    a.Layer,
		Logs:     a.Logs,
		Logger:   a.Logger,
		Token: admin.TokenConfig{
			Secret: []byte(a.Env.AdminJWTSecret),
			Issuer: a.Env.AdminJWTIssuer,
		},
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, a.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{}))
	mux.Handle("/", adminHandler)
	return mux, nil
}

// Serve listens on Env.AdminAddr until ctx ends, then shuts down gracefully.
// It refuses to start without an admin secret unless Env.AdminInsecure is set.
func (a *App) Serve(ctx context.Context) error {
	if a.Env.AdminJWTSecret == "" {
		if !a.Env.AdminInsecure {
			return ErrAdminSecretRequired
		}
		a.Logger.Warn(ctx, "admin API has no authentication",
			observe.Field{Key: "addr", Value: a.Env.AdminAddr},
			observe.Field{Key: "reason", Value: "ADMIN_INSECURE=true and ADMIN_JWT_SECRET unset"},
		)
	}
	handler, err := a.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.Env.AdminAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	a.Logger.Info(ctx, "admin server listening", observe.Field{Key: "addr", Value: srv.Addr})
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close releases components in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Circuits returns the circuit registry.
func (a *App) Circuits() *resilience.Registry { return a.Registry }

// Cache returns the cache layer.
func (a *App) Cache() *cache.Layer { return a.Layer }
