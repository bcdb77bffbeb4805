package observe

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a *zap.Logger to Logger.
type zapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps z. Redaction rules match the JSON logger.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &zapLogger{z: z}
}

// NewZapProductionLogger builds a production zap logger at level.
func NewZapProductionLogger(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(z), nil
}

// NewZapLoggerWithWriter builds a JSON zap logger at level writing to w.
func NewZapLoggerWithWriter(level string, w io.Writer) Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return NewZapLogger(zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl)))
}

func (l *zapLogger) WithCircuit(meta CallMeta) Logger {
	fields := []zap.Field{
		zap.String("circuit.key", meta.Key),
		zap.String("circuit.method", meta.Method),
	}
	if meta.Namespace != "" {
		fields = append(fields, zap.String("circuit.namespace", meta.Namespace))
	}
	if meta.Type != "" {
		fields = append(fields, zap.String("circuit.type", meta.Type))
	}
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.z.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(_ context.Context, msg string, fields ...Field) {
	l.z.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(_ context.Context, msg string, fields ...Field) {
	l.z.Error(msg, zapFields(fields)...)
}

func (l *zapLogger) Debug(_ context.Context, msg string, fields ...Field) {
	l.z.Debug(msg, zapFields(fields)...)
}

// Sync flushes buffered entries.
func (l *zapLogger) Sync() error {
	return l.z.Sync()
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if isRedactedField(f.Key) {
			out = append(out, zap.String(f.Key, "[REDACTED]"))
			continue
		}
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ Logger = (*zapLogger)(nil)
