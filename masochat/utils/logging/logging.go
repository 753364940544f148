package logging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// The loggers are no-ops until InitLogger runs, so packages can log
// unconditionally from tests and from the client binary.
var (
	AppLogger     = zap.NewNop()
	RequestLogger = zap.NewNop()
	TimerLogger   = zap.NewNop()
	ErrorLogger   = zap.NewNop()
)

type traceIDKey struct{}

// WithTraceID tags ctx so LogDuration can correlate timings with a request.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

func rotating(dir, name string, maxSize, maxAge int) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename: filepath.Join(dir, name), MaxSize: maxSize, MaxAge: maxAge, Compress: true,
	})
}

func InitLogger(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	AppLogger = zap.New(zapcore.NewCore(encoder, rotating(dir, "app.log", 100, 28), zap.InfoLevel))
	RequestLogger = zap.New(zapcore.NewCore(encoder, rotating(dir, "request.log", 50, 7), zap.InfoLevel))
	TimerLogger = zap.New(zapcore.NewCore(encoder, rotating(dir, "timer.log", 50, 7), zap.InfoLevel))
	ErrorLogger = zap.New(zapcore.NewCore(encoder, rotating(dir, "error.log", 100, 30), zap.ErrorLevel))
	return nil
}

// Sync flushes every logger; call it before exit.
func Sync() {
	for _, l := range []*zap.Logger{AppLogger, RequestLogger, TimerLogger, ErrorLogger} {
		_ = l.Sync()
	}
}

// LogDuration lets you do: defer logging.LogDuration(ctx, "FuncName")()
func LogDuration(ctx context.Context, name string) func() {
	start := time.Now()
	traceID, _ := ctx.Value(traceIDKey{}).(string)

	return func() {
		fields := []zap.Field{
			zap.String("func", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		TimerLogger.Info("Function timed", fields...)
	}
}
