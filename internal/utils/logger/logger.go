package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pendulum-chain/vortex-sub005/internal/types/environments"
)

type Logger struct {
	wrappedLogger *zap.Logger
}

func New(env environments.Environment) *Logger {
	var cfg zap.Config

	switch env {
	case environments.Development:
		cfg = newDevelopmentLoggerConfig()
	case environments.Test:
		cfg = newTestLoggerConfig()
	case environments.Staging:
		cfg = newStagingLoggerConfig()
	case environments.Production:
		cfg = newProductionLoggerConfig()
	default:
		cfg = newProductionLoggerConfig()
	}

	zapLogger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return &Logger{
		wrappedLogger: zapLogger,
	}
}

// With returns a child logger that always carries the given fields, e.g. the ramp session id.
func (l *Logger) With(fields map[string]string) *Logger {
	return &Logger{wrappedLogger: l.wrappedLogger.With(transformStrMapToFields(fields)...)}
}

func (l *Logger) Debug(msg string, inputFields ...map[string]string) {
	l.write(zapcore.DebugLevel, msg, inputFields)
}

func (l *Logger) Info(msg string, inputFields ...map[string]string) {
	l.write(zapcore.InfoLevel, msg, inputFields)
}

func (l *Logger) Warn(msg string, inputFields ...map[string]string) {
	l.write(zapcore.WarnLevel, msg, inputFields)
}

func (l *Logger) Error(msg string, inputFields ...map[string]string) {
	l.write(zapcore.ErrorLevel, msg, inputFields)
}

func (l *Logger) Fatal(msg string, inputFields ...map[string]string) {
	l.write(zapcore.FatalLevel, msg, inputFields)
}

func (l *Logger) Sync() error {
	return l.wrappedLogger.Sync()
}

func (l *Logger) write(level zapcore.Level, msg string, inputFields []map[string]string) {
	fields := []zap.Field{}
	if len(inputFields) > 0 {
		fields = transformStrMapToFields(inputFields[0])
	}

	switch level {
	case zapcore.DebugLevel:
		l.wrappedLogger.Debug(msg, fields...)
	case zapcore.InfoLevel:
		l.wrappedLogger.Info(msg, fields...)
	case zapcore.WarnLevel:
		l.wrappedLogger.Warn(msg, fields...)
	case zapcore.ErrorLevel:
		l.wrappedLogger.Error(msg, fields...)
	case zapcore.FatalLevel:
		l.wrappedLogger.Fatal(msg, fields...)
	}
}

func transformStrMapToFields(strMap map[string]string) []zap.Field {
	fields := []zap.Field{}
	for k, v := range strMap {
		fields = append(fields, zap.String(k, v))
	}

	return fields
}
