package logger

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "os"
    "strings"
)

// Log is the process-wide logger. It is a no-op until Init is called so
// library code and tests can log unconditionally.
var Log = zap.NewNop()

// Init sets up a global logger at the LOG_LEVEL level. Call once in main().
func Init() error {
    return InitLevel(os.Getenv("LOG_LEVEL"))
}

// InitLevel is Init with an explicit level; empty means info.
func InitLevel(level string) error {
    cfg := zap.NewProductionConfig()
    cfg.EncoderConfig.TimeKey = "ts"
    cfg.EncoderConfig.MessageKey = "msg"
    if level != "" {
        cfg.Level.SetLevel(parseLevel(level))
    }
    l, err := cfg.Build()
    if err != nil {
        return err
    }
    Log = l
    return nil
}

// Or returns l, or the global logger when l is nil.
func Or(l *zap.Logger) *zap.Logger {
    if l != nil {
        return l
    }
    return Log
}

// parseLevel is a helper mapping strings to zapcore.Level
func parseLevel(s string) zapcore.Level {
    switch strings.ToLower(s) {
    case "debug":
        return zapcore.DebugLevel
    case "warn":
        return zapcore.WarnLevel
    case "error":
        return zapcore.ErrorLevel
    default:
        return zapcore.InfoLevel
    }
}
