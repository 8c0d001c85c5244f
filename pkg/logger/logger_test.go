package logger

import (
    "testing"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
    cases := map[string]zapcore.Level{
        "debug":   zapcore.DebugLevel,
        "WARN":    zapcore.WarnLevel,
        "error":   zapcore.ErrorLevel,
        "info":    zapcore.InfoLevel,
        "verbose": zapcore.InfoLevel,
    }
    for in, want := range cases {
        if got := parseLevel(in); got != want {
            t.Errorf("parseLevel(%q) = %v; want %v", in, got, want)
        }
    }
}

func TestOr(t *testing.T) {
    if Or(nil) != Log {
        t.Error("Or(nil) should return the global logger")
    }
    l := zap.NewExample()
    if Or(l) != l {
        t.Error("Or(l) should return l")
    }
}
