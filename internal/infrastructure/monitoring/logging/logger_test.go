package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestZapLoggerEmitsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.Info("job completed",
		String("reference", "US123A"),
		Int("matches", 3),
		Float64("top_score", 0.91),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "job completed" {
		t.Errorf("message = %q", entries[0].Message)
	}
	fields := entries[0].ContextMap()
	if fields["reference"] != "US123A" {
		t.Errorf("reference field = %v", fields["reference"])
	}
	if fields["matches"] != int64(3) {
		t.Errorf("matches field = %v", fields["matches"])
	}
}

func TestWithAttachesFieldsToChildren(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).With(String("tenant", "t1"))

	log.Warn("slow escalation")

	if got := logs.All()[0].ContextMap()["tenant"]; got != "t1" {
		t.Errorf("tenant field = %v, want t1", got)
	}
}

func TestErrField(t *testing.T) {
	if Err(nil).Value != "<nil>" {
		t.Error("Err(nil) should carry <nil>")
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	log := NewNopLogger()
	log.Info("ignored")
	log.With(String("k", "v")).Named("child").Error("also ignored")
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	SetDefault(nil) // must be a no-op
	if Default() == nil {
		t.Fatal("Default() must never be nil")
	}

	l := NewNopLogger()
	SetDefault(l)
	if Default() != l {
		t.Error("SetDefault should replace the default logger")
	}
}

//Personal.AI order the ending
