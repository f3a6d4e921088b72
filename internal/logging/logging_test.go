package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"debug", "debug", false},
		{"", "info", false},
		{"INFO", "info", false},
		{"warning", "warn", false},
		{" error ", "error", false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lvl, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && lvl.String() != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, lvl, tt.want)
			}
		})
	}
}

func TestDefaultLoggerDiscards(t *testing.T) {
	l := L()
	if l == nil {
		t.Fatal("expected a logger before Init")
	}
	l.Infow("dropped", "key", "value")
	Named("engine").Debugw("dropped")
}

func TestInit(t *testing.T) {
	l, err := Init("warn")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if L() != l {
		t.Error("expected Init to replace the global logger")
	}
	if _, err := Init("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestLoggerInterface(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var l Logger = zap.New(core).Sugar()

	l.Debugw("hidden")
	l.Infow("detection changed", "letter", "A")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "detection changed" || entry.ContextMap()["letter"] != "A" {
		t.Errorf("unexpected entry %+v", entry)
	}
}
