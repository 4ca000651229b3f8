package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/etnz/soa"
	"github.com/rs/zerolog"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	FromContext(ctx).Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContextDefault(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithRun(t *testing.T) {
	buf := &bytes.Buffer{}
	WithRun(NewWithWriter(buf), "run-1").Warn().Msg("w")
	if !strings.Contains(buf.String(), `"run_id":"run-1"`) {
		t.Errorf("Expected run_id field, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	buf := &bytes.Buffer{}
	Warnings(NewWithWriter(buf), []soa.Warning{
		{Kind: soa.NumericCoercion, Line: 7, Merchant: "Beta Co", Field: soa.FieldPaymentAmount, Value: "n/a", Message: "not an amount"},
		{Kind: soa.RowRejected, Line: 5, Message: "no merchant"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Warnings() logged %d lines, want 2:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{`"level":"warn"`, `"kind":"numeric-coercion"`, `"line":7`, `"merchant":"Beta Co"`, `"field":"payment_amount"`, `"value":"n/a"`} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("Warnings() first line does not contain %s: %s", want, lines[0])
		}
	}
	if strings.Contains(lines[1], "merchant") {
		t.Errorf("Warnings() logged an empty merchant: %s", lines[1])
	}
}
