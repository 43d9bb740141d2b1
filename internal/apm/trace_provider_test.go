package apm

import (
	"context"
	"testing"

	"github.com/fd1az/graph-arbitrage/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{"", map[string]string{}, false},
		{"x-honeycomb-team=abc", map[string]string{"x-honeycomb-team": "abc"}, false},
		{"a=1, b=2", map[string]string{"a": "1", "b": "2"}, false},
		{"novalue", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseHeaders(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseHeaders(%q) error = %v", tt.raw, err)
		}
		if tt.wantErr {
			continue
		}
		if len(got) != len(tt.want) {
			t.Fatalf("ParseHeaders(%q) = %v, want %v", tt.raw, got, tt.want)
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("ParseHeaders(%q)[%s] = %q, want %q", tt.raw, k, got[k], v)
			}
		}
	}
}

func TestEmptyProvider(t *testing.T) {
	tp, err := NewTraceProvider(context.Background(), Config{Provider: EmptyProvider}, logger.NewDiscard())
	if err != nil {
		t.Fatal(err)
	}
	if err := tp.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewTraceProvider(context.Background(), Config{Provider: "jaeger"}, logger.NewDiscard())
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
