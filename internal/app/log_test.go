package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestFwtHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "20240615T143045Z",
			level:   slog.LevelInfo,
			message: "mapping applied",
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z\tmapping applied\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "scan complete",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tscan complete\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "trashed",
			attrs:   []slog.Attr{slog.String("source", "assets/map.png"), slog.Int("occurrences", 3)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\ttrashed\tsource=assets/map.png\toccurrences=3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &fwtHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFwtHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := &fwtHandler{w: &buf, opID: "op-1"}
	h := base.WithAttrs([]slog.Attr{slog.String("project", "myworld")})

	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "scan complete", 0)
	r.AddAttrs(slog.Int("assets", 7))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := "2024-06-15T14:30:45Z\tINFO\top-1\tscan complete\tproject=myworld\tassets=7\n"
	if got := buf.String(); got != want {
		t.Errorf("Handle() output = %q, want %q", got, want)
	}
}
