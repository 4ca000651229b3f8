package soa

import (
	"encoding/json"
	"testing"
)

func TestJsonObjectWriter(t *testing.T) {
	tests := []struct {
		name  string
		build func(w *jsonObjectWriter)
		want  string
	}{
		{
			name:  "empty object",
			build: func(w *jsonObjectWriter) {},
			want:  "{}",
		},
		{
			name: "ordered keys",
			build: func(w *jsonObjectWriter) {
				w.Append("z", 1).Append("a", "hello")
			},
			want: `{"z":1,"a":"hello"}`,
		},
		{
			name: "embed object",
			build: func(w *jsonObjectWriter) {
				w.Append("kind", "totals")
				w.Embed(json.RawMessage(`{"label":"due","amount":"1.00"}`))
			},
			want: `{"kind":"totals","label":"due","amount":"1.00"}`,
		},
		{
			name: "embed empty object",
			build: func(w *jsonObjectWriter) {
				w.Append("kind", "x").EmbedFrom(struct{}{})
			},
			want: `{"kind":"x"}`,
		},
		{
			name: "optional fields",
			build: func(w *jsonObjectWriter) {
				w.Append("a", 0) // a zero value is actually added.
				w.Optional("b", "")
				w.Optional("c", []string(nil))
				w.Optional("d", "hello")
			},
			want: `{"a":0,"d":"hello"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w jsonObjectWriter
			tt.build(&w)
			got, err := w.MarshalJSON()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestJsonObjectWriterError(t *testing.T) {
	var w jsonObjectWriter
	w.Append("f", func() {})
	w.Append("a", 1)
	if _, err := w.MarshalJSON(); err == nil {
		t.Error("MarshalJSON() succeeded with an unmarshalable value")
	}
}
