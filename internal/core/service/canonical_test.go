package service

import (
	"math"
	"testing"
	"time"
)

func TestAppendValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, "null"},
		{"integer", int64(-42), "-42"},
		{"int", 7, "7"},
		{"real", 1.0, "1e+00"},
		{"real fraction", 10.5, "1.05e+01"},
		{"float32", float32(0.5), "5e-01"},
		{"nan", math.NaN(), "NaN"},
		{"positive infinity", math.Inf(1), "Infinity"},
		{"negative infinity", math.Inf(-1), "-Infinity"},
		{"bool", true, "true"},
		{"text", `say "hi"`, `"say \"hi\""`},
		{"unicode", "café", `"café"`},
		{"blob", []byte{0xde, 0xad}, "x'dead'"},
		{"empty blob", []byte{}, "x''"},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 6, time.FixedZone("X", 3600)), `"2024-01-02T02:04:05.000000006Z"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(appendValue(nil, tt.in)); got != tt.want {
				t.Errorf("appendValue(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestAppendChunk(t *testing.T) {
	got := string(appendChunk(nil, []string{"id", "total"}, [][]any{
		{int64(1), 10.5},
		{int64(2), nil},
	}))
	want := `{"columns":["id","total"],"data":[[1,1.05e+01],[2,null]]}`
	if got != want {
		t.Errorf("appendChunk() = %s, want %s", got, want)
	}

	if got := string(emptyChunk([]string{"a"})); got != `{"columns":["a"],"data":[]}` {
		t.Errorf("emptyChunk() = %s", got)
	}
	if got := string(emptyChunk(nil)); got != `{"columns":[],"data":[]}` {
		t.Errorf("emptyChunk(nil) = %s", got)
	}
}

func TestAppendValue_TextAndBlobDistinct(t *testing.T) {
	text := string(appendValue(nil, "dead"))
	blob := string(appendValue(nil, []byte("dead")))
	if text == blob {
		t.Errorf("text and blob encode identically: %s", text)
	}
}
