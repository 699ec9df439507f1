package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRowProgress_KnownTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewRowProgress(buf, "Hashing orders", 10000)

	p.Observe(5000)
	out := buf.String()
	if !strings.Contains(out, "Hashing orders") || !strings.Contains(out, " 50%") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "(5,000/10,000 rows)") {
		t.Errorf("output should show row counts: %q", out)
	}
}

func TestRowProgress_RedrawsOnPercentChange(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewRowProgress(buf, "t", 1000)

	p.Observe(1) // 0%
	p.Observe(1) // still 0%
	p.Observe(8) // 1%

	if got := strings.Count(buf.String(), "\r"); got != 2 {
		t.Errorf("redraws = %d, want 2: %q", got, buf.String())
	}
	if p.Rows() != 10 {
		t.Errorf("Rows() = %d, want 10", p.Rows())
	}
}

func TestRowProgress_Finish(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewRowProgress(buf, "t", 3)
	p.now = func() time.Time { return p.start.Add(1500 * time.Millisecond) }

	p.Observe(2)
	p.Observe(1)
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "100% (3/3 rows) in 1.5s\n") {
		t.Errorf("output = %q", out)
	}
}

func TestRowProgress_UnknownTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewRowProgress(buf, "Hashing orders", 0)

	p.Observe(1000)
	p.Observe(234)
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "Hashing orders 1,234 rows (2 chunks)") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "%") {
		t.Errorf("unknown total should not show a percentage: %q", out)
	}
}

func TestRowProgress_Overshoot(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewRowProgress(buf, "t", 2)

	// Rows inserted after counting can exceed the total.
	p.Observe(3)
	if !strings.Contains(buf.String(), "100% (3/2 rows)") {
		t.Errorf("output = %q", buf.String())
	}
}
