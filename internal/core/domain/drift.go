package domain

import "strings"

// Verdict is the per-column drift outcome.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictDrift
	VerdictInsufficientData
)

// DefaultDriftThreshold is the significance level used when none is given.
const DefaultDriftThreshold = 0.05

// String returns the verdict tag.
func (v Verdict) String() string {
	switch v {
	case VerdictDrift:
		return "drift"
	case VerdictInsufficientData:
		return "insufficient_data"
	default:
		return "ok"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// ValidateThreshold requires a significance level in (0, 1).
func ValidateThreshold(threshold float64) error {
	if !(threshold > 0 && threshold < 1) {
		return ErrInvalidOptions.WithDetailsf("threshold must be in (0, 1), got %v", threshold)
	}
	return nil
}

// ColumnDrift is the result for one numeric column. Statistic and PValue are
// nil when the verdict is insufficient_data.
type ColumnDrift struct {
	Column        string   `json:"column" yaml:"column"`
	Test          string   `json:"test" yaml:"test"`
	Statistic     *float64 `json:"statistic" yaml:"statistic"`
	PValue        *float64 `json:"p_value" yaml:"p_value"`
	Verdict       Verdict  `json:"verdict" yaml:"verdict"`
	BaselineCount int      `json:"baseline_count" yaml:"baseline_count"`
	LiveCount     int      `json:"live_count" yaml:"live_count"`
}

// SkipReason explains why a column was not compared.
type SkipReason string

const (
	SkipOnlyInLive     SkipReason = "only_in_live"
	SkipOnlyInBaseline SkipReason = "only_in_baseline"
	SkipNonNumeric     SkipReason = "non_numeric"
)

// SkippedColumn is informational; skipped columns never affect the verdict.
type SkippedColumn struct {
	Column string     `json:"column" yaml:"column"`
	Reason SkipReason `json:"reason" yaml:"reason"`
}

// DriftReport compares a live table against a baseline snapshot.
type DriftReport struct {
	Table          string          `json:"table" yaml:"table"`
	Baseline       string          `json:"baseline" yaml:"baseline"`
	Threshold      float64         `json:"threshold" yaml:"threshold"`
	Columns        []ColumnDrift   `json:"columns" yaml:"columns"`
	SkippedColumns []SkippedColumn `json:"skipped_columns,omitempty" yaml:"skipped_columns,omitempty"`
	Drift          bool            `json:"drift" yaml:"drift"`
}

// DriftedColumns returns the names of columns with verdict drift.
func (r *DriftReport) DriftedColumns() []string {
	var out []string
	for _, c := range r.Columns {
		if c.Verdict == VerdictDrift {
			out = append(out, c.Column)
		}
	}
	return out
}

// Err converts a drifting report into ErrDriftDetected naming the drifted
// columns. It returns nil when no column drifted.
func (r *DriftReport) Err() error {
	if r == nil || !r.Drift {
		return nil
	}
	return ErrDriftDetected.WithDetailsf("%s against %s: %s",
		r.Table, r.Baseline, strings.Join(r.DriftedColumns(), ", "))
}
