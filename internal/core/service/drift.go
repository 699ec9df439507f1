package service

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage"
	"github.com/yndnr/wrought-go/pkg/kstest"
)

// driftTestName identifies the statistical test in reports.
const driftTestName = "kolmogorov_smirnov"

// driftChunkSize is the scan chunk size used while sampling columns.
const driftChunkSize = 10000

// DriftService compares live tables against snapshot baselines.
type DriftService struct {
	reader storage.Reader
	opts   options
}

// NewDriftService creates a DriftService reading through reader.
func NewDriftService(reader storage.Reader, opts ...Option) *DriftService {
	return &DriftService{
		reader: reader,
		opts:   buildOptions(opts),
	}
}

// CompareRequest contains parameters for a drift check.
type CompareRequest struct {
	Table     string  // Required, live table
	Baseline  string  // Required, snapshot name catalogued for Table
	Threshold float64 // Significance level in (0, 1)
}

// Compare runs a two-sample Kolmogorov-Smirnov test on every numeric column
// shared by the live table and the baseline snapshot. Nulls are dropped per
// side; a side left empty yields insufficient_data. Columns on one side
// only, or holding non-numeric values, are listed as skipped and never
// affect the verdict.
func (s *DriftService) Compare(ctx context.Context, req *CompareRequest) (*domain.DriftReport, error) {
	report, err := s.compare(ctx, req)
	if err == nil {
		for _, c := range report.Columns {
			s.opts.metrics.ObserveDriftColumn(c.Verdict.String())
		}
	}
	s.opts.metrics.ObserveDriftCheck(report != nil && report.Drift, err)
	return report, err
}

func (s *DriftService) compare(ctx context.Context, req *CompareRequest) (*domain.DriftReport, error) {
	// 1. Validate request
	if err := domain.ValidateThreshold(req.Threshold); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Table) == "" || strings.TrimSpace(req.Baseline) == "" {
		return nil, domain.ErrInvalidOptions.WithDetails("table and baseline are required")
	}

	// 2. Resolve baseline and live shapes
	snap, err := s.reader.Snapshot(ctx, req.Table, req.Baseline)
	if err != nil {
		return nil, translate(err, "baseline snapshot "+strconv.Quote(req.Baseline)+" of table "+req.Table)
	}
	live, err := s.reader.Describe(ctx, req.Table)
	if err != nil {
		return nil, translate(err, req.Table)
	}
	base, err := s.reader.Describe(ctx, snap.PhysicalTable)
	if err != nil {
		return nil, translate(err, "baseline snapshot "+strconv.Quote(req.Baseline))
	}

	report := &domain.DriftReport{
		Table:     live.Name,
		Baseline:  snap.Name,
		Threshold: req.Threshold,
		Columns:   []domain.ColumnDrift{},
	}

	// 3. Pick comparable columns
	var candidates []string
	for _, c := range live.Columns {
		bc, ok := base.Column(c.Name)
		switch {
		case !ok:
			report.SkippedColumns = append(report.SkippedColumns, domain.SkippedColumn{Column: c.Name, Reason: domain.SkipOnlyInLive})
		case !c.Numeric() || !bc.Numeric():
			report.SkippedColumns = append(report.SkippedColumns, domain.SkippedColumn{Column: c.Name, Reason: domain.SkipNonNumeric})
		default:
			candidates = append(candidates, c.Name)
		}
	}
	for _, c := range base.Columns {
		if _, ok := live.Column(c.Name); !ok {
			report.SkippedColumns = append(report.SkippedColumns, domain.SkippedColumn{Column: c.Name, Reason: domain.SkipOnlyInBaseline})
		}
	}
	if len(candidates) == 0 {
		s.log(report)
		return report, nil
	}

	// 4. Sample both sides
	baseSamples, err := s.sample(ctx, base.Name, candidates)
	if err != nil {
		return nil, translate(err, "sample baseline "+strconv.Quote(req.Baseline))
	}
	liveSamples, err := s.sample(ctx, live.Name, candidates)
	if err != nil {
		return nil, translate(err, "sample "+live.Name)
	}

	// 5. Test each column
	for i, col := range candidates {
		bs, ls := baseSamples[i], liveSamples[i]
		if bs.nonNumeric || ls.nonNumeric {
			report.SkippedColumns = append(report.SkippedColumns, domain.SkippedColumn{Column: col, Reason: domain.SkipNonNumeric})
			continue
		}

		cd := domain.ColumnDrift{
			Column:        col,
			Test:          driftTestName,
			BaselineCount: len(bs.values),
			LiveCount:     len(ls.values),
		}
		if len(bs.values) == 0 || len(ls.values) == 0 {
			cd.Verdict = domain.VerdictInsufficientData
			report.Columns = append(report.Columns, cd)
			continue
		}

		res, err := kstest.TwoSample(bs.values, ls.values)
		if err != nil {
			return nil, domain.ErrStorage.WithDetails("drift test on " + col).WithCause(err)
		}
		stat, p := res.Statistic, res.PValue
		cd.Statistic, cd.PValue = &stat, &p
		cd.Verdict = domain.VerdictOK
		if p < req.Threshold {
			cd.Verdict = domain.VerdictDrift
			report.Drift = true
		}
		report.Columns = append(report.Columns, cd)
	}

	s.log(report)
	return report, nil
}

func (s *DriftService) log(report *domain.DriftReport) {
	s.opts.logger.Info("drift check completed",
		"table", report.Table,
		"baseline", report.Baseline,
		"threshold", report.Threshold,
		"columns", len(report.Columns),
		"skipped", len(report.SkippedColumns),
		"drift", report.Drift,
		"drifted_columns", report.DriftedColumns())
}

// columnSample holds the non-null numeric values of one column.
type columnSample struct {
	values     []float64
	nonNumeric bool
}

// sample reads every row of table once, collecting each column's values.
func (s *DriftService) sample(ctx context.Context, table string, columns []string) ([]columnSample, error) {
	out := make([]columnSample, len(columns))
	err := s.reader.Scan(ctx, storage.ScanRequest{
		Table:     table,
		Columns:   columns,
		ChunkSize: driftChunkSize,
	}, func(c *storage.Chunk) error {
		for _, row := range c.Rows {
			for i, v := range row {
				if out[i].nonNumeric {
					continue
				}
				f, ok, numeric := toFloat(v)
				if !numeric {
					out[i].nonNumeric = true
					out[i].values = nil
					continue
				}
				if ok {
					out[i].values = append(out[i].values, f)
				}
			}
		}
		s.opts.observe(len(c.Rows))
		return nil
	})
	return out, err
}

// toFloat converts a driver value. ok is false for values to drop (NULL,
// NaN); numeric is false for values that are not numbers at all.
func toFloat(v any) (f float64, ok, numeric bool) {
	switch x := v.(type) {
	case nil:
		return 0, false, true
	case int64:
		return float64(x), true, true
	case int:
		return float64(x), true, true
	case float64:
		if math.IsNaN(x) {
			return 0, false, true
		}
		return x, true, true
	case bool:
		if x {
			return 1, true, true
		}
		return 0, true, true
	default:
		return 0, false, false
	}
}
