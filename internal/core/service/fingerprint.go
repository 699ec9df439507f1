package service

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/core/order"
	"github.com/yndnr/wrought-go/internal/storage"
)

// FingerprintService computes and verifies table fingerprints.
type FingerprintService struct {
	reader storage.Reader
	opts   options
}

// NewFingerprintService creates a FingerprintService reading through reader.
func NewFingerprintService(reader storage.Reader, opts ...Option) *FingerprintService {
	return &FingerprintService{
		reader: reader,
		opts:   buildOptions(opts),
	}
}

// ============================================================================
// Compute
// ============================================================================

// Compute streams table in canonical order and returns its digest.
//
// The digest covers, in order: the salt, the schema text when opts.Strict
// is set, then each chunk of at most opts.ChunkSize rows in canonical
// serialized form. An empty table contributes a single header-only chunk.
func (s *FingerprintService) Compute(ctx context.Context, table string, opts domain.FingerprintOptions) (*domain.Fingerprint, error) {
	// 1. Validate options
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.Resolved()
	start := time.Now()

	// 2. Resolve included columns and canonical order
	info, err := s.reader.Describe(ctx, table)
	if err != nil {
		return nil, translate(err, table)
	}
	declared := info.ColumnNames()
	included := order.Included(declared, opts.ExcludedColumns)
	key := order.Canonical(declared, included, info.PrimaryKey)

	// 3. Salt, then schema
	h := opts.Algorithm.New()
	h.Write(opts.Salt)
	if opts.Strict {
		h.Write([]byte(info.SchemaText()))
	}

	// 4. Rows, chunk by chunk
	var (
		rows   int64
		chunks int
		buf    []byte
	)
	err = s.reader.Scan(ctx, storage.ScanRequest{
		Table:     info.Name,
		Columns:   included,
		OrderBy:   key.Columns,
		TieBreak:  key.TieBreak,
		ChunkSize: opts.ChunkSize,
	}, func(c *storage.Chunk) error {
		buf = appendChunk(buf[:0], included, c.Rows)
		h.Write(buf)
		rows += int64(len(c.Rows))
		chunks++
		s.opts.observe(len(c.Rows))
		return nil
	})
	if err != nil {
		return nil, translate(err, "fingerprint "+info.Name)
	}
	if chunks == 0 {
		h.Write(emptyChunk(included))
	}

	fp := &domain.Fingerprint{
		Algorithm: opts.Algorithm,
		Digest:    hex.EncodeToString(h.Sum(nil)),
		Table:     info.Name,
		Columns:   included,
		Rows:      rows,
		Strict:    opts.Strict,
	}

	elapsed := time.Since(start)
	s.opts.metrics.ObserveFingerprint(fp.Algorithm.String(), rows, elapsed)
	s.opts.logger.Info("fingerprint computed",
		"table", fp.Table,
		"algorithm", fp.Algorithm.String(),
		"rows", rows,
		"chunks", chunks,
		"strict", opts.Strict,
		"salted", len(opts.Salt) > 0,
		"elapsed", elapsed)

	return fp, nil
}

// ============================================================================
// Verify
// ============================================================================

// Verify recomputes the fingerprint of table and compares it to expected.
//
// expected is a hex digest, optionally prefixed with "<algorithm>:". When
// no algorithm is given either way it is derived from the digest length.
// An explicit algorithm whose digest length differs from expected is a
// mismatch, not an error. A mismatch is reported in the result; the
// returned error is reserved for failures.
func (s *FingerprintService) Verify(ctx context.Context, table, expected string, opts domain.FingerprintOptions) (*domain.VerificationResult, error) {
	// 1. Parse the expected digest
	digest, alg, err := parseExpected(expected)
	if err != nil {
		return nil, err
	}
	if opts.Algorithm == domain.AlgorithmUnspecified {
		opts.Algorithm = alg
	}
	if opts.Algorithm == domain.AlgorithmUnspecified {
		if opts.Algorithm, err = domain.AlgorithmForDigest(digest); err != nil {
			return nil, err
		}
	}

	// 2. Recompute
	fp, err := s.Compute(ctx, table, opts)
	if err != nil {
		return nil, err
	}

	// 3. Compare
	result := &domain.VerificationResult{
		Matched:  fp.Digest == digest,
		Expected: digest,
		Computed: *fp,
	}

	s.opts.metrics.ObserveVerification(result.Matched)
	if !result.Matched {
		s.opts.logger.Warn("fingerprint mismatch",
			"table", fp.Table,
			"algorithm", fp.Algorithm.String(),
			"expected", digest,
			"computed", fp.Digest)
	}
	return result, nil
}

// parseExpected splits an optional "<algorithm>:" prefix off a digest.
func parseExpected(expected string) (string, domain.Algorithm, error) {
	alg := domain.AlgorithmUnspecified
	raw := strings.TrimSpace(expected)
	if prefix, rest, ok := strings.Cut(raw, ":"); ok {
		parsed, err := domain.ParseAlgorithm(prefix)
		if err != nil {
			return "", alg, err
		}
		alg, raw = parsed, rest
	}
	if raw == "" {
		return "", alg, domain.ErrInvalidOptions.WithDetails("expected digest is required")
	}

	digest, err := domain.NormalizeDigest(raw)
	if err != nil {
		return "", alg, err
	}
	return digest, alg, nil
}
