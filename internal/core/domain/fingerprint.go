package domain

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Algorithm is the closed set of digest algorithms a fingerprint can use.
// String names are resolved once, at the API boundary, by ParseAlgorithm.
type Algorithm int

const (
	// AlgorithmUnspecified lets Verify derive the algorithm from the expected
	// digest. Compute treats it as AlgorithmSHA256.
	AlgorithmUnspecified Algorithm = iota
	AlgorithmSHA256
	AlgorithmSHA512
)

// DefaultChunkSize is the number of rows serialized per chunk.
const DefaultChunkSize = 10000

// ParseAlgorithm resolves an algorithm name. The empty string maps to
// AlgorithmUnspecified.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return AlgorithmUnspecified, nil
	case "sha256", "sha-256":
		return AlgorithmSHA256, nil
	case "sha512", "sha-512":
		return AlgorithmSHA512, nil
	default:
		return AlgorithmUnspecified, ErrInvalidOptions.WithDetailsf("unsupported algorithm %q (want sha256 or sha512)", name)
	}
}

// AlgorithmForDigest derives the algorithm from the length of a hex digest.
func AlgorithmForDigest(digest string) (Algorithm, error) {
	switch len(digest) {
	case sha256.Size * 2:
		return AlgorithmSHA256, nil
	case sha512.Size * 2:
		return AlgorithmSHA512, nil
	default:
		return AlgorithmUnspecified, ErrInvalidOptions.WithDetailsf(
			"digest length %d matches neither sha256 (%d) nor sha512 (%d)",
			len(digest), sha256.Size*2, sha512.Size*2)
	}
}

// String returns the canonical algorithm tag.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmSHA256:
		return "sha256"
	case AlgorithmSHA512:
		return "sha512"
	default:
		return "unspecified"
	}
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case AlgorithmSHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

// orDefault returns the algorithm Compute actually uses.
func (a Algorithm) orDefault() Algorithm {
	if a == AlgorithmUnspecified {
		return AlgorithmSHA256
	}
	return a
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	if string(text) == "unspecified" {
		*a = AlgorithmUnspecified
		return nil
	}
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// FingerprintOptions is immutable per invocation.
type FingerprintOptions struct {
	Algorithm       Algorithm
	Salt            []byte
	ExcludedColumns []string
	ChunkSize       int
	Strict          bool
}

// DefaultFingerprintOptions returns sha256, no salt, DefaultChunkSize rows per chunk.
func DefaultFingerprintOptions() FingerprintOptions {
	return FingerprintOptions{
		Algorithm: AlgorithmSHA256,
		ChunkSize: DefaultChunkSize,
	}
}

// Validate checks option ranges.
func (o FingerprintOptions) Validate() error {
	if o.ChunkSize <= 0 {
		return ErrInvalidOptions.WithDetailsf("chunk size must be positive, got %d", o.ChunkSize)
	}
	switch o.Algorithm {
	case AlgorithmUnspecified, AlgorithmSHA256, AlgorithmSHA512:
	default:
		return ErrInvalidOptions.WithDetailsf("unknown algorithm value %d", int(o.Algorithm))
	}
	return nil
}

// Resolved returns a copy with the algorithm Compute will use filled in.
func (o FingerprintOptions) Resolved() FingerprintOptions {
	o.Algorithm = o.Algorithm.orDefault()
	return o
}

// Excludes reports whether column is excluded.
func (o FingerprintOptions) Excludes(column string) bool {
	for _, c := range o.ExcludedColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Fingerprint is a hex digest plus the algorithm that produced it.
type Fingerprint struct {
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
	Digest    string    `json:"digest" yaml:"digest"`
	Table     string    `json:"table" yaml:"table"`
	Columns   []string  `json:"columns" yaml:"columns"`
	Rows      int64     `json:"rows" yaml:"rows"`
	Strict    bool      `json:"strict" yaml:"strict"`
}

// String returns "<algorithm>:<digest>".
func (f Fingerprint) String() string {
	return f.Algorithm.String() + ":" + f.Digest
}

// NormalizeDigest lowercases and trims a hex digest, rejecting non-hex input.
func NormalizeDigest(digest string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(digest))
	if _, err := hex.DecodeString(d); err != nil {
		return "", ErrInvalidOptions.WithDetails(fmt.Sprintf("digest is not hex: %v", err))
	}
	return d, nil
}

// VerificationResult is the outcome of Verify. A mismatch is a normal
// result, not an error.
type VerificationResult struct {
	Matched  bool        `json:"matched" yaml:"matched"`
	Expected string      `json:"expected" yaml:"expected"`
	Computed Fingerprint `json:"computed" yaml:"computed"`
}

// Err converts a negative outcome into ErrVerificationMismatch carrying
// both digests. It returns nil when the fingerprints matched.
func (r *VerificationResult) Err() error {
	if r == nil || r.Matched {
		return nil
	}
	return ErrVerificationMismatch.WithDetailsf("expected %s, computed %s", r.Expected, r.Computed.Digest)
}
