// Package buildinfo reports the version of the wi binary.
//
// Release builds inject values via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/wrought-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/wrought-go/internal/infra/buildinfo.Commit=abc123"
//
// Builds without ldflags fall back to the VCS stamp embedded by the Go
// toolchain, when present.
package buildinfo
