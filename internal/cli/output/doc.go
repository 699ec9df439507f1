// Package output renders command results for the wi CLI.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: Table rendering with wide mode support
//   - json.go: JSON output formatting
//   - yaml.go: YAML output formatting
//   - progress.go: Row progress bar for fingerprinting
//   - spinner.go: Activity animation for snapshot copies and rollbacks
//
// Progress and spinners write to stderr so that stdout stays parseable
// with -o json and -o yaml.
package output
