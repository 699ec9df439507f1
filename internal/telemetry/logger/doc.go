// Package logger provides structured logging for wrought.
//
// It wraps log/slog behind a small Logger interface:
//
//   - Text output to stderr by default, JSON on request
//   - Redaction of sensitive attributes (fingerprint salts, passwords, secrets)
//   - Context propagation of the logger, the operation ID and the acting user;
//     records logged through L(ctx) carry both ids
//
// Storage packages take a *slog.Logger; Slog recovers one from a Logger.
package logger
