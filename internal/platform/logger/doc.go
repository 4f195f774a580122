// Package logger provides structured logging for the application using
// the standard library log/slog package: a Setup function driven by
// configuration, and helpers to carry a logger through a context.
package logger
