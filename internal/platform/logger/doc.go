// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured
// JSON (or text) logging with configurable log levels. Every handler built
// here is wrapped in a RedactHandler so that API keys and tokens embedded in
// backend error messages never reach the log output.
package logger
