// Package logging assembles the slog loggers used by the uploader and its CLI.
//
// It owns the console and JSON handlers, maps configured level names onto
// slog levels, fans output out to stderr and the run log file, and exposes
// context helpers so per-run and per-sample fields (run_id, sample_dir) are
// attached to every line without threading loggers by hand. NewNop is the
// default for library code and tests.
package logging
