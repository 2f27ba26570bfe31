// Package logging provides structured logging configuration for rxmux.
//
// This package wraps log/slog so that the router, the dispatcher and the
// rxmux binary log the same way.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//
//	r := router.New(router.WithLogger(logger))
//
// Components accept a *slog.Logger through an option. If none is provided
// they use Nop(), which discards everything.
//
// # Output Formats
//
//   - Text: human-readable, for development
//   - JSON: for log aggregation
//
// Tee fans a record out to several handlers, e.g. stderr plus a log file.
package logging
