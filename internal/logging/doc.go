// Package logging configures the process-wide slog logger. It offers a
// human-oriented console format and a machine-oriented JSON format, plus
// helpers for tagging child loggers with the component and the session,
// job, and correlation identifiers carried on a context.
package logging
