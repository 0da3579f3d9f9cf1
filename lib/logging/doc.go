// Package logging wires log/slog for the whole process: Init installs a
// text or json handler at the configured level, For hands out loggers tagged
// with a component attribute so store, checkpoint and CLI log lines can be
// told apart in one stream.
package logging
