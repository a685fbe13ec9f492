// Package logx provides the bot's structured logging layer.
//
// It wraps zerolog behind a small Logger value with slog-like Field
// helpers and a Service that can hot-swap sinks (console, file,
// Telegram) when the config reloads. The zero Logger is a safe no-op,
// so components never need nil checks.
package logx
