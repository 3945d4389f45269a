// Package health defines turnsieve's structured error type: a message plus
// key/value attrs plus an optional wrapped cause, all folded into one
// Error() string so a caller can errors.Is/As through it like any Go error
// while still getting the attrs on the page when it's printed or logged.
package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// HealthErr is turnsieve's structured error: a message, optional key/value
// attrs, and an optional wrapped cause.
type HealthErr struct {
	Message string
	wrapped error
	attrs   []any
}

// Error satisfies the error interface. All aspects are serialized to the
// string: message, attrs, and wrapped error.
func (e *HealthErr) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.attrs) > 0 {
		b.WriteString("[")
		writeAttrs(&b, e.attrs)
		b.WriteString("]")
	}

	if e.wrapped != nil {
		b.WriteString(" via ")
		b.WriteString(e.wrapped.Error())
	}

	return b.String()
}

func (e *HealthErr) Unwrap() error {
	return e.wrapped
}

// NewErr returns a new error. args is in the same format as slog's args to
// Info: key/values or slog.Attrs.
func NewErr(msg string, args ...any) error {
	return &HealthErr{Message: msg, attrs: args}
}

// Wrap returns a new error that wraps wrapped.
func Wrap(msg string, wrapped error, args ...any) error {
	if wrapped == nil {
		wrapped = errors.New("nil wrapped error. WARNING: you should not call Wrap with a nil error")
	}
	return &HealthErr{Message: msg, wrapped: wrapped, attrs: args}
}

// writeAttrs writes attrs (in the protocol of slog attrs to .Log) to b, in
// key=value format, as per the Text handler. Ex: `num=3 str="hi"`.
func writeAttrs(b *strings.Builder, attrs []any) {
	if len(attrs) == 0 {
		return
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey {
				return slog.Attr{}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(&noNewlineWriter{w: b}, opts)
	logger := slog.New(handler)
	logger.Log(context.Background(), slog.LevelDebug, "", attrs...)
}

// noNewlineWriter wraps an io.Writer and strips a single trailing newline
// from p before writing it to the underlying writer.
type noNewlineWriter struct {
	w io.Writer
}

func (n *noNewlineWriter) Write(p []byte) (int, error) {
	if len(p) > 0 && p[len(p)-1] == '\n' {
		written, err := n.w.Write(p[:len(p)-1])
		if err == nil {
			return len(p), nil
		}
		return written, err
	}
	return n.w.Write(p)
}
