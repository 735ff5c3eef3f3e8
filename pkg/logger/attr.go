package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a nested attribute group.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple errors, skipping nils. Returns an empty Attr if all are nil.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error returns an "error" attribute, or an empty Attr for nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Path names a filesystem artifact. Only locations are logged, never contents.
func Path(p string) slog.Attr {
	return slog.String("path", p)
}

func Commit(id string) slog.Attr {
	return slog.String("commit", id)
}

func Fingerprint(fp string) slog.Attr {
	return slog.String("fingerprint", fp)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
