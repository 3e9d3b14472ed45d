package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can branch without reading messages
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindNotFound
	KindStale
	KindRenderError
	KindNetwork
	KindFormatMismatch
	KindNoData
	KindConfigMissing
	KindRateLimited
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	KindTimeout:        "timeout",
	KindNotFound:       "not_found",
	KindStale:          "stale",
	KindRenderError:    "render_error",
	KindNetwork:        "network",
	KindFormatMismatch: "format_mismatch",
	KindNoData:         "no_data",
	KindConfigMissing:  "config_missing",
	KindRateLimited:    "rate_limited",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Retryable reports whether the operation that produced this kind may be attempted again
func (k ErrorKind) Retryable() bool {
	return k == KindStale || k == KindRateLimited
}

// Error is a classified failure of a fetcher, loader or notifier
type Error struct {
	Kind ErrorKind
	Op   string // e.g. "gauge.fetch", "line.push"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindStale}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// NewError wraps err with a kind and operation name
func NewError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string
func Errorf(kind ErrorKind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
