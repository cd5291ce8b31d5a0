package transport

import (
	"errors"
	"fmt"
)

// Closed set of transport failure kinds. The engine branches on the kind
// only; mapping raw provider errors into a kind is the transport
// implementation's job.
const (
	KindTopicUnavailable = "topic_unavailable"
	KindRateLimited      = "rate_limited"
	KindOther            = "other"
)

// Error is a classified transport failure.
type Error struct {
	Kind   string
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Kind
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewError creates a classified transport error wrapping its cause.
func NewError(kind string, detail string, cause error) error {
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

// KindOf extracts the failure kind from an error, defaulting to KindOther for
// unclassified failures and "" for nil.
func KindOf(err error) string {
	if err == nil {
		return ""
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	return KindOther
}

// IsTopicUnavailable reports whether the failure means the destination topic
// is closed or gone, which permanently disables the pairing.
func IsTopicUnavailable(err error) bool {
	return KindOf(err) == KindTopicUnavailable
}
