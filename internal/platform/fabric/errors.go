package fabric

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Class partitions boundary errors by how callers must react.
type Class string

const (
	// ClassAuth means the session is unusable and must be re-resolved.
	ClassAuth Class = "auth"
	// ClassAlreadyExists is the benign check-then-act race: another
	// actor created the resource first.
	ClassAlreadyExists Class = "already_exists"
	// ClassTransient is retryable with bounded backoff.
	ClassTransient Class = "transient"
	// ClassFatal is surfaced immediately, never retried.
	ClassFatal Class = "fatal"
)

// APIError is a typed control-plane or data-plane error.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Classify maps any boundary error onto the error taxonomy.
// Unknown errors default to fatal so they are surfaced, not retried.
func Classify(err error) Class {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return ClassAuth
		case apiErr.Code == "TokenExpired" || apiErr.Code == "InvalidToken":
			return ClassAuth
		case apiErr.StatusCode == http.StatusConflict,
			apiErr.Code == "EntityAlreadyExists",
			apiErr.Code == "ItemDisplayNameAlreadyInUse":
			return ClassAlreadyExists
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode >= 500:
			return ClassTransient
		default:
			// 403, 400, quota and malformed-definition errors land here.
			return ClassFatal
		}
	}

	// Network-level failures are worth another attempt.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	return ClassFatal
}

// IsAuth reports whether the error means the session is no longer usable.
func IsAuth(err error) bool {
	return Classify(err) == ClassAuth
}

// IsAlreadyExists reports whether the error is the benign creation race.
func IsAlreadyExists(err error) bool {
	return Classify(err) == ClassAlreadyExists
}

// IsTransient reports whether the error is eligible for bounded retry.
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}
