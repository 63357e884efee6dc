package store

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors for gateway operations. The listing session treats all of
// them as retryable; they only differ in the user-facing message.
var (
	// ErrConnectivity indicates the endpoint is unreachable.
	ErrConnectivity = errors.New("cannot connect to the endpoint")

	// ErrAuth indicates the credentials were rejected.
	ErrAuth = errors.New("invalid credentials")

	// ErrNotFound indicates the bucket does not exist.
	ErrNotFound = errors.New("bucket does not exist")

	// ErrPermission indicates access to the bucket was denied.
	ErrPermission = errors.New("access denied")

	// ErrUnknownStore is the catch-all for unmapped store errors.
	ErrUnknownStore = errors.New("unknown store error")
)

// StoreError wraps a store failure with the operation and bucket it hit.
// It unwraps to one of the sentinel errors above while keeping the original
// message for display.
type StoreError struct {
	// Op is the operation that failed (e.g. "FetchPage").
	Op string

	// Bucket is the bucket the operation targeted.
	Bucket string

	// Kind is the mapped sentinel error.
	Kind error

	// Err is the underlying transport/service error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Bucket, e.Kind, e.Err)
}

// Unwrap returns the mapped sentinel so errors.Is works against the taxonomy.
func (e *StoreError) Unwrap() error {
	return e.Kind
}

// wrapError maps an aws-sdk error to the gateway error taxonomy.
func wrapError(op, bucket string, err error) error {
	wrapped := &StoreError{
		Op:     op,
		Bucket: bucket,
		Kind:   ErrUnknownStore,
		Err:    err,
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		wrapped.Kind = ErrNotFound
		return wrapped
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		wrapped.Kind = ErrConnectivity
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			wrapped.Kind = ErrNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Kind = ErrPermission
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			wrapped.Kind = ErrAuth
		case "RequestError", "ServiceUnavailable":
			wrapped.Kind = ErrConnectivity
		}
		return wrapped
	}

	// Fallback: the SDK sometimes surfaces plain errors for transport
	// failures, so classify on the message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoSuchBucket"):
		wrapped.Kind = ErrNotFound
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "403"):
		wrapped.Kind = ErrPermission
	case strings.Contains(msg, "InvalidAccessKeyId") || strings.Contains(msg, "SignatureDoesNotMatch"):
		wrapped.Kind = ErrAuth
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp"):
		wrapped.Kind = ErrConnectivity
	}

	return wrapped
}

// UserMessage returns the operator-facing message for a gateway error.
// It keeps the original store message for unmapped errors.
func UserMessage(err error) string {
	var se *StoreError
	if !errors.As(err, &se) {
		return err.Error()
	}

	switch {
	case errors.Is(se.Kind, ErrConnectivity):
		return "Cannot connect to the endpoint. Please check the URL."
	case errors.Is(se.Kind, ErrAuth):
		return "Invalid credentials. Please check your access key and secret key."
	case errors.Is(se.Kind, ErrNotFound):
		return fmt.Sprintf("Bucket '%s' does not exist.", se.Bucket)
	case errors.Is(se.Kind, ErrPermission):
		return "Access denied. Please check your credentials and permissions."
	default:
		return fmt.Sprintf("Store error: %v", se.Err)
	}
}
