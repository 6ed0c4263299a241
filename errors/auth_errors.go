// api/errors/auth_errors.go
package errors

import "errors"

var (
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrRemoteUnavailable = errors.New("permission service unavailable")
	ErrRemoteTimeout     = errors.New("permission service timed out")
	ErrInvalidCheckData  = errors.New("invalid check request data")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInternalServer    = errors.New("internal server error")
	ErrInvalidAuditQuery = errors.New("invalid audit query parameters")
	ErrAuditWriteFailure = errors.New("audit write failed")
)
