package domain

import "errors"

var (
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrHandlerNotFound           = errors.New("handler not found")
	ErrConstraintViolation       = errors.New("constraint violation")
	ErrPlacementCapacityExceeded = errors.New("placement capacity exceeded")
	ErrNotFound                  = errors.New("not found")
	ErrJobNotFound               = errors.New("job not found")
	ErrJobNotRetryable           = errors.New("job is not retryable")
	ErrClaimLost                 = errors.New("job claim lost")
	ErrUserNotFound              = errors.New("user not found")
	ErrUnknownPackage            = errors.New("unknown package")
	ErrUnknownPool               = errors.New("unknown pool type")
	ErrInvalidConfig             = errors.New("invalid commission config")
	ErrInvalidEntryType          = errors.New("invalid entry type")
	ErrInvalidPayload            = errors.New("invalid job payload")
	ErrMalformedMessage          = errors.New("malformed message")
)
