package models

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid arguments")

	ErrValidation      = errors.New("validation failed")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrStorage         = errors.New("storage failure")
	ErrResolver        = errors.New("resolver failure")
	ErrRegistry        = errors.New("registry failure")
)

// ErrResolverTimeout matches both itself and ErrResolver.
var ErrResolverTimeout error = resolverTimeout{}

type resolverTimeout struct{}

func (resolverTimeout) Error() string { return "resolver timeout" }

func (resolverTimeout) Is(target error) bool { return target == ErrResolver }
