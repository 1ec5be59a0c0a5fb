package box

import "errors"

// Error variables for box operations.
var (
	ErrNotFound           = errors.New("bead not found")
	ErrDuplicateBox       = errors.New("box already exists")
	ErrUnknownBox         = errors.New("unknown box")
	ErrInvalidBox         = errors.New("invalid box")
	ErrInvalidVersionSpec = errors.New("invalid version spec")
	ErrRegistryInvalid    = errors.New("invalid box registry file")
)
