package models

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New("validation failed")

// Invalid returns a validation error with a formatted detail message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
