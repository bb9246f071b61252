package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap them with fmt.Errorf("...: %w", ErrX) and classify with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrAuth              = errors.New("authentication failed")
	ErrValidation        = errors.New("validation failed")
	ErrStorage           = errors.New("storage failure")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUpstream          = errors.New("upstream failure")
)

// NotFound 实体不存在
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q %w", entity, id, ErrNotFound)
}

// Validation 参数校验失败
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Storage wraps a persistence error. A nil cause returns nil.
func Storage(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, cause)
}

// Kind returns the sentinel err is classified under, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrAuth, ErrValidation, ErrInvalidTransition, ErrUpstream, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
