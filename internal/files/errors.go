package files

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("file not found")
	ErrInvalidParent   = errors.New("parent is not an existing folder")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("only images and PDF files are supported")
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
	ErrCycle           = errors.New("cannot move a folder into itself or one of its descendants")

	// ErrInternal marks failures of the store or the storage provider.
	ErrInternal = errors.New("internal failure")
)

var domainErrors = []error{
	ErrUnauthorized,
	ErrNotFound,
	ErrInvalidParent,
	ErrInvalidName,
	ErrInvalidInput,
	ErrUnsupportedType,
	ErrTooLarge,
	ErrCycle,
	ErrInternal,
}

// internal passes domain errors through and marks everything else as an
// internal failure, keeping the original error in the chain for logging.
func internal(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
