package service

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Error taxonomy. Every service failure wraps exactly one of these; handlers
// map them to HTTP statuses with errors.Is. ErrInternal deliberately carries
// no detail — the cause is logged server-side only.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInternal         = errors.New("internal error")
)

func notFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func alreadyExists(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, fmt.Sprintf(format, args...))
}

func invalidOperation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInvalidOperation)
}

// categorize passes domain errors through untouched and collapses anything
// else to ErrInternal after logging the cause.
func categorize(log *logrus.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	log.WithError(err).WithField("op", op).Error("unexpected failure")
	return ErrInternal
}

// exists reports whether a query matched a row, mapping ErrRecordNotFound to
// (false, nil).
func exists(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func validationError(field, tag string) error {
	return invalidOperation("validation failed: field '%s' failed on tag '%s'", field, tag)
}
