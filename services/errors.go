package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// Case engine error kinds. Callers match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidAttorney     = errors.New("user cannot be assigned as attorney")
	ErrUnauthorized        = errors.New("access denied")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrDispatchFailure     = errors.New("dispatch failed")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundError(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

// storeError maps a raw gorm error to an engine error kind. The raw error is
// logged and never returned, so driver details stay inside the store.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isEngineError(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		log.Printf("[STORE] %s: %v", op, err)
		return fmt.Errorf("%w: %s", ErrConstraintViolation, op)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Printf("[STORE] %s timed out: %v", op, err)
		return fmt.Errorf("%w: %s timed out", ErrStorageUnavailable, op)
	default:
		log.Printf("[STORE] %s: %v", op, err)
		return fmt.Errorf("%w: %s", ErrStorageUnavailable, op)
	}
}

func isEngineError(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrInvalidTransition, ErrInvalidAttorney,
		ErrUnauthorized, ErrConstraintViolation, ErrStorageUnavailable, ErrDispatchFailure,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
