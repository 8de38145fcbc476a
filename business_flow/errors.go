// Package businessflow contains the core business logic and use cases for rotation and distribution workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Account-related errors
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminInactive     = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrInvalidCaptcha    = errors.New("invalid captcha")

	// Rotation-related errors
	ErrNoActiveRecipients        = errors.New("no active recipients")
	ErrNoListingsForCycle        = errors.New("no listings for this cycle")
	ErrInvalidCycleNumber        = errors.New("cycle number must be between 1 and 3")
	ErrInvalidDayOfMonth         = errors.New("day of month must be between 1 and 31")
	ErrStateAdvancedConcurrently = errors.New("rotation state advanced by a concurrent trigger")
	ErrRotationAlreadyInProgress = errors.New("a rotation is already in progress")
	ErrRotationConfigNotFound    = errors.New("rotation config not found")

	// Recipient-related errors
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrRecipientExists        = errors.New("recipient with this email already exists")
	ErrBatchRecipientNotFound = errors.New("batch recipient not found")
	ErrInvalidBatchNumber     = errors.New("batch number must be at least 1")
	ErrBatchOutOfRange        = errors.New("batch number exceeds the list size")

	// Listing-related errors
	ErrListingNotFound = errors.New("listing not found")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 200")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsInvalidCaptcha(err error) bool {
	return errors.Is(err, ErrInvalidCaptcha)
}

func IsNoActiveRecipients(err error) bool {
	return errors.Is(err, ErrNoActiveRecipients)
}

func IsNoListingsForCycle(err error) bool {
	return errors.Is(err, ErrNoListingsForCycle)
}

func IsInvalidCycleNumber(err error) bool {
	return errors.Is(err, ErrInvalidCycleNumber)
}

func IsInvalidDayOfMonth(err error) bool {
	return errors.Is(err, ErrInvalidDayOfMonth)
}

func IsStateAdvancedConcurrently(err error) bool {
	return errors.Is(err, ErrStateAdvancedConcurrently)
}

func IsRotationAlreadyInProgress(err error) bool {
	return errors.Is(err, ErrRotationAlreadyInProgress)
}

func IsRotationConfigNotFound(err error) bool {
	return errors.Is(err, ErrRotationConfigNotFound)
}

func IsRecipientNotFound(err error) bool {
	return errors.Is(err, ErrRecipientNotFound)
}

func IsRecipientExists(err error) bool {
	return errors.Is(err, ErrRecipientExists)
}

func IsBatchRecipientNotFound(err error) bool {
	return errors.Is(err, ErrBatchRecipientNotFound)
}

func IsInvalidBatchNumber(err error) bool {
	return errors.Is(err, ErrInvalidBatchNumber)
}

func IsBatchOutOfRange(err error) bool {
	return errors.Is(err, ErrBatchOutOfRange)
}

func IsListingNotFound(err error) bool {
	return errors.Is(err, ErrListingNotFound)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
