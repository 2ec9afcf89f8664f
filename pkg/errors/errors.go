package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrContractNotFound       = errors.New("contract not found")
	ErrListingNotFound        = errors.New("listing not found")
	ErrListingNotEligible     = errors.New("listing is not eligible for rent-to-own")
	ErrInvalidTerms           = errors.New("invalid contract terms")
	ErrInvalidStateTransition = errors.New("invalid contract state transition")
	ErrContractNotActive      = errors.New("contract is not active")
	ErrNotBorrower            = errors.New("caller is not the contract borrower")
	ErrNotLender              = errors.New("caller is not the contract lender")
	ErrNotParty               = errors.New("caller is not a party to the contract")
	ErrNoPendingPayment       = errors.New("no pending payment remains")
	ErrPaymentInFlight        = errors.New("a payment for this contract is already in flight")
	ErrPaymentMethodMissing   = errors.New("borrower has no stored payment method")
	ErrCaptureDeclined        = errors.New("payment capture was declined")
	ErrCaptureUnknown         = errors.New("payment capture outcome unknown")
	ErrTransferFailed         = errors.New("lender payout transfer failed")
	ErrLedgerWriteFailed      = errors.New("ledger write failed after capture")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the client may safely retry the operation
// with the same idempotency key.
func (e *BusinessError) Retryable() bool {
	return e.Code == ErrCodeCaptureUnknown || e.Code == ErrCodeLedgerWriteFailed
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeContractNotFound       = "CONTRACT_NOT_FOUND"
	ErrCodeListingNotFound        = "LISTING_NOT_FOUND"
	ErrCodeListingNotEligible     = "LISTING_NOT_ELIGIBLE"
	ErrCodeInvalidTerms           = "INVALID_TERMS"
	ErrCodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrCodeContractNotActive      = "CONTRACT_NOT_ACTIVE"
	ErrCodeNotBorrower            = "NOT_BORROWER"
	ErrCodeNotLender              = "NOT_LENDER"
	ErrCodeNotParty               = "NOT_PARTY"
	ErrCodeNoPendingPayment       = "NO_PENDING_PAYMENT"
	ErrCodePaymentInFlight        = "PAYMENT_IN_FLIGHT"
	ErrCodePaymentMethodMissing   = "PAYMENT_METHOD_MISSING"
	ErrCodeCaptureDeclined        = "CAPTURE_DECLINED"
	ErrCodeCaptureUnknown         = "CAPTURE_UNKNOWN"
	ErrCodeTransferFailed         = "TRANSFER_FAILED"
	ErrCodeLedgerWriteFailed      = "LEDGER_WRITE_FAILED"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapContractNotFound(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractNotFound,
		fmt.Sprintf("Contract %s not found", contractID),
		ErrContractNotFound,
	)
}

func WrapListingNotFound(listingID string) *BusinessError {
	return NewBusinessError(
		ErrCodeListingNotFound,
		fmt.Sprintf("Listing %s not found", listingID),
		ErrListingNotFound,
	)
}

func WrapListingNotEligible(listingID, reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeListingNotEligible,
		fmt.Sprintf("Listing %s is not eligible: %s", listingID, reason),
		ErrListingNotEligible,
	)
}

func WrapInvalidTerms(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTerms,
		reason,
		ErrInvalidTerms,
	)
}

func WrapInvalidStateTransition(current, action string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("Cannot %s a contract in state %s", action, current),
		ErrInvalidStateTransition,
	)
}

func WrapContractNotActive(contractID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractNotActive,
		fmt.Sprintf("Contract %s is %s, not active", contractID, status),
		ErrContractNotActive,
	)
}

func WrapNotBorrower(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotBorrower,
		fmt.Sprintf("Caller is not the borrower on contract %s", contractID),
		ErrNotBorrower,
	)
}

func WrapNotLender(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotLender,
		fmt.Sprintf("Caller is not the lender on contract %s", contractID),
		ErrNotLender,
	)
}

func WrapNotParty(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotParty,
		fmt.Sprintf("Caller is not a party to contract %s", contractID),
		ErrNotParty,
	)
}

func WrapNoPendingPayment(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoPendingPayment,
		fmt.Sprintf("Contract %s has no pending payment", contractID),
		ErrNoPendingPayment,
	)
}

func WrapPaymentInFlight(contractID string, paymentNumber int) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentInFlight,
		fmt.Sprintf("Payment %d on contract %s is already being captured", paymentNumber, contractID),
		ErrPaymentInFlight,
	)
}

func WrapPaymentMethodMissing(userID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentMethodMissing,
		fmt.Sprintf("User %s has no stored payment method", userID),
		ErrPaymentMethodMissing,
	)
}

func WrapCaptureDeclined(idempotencyKey string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCaptureDeclined,
		fmt.Sprintf("Processor declined capture %s", idempotencyKey),
		errors.Join(ErrCaptureDeclined, err),
	)
}

func WrapCaptureUnknown(idempotencyKey string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCaptureUnknown,
		fmt.Sprintf("Capture %s outcome unknown, retry with the same key", idempotencyKey),
		errors.Join(ErrCaptureUnknown, err),
	)
}

func WrapLedgerWriteFailed(idempotencyKey string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeLedgerWriteFailed,
		fmt.Sprintf("Captured %s but ledger write failed, retry to finish settlement", idempotencyKey),
		errors.Join(ErrLedgerWriteFailed, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
