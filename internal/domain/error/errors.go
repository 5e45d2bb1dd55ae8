package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client errors
	CodeInsufficientBalance       = 4001
	CodeInsufficientUsesRemaining = 4002
	CodeInvalidCurrency           = 4003
	CodeTransactionExists         = 4004
	CodeValueAlreadyAttached      = 4005
	CodeValueCodeExists           = 4006
	CodeRuleSyntax                = 4007
	CodeInvalidValueState         = 4008
	CodeValueNotUsable            = 4009
	CodeTransactionNotReversible  = 4010
	CodeTransactionNotPending     = 4011
	CodePendingExpired            = 4012
	CodeValueNotFound             = 4040
	CodeTransactionNotFound       = 4041
	CodeContactNotFound           = 4042
	CodeConflict                  = 4090

	// 5xxx - Server errors
	CodeInternalServer = 5000
	CodeProcessor      = 5020
	CodeIrrecoverable  = 5030
)

// Base error types
var (
	// ErrInsufficientBalance is returned when a Value cannot cover the requested draw
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientUsesRemaining is returned when a Value has no uses left for the draw
	ErrInsufficientUsesRemaining = errors.New("insufficient uses remaining")

	// ErrInvalidCurrency is returned when a source's currency does not match the transaction
	ErrInvalidCurrency = errors.New("currency mismatch")

	// ErrInvalidTransactionID is returned when the transaction id is empty or too long
	ErrInvalidTransactionID = errors.New("invalid transaction id")

	// ErrInvalidValueState is returned when a Value's fields form a forbidden combination
	ErrInvalidValueState = errors.New("invalid value state")

	// ErrValueNotUsable is returned when a Value is frozen, canceled, inactive or outside
	// its validity window
	ErrValueNotUsable = errors.New("value cannot be used")

	// ErrRuleSyntax is returned when a redemption or balance rule fails to parse
	ErrRuleSyntax = errors.New("rule syntax error")

	// ErrTransactionExists is returned when a transaction with the same id already exists
	ErrTransactionExists = errors.New("transaction with this id already exists")

	// ErrValueAlreadyAttached is returned when a generic code is attached to the same
	// contact a second time
	ErrValueAlreadyAttached = errors.New("value already attached to contact")

	// ErrValueCodeExists is returned when a new Value's code collides with an existing one
	ErrValueCodeExists = errors.New("a value with this code already exists")

	// ErrValueNotFound is returned when the requested Value doesn't exist
	ErrValueNotFound = errors.New("value not found")

	// ErrTransactionNotFound is returned when the requested transaction doesn't exist
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrContactNotFound is returned when a source names a contact with no usable Values
	ErrContactNotFound = errors.New("contact not found")

	// ErrTransactionNotReversible is returned when reversing a transaction that was
	// already reversed or is still pending
	ErrTransactionNotReversible = errors.New("transaction cannot be reversed")

	// ErrTransactionNotPending is returned when capturing or voiding a transaction
	// that is not pending
	ErrTransactionNotPending = errors.New("transaction is not pending")

	// ErrPendingExpired is returned when capturing a pending transaction past its
	// void deadline
	ErrPendingExpired = errors.New("pending transaction is past its void date")

	// ErrConflict is returned for generic constraint violations
	ErrConflict = errors.New("conflict")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")

	// ErrDatabaseConnection is returned when there's a problem talking to the database
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrProcessor is returned when the external card processor rejects or fails a call
	ErrProcessor = errors.New("payment processor error")

	// ErrIrrecoverable is returned when a compensation itself failed and the ledger
	// and processor can no longer be reconciled automatically
	ErrIrrecoverable = errors.New("manual reconciliation required")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrInsufficientUsesRemaining):
		return CodeInsufficientUsesRemaining
	case errors.Is(err, ErrInvalidCurrency):
		return CodeInvalidCurrency
	case errors.Is(err, ErrTransactionExists):
		return CodeTransactionExists
	case errors.Is(err, ErrValueAlreadyAttached):
		return CodeValueAlreadyAttached
	case errors.Is(err, ErrValueCodeExists):
		return CodeValueCodeExists
	case errors.Is(err, ErrRuleSyntax):
		return CodeRuleSyntax
	case errors.Is(err, ErrInvalidValueState):
		return CodeInvalidValueState
	case errors.Is(err, ErrValueNotUsable):
		return CodeValueNotUsable
	case errors.Is(err, ErrTransactionNotReversible):
		return CodeTransactionNotReversible
	case errors.Is(err, ErrTransactionNotPending):
		return CodeTransactionNotPending
	case errors.Is(err, ErrPendingExpired):
		return CodePendingExpired
	case errors.Is(err, ErrValueNotFound):
		return CodeValueNotFound
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionNotFound
	case errors.Is(err, ErrContactNotFound):
		return CodeContactNotFound
	case errors.Is(err, ErrIrrecoverable):
		return CodeIrrecoverable
	case errors.Is(err, ErrProcessor):
		return CodeProcessor
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternalServer
	}
}

// ReplanableError wraps a conflict detected between planning and execution.
// The planner driver discards the current plan and builds a new one when it
// sees this type; every other error surfaces unchanged.
type ReplanableError struct {
	ValueID string
	Reason  string
	Err     error
}

// Error implements the error interface
func (e *ReplanableError) Error() string {
	return fmt.Sprintf("plan is stale for value %s: %s", e.ValueID, e.Reason)
}

// Unwrap returns the underlying error
func (e *ReplanableError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *ReplanableError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "replanable_conflict",
		"value_id":   e.ValueID,
		"reason":     e.Reason,
	}
}

// NewReplanableError creates a replanable conflict for a stale Value
func NewReplanableError(valueID, reason string) error {
	return &ReplanableError{ValueID: valueID, Reason: reason}
}

// IsReplanable reports whether the driver should rebuild the plan and retry
func IsReplanable(err error) bool {
	var re *ReplanableError
	return errors.As(err, &re)
}

// InsufficientBalanceError provides detailed error information for insufficient balance
type InsufficientBalanceError struct {
	ValueID        string
	RequestedDelta int64
	CurrentBalance int64
}

// Error implements the error interface
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on value %s: delta %d, available %d",
		e.ValueID, e.RequestedDelta, e.CurrentBalance)
}

// Is checks if the target error is an ErrInsufficientBalance
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientBalanceError) LogFields() map[string]any {
	return map[string]any{
		"error_type":      "insufficient_balance",
		"value_id":        e.ValueID,
		"requested_delta": e.RequestedDelta,
		"current_balance": e.CurrentBalance,
		"error_code":      CodeInsufficientBalance,
	}
}

// InsufficientUsesError provides detailed error information for exhausted uses
type InsufficientUsesError struct {
	ValueID        string
	RequestedDelta int64
	UsesRemaining  int64
}

// Error implements the error interface
func (e *InsufficientUsesError) Error() string {
	return fmt.Sprintf("insufficient uses remaining on value %s: delta %d, available %d",
		e.ValueID, e.RequestedDelta, e.UsesRemaining)
}

// Is checks if the target error is an ErrInsufficientUsesRemaining
func (e *InsufficientUsesError) Is(target error) bool {
	return target == ErrInsufficientUsesRemaining
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientUsesError) LogFields() map[string]any {
	return map[string]any{
		"error_type":      "insufficient_uses_remaining",
		"value_id":        e.ValueID,
		"requested_delta": e.RequestedDelta,
		"uses_remaining":  e.UsesRemaining,
		"error_code":      CodeInsufficientUsesRemaining,
	}
}

// ProcessorError carries the external processor's failure detail. Always
// non-replanable; may trigger compensation if earlier steps already landed.
type ProcessorError struct {
	Operation string
	ChargeID  string
	Detail    string
	Err       error
}

// Error implements the error interface
func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor %s failed (charge %q): %s", e.Operation, e.ChargeID, e.Detail)
}

// Is checks if the target error is an ErrProcessor
func (e *ProcessorError) Is(target error) bool {
	return target == ErrProcessor
}

// Unwrap returns the underlying error
func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *ProcessorError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "processor_error",
		"operation":  e.Operation,
		"charge_id":  e.ChargeID,
		"detail":     e.Detail,
		"error_code": CodeProcessor,
	}
}

// IrrecoverableError is raised when a compensation (processor refund) failed
// after a database-side failure. The ledger and the processor disagree and
// only an operator can reconcile them.
type IrrecoverableError struct {
	TransactionID string
	ChargeID      string
	Err           error
}

// Error implements the error interface
func (e *IrrecoverableError) Error() string {
	return fmt.Sprintf("irrecoverable failure on transaction %s (charge %s): %v",
		e.TransactionID, e.ChargeID, e.Err)
}

// Is checks if the target error is an ErrIrrecoverable
func (e *IrrecoverableError) Is(target error) bool {
	return target == ErrIrrecoverable
}

// Unwrap returns the underlying error
func (e *IrrecoverableError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *IrrecoverableError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "irrecoverable",
		"transaction_id": e.TransactionID,
		"charge_id":      e.ChargeID,
		"error":          fmt.Sprint(e.Err),
		"error_code":     CodeIrrecoverable,
	}
}

// RuleSyntaxError reports where a rule expression failed to parse. Checked
// eagerly at Value create/update time, never at redemption time.
type RuleSyntaxError struct {
	Expression string
	Position   int
	Detail     string
}

// Error implements the error interface
func (e *RuleSyntaxError) Error() string {
	return fmt.Sprintf("rule syntax error at position %d: %s", e.Position, e.Detail)
}

// Is checks if the target error is an ErrRuleSyntax
func (e *RuleSyntaxError) Is(target error) bool {
	return target == ErrRuleSyntax
}

// LogFields returns a map of fields for structured logging
func (e *RuleSyntaxError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "rule_syntax",
		"position":   e.Position,
		"detail":     e.Detail,
		"error_code": CodeRuleSyntax,
	}
}

// IsInsufficientError checks if the error is insufficient balance or uses
func IsInsufficientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrInsufficientUsesRemaining)
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrValueNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrContactNotFound)
}

// IsConflictError checks if the error is a uniqueness or state conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrTransactionExists) ||
		errors.Is(err, ErrValueAlreadyAttached) ||
		errors.Is(err, ErrValueCodeExists) ||
		errors.Is(err, ErrConflict)
}

// IsIrrecoverableError checks if the error requires manual reconciliation
func IsIrrecoverableError(err error) bool {
	return errors.Is(err, ErrIrrecoverable)
}
