package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// Code is the machine-readable name of a ledger failure.
type Code string

const (
	// Validation
	CodeAssetIDRequired      Code = "ASSET_ID_REQUIRED"
	CodeTotalSharesInvalid   Code = "TOTAL_SHARES_INVALID"
	CodeInitialOwnerRequired Code = "INITIAL_OWNER_REQUIRED"
	CodeToRequired           Code = "TO_REQUIRED"
	CodeSharesInvalid        Code = "SHARES_INVALID"
	CodeFromRequired         Code = "FROM_REQUIRED"
	CodeInvalidInteger       Code = "INVALID_INT"

	// State
	CodeAssetNotFound      Code = "ASSET_NOT_FOUND"
	CodeAssetAlreadyExists Code = "ASSET_ALREADY_EXISTS"
	CodeInsufficientShares Code = "INSUFFICIENT_SHARES"

	// Protocol
	CodeInvalidDispatch Code = "INVALID_DISPATCH"
	CodeUnknownCommand  Code = "UNKNOWN_COMMAND"

	// Integrity
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
)

// Category groups codes the way the host reports them.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryState      Category = "state"
	CategoryProtocol   Category = "protocol"
	CategoryIntegrity  Category = "integrity"
)

// Category returns the group a code belongs to.
func (c Code) Category() Category {
	switch c {
	case CodeAssetNotFound, CodeAssetAlreadyExists, CodeInsufficientShares:
		return CategoryState
	case CodeInvalidDispatch, CodeUnknownCommand:
		return CategoryProtocol
	case CodeInvariantViolation:
		return CategoryIntegrity
	default:
		return CategoryValidation
	}
}

// LedgerError is a rejected command. The command has had no effect on state.
type LedgerError struct {
	Code   Code
	Detail string // Offending value, e.g. the unknown command type
}

func (e *LedgerError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Detail
}

// Is matches any LedgerError with the same code, so sentinels work with errors.Is.
func (e *LedgerError) Is(target error) bool {
	var t *LedgerError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Category returns the error group of the code.
func (e *LedgerError) Category() Category {
	return e.Code.Category()
}

// IsRetriable is always false: the same command against the same state fails the same way.
func (e *LedgerError) IsRetriable() bool {
	return false
}

// NewLedgerError creates a ledger error carrying the offending detail.
func NewLedgerError(code Code, format string, args ...any) *LedgerError {
	return &LedgerError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf returns the ledger code of err, or "" if err is not a ledger error.
func CodeOf(err error) Code {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

var (
	ErrAssetIDRequired      = &LedgerError{Code: CodeAssetIDRequired}
	ErrTotalSharesInvalid   = &LedgerError{Code: CodeTotalSharesInvalid}
	ErrInitialOwnerRequired = &LedgerError{Code: CodeInitialOwnerRequired}
	ErrToRequired           = &LedgerError{Code: CodeToRequired}
	ErrSharesInvalid        = &LedgerError{Code: CodeSharesInvalid}
	ErrFromRequired         = &LedgerError{Code: CodeFromRequired}
	ErrInvalidInteger       = &LedgerError{Code: CodeInvalidInteger}
	ErrAssetNotFound        = &LedgerError{Code: CodeAssetNotFound}
	ErrAssetAlreadyExists   = &LedgerError{Code: CodeAssetAlreadyExists}
	ErrInsufficientShares   = &LedgerError{Code: CodeInsufficientShares}
	ErrInvalidDispatch      = &LedgerError{Code: CodeInvalidDispatch}
	ErrUnknownCommand       = &LedgerError{Code: CodeUnknownCommand}
	ErrInvariantViolation   = &LedgerError{Code: CodeInvariantViolation}
)

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "connect", "read", "write")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrConnectionFailed is returned when the host feed connection fails. It's usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrInvalidValue is wrapped by ConfigError for out-of-range settings
	ErrInvalidValue = errors.New("invalid value")
)
