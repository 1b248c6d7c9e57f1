// Package exception provides the error types shared by the dimtime batch components.
// Every failure surfaced by a run is a BatchError whose chain carries exactly one
// sentinel kind (InvalidPeriodFormat, DateRangeError, WriteFailure, ...), so callers
// can branch on errors.Is instead of matching message strings.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// Error kind names. They double as metric labels and log tags.
const (
	InvalidPeriodFormat  = "InvalidPeriodFormat"
	DateRangeError       = "DateRangeError"
	WriteFailure         = "WriteFailure"
	SchemaMismatch       = "SchemaMismatch"
	CatalogLookupFailure = "CatalogLookupFailure"
)

var (
	// ErrInvalidPeriodFormat marks a trigger period string that is malformed or out of range.
	ErrInvalidPeriodFormat = errors.New(InvalidPeriodFormat)
	// ErrDateRange marks an invalid (year, month) reaching the calendar generator.
	ErrDateRange = errors.New(DateRangeError)
	// ErrWriteFailure marks a failed serialization or storage commit.
	ErrWriteFailure = errors.New(WriteFailure)
	// ErrSchemaMismatch marks a catalog schema that differs from the fixed output schema.
	// It is always reported together with ErrWriteFailure.
	ErrSchemaMismatch = errors.New(SchemaMismatch)
	// ErrCatalogLookup marks a failed catalog lookup for the target table.
	ErrCatalogLookup = errors.New(CatalogLookupFailure)
)

// errorRegistry maps kind names to their sentinel errors.
var errorRegistry = make(map[string]error)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorType registers a sentinel error under a kind name.
// It panics if name is empty or prototype is nil.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}

	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered reports whether a kind name is registered.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is the error type returned by dimtime components.
// It records the module where the failure happened, a concise message and the wrapped cause.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "period", "calendar", "writer", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause, joined with the sentinel kind when one applies.
	OriginalErr error
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError.
func NewBatchError(module, message string, originalErr error) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
	}
}

// NewBatchErrorf creates a new BatchError with a formatted message.
// A trailing error argument, if present, becomes the wrapped cause.
//
// Example:
//
//	NewBatchErrorf("writer", "failed to upload %s", objectName, err)
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return NewBatchError(module, fmt.Sprintf(format, args...), originalErr)
}

// newKindError joins the sentinel kind with the cause and wraps both in a BatchError.
func newKindError(kind error, module, message string, cause error) *BatchError {
	errToWrap := kind
	if cause != nil {
		errToWrap = errors.Join(kind, cause)
	}
	return NewBatchError(module, message, errToWrap)
}

// NewInvalidPeriodFormat creates an InvalidPeriodFormat error.
func NewInvalidPeriodFormat(module, message string, cause error) *BatchError {
	return newKindError(ErrInvalidPeriodFormat, module, message, cause)
}

// NewDateRangeError creates a DateRangeError.
func NewDateRangeError(module, message string, cause error) *BatchError {
	return newKindError(ErrDateRange, module, message, cause)
}

// NewWriteFailure creates a WriteFailure.
func NewWriteFailure(module, message string, cause error) *BatchError {
	return newKindError(ErrWriteFailure, module, message, cause)
}

// NewSchemaMismatch creates a WriteFailure that is also a SchemaMismatch.
func NewSchemaMismatch(module, message string) *BatchError {
	return newKindError(ErrWriteFailure, module, message, ErrSchemaMismatch)
}

// NewCatalogLookupFailure creates a CatalogLookupFailure.
func NewCatalogLookupFailure(module, message string, cause error) *BatchError {
	return newKindError(ErrCatalogLookup, module, message, cause)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsBatchError reports whether err is, or wraps, a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsErrorOfType reports whether err carries the sentinel registered under errorTypeName.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}
	registryMutex.RLock()
	target, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	return ok && errors.Is(err, target)
}

// KindOf returns the most specific registered kind carried by err, or "Unknown".
// SchemaMismatch wins over WriteFailure because it is the more precise diagnosis.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSchemaMismatch) {
		return SchemaMismatch
	}

	registryMutex.RLock()
	names := make([]string, 0, len(errorRegistry))
	for name := range errorRegistry {
		names = append(names, name)
	}
	registryMutex.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		if IsErrorOfType(err, name) {
			return name
		}
	}
	return "Unknown"
}

// ExtractErrorMessage returns the BatchError message, or err.Error() for other errors.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

func init() {
	RegisterErrorType(InvalidPeriodFormat, ErrInvalidPeriodFormat)
	RegisterErrorType(DateRangeError, ErrDateRange)
	RegisterErrorType(WriteFailure, ErrWriteFailure)
	RegisterErrorType(SchemaMismatch, ErrSchemaMismatch)
	RegisterErrorType(CatalogLookupFailure, ErrCatalogLookup)
}
