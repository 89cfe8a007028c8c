// Package rerr defines the closed error-code taxonomy shared by every
// component of the execution core and the Info type used to propagate
// errors up to the request context.
package rerr

import (
	"errors"
	"fmt"
)

// Code is a closed enumeration of error kinds reportable to a client.
type Code string

const (
	CodeUniqueConstraintViolation     Code = "unique_constraint_violation"
	CodeNotNullConstraintViolation    Code = "not_null_constraint_violation"
	CodeValueEvaluation               Code = "value_evaluation"
	CodeValueOutOfRange               Code = "value_out_of_range"
	CodeValueTooLong                  Code = "value_too_long"
	CodeInvalidDecimal                Code = "invalid_decimal"
	CodeOCCRead                       Code = "occ_read"
	CodeOCCWrite                      Code = "occ_write"
	CodeLTXRead                       Code = "ltx_read"
	CodeLTXWrite                      Code = "ltx_write"
	CodeLTXWriteWithoutWritePreserve  Code = "ltx_write_operation_without_write_preserve"
	CodeConflictOnWritePreserve       Code = "conflict_on_write_preserve"
	CodeBlockedByConcurrentOperation  Code = "blocked_by_concurrent_operation"
	CodeBlockedByHighPriority         Code = "blocked_by_high_priority_transaction"
	CodeInactiveTransaction           Code = "inactive_transaction"
	CodeStatementNotFound             Code = "statement_not_found"
	CodeTransactionNotFound           Code = "transaction_not_found"
	CodeRequestCanceled               Code = "request_canceled"
	CodeRequestTimeout                Code = "sql_request_timeout"
	CodeDataCorruption                Code = "data_corruption"
	CodeSecondaryIndexCorruption      Code = "secondary_index_corruption"
	CodeTargetNotFound                Code = "target_not_found"
	CodeTargetAlreadyExists           Code = "target_already_exists"
	CodeUnsupportedRuntimeFeature     Code = "unsupported_runtime_feature"
	CodePermission                    Code = "permission"
	CodeSQLLimitReached               Code = "sql_limit_reached"
	CodeTransactionLimit              Code = "transaction_limit"
	CodeOperationDenied               Code = "operation_denied"
	CodeInternal                      Code = "internal"
	CodeUnreachable                   Code = "unreachable_code"
	CodeSQLExecutionException         Code = "sql_execution_exception"
)

// fatal reports whether an error of this code must abort the owning
// transaction per §7 "Propagation policy" (constraint, evaluation, CC,
// corruption are fatal; lookup/lifecycle errors are not).
var fatal = map[Code]bool{
	CodeUniqueConstraintViolation:    true,
	CodeNotNullConstraintViolation:   true,
	CodeValueEvaluation:              true,
	CodeValueOutOfRange:              true,
	CodeValueTooLong:                 true,
	CodeInvalidDecimal:               true,
	CodeOCCRead:                      true,
	CodeOCCWrite:                     true,
	CodeLTXRead:                      true,
	CodeLTXWrite:                     true,
	CodeLTXWriteWithoutWritePreserve: true,
	CodeConflictOnWritePreserve:      true,
	CodeDataCorruption:               true,
	CodeSecondaryIndexCorruption:     true,
}

// IsFatal reports whether code transitions the owning transaction to aborted.
func IsFatal(code Code) bool {
	return fatal[code]
}

// Info is the error payload carried on a request context and ultimately
// surfaced to the client as (code, message, supplementary).
type Info struct {
	Code          Code
	Message       string
	OriginStatus  string
	Supplementary string
	cause         error
}

func (e *Info) Error() string {
	if e.Supplementary != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Supplementary)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Info) Unwrap() error { return e.cause }

// New builds an Info with the given code and formatted message.
func New(code Code, format string, args ...any) *Info {
	return &Info{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Info that chains an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Info {
	return &Info{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithOriginStatus attaches the originating KV-engine status string.
func (e *Info) WithOriginStatus(status string) *Info {
	e.OriginStatus = status
	return e
}

// CodeOf extracts the Code from err if it (or something it wraps) is an *Info.
func CodeOf(err error) (Code, bool) {
	var info *Info
	if errors.As(err, &info) {
		return info.Code, true
	}
	return "", false
}
