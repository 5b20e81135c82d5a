package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by all modules.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeUnknown            ErrorCode = "COMMON_015"

	// CodeOK is the sentinel returned by GetCode for a nil error.
	CodeOK ErrorCode = "OK"
)

// Citation pipeline error codes.
//
// These map one-to-one onto the pipeline's failure taxonomy: boundary
// failures (reference/claim unavailable), precondition failures (duplicate
// job, incomplete analysis), and escalation failures.
const (
	ErrCodeReferenceUnavailable     ErrorCode = "CIT_001"
	ErrCodeInvalidElement           ErrorCode = "CIT_002"
	ErrCodeAnalysisUnavailable      ErrorCode = "CIT_003"
	ErrCodeIncompleteAnalysis       ErrorCode = "CIT_004"
	ErrCodeDuplicateJob             ErrorCode = "CIT_005"
	ErrCodeJobTimeout               ErrorCode = "CIT_006"
	ErrCodeJobNotFound              ErrorCode = "CIT_007"
	ErrCodeMatchNotFound            ErrorCode = "CIT_008"
	ErrCodeCombinedAnalysisNotFound ErrorCode = "CIT_009"
	ErrCodeSearchSessionNotFound    ErrorCode = "CIT_010"
	ErrCodeClaimUnavailable         ErrorCode = "CIT_011"
	ErrCodeTenantMismatch           ErrorCode = "CIT_012"
	ErrCodeJobStateInvalid          ErrorCode = "CIT_013"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeUnknown:            http.StatusInternalServerError,

	ErrCodeReferenceUnavailable:     http.StatusServiceUnavailable,
	ErrCodeInvalidElement:           http.StatusBadRequest,
	ErrCodeAnalysisUnavailable:      http.StatusServiceUnavailable,
	ErrCodeIncompleteAnalysis:       http.StatusPreconditionFailed,
	ErrCodeDuplicateJob:             http.StatusConflict,
	ErrCodeJobTimeout:               http.StatusGatewayTimeout,
	ErrCodeJobNotFound:              http.StatusNotFound,
	ErrCodeMatchNotFound:            http.StatusNotFound,
	ErrCodeCombinedAnalysisNotFound: http.StatusNotFound,
	ErrCodeSearchSessionNotFound:    http.StatusNotFound,
	ErrCodeClaimUnavailable:         http.StatusServiceUnavailable,
	ErrCodeTenantMismatch:           http.StatusForbidden,
	ErrCodeJobStateInvalid:          http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeUnknown:            "unknown error",

	ErrCodeReferenceUnavailable:     "reference document unavailable",
	ErrCodeInvalidElement:           "claim element is malformed",
	ErrCodeAnalysisUnavailable:      "analysis provider unavailable",
	ErrCodeIncompleteAnalysis:       "deep analysis incomplete for requested references",
	ErrCodeDuplicateJob:             "citation job already in flight for this reference",
	ErrCodeJobTimeout:               "citation job exceeded processing timeout",
	ErrCodeJobNotFound:              "citation job not found",
	ErrCodeMatchNotFound:            "citation match not found",
	ErrCodeCombinedAnalysisNotFound: "combined analysis not found",
	ErrCodeSearchSessionNotFound:    "search session not found",
	ErrCodeClaimUnavailable:         "claim source unavailable",
	ErrCodeTenantMismatch:           "entity does not belong to the requesting tenant",
	ErrCodeJobStateInvalid:          "citation job is in a terminal state",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode ("COMMON", "CIT").
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
