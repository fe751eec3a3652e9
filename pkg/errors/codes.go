package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are "<MODULE>_<nnn>".
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
	ErrCodeConfig             ErrorCode = "COMMON_017"
)

// Sentinels outside the numbered ranges.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// RInChI core error codes
const (
	ErrCodeFormat           ErrorCode = "RINCHI_001"
	ErrCodeValidation       ErrorCode = "RINCHI_002"
	ErrCodePrecondition     ErrorCode = "RINCHI_003"
	ErrCodeReactionNotFound ErrorCode = "RINCHI_004"
)

// MDL file error codes
const (
	ErrCodeMolfile ErrorCode = "MDL_001"
	ErrCodeRxnfile ErrorCode = "MDL_002"
	ErrCodeRDfile  ErrorCode = "MDL_003"
)

// Structure engine error codes
const (
	ErrCodeEngineUnsupported ErrorCode = "ENGINE_001"
	ErrCodeEngineFailed      ErrorCode = "ENGINE_002"
)

// Infrastructure error codes
const (
	ErrCodeCacheError     ErrorCode = "CACHE_001"
	ErrCodeCacheMiss      ErrorCode = "CACHE_002"
	ErrCodeDatabaseError  ErrorCode = "DB_001"
	ErrCodeMigration      ErrorCode = "DB_002"
	ErrCodeGraphError     ErrorCode = "DB_003"
	ErrCodeMessageQueue   ErrorCode = "MQ_001"
	ErrCodeStorage        ErrorCode = "STORAGE_001"
	ErrCodeObjectNotFound ErrorCode = "STORAGE_002"
)

// errorCodeHTTPStatus maps codes to HTTP statuses. Codes not listed map to 500.
var errorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeFormat:           http.StatusBadRequest,
	ErrCodeValidation:       http.StatusUnprocessableEntity,
	ErrCodePrecondition:     http.StatusBadRequest,
	ErrCodeReactionNotFound: http.StatusNotFound,

	ErrCodeMolfile: http.StatusBadRequest,
	ErrCodeRxnfile: http.StatusBadRequest,
	ErrCodeRDfile:  http.StatusBadRequest,

	ErrCodeEngineUnsupported: http.StatusNotImplemented,
	ErrCodeEngineFailed:      http.StatusBadGateway,

	ErrCodeObjectNotFound: http.StatusNotFound,
}

// HTTPStatusForCode returns the HTTP status for code.
func HTTPStatusForCode(code ErrorCode) int {
	if s, ok := errorCodeHTTPStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	s := HTTPStatusForCode(code)
	return s >= 400 && s < 500
}

// IsServerError reports whether code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	return HTTPStatusForCode(code) >= 500
}

// ModuleForCode returns the module prefix of code ("RINCHI", "MDL", ...).
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}
