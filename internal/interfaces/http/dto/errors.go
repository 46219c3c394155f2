package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeUnknownField is used when a request names a field the ledger does not have
	ErrCodeUnknownField = "ERR_UNKNOWN_FIELD"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeProjectNotFound is used when a project id is unknown
	ErrCodeProjectNotFound = "ERR_PROJECT_NOT_FOUND"
	// ErrCodeCategoryNotFound is used when a category id is unknown within its project
	ErrCodeCategoryNotFound = "ERR_CATEGORY_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidNumber is used when a project number is empty or too long
	ErrCodeInvalidNumber = "ERR_INVALID_NUMBER"
	// ErrCodeInvalidName is used when a name is too long
	ErrCodeInvalidName = "ERR_INVALID_NAME"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeUnknownField: http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeProjectNotFound:  http.StatusNotFound,
	ErrCodeCategoryNotFound: http.StatusNotFound,
	ErrCodeAlreadyExists:    http.StatusConflict,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidNumber: http.StatusBadRequest,
	ErrCodeInvalidName:   http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":          ErrCodeNotFound,
	"ALREADY_EXISTS":     ErrCodeAlreadyExists,
	"INVALID_INPUT":      ErrCodeInvalidInput,
	"UNKNOWN_FIELD":      ErrCodeUnknownField,
	"PROJECT_NOT_FOUND":  ErrCodeProjectNotFound,
	"CATEGORY_NOT_FOUND": ErrCodeCategoryNotFound,
	"INVALID_NUMBER":     ErrCodeInvalidNumber,
	"INVALID_NAME":       ErrCodeInvalidName,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, and unknown codes, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
