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

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodePayloadTooLarge    ErrorCode = "COMMON_017"
)

// Aliases used throughout the infrastructure layer.
const (
	CodeUnknown           = ErrorCode("UNKNOWN")
	CodeOK                = ErrorCode("OK")
	CodeInternal          = ErrCodeInternal
	CodeInvalidParam      = ErrCodeBadRequest
	CodeNotFound          = ErrCodeNotFound
	CodeConflict          = ErrCodeConflict
	CodeRateLimit         = ErrCodeTooManyRequests
	CodeCacheError        = ErrCodeCacheError
	CodeStorageError      = ErrCodeExternalService
	CodeMessageQueueError = ErrCodeExternalService
)

// Pill pipeline error codes. Each maps to one kind of the pipeline error
// taxonomy (see ErrorCodeKind).
const (
	ErrCodeResolutionFailed   ErrorCode = "PILL_001"
	ErrCodeLabelFetchFailed   ErrorCode = "PILL_002"
	ErrCodeLabelCacheCorrupt  ErrorCode = "PILL_003"
	ErrCodeExplanationFailed  ErrorCode = "PILL_004"
	ErrCodeCorrectionNotFound ErrorCode = "PILL_005"
)

// OCR error codes
const (
	ErrCodeImageInvalid    ErrorCode = "OCR_001"
	ErrCodeTextNotDetected ErrorCode = "OCR_002"
	ErrCodeOCRFailed       ErrorCode = "OCR_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodePayloadTooLarge:    http.StatusRequestEntityTooLarge,

	ErrCodeResolutionFailed:   http.StatusNotFound,
	ErrCodeLabelFetchFailed:   http.StatusServiceUnavailable,
	ErrCodeLabelCacheCorrupt:  http.StatusInternalServerError,
	ErrCodeExplanationFailed:  http.StatusServiceUnavailable,
	ErrCodeCorrectionNotFound: http.StatusNotFound,

	ErrCodeImageInvalid:    http.StatusBadRequest,
	ErrCodeTextNotDetected: http.StatusUnprocessableEntity,
	ErrCodeOCRFailed:       http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodePayloadTooLarge:    "payload too large",

	ErrCodeResolutionFailed:   "no pill matches the imprint",
	ErrCodeLabelFetchFailed:   "regulatory label unavailable",
	ErrCodeLabelCacheCorrupt:  "cached label could not be decoded",
	ErrCodeExplanationFailed:  "explanation service unavailable",
	ErrCodeCorrectionNotFound: "no look-alike medication known",

	ErrCodeImageInvalid:    "invalid image",
	ErrCodeTextNotDetected: "no text detected in image",
	ErrCodeOCRFailed:       "text detection failed",
}

// ErrorCodeKind names the pipeline failure kind reported to API callers.
var ErrorCodeKind = map[ErrorCode]string{
	ErrCodeResolutionFailed:   "ResolutionError",
	ErrCodeLabelFetchFailed:   "FetchError",
	ErrCodeLabelCacheCorrupt:  "CacheError",
	ErrCodeExplanationFailed:  "ExplanationError",
	ErrCodeCorrectionNotFound: "CorrectionNotFound",
	ErrCodeImageInvalid:       "ValidationError",
	ErrCodeBadRequest:         "ValidationError",
	ErrCodeValidation:         "ValidationError",
	ErrCodePayloadTooLarge:    "ValidationError",
	ErrCodeTextNotDetected:    "OCRError",
	ErrCodeOCRFailed:          "OCRError",
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

// KindForCode returns the taxonomy kind of code, "InternalError" if none.
func KindForCode(code ErrorCode) string {
	if kind, ok := ErrorCodeKind[code]; ok {
		return kind
	}
	return "InternalError"
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

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
