package httputil

// Machine-readable error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequestBody  = "INVALID_REQUEST_BODY"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeInvalidSelection    = "INVALID_SELECTION"
	CodeDuplicateEmail      = "DUPLICATE_EMAIL"
	CodeInvalidConfirmation = "INVALID_CONFIRMATION"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeAccountNotConfirmed = "ACCOUNT_NOT_CONFIRMED"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeNotFound            = "NOT_FOUND"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeInternalError       = "INTERNAL_ERROR"
)
