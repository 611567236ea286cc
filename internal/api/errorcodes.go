package api

type ErrorCode = string

const (
	// ErrorCodeUnknown should not be used directly, it only indicates a failure in the error handling system in such a way that an error code was not assigned properly.
	ErrorCodeUnknown ErrorCode = "unknown"

	// ErrorCodeUnexpectedFailure signals an unexpected failure such as a 500 Internal Server Error.
	ErrorCodeUnexpectedFailure ErrorCode = "unexpected_failure"

	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed     ErrorCode = "method_not_allowed"
	ErrorCodeOverRequestRateLimit ErrorCode = "over_request_rate_limit"
	ErrorCodeOverNonceIssueLimit  ErrorCode = "over_nonce_issue_rate_limit"
	ErrorCodeRequestTimeout       ErrorCode = "request_timeout"
	ErrorCodeRequestTooLarge      ErrorCode = "request_too_large"
	ErrorCodeNonceStoreFailure    ErrorCode = "nonce_store_failure"
)
