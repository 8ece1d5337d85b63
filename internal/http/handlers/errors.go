// Package handlers defines HTTP-layer error codes used by the webhook surface.
//
// Codes are lowercase snake_case and travel in the ErrorResponse envelope
// next to the HTTP status. The platform only inspects the status; the codes
// are for operators reading logs and for manual calls against the endpoint.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_signature",
//	  "message": "signature verification failed"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeTooLarge         = "payload_too_large"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
)
