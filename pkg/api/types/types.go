// Package types holds the response envelope and the stable business
// error codes shared by the management API and the proxy surface.
package types

// Business codes. Zero is success; every negative code is a stable,
// caller-visible error identity. Business failures are rendered at
// transport success status (401 for unauthenticated); only unexpected
// failures surface as HTTP 5xx.
const (
	CodeOK = 0

	CodeProjectNotFound  = -1001
	CodeEndpointNotFound = -1002
	CodeMethodMismatch   = -1003
	CodePayloadCorrupt   = -1004
	CodeNotFound         = -1005
	CodeValidation       = -1006
	CodeConflict         = -1007

	CodeUnauthenticated    = -2001
	CodeInvalidCredentials = -2002
	CodeAccountDisabled    = -2003
)

// Response is the management-surface envelope.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) Response {
	return Response{Code: CodeOK, Message: "ok", Data: data}
}

// Err builds a business-error envelope.
func Err(code int, message string) Response {
	return Response{Code: code, Message: message}
}
