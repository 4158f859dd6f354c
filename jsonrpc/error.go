package jsonrpc

import (
	"fmt"
)

// ErrorCode represents a JSON-RPC error code
type ErrorCode int

// Codes reserved by JSON-RPC 2.0 (https://www.jsonrpc.org/specification#error_object)
const (
	ErrParse          ErrorCode = -32700 // body is not JSON
	ErrInvalidRequest ErrorCode = -32600 // JSON, but not a request object
	ErrMethodNotFound ErrorCode = -32601
	ErrInvalidParams  ErrorCode = -32602 // bad params, unknown tool or cursor
	ErrInternal       ErrorCode = -32603

	// ErrServer is the first of the -32000..-32099 implementation range
	ErrServer ErrorCode = -32000
)

// standardMessages holds the message sent with each reserved code when the
// caller gives none
var standardMessages = map[ErrorCode]string{
	ErrParse:          "Parse error",
	ErrInvalidRequest: "Invalid Request",
	ErrMethodNotFound: "Method not found",
	ErrInvalidParams:  "Invalid params",
	ErrInternal:       "Internal error",
	ErrServer:         "Server error",
}

func isServerCode(code ErrorCode) bool {
	return code >= -32099 && code <= ErrServer
}

// Error represents a JSON-RPC error object
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

var _ error = &Error{}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewError creates an error carrying the standard message for code.
// An error passed as data is reduced to its text, since error values
// usually encode as {}.
func NewError(code ErrorCode, data interface{}) *Error {
	msg, ok := standardMessages[code]
	switch {
	case ok:
	case isServerCode(code):
		msg = standardMessages[ErrServer]
	default:
		msg = "Unknown error"
	}

	if err, ok := data.(error); ok {
		data = err.Error()
	}
	return &Error{Code: code, Message: msg, Data: data}
}

// Errorf creates an error whose message is user-facing text, such as
// "Unknown tool: tell-joke"
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
