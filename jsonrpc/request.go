package jsonrpc

import "encoding/json"

// Version is the JSON-RPC protocol version
const Version = "2.0"

// Request represents a JSON-RPC request or notification object.
// A notification carries no id.
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *ID             `json:"id,omitempty"`
}

// NewRequest creates a new Request object
func NewRequest(method string, params json.RawMessage, id interface{}) Request {
	req := Request{
		Version: Version,
		Method:  method,
		Params:  params,
	}
	if reqID, err := NewID(id); err == nil && !reqID.IsNil() {
		req.ID = &reqID
	}
	return req
}

// NewNotification creates a Request without an id
func NewNotification(method string, params json.RawMessage) Request {
	return Request{
		Version: Version,
		Method:  method,
		Params:  params,
	}
}

// IsNotification reports whether the request expects no response
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Validate checks the envelope fields required by JSON-RPC 2.0
func (r Request) Validate() *Error {
	if r.Version != Version {
		return NewError(ErrInvalidRequest, "jsonrpc must be \"2.0\"")
	}
	if r.Method == "" {
		return NewError(ErrInvalidRequest, "method is required")
	}
	return nil
}

// Decode parses a single JSON-RPC message. A parse failure is returned as a
// ready-to-send *Error.
func Decode(data []byte) (Request, *Error) {
	var request Request
	if err := json.Unmarshal(data, &request); err != nil {
		return Request{}, NewError(ErrParse, err)
	}
	if rpcErr := request.Validate(); rpcErr != nil {
		return request, rpcErr
	}
	return request, nil
}
