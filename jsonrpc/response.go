package jsonrpc

// Result represents an arbitrary JSON-RPC result value
type Result interface{}

// Response represents a JSON-RPC response object. Exactly one of Result and
// Error is set.
type Response struct {
	Version string `json:"jsonrpc"`
	Result  Result `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      ID     `json:"id"`
}

// NewResponse answers the request identified by id. A nil id, as for a
// request that could not be parsed, is sent as null.
func NewResponse(id *ID, result Result, err *Error) Response {
	response := Response{
		Version: Version,
		Error:   err,
	}
	if err == nil {
		response.Result = result
	}
	if id != nil {
		response.ID = *id
	}
	return response
}
