package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ID represents a JSON-RPC ID which must be either a string or number
type ID struct {
	value interface{}
}

// NewID creates a JSON-RPC ID from a string or number
func NewID(id interface{}) (ID, error) {
	switch v := id.(type) {
	case ID:
		return v, nil
	case *ID:
		if v == nil {
			return ID{}, nil
		}
		return *v, nil
	case string:
		return ID{value: v}, nil
	case int:
		return ID{value: v}, nil
	case int32:
		return ID{value: int(v)}, nil
	case int64:
		return ID{value: int(v)}, nil
	case float64:
		return ID{value: int(v)}, nil
	case nil:
		return ID{}, nil
	default:
		return ID{}, fmt.Errorf("id must be string or number, got %T", id)
	}
}

func (id ID) Value() interface{} {
	return id.value
}

func (id ID) IsNil() bool {
	return id.value == nil
}

// Equal compares two IDs for equality
func (id ID) Equal(other interface{}) bool {
	o, err := NewID(other)
	if err != nil {
		return false
	}
	return id.value == o.value
}

// String returns a form of the ID usable as a map key or log value
func (id ID) String() string {
	switch v := id.value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

var _ json.Marshaler = ID{}

// MarshalJSON encodes a missing ID as null, which is what a response to an
// unparseable request carries.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

var _ json.Unmarshaler = &ID{}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		id.value = v
		return nil
	case float64: // JSON numbers are decoded as float64
		if v != float64(int(v)) {
			return fmt.Errorf("id must be an integer, got %g", v)
		}
		id.value = int(v)
		return nil
	case nil:
		id.value = nil
		return nil
	default:
		return fmt.Errorf("id must be string or number, got %T", raw)
	}
}
