package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an identifier issued by the marketplace API. The API is inconsistent
// about sending ids as JSON numbers or strings, so both decode to the same value.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = ID(n.String())
		return nil
	default:
		return fmt.Errorf("id: unsupported JSON value %s", string(b))
	}
}
