package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// listPayload accepts a bare JSON array or an object wrapping the array under
// key.
type listPayload[T any] struct {
	key   string
	items []T
}

func (l *listPayload[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty list payload")
	}

	switch b[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		l.items = items
	case '{':
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return err
		}
		raw, ok := wrapped[l.key]
		if !ok {
			return fmt.Errorf("list payload has no %q field", l.key)
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		l.items = items
	case 'n':
		l.items = nil
	default:
		return fmt.Errorf("unsupported list payload %s", string(b))
	}

	if l.items == nil {
		l.items = []T{}
	}
	return nil
}
