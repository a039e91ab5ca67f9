package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/fxdispatch/internal/ir"
)

// marshalPlacement converts a placement to JSON TEXT for storage.
// HTML escaping is off so asset paths stay readable in the log.
func marshalPlacement(p ir.Placement) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("marshal placement: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// unmarshalPlacement parses a stored placement.
func unmarshalPlacement(data string) (ir.Placement, error) {
	var p ir.Placement
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return ir.Placement{}, fmt.Errorf("unmarshal placement: %w", err)
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
