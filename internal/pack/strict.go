package pack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// CheckTaggedNumbers rejects JSON documents containing any bare number.
// Numeric values in a manifest must be written as tagged decimal strings.
func CheckTaggedNumbers(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan manifest: %w", err)
		}
		if n, ok := tok.(json.Number); ok {
			return fmt.Errorf("%w: %s at offset %d", ErrUntaggedNumber, n, dec.InputOffset())
		}
	}
}
