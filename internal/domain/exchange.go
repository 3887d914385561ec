package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ExportFileName is the download name used for exported collections.
const ExportFileName = "quotes.json"

// MarshalExport encodes quotes as a pretty-printed JSON array.
func MarshalExport(quotes []Quote) ([]byte, error) {
	data, err := json.MarshalIndent(Clone(quotes), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding quotes: %w", err)
	}

	return append(data, '\n'), nil
}

// ParseQuotes decodes a JSON array of quotes and checks that every element is
// an object with non-empty string text and category fields. Values are kept as
// given apart from surrounding whitespace.
func ParseQuotes(data []byte) ([]Quote, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, NewValidationError("", "expected a JSON array of quotes")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, NewValidationError("", "malformed JSON: "+err.Error())
	}

	quotes := make([]Quote, 0, len(raw))

	for i, item := range raw {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			return nil, NewItemValidationError(i, "", "must be an object")
		}

		text, ok := fields["text"].(string)
		if !ok {
			return nil, NewItemValidationError(i, "text", "must be a string")
		}

		category, ok := fields["category"].(string)
		if !ok {
			return nil, NewItemValidationError(i, "category", "must be a string")
		}

		q, err := NewQuote(text, category)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return nil, NewItemValidationError(i, ve.Field, ve.Message)
			}

			return nil, err
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}
