package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a webhook body is valid JSON but not an object.
var ErrNotObject = errors.New("payload must be a JSON object")

// Payload is a decoded webhook body. Fields other than content and embeds
// are kept in Fields untouched.
type Payload struct {
	Fields map[string]any
}

// ParsePayload decodes a webhook body. The body must be a JSON object;
// any other JSON value or malformed input is an error.
func ParsePayload(body []byte) (Payload, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return Payload{}, ErrNotObject
	}
	return Payload{Fields: fields}, nil
}

// Content returns the content field, or "" when absent or not a string.
func (p Payload) Content() string {
	s, _ := p.Fields["content"].(string)
	return s
}

// Embeds returns the embeds array, or an empty slice when absent or not an array.
func (p Payload) Embeds() []any {
	if e, ok := p.Fields["embeds"].([]any); ok {
		return e
	}
	return []any{}
}
