package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the normalized {success, message, data} response shape.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Err returns an *EnvelopeError when the envelope reports failure.
func (e *Envelope) Err() error {
	if e == nil {
		return &EnvelopeError{}
	}
	if !e.Success {
		return &EnvelopeError{Message: e.Message}
	}
	return nil
}

// HasData reports whether data is present and not JSON null.
func (e *Envelope) HasData() bool {
	if e == nil {
		return false
	}
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Decode checks the envelope and unmarshals its data into T.
// Missing data decodes to the zero value.
func Decode[T any](env *Envelope, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := env.Err(); err != nil {
		return out, err
	}
	if !env.HasData() {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("failed to decode response data: %w", err)
	}
	return out, nil
}

func parseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &env, nil
}
