package product

import (
	"encoding/json"

	"github.com/go-faster/errors"
)

// Payload is the canonical field set proposed for a product that does not
// exist yet.
type Payload map[Field]string

// NewPayload keeps the allow-listed, well formed values of proposed.
func NewPayload(proposed map[string]any) Payload {
	p := Payload{}
	for _, f := range MutableFields {
		if f == FieldStatus {
			continue
		}
		raw, ok := proposed[string(f)]
		if !ok {
			continue
		}
		if v, ok := Canonical(f, raw); ok {
			p[f] = v
		}
	}
	return p
}

func (p Payload) Marshal() (string, error) {
	raw := make(map[string]string, len(p))
	for f, v := range p {
		raw[string(f)] = v
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", errors.Wrap(err, "marshal product payload")
	}
	return string(b), nil
}

func UnmarshalPayload(s string) (Payload, error) {
	raw := map[string]any{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshal product payload")
	}
	return NewPayload(raw), nil
}
