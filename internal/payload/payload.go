// Package payload handles the caller-defined JSON objects scout stores
// without interpreting: scorecard rubrics, registry meta and idea attrs.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	scouterrors "scout/internal/errors"
)

// Payload is a JSON object. Values are limited to what encoding/json
// produces: strings, float64, bool, nil, []any and map[string]any.
type Payload map[string]any

// Parse decodes raw JSON text into a Payload.
// Empty input yields a nil Payload and no error.
func Parse(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, scouterrors.Wrap(scouterrors.ValidationError, "payload is not valid JSON", err)
	}
	if dec.More() {
		return nil, scouterrors.New(scouterrors.ValidationError, "payload has trailing data")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, scouterrors.Newf(scouterrors.ValidationError, "payload must be a JSON object, got %s", kindOf(v))
	}

	p := Payload(normalize(obj).(map[string]any))
	return p, nil
}

// Validate checks that every value can round-trip through JSON.
func (p Payload) Validate() error {
	for _, k := range p.Keys() {
		if err := validateValue(k, p[k]); err != nil {
			return err
		}
	}
	return nil
}

// Encode returns the canonical JSON text of the payload. A nil payload
// encodes as "" so it is stored as NULL.
func (p Payload) Encode() (string, error) {
	if p == nil {
		return "", nil
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(p)); err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Keys returns the top-level keys in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders a top-level value for flat outputs like CSV cells.
func (p Payload) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// normalize converts json.Number into int64 when integral, float64 otherwise.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, vv := range t {
			t[k] = normalize(vv)
		}
		return t
	case []any:
		for i, vv := range t {
			t[i] = normalize(vv)
		}
		return t
	default:
		return v
	}
}

func validateValue(path string, v any) error {
	switch t := v.(type) {
	case nil, string, bool,
		int, int32, int64, uint, uint32, uint64,
		float32, float64:
		return nil
	case []any:
		for i, vv := range t {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), vv); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for k, vv := range t {
			if err := validateValue(path+"."+k, vv); err != nil {
				return err
			}
		}
		return nil
	case Payload:
		return validateValue(path, map[string]any(t))
	default:
		return scouterrors.Newf(scouterrors.ValidationError, "payload value at %s has unsupported type %T", path, v)
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
