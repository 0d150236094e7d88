package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Pair is one entry of a Mapping.
type Pair struct {
	Key   string
	Value string
}

// Mapping is a string to string map that remembers insertion order, so a
// technical-spec table renders rows in the order the editor typed them.
type Mapping []Pair

// NewMapping builds a Mapping from alternating key, value arguments. A
// trailing key without a value is ignored.
func NewMapping(kv ...string) Mapping {
	m := make(Mapping, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1])
	}
	return m
}

// Len returns the number of keys.
func (m Mapping) Len() int { return len(m) }

// Get returns the value stored under key.
func (m Mapping) Get(key string) (string, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing key in place or appends a new key.
func (m *Mapping) Set(key, value string) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Pair{Key: key, Value: value})
}

// Keys returns the keys in order.
func (m Mapping) Keys() []string {
	keys := make([]string, len(m))
	for i, p := range m {
		keys[i] = p.Key
	}
	return keys
}

// MarshalJSON encodes the mapping as a JSON object in key order. A nil
// mapping encodes as {}.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, p.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, p.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping document order. Non-string
// values are kept as their compact JSON text. Repeated keys keep the first
// position and the last value.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	out := Mapping{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := rawToString(raw)
		if err != nil {
			return err
		}
		out.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after object")
	}

	*m = out
	return nil
}

var errNotObject = errors.New("top-level JSON value is not an object")

func rawToString(raw json.RawMessage) (string, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeString writes s as a JSON string without HTML escaping, so CJK text
// and "<" survive unchanged in the stored column.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}
