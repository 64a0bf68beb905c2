// Package record holds the flat, multi-valued record the normalizer produces
// for each object.
//
// Keys keep the order they were first added in, and the values under a key
// keep the order they were added in, so two records built the same way
// serialize the same way.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Separator joins multiple values of one field in flattened output.
const Separator = "|"

// Record maps destination keys to one or more values.
type Record struct {
	keys   []string
	values map[string][]string
}

// Field is one flattened key and value.
type Field struct {
	Key   string
	Value string
}

// New returns an empty record.
func New() *Record {
	return &Record{values: make(map[string][]string)}
}

// Add appends a value under key.
func (r *Record) Add(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = append(r.values[key], value)
}

// Set replaces every value under key. A key that already exists keeps its
// position. Setting no values removes the key.
func (r *Record) Set(key string, values ...string) {
	if len(values) == 0 {
		r.Delete(key)
		return
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = append([]string(nil), values...)
}

// Delete removes key and its values.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Values returns the values under key, or nil.
func (r *Record) Values(key string) []string {
	return r.values[key]
}

// Get returns the first value under key, or "".
func (r *Record) Get(key string) string {
	v := r.values[key]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of keys.
func (r *Record) Len() int {
	return len(r.keys)
}

// Flatten returns one Field per key with its values combined by Join.
func (r *Record) Flatten() []Field {
	result := make([]Field, 0, len(r.keys))
	for _, k := range r.keys {
		result = append(result, Field{Key: k, Value: Join(r.values[k])})
	}
	return result
}

// Join combines values with Separator. A backslash or separator inside a
// value is escaped with a backslash so Split can recover the list.
func Join(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		v = strings.ReplaceAll(v, `\`, `\\`)
		escaped[i] = strings.ReplaceAll(v, Separator, `\`+Separator)
	}
	return strings.Join(escaped, Separator)
}

// Split is the inverse of Join.
func Split(s string) []string {
	var (
		result []string
		cur    strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == Separator[0]:
			result = append(result, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(result, cur.String())
}

// MarshalJSON writes the record as an object of string arrays in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads what MarshalJSON writes, keeping the key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	*r = Record{values: make(map[string][]string)}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var values []string
		if err := dec.Decode(&values); err != nil {
			return err
		}
		r.Set(key, values...)
	}
	_, err = dec.Token()
	return err
}
