package inventory

import (
	"bytes"
	"encoding/json"
	"strings"
)

const LabelPrefix = "__meta_pve_"

var labelKeyReplacer = strings.NewReplacer("-", "_", " ", "_")

// LabelKey returns the prefixed label name for key.
func LabelKey(key string) string {
	return LabelPrefix + labelKeyReplacer.Replace(key)
}

// Labels is an insertion-ordered string map. Setting an existing key keeps
// its position.
type Labels struct {
	keys   []string
	values map[string]string
}

func NewLabels() *Labels {
	return &Labels{values: make(map[string]string)}
}

func (l *Labels) Set(key, value string) {
	if l.values == nil {
		l.values = make(map[string]string)
	}

	if _, ok := l.values[key]; !ok {
		l.keys = append(l.keys, key)
	}
	l.values[key] = value
}

func (l *Labels) Get(key string) (string, bool) {
	value, ok := l.values[key]
	return value, ok
}

func (l *Labels) Keys() []string {
	return append([]string(nil), l.keys...)
}

func (l *Labels) Len() int {
	return len(l.keys)
}

// Map returns an unordered copy.
func (l *Labels) Map() map[string]string {
	out := make(map[string]string, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

func (l *Labels) Clone() *Labels {
	clone := NewLabels()
	for _, key := range l.keys {
		clone.Set(key, l.values[key])
	}
	return clone
}

// Equal compares content and order.
func (l *Labels) Equal(other *Labels) bool {
	if l.Len() != other.Len() {
		return false
	}

	for i, key := range l.keys {
		if other.keys[i] != key || other.values[key] != l.values[key] {
			return false
		}
	}

	return true
}

func (l *Labels) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, key := range l.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(l.values[key])
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
