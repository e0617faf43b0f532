package renderpass

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Dictionary is a flat key/value map of pass parameters.
//
// Values are scalars (bool, integers, floats, strings) or lists of them.
// Getters are tolerant of the numeric types produced by TOML and YAML
// decoders, and return the supplied default when a key is missing or has
// an unusable type.
type Dictionary map[string]any

// NewDictionary returns an empty dictionary.
func NewDictionary() Dictionary { return make(Dictionary) }

// Set stores v under key and returns d for chaining.
func (d Dictionary) Set(key string, v any) Dictionary {
	d[key] = v
	return d
}

// Has reports whether key is present.
func (d Dictionary) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Keys returns the keys in sorted order.
func (d Dictionary) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy.
func (d Dictionary) Clone() Dictionary {
	out := make(Dictionary, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Float returns key as a float32.
func (d Dictionary) Float(key string, def float32) float32 {
	if f, ok := toFloat(d[key]); ok {
		return float32(f)
	}
	return def
}

// Int returns key as an int. Fractional values are truncated.
func (d Dictionary) Int(key string, def int) int {
	if f, ok := toFloat(d[key]); ok {
		return int(f)
	}
	return def
}

// Uint returns key as a uint32. Negative values yield def.
func (d Dictionary) Uint(key string, def uint32) uint32 {
	f, ok := toFloat(d[key])
	if !ok || f < 0 || f > math.MaxUint32 {
		return def
	}
	return uint32(f)
}

// Bool returns key as a bool.
func (d Dictionary) Bool(key string, def bool) bool {
	if b, ok := d[key].(bool); ok {
		return b
	}
	return def
}

// String returns key as a string.
func (d Dictionary) String(key string, def string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return def
}

// Floats returns key as a float32 list. Lists with non-numeric elements
// yield def.
func (d Dictionary) Floats(key string, def []float32) []float32 {
	switch list := d[key].(type) {
	case []float32:
		return append([]float32(nil), list...)
	case []float64:
		out := make([]float32, len(list))
		for i, v := range list {
			out[i] = float32(v)
		}
		return out
	case []any:
		out := make([]float32, len(list))
		for i, v := range list {
			f, ok := toFloat(v)
			if !ok {
				return def
			}
			out[i] = float32(f)
		}
		return out
	}
	return def
}

// Vec3 returns key as a three-element vector. Lists of another length
// yield def.
func (d Dictionary) Vec3(key string, def [3]float32) [3]float32 {
	f := d.Floats(key, nil)
	if len(f) != 3 {
		return def
	}
	return [3]float32{f[0], f[1], f[2]}
}

// Vec4 returns key as a four-element vector.
func (d Dictionary) Vec4(key string, def [4]float32) [4]float32 {
	f := d.Floats(key, nil)
	if len(f) != 4 {
		return def
	}
	return [4]float32{f[0], f[1], f[2], f[3]}
}

// EncodeTOML writes d as a TOML table.
func (d Dictionary) EncodeTOML(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(map[string]any(d)); err != nil {
		return fmt.Errorf("renderpass: encode TOML: %w", err)
	}
	return nil
}

// EncodeYAML writes d as a YAML mapping.
func (d Dictionary) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(d)); err != nil {
		return fmt.Errorf("renderpass: encode YAML: %w", err)
	}
	return enc.Close()
}

// DecodeTOML reads a dictionary from TOML.
func DecodeTOML(r io.Reader) (Dictionary, error) {
	d := NewDictionary()
	if err := toml.NewDecoder(r).Decode((*map[string]any)(&d)); err != nil {
		return nil, fmt.Errorf("renderpass: decode TOML: %w", err)
	}
	return d, nil
}

// DecodeYAML reads a dictionary from YAML.
func DecodeYAML(r io.Reader) (Dictionary, error) {
	d := NewDictionary()
	if err := yaml.NewDecoder(r).Decode((*map[string]any)(&d)); err != nil {
		if err == io.EOF {
			return d, nil
		}
		return nil, fmt.Errorf("renderpass: decode YAML: %w", err)
	}
	return d, nil
}

// MarshalTOML returns the TOML encoding of d.
func (d Dictionary) MarshalTOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.EncodeTOML(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
