package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is the closed set of JSON values allowed in a hashed document.
// Only String, Int, Bool, Array and JSONObject implement it: there is no null
// and no float, so every document has exactly one canonical encoding.
type Value interface {
	jsonValue()
}

// String is a JSON string.
type String string

// Int is a JSON integer. Always int64, never float64.
type Int int64

// Bool is a JSON boolean.
type Bool bool

// Array is a JSON array.
type Array []Value

// JSONObject is a JSON object. Use SortedKeys for deterministic iteration.
type JSONObject map[string]Value

func (String) jsonValue() {}
func (Int) jsonValue()    {}
func (Bool) jsonValue()   {}
func (Array) jsonValue()  {}
func (JSONObject) jsonValue() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's native string ordering compares UTF-8 bytes, which differs for
// characters outside the Basic Multilingual Plane.
func (obj JSONObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// DecodeValue parses JSON into a Value, rejecting null and non-integral
// numbers.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return toValue(raw)
}

// ToValue converts any JSON-marshalable Go value into a Value by encoding
// it and decoding the result strictly.
func ToValue(v any) (Value, error) {
	if val, ok := v.(Value); ok {
		return val, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return DecodeValue(data)
}

func toValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden: only string, int, bool, array, object allowed")
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(JSONObject, len(val))
		for k, elem := range val {
			ev, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
