package ir

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a decoder meets a kind it has no
// registration for. Canonical producers are trusted, so an unknown kind is
// schema drift and must not be skipped.
var ErrUnknownKind = errors.New("unknown kind")

// DecodeError describes a malformed canonical object.
type DecodeError struct {
	Kind    string // Entity kind being decoded (may be empty)
	Field   string // Offending field
	Message string
}

func (e *DecodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("decode %s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("decode: %s: %s", e.Field, e.Message)
}

// Kind returns the "kind" discriminator of an encoded entity.
func (obj IRObject) Kind() (string, error) {
	k, ok := obj["kind"].(IRString)
	if !ok {
		return "", &DecodeError{Field: "kind", Message: "missing or not a string"}
	}
	return string(k), nil
}

// Lookup returns the value under key. Absent keys and explicit nulls both
// report ok=false.
func (obj IRObject) Lookup(key string) (IRValue, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.(IRNull); isNull {
		return nil, false
	}
	return v, true
}

// String returns a required string field.
func (obj IRObject) String(key string) (string, error) {
	v, ok := obj.Lookup(key)
	if !ok {
		return "", &DecodeError{Field: key, Message: "required"}
	}
	s, ok := v.(IRString)
	if !ok {
		return "", &DecodeError{Field: key, Message: fmt.Sprintf("expected string, got %T", v)}
	}
	return string(s), nil
}

// OptString returns an optional string field ("" when absent).
func (obj IRObject) OptString(key string) (string, error) {
	if _, ok := obj.Lookup(key); !ok {
		return "", nil
	}
	return obj.String(key)
}

// Float returns a numeric field as float64. def is used when the key is absent.
func (obj IRObject) Float(key string, def float64) (float64, error) {
	v, ok := obj.Lookup(key)
	if !ok {
		return def, nil
	}
	f, ok := AsFloat(v)
	if !ok {
		return 0, &DecodeError{Field: key, Message: fmt.Sprintf("expected number, got %T", v)}
	}
	return f, nil
}

// StringList returns a list of strings. A bare string is accepted as a
// one-element list; an absent key returns nil.
func (obj IRObject) StringList(key string) ([]string, error) {
	v, ok := obj.Lookup(key)
	if !ok {
		return nil, nil
	}
	switch val := v.(type) {
	case IRString:
		return []string{string(val)}, nil
	case IRArray:
		out := make([]string, len(val))
		for i, elem := range val {
			s, ok := elem.(IRString)
			if !ok {
				return nil, &DecodeError{Field: fmt.Sprintf("%s[%d]", key, i), Message: fmt.Sprintf("expected string, got %T", elem)}
			}
			out[i] = string(s)
		}
		return out, nil
	default:
		return nil, &DecodeError{Field: key, Message: fmt.Sprintf("expected string or list, got %T", v)}
	}
}

// Object returns a nested object field; ok=false when absent or null.
func (obj IRObject) Object(key string) (IRObject, bool, error) {
	v, ok := obj.Lookup(key)
	if !ok {
		return nil, false, nil
	}
	o, ok := v.(IRObject)
	if !ok {
		return nil, false, &DecodeError{Field: key, Message: fmt.Sprintf("expected object, got %T", v)}
	}
	return o, true, nil
}

// Objects returns a list of nested objects; nil when absent.
func (obj IRObject) Objects(key string) ([]IRObject, error) {
	v, ok := obj.Lookup(key)
	if !ok {
		return nil, nil
	}
	arr, ok := v.(IRArray)
	if !ok {
		return nil, &DecodeError{Field: key, Message: fmt.Sprintf("expected list, got %T", v)}
	}
	out := make([]IRObject, len(arr))
	for i, elem := range arr {
		o, ok := elem.(IRObject)
		if !ok {
			return nil, &DecodeError{Field: fmt.Sprintf("%s[%d]", key, i), Message: fmt.Sprintf("expected object, got %T", elem)}
		}
		out[i] = o
	}
	return out, nil
}

// AsFloat reports the numeric value of an IRInt or IRFloat.
func AsFloat(v IRValue) (float64, bool) {
	switch n := v.(type) {
	case IRInt:
		return float64(n), true
	case IRFloat:
		return float64(n), true
	default:
		return 0, false
	}
}
