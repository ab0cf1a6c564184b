package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingField indicates a key that is absent from every source and has no default.
	ErrMissingField = errors.New("required field missing")

	// ErrInvalidValue indicates a present value that cannot be coerced to the requested type.
	ErrInvalidValue = errors.New("invalid value")
)

// FieldError attaches section/key context to a resolution failure.
type FieldError struct {
	Section string
	Key     string
	Value   string
	Err     error
}

func (e *FieldError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("[%s] %s = %q: %v", e.Section, e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Section, e.Key, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Value is the set of types a setting can be coerced to.
type Value interface {
	string | int | int64 | float64 | bool
}

// Resolver looks values up in an ordered list of sources, highest precedence first.
// It holds no mutable state; the sources are expected to be read-only.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver over sources. Nil sources are skipped, which
// lets callers pass an optional layer without branching.
func NewResolver(sources ...Source) *Resolver {
	r := &Resolver{}
	for _, s := range sources {
		if s != nil {
			r.sources = append(r.sources, s)
		}
	}
	return r
}

// Sources returns the names of the sources in precedence order.
func (r *Resolver) Sources() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

// Raw returns the first present raw value for section/key.
func (r *Resolver) Raw(section, key string) (string, bool) {
	for _, s := range r.sources {
		if v, ok := s.Lookup(section, key); ok {
			return v, true
		}
	}
	return "", false
}

// HasSection reports whether any source defines section.
func (r *Resolver) HasSection(section string) bool {
	for _, s := range r.sources {
		if s.HasSection(section) {
			return true
		}
	}
	return false
}

// Keys returns the union of the key names of section across all sources.
// Keys keep the order of the first source that defines them.
func (r *Resolver) Keys(section string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, s := range r.sources {
		for _, k := range s.Keys(section) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// KeysWithPrefix returns the keys of section that start with prefix, in order.
func (r *Resolver) KeysWithPrefix(section, prefix string) []string {
	var out []string
	for _, k := range r.Keys(section) {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// Lookup resolves section/key as T. present is false when no source has the key.
func Lookup[T Value](r *Resolver, section, key string) (value T, present bool, err error) {
	raw, ok := r.Raw(section, key)
	if !ok {
		return value, false, nil
	}
	value, err = parse[T](raw)
	if err != nil {
		return value, true, &FieldError{
			Section: section,
			Key:     key,
			Value:   raw,
			Err:     fmt.Errorf("%w: %v", ErrInvalidValue, err),
		}
	}
	return value, true, nil
}

// Required resolves section/key as T and fails with ErrMissingField when absent.
func Required[T Value](r *Resolver, section, key string) (T, error) {
	v, ok, err := Lookup[T](r, section, key)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, &FieldError{Section: section, Key: key, Err: ErrMissingField}
	}
	return v, nil
}

// Default resolves section/key as T, returning def when absent.
func Default[T Value](r *Resolver, section, key string, def T) (T, error) {
	v, ok, err := Lookup[T](r, section, key)
	if err != nil {
		return v, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// Optional resolves section/key as T, returning nil when absent.
func Optional[T Value](r *Resolver, section, key string) (*T, error) {
	v, ok, err := Lookup[T](r, section, key)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// IntList resolves a comma-separated list of integers. It returns nil when absent.
func IntList(r *Resolver, section, key string) ([]int, error) {
	raw, ok := r.Raw(section, key)
	if !ok {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, &FieldError{
				Section: section,
				Key:     key,
				Value:   raw,
				Err:     fmt.Errorf("%w: %v", ErrInvalidValue, err),
			}
		}
		out = append(out, n)
	}
	return out, nil
}

func parse[T Value](raw string) (T, error) {
	var zero T
	s := strings.TrimSpace(raw)

	var v any
	var err error
	switch any(zero).(type) {
	case string:
		v = s
	case int:
		v, err = strconv.Atoi(s)
	case int64:
		v, err = strconv.ParseInt(s, 10, 64)
	case float64:
		v, err = strconv.ParseFloat(s, 64)
	case bool:
		v, err = ParseBool(s)
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// ParseBool accepts the boolean spellings of INI settings files:
// 1/yes/true/on and 0/no/false/off, case-insensitive.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "true", "on":
		return true, nil
	case "0", "no", "false", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}
