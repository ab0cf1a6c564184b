// Package settings reads layered key-value settings.
//
// A settings file is organized into named sections (global, train, test,
// side_info_<mode>). Values are looked up through a Resolver, which consults an
// ordered list of read-only sources and returns the first one that has the key:
//
//	file, err := settings.LoadFile("run.ini")
//	if err != nil {
//	    return err
//	}
//	r := settings.NewResolver(cliSource, file)
//	latent, err := settings.Required[int](r, "global", "num_latent")
//
// Type coercion happens at read time. A present value that does not parse as
// the requested type is an ErrInvalidValue, never a silent fallback to the
// default.
package settings

// Source is a read-only, sectioned key-value store.
type Source interface {
	// Name identifies the source in logs and errors (e.g. a file path or "cli").
	Name() string

	// HasSection reports whether the section exists in this source.
	HasSection(section string) bool

	// Lookup returns the raw value of key in section.
	// The second return value distinguishes an absent key from an empty value.
	Lookup(section, key string) (string, bool)

	// Keys returns the key names of section in the order they appear.
	Keys(section string) []string
}

// MapSource is an in-memory Source that remembers key insertion order.
// Build it once with Set and treat it as read-only afterwards.
type MapSource struct {
	name     string
	sections map[string]*mapSection
}

type mapSection struct {
	keys   []string
	values map[string]string
}

// NewMapSource creates an empty in-memory source.
func NewMapSource(name string) *MapSource {
	return &MapSource{
		name:     name,
		sections: make(map[string]*mapSection),
	}
}

// Set stores value under section/key and returns the source for chaining.
// Setting an existing key keeps its original position.
func (m *MapSource) Set(section, key, value string) *MapSource {
	sec, ok := m.sections[section]
	if !ok {
		sec = &mapSection{values: make(map[string]string)}
		m.sections[section] = sec
	}
	if _, exists := sec.values[key]; !exists {
		sec.keys = append(sec.keys, key)
	}
	sec.values[key] = value
	return m
}

func (m *MapSource) Name() string {
	return m.name
}

func (m *MapSource) HasSection(section string) bool {
	_, ok := m.sections[section]
	return ok
}

func (m *MapSource) Lookup(section, key string) (string, bool) {
	sec, ok := m.sections[section]
	if !ok {
		return "", false
	}
	v, ok := sec.values[key]
	return v, ok
}

func (m *MapSource) Keys(section string) []string {
	sec, ok := m.sections[section]
	if !ok {
		return nil
	}
	keys := make([]string, len(sec.keys))
	copy(keys, sec.keys)
	return keys
}
