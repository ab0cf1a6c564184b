package settings

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// FileSource is a Source backed by an INI settings file.
//
// Key names are case-insensitive and stored lower-cased; section names are
// case-sensitive. Keys in the DEFAULT section are visible from every section.
type FileSource struct {
	name string
	file *ini.File
}

// loadOptions mirrors the conventions of the settings files produced by the
// engine's own tooling: lower-cased keys and no inline comments, so values
// such as paths may contain '#' or ';'.
var loadOptions = ini.LoadOptions{
	InsensitiveKeys:     true,
	IgnoreInlineComment: true,
}

// LoadFile parses the settings file at path.
func LoadFile(path string) (*FileSource, error) {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	return &FileSource{name: path, file: f}, nil
}

// LoadBytes parses settings held in memory. name is used in error messages.
func LoadBytes(name string, data []byte) (*FileSource, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", name, err)
	}
	return &FileSource{name: name, file: f}, nil
}

func (s *FileSource) Name() string {
	return s.name
}

func (s *FileSource) HasSection(section string) bool {
	if section == ini.DefaultSection {
		return len(s.file.Section(ini.DefaultSection).Keys()) > 0
	}
	_, err := s.file.GetSection(section)
	return err == nil
}

func (s *FileSource) Lookup(section, key string) (string, bool) {
	key = strings.ToLower(key)
	if sec, err := s.file.GetSection(section); err == nil && sec.HasKey(key) {
		return sec.Key(key).String(), true
	}
	if !s.HasSection(section) {
		return "", false
	}
	def := s.file.Section(ini.DefaultSection)
	if def.HasKey(key) {
		return def.Key(key).String(), true
	}
	return "", false
}

func (s *FileSource) Keys(section string) []string {
	sec, err := s.file.GetSection(section)
	if err != nil {
		return nil
	}
	keys := sec.KeyStrings()
	if section == ini.DefaultSection {
		return keys
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range s.file.Section(ini.DefaultSection).KeyStrings() {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}
