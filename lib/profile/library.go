package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("fixture profile %q not found", e.Name)
}

func (e *NotFoundError) NotFound() bool { return true }

// Library is a set of normalized profiles keyed by name.
type Library map[string]*Profile

// NewLibrary normalizes profiles and indexes them by name.
func NewLibrary(profiles ...*Profile) (Library, error) {
	lib := make(Library, len(profiles))
	for _, p := range profiles {
		if err := p.Normalize(); err != nil {
			return nil, err
		}
		if _, dup := lib[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate profile %q", ErrInvalidProfile, p.Name)
		}
		lib[p.Name] = p
	}
	return lib, nil
}

// Get returns the named profile.
func (l Library) Get(name string) (*Profile, error) {
	if p, ok := l[name]; ok {
		return p, nil
	}
	return nil, &NotFoundError{Name: name}
}

// Names returns the profile names, sorted.
func (l Library) Names() []string {
	names := make([]string, 0, len(l))
	for n := range l {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Decode reads a YAML list of profiles. Unknown keys are rejected.
func Decode(r io.Reader) (Library, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var profiles []*Profile
	if err := dec.Decode(&profiles); err != nil {
		if errors.Is(err, io.EOF) {
			return Library{}, nil
		}
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return NewLibrary(profiles...)
}

// LoadFile reads a profile library from a YAML file.
func LoadFile(path string) (Library, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	lib, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}
