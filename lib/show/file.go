package show

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lightbrainz/lib/fixture"
	"lightbrainz/lib/preset"
	"lightbrainz/lib/profile"
)

// File is the YAML show description loaded at startup.
type File struct {
	// ProfileFiles are profile libraries to load, relative to the show
	// file.
	ProfileFiles []string           `yaml:"profile_files,omitempty"`
	Profiles     []*profile.Profile `yaml:"profiles,omitempty"`
	Patch        []PatchEntry       `yaml:"patch"`
	SpeedMasters []SpeedMasterEntry `yaml:"speed_masters,omitempty"`
	Presets      []preset.Config    `yaml:"presets,omitempty"`

	dir string
}

type PatchEntry struct {
	ID       uint32 `yaml:"id"`
	Name     string `yaml:"name,omitempty"`
	Profile  string `yaml:"profile"`
	Universe uint16 `yaml:"universe"`
	Address  uint16 `yaml:"address"`
}

type SpeedMasterEntry struct {
	ID  uint32  `yaml:"id"`
	BPM float64 `yaml:"bpm"`
}

// DecodeFile reads a show file. Unknown keys are rejected.
func DecodeFile(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode show: %w", err)
	}
	return &f, nil
}

// LoadFile reads a show file from disk.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read show %s: %w", path, err)
	}
	f, err := DecodeFile(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.dir = filepath.Dir(path)
	return f, nil
}

// Library collects the inline profiles and every referenced profile file.
func (f *File) Library() (profile.Library, error) {
	lib, err := profile.NewLibrary(f.Profiles...)
	if err != nil {
		return nil, err
	}
	for _, path := range f.ProfileFiles {
		if !filepath.IsAbs(path) && f.dir != "" {
			path = filepath.Join(f.dir, path)
		}
		more, err := profile.LoadFile(path)
		if err != nil {
			return nil, err
		}
		for name, p := range more {
			if _, dup := lib[name]; dup {
				return nil, fmt.Errorf("%s: %w: duplicate profile %q", path, profile.ErrInvalidProfile, name)
			}
			lib[name] = p
		}
	}
	return lib, nil
}

// Load patches the file's fixtures into s and installs its speed masters
// and presets.
func (s *Show) Load(f *File) error {
	lib, err := f.Library()
	if err != nil {
		return err
	}

	for _, pe := range f.Patch {
		p, err := lib.Get(pe.Profile)
		if err != nil {
			return fmt.Errorf("patch fixture %d: %w", pe.ID, err)
		}
		fx, err := fixture.New(pe.ID, pe.Name, p, pe.Universe, pe.Address)
		if err != nil {
			return err
		}
		if err := s.Fixtures.Add(fx); err != nil {
			return err
		}
	}

	for _, sm := range f.SpeedMasters {
		if err := s.Timing.Register(sm.ID, sm.BPM); err != nil {
			return fmt.Errorf("speed master %d: %w", sm.ID, err)
		}
	}

	for _, pc := range f.Presets {
		p, err := pc.Build()
		if err != nil {
			return err
		}
		if err := s.Presets.Put(p); err != nil {
			return err
		}
	}

	s.logger.Info("show loaded",
		"profiles", len(lib),
		"fixtures", len(f.Patch),
		"speed_masters", len(f.SpeedMasters),
		"presets", len(f.Presets),
	)
	return nil
}
