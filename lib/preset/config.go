package preset

import (
	"fmt"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/effect"
)

// Config is the YAML form of a preset. ID is written "group.preset" and
// should be quoted so YAML does not read it as a number.
type Config struct {
	ID     string                             `yaml:"id"`
	Name   string                             `yaml:"name,omitempty"`
	Values map[uint32]map[string]channel.Tree `yaml:"values,omitempty"`
	Effect *effect.DescriptorConfig           `yaml:"effect,omitempty"`
}

// Build validates c and returns the preset.
func (c Config) Build() (*Preset, error) {
	id, err := channel.ParsePresetID(c.ID)
	if err != nil {
		return nil, err
	}
	p, err := New(id, c.Name, treeValues(c.Values))
	if err != nil {
		return nil, err
	}
	if c.Effect != nil {
		d, err := c.Effect.Build()
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", id, err)
		}
		p.Effect = d
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("preset %s: %w", id, err)
	}
	return p, nil
}
