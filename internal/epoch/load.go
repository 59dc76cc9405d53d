package epoch

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogueFile struct {
	Epochs []Epoch `yaml:"epochs"`
}

// Load parses a YAML catalogue of the form:
//
//	epochs:
//	  - key: roman_forum
//	    label: Roman Forum
//	    distance: 2000
//	    intensity: 0.9
//	    tags: [ashen, voices, bells]
func Load(r io.Reader) ([]Epoch, error) {
	var f catalogueFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	for _, e := range f.Epochs {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Epochs, nil
}

// LoadFile reads a YAML catalogue from path.
func LoadFile(path string) ([]Epoch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// RegisterAll registers each epoch in order, stopping at the first failure.
func (r *Registry) RegisterAll(epochs []Epoch) error {
	for _, e := range epochs {
		if err := r.Register(e); err != nil {
			return err
		}
	}
	return nil
}
