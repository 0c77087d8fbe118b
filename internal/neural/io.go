package neural

import (
	"encoding/json"
	"fmt"
	"os"
)

const weightsVersion = 1

type weightsDoc struct {
	Version int       `json:"version"`
	Sizes   []int     `json:"sizes"`
	Params  []float64 `json:"params"`
}

// Save writes the architecture and flat weights as indented JSON.
func (m *MLP) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(weightsDoc{
		Version: weightsVersion,
		Sizes:   m.sizes,
		Params:  m.params,
	})
}

// Load restores a saved network. A parameter count that does not match
// the stored architecture is fatal.
func Load(path string) (*MLP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc weightsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("neural: parse %s: %w", path, err)
	}
	if doc.Version != weightsVersion {
		return nil, fmt.Errorf("neural: unsupported weights version %d in %s", doc.Version, path)
	}

	m, err := NewMLP(doc.Sizes, 0)
	if err != nil {
		return nil, fmt.Errorf("neural: %s: %w", path, err)
	}
	if len(doc.Params) != len(m.params) {
		return nil, fmt.Errorf("neural: %s holds %d params, architecture %v needs %d",
			path, len(doc.Params), doc.Sizes, len(m.params))
	}
	copy(m.params, doc.Params)
	return m, nil
}
