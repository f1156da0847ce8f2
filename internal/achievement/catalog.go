package achievement

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Definition is one catalog entry.
type Definition struct {
	Key         string          `yaml:"key"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Icon        string          `yaml:"icon"`
	Category    string          `yaml:"category"`
	RawReward   string          `yaml:"reward"`
	Default     bool            `yaml:"default"`
	Reward      decimal.Decimal `yaml:"-"`
}

// ID returns the derived catalog id of the definition.
func (d Definition) ID() string {
	return DeriveID(d.Key)
}

type Catalog struct {
	Version      int          `yaml:"version"`
	Achievements []Definition `yaml:"achievements"`
}

// Defaults returns the definitions every identity is granted.
func (c *Catalog) Defaults() []Definition {
	var defaults []Definition
	for _, def := range c.Achievements {
		if def.Default {
			defaults = append(defaults, def)
		}
	}
	return defaults
}

func (c *Catalog) Find(key string) (Definition, bool) {
	for _, def := range c.Achievements {
		if def.Key == key {
			return def, true
		}
	}
	return Definition{}, false
}

func LoadCatalog(catalogFile string) (*Catalog, error) {
	var catalogPath string
	if filepath.IsAbs(catalogFile) {
		catalogPath = catalogFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		catalogPath = filepath.Join(wd, catalogFile)
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", catalogFile, err)
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", catalogFile, err)
	}
	return catalog, nil
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("unable to parse catalog: %w", err)
	}
	if len(catalog.Achievements) == 0 {
		return nil, fmt.Errorf("catalog has no achievements")
	}

	keys := make(map[string]bool, len(catalog.Achievements))
	names := make(map[string]bool, len(catalog.Achievements))
	for i := range catalog.Achievements {
		def := &catalog.Achievements[i]
		if def.Key == "" {
			return nil, fmt.Errorf("achievement at index %d missing key", i)
		}
		if def.Name == "" {
			return nil, fmt.Errorf("achievement %s missing name", def.Key)
		}
		if keys[def.Key] {
			return nil, fmt.Errorf("duplicate achievement key %s", def.Key)
		}
		if names[def.Name] {
			return nil, fmt.Errorf("duplicate achievement name %q", def.Name)
		}
		keys[def.Key] = true
		names[def.Name] = true

		if def.RawReward == "" {
			def.Reward = decimal.Zero
			continue
		}
		reward, err := decimal.NewFromString(def.RawReward)
		if err != nil {
			return nil, fmt.Errorf("achievement %s has invalid reward %q: %w", def.Key, def.RawReward, err)
		}
		if reward.IsNegative() {
			return nil, fmt.Errorf("achievement %s has negative reward %s", def.Key, reward)
		}
		def.Reward = reward
	}

	return &catalog, nil
}
