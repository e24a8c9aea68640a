package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Settings. Unset keys keep the value
// they already had.
type FileConfig struct {
	AlwaysUseFieldBuilders      *bool    `yaml:"always_use_field_builders" json:"always_use_field_builders"`
	ImplicitPresenceBuilderBits *bool    `yaml:"implicit_presence_builder_bits" json:"implicit_presence_builder_bits"`
	Parallelism                 *int     `yaml:"parallelism" json:"parallelism"`
	Suffix                      *string  `yaml:"suffix" json:"suffix"`
	SkipPackages                []string `yaml:"skip_packages" json:"skip_packages"`
}

// LoadFileConfig reads a .yaml, .yml or .json settings file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseFileConfig(filepath.Ext(path), data)
}

func ParseFileConfig(ext string, data []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, fc); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
	return fc, nil
}

func (fc *FileConfig) Apply(s *Settings) {
	if fc.AlwaysUseFieldBuilders != nil {
		s.AlwaysUseFieldBuilders = *fc.AlwaysUseFieldBuilders
	}
	if fc.ImplicitPresenceBuilderBits != nil {
		s.ImplicitPresenceBuilderBits = *fc.ImplicitPresenceBuilderBits
	}
	if fc.Parallelism != nil {
		s.Parallelism = *fc.Parallelism
	}
	if fc.Suffix != nil {
		s.Suffix = *fc.Suffix
	}
	if fc.SkipPackages != nil {
		s.SkipPackages = fc.SkipPackages
	}
}
