package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yaroher/protoc-gen-go-plan/logger"
	"github.com/yaroher/protoc-gen-go-plan/planner"
	"go.uber.org/zap"
	"google.golang.org/protobuf/compiler/protogen"
)

const (
	DefaultSuffix      = ".plan.json"
	DefaultParallelism = 4
)

type Settings struct {
	AlwaysUseFieldBuilders      bool
	ImplicitPresenceBuilderBits bool
	// Parallelism bounds the number of files planned at once.
	Parallelism int
	// Suffix replaces ".proto" in the output file name.
	Suffix string
	// ConfigPath is the optional YAML or JSON settings file.
	ConfigPath string
	// SkipPackages lists proto packages that are never planned.
	SkipPackages []string
}

func DefaultSettings() *Settings {
	return &Settings{
		Parallelism:  DefaultParallelism,
		Suffix:       DefaultSuffix,
		SkipPackages: []string{"google.protobuf"},
	}
}

// PlannerConfig projects the settings that shape plans.
func (s *Settings) PlannerConfig() planner.Config {
	return planner.Config{
		AlwaysUseFieldBuilders:      s.AlwaysUseFieldBuilders,
		ImplicitPresenceBuilderBits: s.ImplicitPresenceBuilderBits,
	}
}

func (s *Settings) Skipped(pkg string) bool {
	for _, p := range s.SkipPackages {
		if pkg == p || strings.HasPrefix(pkg, p+".") {
			return true
		}
	}
	return false
}

func (s *Settings) Validate() error {
	if s.Parallelism < 1 {
		return fmt.Errorf("parallelism must be positive, got %d", s.Parallelism)
	}
	if s.Suffix == "" {
		return fmt.Errorf("suffix must not be empty")
	}
	if strings.HasSuffix(s.Suffix, ".go") {
		return fmt.Errorf("suffix %q would produce Go sources", s.Suffix)
	}
	return nil
}

func mapGetOrDefault(paramsMap map[string]string, key string, defaultValue string) string {
	if val, ok := paramsMap[key]; ok {
		return val
	}
	return defaultValue
}

func parseParams(param string) map[string]string {
	paramsMap := make(map[string]string)
	for _, p := range strings.Split(param, ",") {
		paramSplit := strings.SplitN(p, "=", 2)
		if len(paramSplit) != 2 {
			continue
		}
		paramsMap[strings.TrimSpace(paramSplit[0])] = strings.TrimSpace(paramSplit[1])
	}
	return paramsMap
}

func NewSettingsFromPlugin(p *protogen.Plugin) (*Settings, error) {
	return ParseSettings(p.Request.GetParameter())
}

// ParseSettings reads protoc plugin parameters. A config file named by
// config=<path> is applied first, explicit parameters override it.
func ParseSettings(param string) (*Settings, error) {
	logger.Debug("plugin parameters", zap.String("param", param))
	paramsMap := parseParams(param)

	settings := DefaultSettings()
	settings.ConfigPath = mapGetOrDefault(paramsMap, "config", "")
	if settings.ConfigPath != "" {
		fc, err := LoadFileConfig(settings.ConfigPath)
		if err != nil {
			return nil, err
		}
		fc.Apply(settings)
	}

	var err error
	if v, ok := paramsMap["always_use_field_builders"]; ok {
		if settings.AlwaysUseFieldBuilders, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("always_use_field_builders: %w", err)
		}
	}
	if v, ok := paramsMap["implicit_presence_builder_bits"]; ok {
		if settings.ImplicitPresenceBuilderBits, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("implicit_presence_builder_bits: %w", err)
		}
	}
	if v, ok := paramsMap["parallelism"]; ok {
		if settings.Parallelism, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parallelism: %w", err)
		}
	}
	settings.Suffix = mapGetOrDefault(paramsMap, "suffix", settings.Suffix)
	if v, ok := paramsMap["skip_packages"]; ok {
		// protoc splits parameters on commas, so packages are colon separated.
		settings.SkipPackages = strings.Split(v, ":")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}
