package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/yaroher/protoc-gen-go-plan/generator"
	"github.com/yaroher/protoc-gen-go-plan/internal/protoload"
	"github.com/yaroher/protoc-gen-go-plan/logger"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"go.uber.org/zap"
)

type cmdPlan struct {
	stdout io.Writer
	stderr io.Writer

	fs          *pflag.FlagSet
	importPaths []string
	outDir      string
	configPath  string
	settings    generator.Settings
}

func (*cmdPlan) help() *commandHelp {
	return &commandHelp{
		usage:   "plan [flags] FILE...",
		summary: "Write a JSON plan document per .proto file",
	}
}

func (cmd *cmdPlan) flags(flags *pflag.FlagSet) {
	defaults := generator.DefaultSettings()
	cmd.fs = flags
	flags.StringSliceVarP(&cmd.importPaths, "proto_path", "I", nil, "directory searched for imports")
	flags.StringVarP(&cmd.outDir, "output", "o", "", "output directory, stdout when empty")
	flags.StringVar(&cmd.configPath, "config", "", "YAML or JSON settings file")
	flags.BoolVar(&cmd.settings.AlwaysUseFieldBuilders, "always-use-field-builders", false, "merge singular messages through nested builders")
	flags.BoolVar(&cmd.settings.ImplicitPresenceBuilderBits, "implicit-presence-builder-bits", false, "give implicit-presence scalars a builder-only bit")
	flags.IntVar(&cmd.settings.Parallelism, "parallelism", defaults.Parallelism, "files planned at once")
	flags.StringVar(&cmd.settings.Suffix, "suffix", defaults.Suffix, "output file suffix")
	flags.StringSliceVar(&cmd.settings.SkipPackages, "skip-package", defaults.SkipPackages, "proto package never planned")
}

// resolveSettings layers defaults, the config file and changed flags.
func (cmd *cmdPlan) resolveSettings() (*generator.Settings, error) {
	settings := generator.DefaultSettings()
	if cmd.configPath != "" {
		fc, err := generator.LoadFileConfig(cmd.configPath)
		if err != nil {
			return nil, err
		}
		fc.Apply(settings)
		settings.ConfigPath = cmd.configPath
	}
	if cmd.fs.Changed("always-use-field-builders") {
		settings.AlwaysUseFieldBuilders = cmd.settings.AlwaysUseFieldBuilders
	}
	if cmd.fs.Changed("implicit-presence-builder-bits") {
		settings.ImplicitPresenceBuilderBits = cmd.settings.ImplicitPresenceBuilderBits
	}
	if cmd.fs.Changed("parallelism") {
		settings.Parallelism = cmd.settings.Parallelism
	}
	if cmd.fs.Changed("suffix") {
		settings.Suffix = cmd.settings.Suffix
	}
	if cmd.fs.Changed("skip-package") {
		settings.SkipPackages = cmd.settings.SkipPackages
	}
	return settings, settings.Validate()
}

func (cmd *cmdPlan) run(ctx context.Context, argv []string) int {
	log := logger.Logger.Named("plan")
	settings, err := cmd.resolveSettings()
	if err != nil {
		fmt.Fprintln(cmd.stderr, err)
		return 1
	}

	loader := &protoload.Loader{ImportPaths: cmd.importPaths}
	fds, err := loader.Load(ctx, argv...)
	if err != nil {
		fmt.Fprintln(cmd.stderr, err)
		return 1
	}
	s, err := schema.FromFiles(fds...)
	if err != nil {
		fmt.Fprintln(cmd.stderr, err)
		return 1
	}

	var targets []string
	for _, fd := range fds {
		if !settings.Skipped(string(fd.Package())) {
			targets = append(targets, fd.Path())
		}
	}
	plans, err := generator.PlanFiles(ctx, s, targets, settings, log)
	if err != nil {
		fmt.Fprintln(cmd.stderr, err)
		return 1
	}

	for _, fp := range plans {
		data := generator.RenderFilePlan(fp)
		if cmd.outDir == "" {
			if _, err := cmd.stdout.Write(data); err != nil {
				fmt.Fprintln(cmd.stderr, err)
				return 1
			}
			continue
		}
		outPath := filepath.Join(cmd.outDir, generator.OutputName(fp.Path, settings))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			fmt.Fprintln(cmd.stderr, err)
			return 1
		}
		if err := os.WriteFile(outPath, data, 0o666); err != nil {
			fmt.Fprintln(cmd.stderr, err)
			return 1
		}
		log.Debug("plan written", zap.String("file", outPath))
	}
	return 0
}
