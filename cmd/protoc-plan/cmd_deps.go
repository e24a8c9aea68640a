package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"github.com/yaroher/protoc-gen-go-plan/extdeps"
	"github.com/yaroher/protoc-gen-go-plan/internal/protoload"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"gopkg.in/yaml.v3"
)

type cmdDeps struct {
	stdout io.Writer
	stderr io.Writer

	importPaths []string
}

type depsReport struct {
	File          string   `yaml:"file"`
	HasExtensions bool     `yaml:"has_extensions"`
	MinDeps       []string `yaml:"min_deps"`
	CoveredDeps   []string `yaml:"covered_deps"`
	Reachable     []string `yaml:"reachable"`
	ExtraImports  []string `yaml:"extra_imports"`
}

func (*cmdDeps) help() *commandHelp {
	return &commandHelp{
		usage:   "deps [flags] FILE...",
		summary: "Print the extension dependency closure of .proto files",
	}
}

func (cmd *cmdDeps) flags(flags *pflag.FlagSet) {
	flags.StringSliceVarP(&cmd.importPaths, "proto_path", "I", nil, "directory searched for imports")
}

func (cmd *cmdDeps) report(c *extdeps.Closure, path string) (depsReport, error) {
	r := depsReport{File: path}
	id, ok := c.ID(path)
	if !ok {
		return r, fmt.Errorf("%s: not in schema", path)
	}
	r.HasExtensions = c.Entry(id).HasExtensions
	var err error
	if r.MinDeps, err = c.MinDeps(path); err != nil {
		return r, err
	}
	if r.CoveredDeps, err = c.CoveredDeps(path); err != nil {
		return r, err
	}
	if r.Reachable, err = c.Reachable(path); err != nil {
		return r, err
	}
	if r.ExtraImports, err = c.ExtraImports(path); err != nil {
		return r, err
	}
	return r, nil
}

func (cmd *cmdDeps) run(ctx context.Context, argv []string) int {
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
	c := extdeps.New(s)

	reports := make([]depsReport, 0, len(fds))
	for _, fd := range fds {
		r, err := cmd.report(c, fd.Path())
		if err != nil {
			fmt.Fprintln(cmd.stderr, err)
			return 1
		}
		reports = append(reports, r)
	}
	enc := yaml.NewEncoder(cmd.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		fmt.Fprintln(cmd.stderr, err)
		return 1
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintln(cmd.stderr, err)
		return 1
	}
	return 0
}
