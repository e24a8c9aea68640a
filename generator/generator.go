package generator

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/yaroher/protoc-gen-go-plan/extdeps"
	"github.com/yaroher/protoc-gen-go-plan/internal/help"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/logger"
	"github.com/yaroher/protoc-gen-go-plan/planner"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type Generator struct {
	Settings *Settings
	Plugin   *protogen.Plugin

	log *zap.Logger
}

type Option func(*Generator) error

func WithSettings(s *Settings) Option {
	return func(g *Generator) error {
		if err := s.Validate(); err != nil {
			return err
		}
		g.Settings = s
		return nil
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) error {
		g.log = l
		return nil
	}
}

func NewGenerator(p *protogen.Plugin, opts ...Option) (*Generator, error) {
	g := &Generator{
		Plugin: p,
		log:    logger.Logger.Named("generator"),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if g.Settings == nil {
		settings, err := NewSettingsFromPlugin(p)
		if err != nil {
			return nil, err
		}
		g.Settings = settings
	}
	return g, nil
}

// Targets returns the paths of the files protoc asked to generate, minus
// skipped packages.
func (g *Generator) Targets() []string {
	files := lo.Filter(g.Plugin.Files, func(f *protogen.File, _ int) bool {
		return f.Generate && !g.Settings.Skipped(string(f.Desc.Package()))
	})
	return lo.Map(files, func(f *protogen.File, _ int) string {
		return f.Desc.Path()
	})
}

func (g *Generator) Generate() error {
	log := g.log.With(zap.String("invocation", uuid.NewString()))
	s, err := schema.FromFiles(lo.Map(g.Plugin.Files, func(f *protogen.File, _ int) protoreflect.FileDescriptor {
		return f.Desc
	})...)
	if err != nil {
		return errors.Wrap(err, "build schema")
	}

	targets := g.Targets()
	log.Info("planning", zap.Int("files", len(targets)), zap.Int("parallelism", g.Settings.Parallelism))
	plans, err := PlanFiles(context.Background(), s, targets, g.Settings, log)
	if err != nil {
		return err
	}

	for _, fp := range plans {
		f := g.Plugin.FilesByPath[fp.Path]
		name := f.GeneratedFilenamePrefix + g.Settings.Suffix
		gf := g.Plugin.NewGeneratedFile(name, f.GoImportPath)
		if _, err := gf.Write(RenderFilePlan(fp)); err != nil {
			return errors.Wrapf(err, "write %q", name)
		}
		log.Debug("plan written", zap.String("file", name), zap.Int("messages", len(fp.Messages)))
	}
	return nil
}

// PlanFiles plans paths concurrently. Results follow the order of paths and
// the first failure aborts the whole batch.
func PlanFiles(ctx context.Context, s *schema.Schema, paths []string, settings *Settings, log *zap.Logger) ([]*ir.FilePlan, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Logger.Named("generator")
	}
	exts := extdeps.New(s)
	pl := planner.New(settings.PlannerConfig(), planner.WithLogger(log.Named("planner")))

	plans := make([]*ir.FilePlan, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(settings.Parallelism)
	for i, path := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f := s.File(path)
			if f == nil {
				return errors.Errorf("plan file %q: not in schema", path)
			}
			fp, err := pl.PlanFile(f, exts)
			if err != nil {
				return errors.Wrapf(err, "plan file %q", path)
			}
			plans[i] = fp
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// OutputName is the plan document name of a .proto path.
func OutputName(protoPath string, settings *Settings) string {
	return help.PlanFileName(protoPath, settings.Suffix)
}
