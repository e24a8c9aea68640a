// Package planner turns schema messages into backend plans: presence bits,
// oneof state, merge order, decode dispatch and required-field validation.
package planner

import (
	"fmt"
	"sync"

	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/logger"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"go.uber.org/zap"
)

// ExtensionIndex answers extension-dependency questions per file path.
type ExtensionIndex interface {
	MinDeps(path string) ([]string, error)
	ExtraImports(path string) ([]string, error)
}

// Planner caches one plan per message for the lifetime of an invocation.
// It is safe for concurrent use.
type Planner struct {
	cfg Config
	log *zap.Logger

	mu    sync.Mutex
	plans map[string]*ir.MessagePlan
}

type Option func(*Planner)

func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) {
		p.log = l
	}
}

func New(cfg Config, opts ...Option) *Planner {
	p := &Planner{
		cfg:   cfg,
		log:   logger.Logger.Named("planner"),
		plans: make(map[string]*ir.MessagePlan),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Planner) Config() Config {
	return p.cfg
}

// PlanMessage returns the cached plan of m, computing it on first use.
func (p *Planner) PlanMessage(m *schema.MessageSpec) *ir.MessagePlan {
	p.mu.Lock()
	cached, ok := p.plans[m.FullName]
	p.mu.Unlock()
	if ok {
		return cached
	}

	bits := AllocateBits(m, p.cfg)
	plan := &ir.MessagePlan{
		FullName:   m.FullName,
		Bits:       bits,
		Oneofs:     PlanOneofs(m),
		Merge:      PlanMerge(m, bits, p.cfg),
		Dispatch:   BuildDispatch(m, bits, p.cfg),
		Validation: PlanValidation(m, bits, p.cfg),
	}
	p.log.Debug("message planned",
		zap.String("message", m.FullName),
		zap.Int("builder_bits", bits.BuilderBits),
		zap.Int("message_bits", bits.MessageBits),
		zap.Int("dispatch_entries", plan.Dispatch.Len()),
		zap.Int("validation_steps", len(plan.Validation.Steps)),
	)

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.plans[m.FullName]; ok {
		return cached
	}
	p.plans[m.FullName] = plan
	return plan
}

// PlanFile plans every message declared in f. exts may be nil, in which
// case extension dependencies are left empty.
func (p *Planner) PlanFile(f *schema.FileSpec, exts ExtensionIndex) (*ir.FilePlan, error) {
	fp := &ir.FilePlan{Path: f.Path, Package: f.Package}
	for _, m := range schema.FileMessages(f) {
		fp.Messages = append(fp.Messages, p.PlanMessage(m))
		fp.Diagnostics = append(fp.Diagnostics, diagnose(m)...)
	}
	if exts != nil {
		var err error
		if fp.ExtensionDeps, err = exts.MinDeps(f.Path); err != nil {
			return nil, fmt.Errorf("extension deps of %s: %w", f.Path, err)
		}
		if fp.ExtraImports, err = exts.ExtraImports(f.Path); err != nil {
			return nil, fmt.Errorf("extra imports of %s: %w", f.Path, err)
		}
	}
	ir.SortDiagnostics(fp.Diagnostics)
	return fp, nil
}

func diagnose(m *schema.MessageSpec) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, f := range m.Fields {
		if f.Packable && !f.Packed {
			diags = append(diags, ir.Diagnostic{
				Level:   ir.DiagInfo,
				Message: "declared unpacked, decoder also accepts the packed encoding",
				Subject: f.FullName,
			})
		}
	}
	if m.HasExtensionRanges {
		diags = append(diags, ir.Diagnostic{
			Level:   ir.DiagInfo,
			Message: "extension ranges keep required-field validation enabled",
			Subject: m.FullName,
		})
	}
	return diags
}
