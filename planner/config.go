package planner

import (
	"github.com/yaroher/protoc-gen-go-plan/fieldgen"
	"github.com/yaroher/protoc-gen-go-plan/schema"
)

// Config carries the generation toggles that change plan shape. It is passed
// explicitly to every planner that depends on it.
type Config struct {
	// AlwaysUseFieldBuilders routes singular message merges through a lazily
	// created nested builder.
	AlwaysUseFieldBuilders bool
	// ImplicitPresenceBuilderBits gives implicit-presence scalars a
	// builder-only bit so a build can tell assigned fields apart.
	ImplicitPresenceBuilderBits bool
	// BuilderOnlyBit overrides the builder-only bit policy.
	BuilderOnlyBit fieldgen.BuilderBitPolicy
	// Fields is the field capability table. Nil means fieldgen.Default().
	Fields fieldgen.Table
}

func (c Config) fields() fieldgen.Table {
	if c.Fields == nil {
		return fieldgen.Default()
	}
	return c.Fields
}

func (c Config) builderOnly() fieldgen.BuilderBitPolicy {
	if c.BuilderOnlyBit != nil {
		return c.BuilderOnlyBit
	}
	if c.ImplicitPresenceBuilderBits {
		return func(f *schema.FieldSpec) bool { return f.ImplicitPresence }
	}
	return nil
}
