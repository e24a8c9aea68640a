package planner

import (
	"fmt"

	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/schema"
)

// AllocateBits assigns presence bits in declaration order. Builder and
// message bits are numbered independently, each packed into 32-bit words.
func AllocateBits(m *schema.MessageSpec, cfg Config) *ir.BitPlan {
	fields := cfg.fields()
	builderOnly := cfg.builderOnly()
	plan := &ir.BitPlan{Fields: make([]ir.FieldBits, 0, len(m.Fields))}
	for _, f := range m.Fields {
		c := fields.For(f.Kind)
		messageBits := c.MessageBits(f)
		builderBits := c.BuilderBits(f, builderOnly)
		if messageBits > 1 || builderBits > 1 || messageBits < 0 || builderBits < 0 {
			panic(fmt.Sprintf("planner: field %s asks for %d/%d bits", f.FullName, messageBits, builderBits))
		}
		if (f.Kind.IsRepeated() || f.Oneof != nil) && (messageBits != 0 || builderBits != 0) {
			panic(fmt.Sprintf("planner: %s field %s cannot carry a presence bit", f.Kind, f.FullName))
		}
		fb := ir.FieldBits{Field: fieldRef(f)}
		if messageBits == 1 {
			ref := ir.NewBitRef(plan.MessageBits)
			fb.Message = &ref
			plan.MessageBits++
		}
		if builderBits == 1 {
			ref := ir.NewBitRef(plan.BuilderBits)
			fb.Builder = &ref
			plan.BuilderBits++
		}
		plan.Fields = append(plan.Fields, fb)
	}
	plan.BuilderWords = ir.Words(plan.BuilderBits)
	plan.MessageWords = ir.Words(plan.MessageBits)
	return plan
}

func fieldRef(f *schema.FieldSpec) ir.FieldRef {
	return ir.FieldRef{Name: f.Name, Number: f.Number}
}
