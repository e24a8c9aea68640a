package planner

import (
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/schema"
)

// PlanValidation builds the initialization check. Presence checks of
// required fields come first, then recursion into nested messages that may
// themselves have required fields, then extensions. A message that cannot
// reach a required field gets an empty tree.
func PlanValidation(m *schema.MessageSpec, bits *ir.BitPlan, cfg Config) *ir.ValidationTree {
	tree := &ir.ValidationTree{}
	if !m.MayHaveRequiredFields() {
		return tree
	}
	fields := cfg.fields()
	for _, f := range m.Fields {
		if !f.Required {
			continue
		}
		step := ir.ValidationStep{Kind: ir.CheckPresent, Field: fieldRef(f), Oneof: -1}
		if ref, ok := bits.Message(f.Number); ok {
			step.Presence = &ref
		}
		tree.Steps = append(tree.Steps, step)
	}
	for _, f := range m.Fields {
		kind, ok := fields.For(f.Kind).Validate(f)
		if !ok {
			continue
		}
		target := f.Target()
		if target == nil || !target.MayHaveRequiredFields() {
			continue
		}
		step := ir.ValidationStep{
			Kind:        kind,
			Field:       fieldRef(f),
			Oneof:       -1,
			MessageType: target.FullName,
		}
		if ref, ok := bits.Message(f.Number); ok {
			step.Presence = &ref
		}
		if f.Oneof != nil {
			step.Oneof = f.Oneof.Index
			step.Case = int32(f.Number)
		}
		tree.Steps = append(tree.Steps, step)
	}
	if m.HasExtensionRanges {
		tree.Steps = append(tree.Steps, ir.ValidationStep{Kind: ir.CheckExtensions, Oneof: -1})
	}
	return tree
}
