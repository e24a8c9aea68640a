package planner

import (
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/schema"
)

// PlanMerge orders the merge actions: declared non-oneof fields, then one
// switch per oneof, then extensions, then unknown fields.
func PlanMerge(m *schema.MessageSpec, bits *ir.BitPlan, cfg Config) *ir.MergePlan {
	fields := cfg.fields()
	plan := &ir.MergePlan{SkipIfDefault: true}
	for _, f := range m.Fields {
		if f.Oneof != nil {
			continue
		}
		a := ir.MergeAction{
			Kind:        fields.For(f.Kind).Merge(f),
			Field:       fieldRef(f),
			MessageType: f.MessageType,
		}
		if ref, ok := bits.Builder(f.Number); ok {
			a.Presence = &ref
		}
		if a.Kind == ir.MergeMessage {
			a.ViaFieldBuilder = cfg.AlwaysUseFieldBuilders
		}
		plan.Actions = append(plan.Actions, a)
	}
	for _, o := range m.Oneofs {
		om := &ir.OneofMerge{Oneof: o.Index, Name: o.Name}
		for _, f := range o.Fields {
			c := ir.OneofCaseMerge{
				Field:       fieldRef(f),
				Case:        int32(f.Number),
				Kind:        fields.For(f.Kind).Merge(f),
				MessageType: f.MessageType,
			}
			if c.Kind == ir.MergeMessage {
				c.ViaFieldBuilder = cfg.AlwaysUseFieldBuilders
			}
			om.Cases = append(om.Cases, c)
		}
		plan.Actions = append(plan.Actions, ir.MergeAction{Kind: ir.MergeOneof, Oneof: om})
	}
	if m.HasExtensionRanges {
		plan.Actions = append(plan.Actions, ir.MergeAction{Kind: ir.MergeExtensions})
	}
	plan.Actions = append(plan.Actions, ir.MergeAction{Kind: ir.MergeUnknown})
	return plan
}
