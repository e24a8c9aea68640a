package planner

import (
	"github.com/yaroher/protoc-gen-go-plan/internal/help"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/schema"
)

// PlanOneofs gives every oneof a case selector and a shared slot. Case
// values are member field numbers, so they survive member reordering, and
// zero means no member is set.
func PlanOneofs(m *schema.MessageSpec) []*ir.OneofPlan {
	plans := make([]*ir.OneofPlan, 0, len(m.Oneofs))
	for _, o := range m.Oneofs {
		p := &ir.OneofPlan{
			Name:        o.Name,
			Index:       o.Index,
			CaseField:   help.CaseField(o.Name),
			SlotField:   help.SlotField(o.Name),
			NotSetConst: help.NotSetConst(o.Name),
			Cases:       make([]ir.OneofCase, 0, len(o.Fields)),
		}
		for _, f := range o.Fields {
			p.Cases = append(p.Cases, ir.OneofCase{
				Field: fieldRef(f),
				Value: int32(f.Number),
				Const: help.CaseConst(f.Name),
			})
		}
		plans = append(plans, p)
	}
	return plans
}
