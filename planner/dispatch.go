package planner

import (
	"slices"

	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"google.golang.org/protobuf/encoding/protowire"
)

// BuildDispatch builds the tag table of the decode loop. Every packable
// field accepts both its natural encoding and the packed one, whatever its
// declared packing.
func BuildDispatch(m *schema.MessageSpec, bits *ir.BitPlan, cfg Config) *ir.DispatchTable {
	fields := cfg.fields()
	sorted := slices.Clone(m.Fields)
	slices.SortStableFunc(sorted, func(a, b *schema.FieldSpec) int {
		return int(a.Number) - int(b.Number)
	})
	entries := make([]ir.DispatchEntry, 0, len(sorted))
	for _, f := range sorted {
		c := fields.For(f.Kind)
		wt := ir.WireType(f.Type)
		e := ir.DispatchEntry{
			Tag:         ir.Tag(f.Number, wt),
			Field:       fieldRef(f),
			WireType:    wt,
			Mode:        ir.DecodeSingle,
			Op:          c.Decode(f),
			Type:        f.Type,
			ElemType:    wt,
			MessageType: f.MessageType,
			Oneof:       -1,
		}
		if ref, ok := bits.Builder(f.Number); ok {
			e.Presence = &ref
		}
		if f.Oneof != nil {
			e.Oneof = f.Oneof.Index
		}
		if f.MapKey != nil && f.MapValue != nil {
			e.KeyType = f.MapKey.Type
			e.ValueType = f.MapValue.Type
		}
		entries = append(entries, e)
		if op, ok := c.PackedDecode(f); ok && wt != protowire.BytesType {
			packed := e
			packed.Tag = ir.Tag(f.Number, protowire.BytesType)
			packed.WireType = protowire.BytesType
			packed.Mode = ir.DecodePacked
			packed.Op = op
			entries = append(entries, packed)
		}
	}
	return ir.NewDispatchTable(entries)
}
