package generator

import (
	"github.com/go-faster/jx"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// RenderFilePlan encodes fp as an indented JSON document.
func RenderFilePlan(fp *ir.FilePlan) []byte {
	e := &jx.Encoder{}
	e.SetIdent(2)
	marshalFilePlan(e, fp)
	return append(e.Bytes(), '\n')
}

func marshalFilePlan(e *jx.Encoder, fp *ir.FilePlan) {
	e.ObjStart()
	e.FieldStart("path")
	e.Str(fp.Path)
	e.FieldStart("package")
	e.Str(fp.Package)
	marshalStrings(e, "extension_deps", fp.ExtensionDeps)
	marshalStrings(e, "extra_imports", fp.ExtraImports)
	e.FieldStart("messages")
	e.ArrStart()
	for _, m := range fp.Messages {
		marshalMessagePlan(e, m)
	}
	e.ArrEnd()
	if len(fp.Diagnostics) > 0 {
		e.FieldStart("diagnostics")
		e.ArrStart()
		for _, d := range fp.Diagnostics {
			e.ObjStart()
			e.FieldStart("level")
			e.Str(string(d.Level))
			e.FieldStart("subject")
			e.Str(d.Subject)
			e.FieldStart("message")
			e.Str(d.Message)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func marshalStrings(e *jx.Encoder, key string, vals []string) {
	e.FieldStart(key)
	e.ArrStart()
	for _, v := range vals {
		e.Str(v)
	}
	e.ArrEnd()
}

func marshalMessagePlan(e *jx.Encoder, m *ir.MessagePlan) {
	e.ObjStart()
	e.FieldStart("full_name")
	e.Str(m.FullName)
	e.FieldStart("bits")
	marshalBitPlan(e, m.Bits)
	if len(m.Oneofs) > 0 {
		e.FieldStart("oneofs")
		e.ArrStart()
		for _, o := range m.Oneofs {
			marshalOneofPlan(e, o)
		}
		e.ArrEnd()
	}
	e.FieldStart("merge")
	marshalMergePlan(e, m.Merge)
	e.FieldStart("dispatch")
	e.ArrStart()
	for i := range m.Dispatch.Entries {
		marshalDispatchEntry(e, &m.Dispatch.Entries[i])
	}
	e.ArrEnd()
	e.FieldStart("validation")
	e.ArrStart()
	if m.Validation != nil {
		for i := range m.Validation.Steps {
			marshalValidationStep(e, &m.Validation.Steps[i])
		}
	}
	e.ArrEnd()
	e.ObjEnd()
}

func marshalField(e *jx.Encoder, f ir.FieldRef) {
	e.FieldStart("field")
	e.Str(f.Name)
	e.FieldStart("number")
	e.Int32(int32(f.Number))
}

func marshalBitRef(e *jx.Encoder, key string, b *ir.BitRef) {
	if b == nil {
		return
	}
	e.FieldStart(key)
	e.ObjStart()
	e.FieldStart("index")
	e.Int(b.Index)
	e.FieldStart("word")
	e.Str(ir.WordName(b.Word))
	e.FieldStart("mask")
	e.UInt32(b.Mask)
	e.ObjEnd()
}

func marshalBitPlan(e *jx.Encoder, p *ir.BitPlan) {
	e.ObjStart()
	e.FieldStart("builder_bits")
	e.Int(p.BuilderBits)
	e.FieldStart("message_bits")
	e.Int(p.MessageBits)
	e.FieldStart("builder_words")
	e.Int(p.BuilderWords)
	e.FieldStart("message_words")
	e.Int(p.MessageWords)
	e.FieldStart("fields")
	e.ArrStart()
	for i := range p.Fields {
		fb := &p.Fields[i]
		e.ObjStart()
		marshalField(e, fb.Field)
		marshalBitRef(e, "builder", fb.Builder)
		marshalBitRef(e, "message", fb.Message)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func marshalOneofPlan(e *jx.Encoder, o *ir.OneofPlan) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(o.Name)
	e.FieldStart("index")
	e.Int(o.Index)
	e.FieldStart("case_field")
	e.Str(o.CaseField)
	e.FieldStart("slot_field")
	e.Str(o.SlotField)
	e.FieldStart("not_set")
	e.Str(o.NotSetConst)
	e.FieldStart("cases")
	e.ArrStart()
	for _, c := range o.Cases {
		e.ObjStart()
		marshalField(e, c.Field)
		e.FieldStart("value")
		e.Int32(c.Value)
		e.FieldStart("const")
		e.Str(c.Const)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func marshalMergePlan(e *jx.Encoder, p *ir.MergePlan) {
	e.ObjStart()
	e.FieldStart("skip_if_default")
	e.Bool(p.SkipIfDefault)
	e.FieldStart("actions")
	e.ArrStart()
	for i := range p.Actions {
		a := &p.Actions[i]
		e.ObjStart()
		e.FieldStart("kind")
		e.Str(a.Kind.String())
		if a.Field.Name != "" {
			marshalField(e, a.Field)
		}
		marshalBitRef(e, "presence", a.Presence)
		if a.MessageType != "" {
			e.FieldStart("message_type")
			e.Str(a.MessageType)
		}
		if a.ViaFieldBuilder {
			e.FieldStart("via_field_builder")
			e.Bool(true)
		}
		if a.Oneof != nil {
			e.FieldStart("oneof")
			e.Str(a.Oneof.Name)
			e.FieldStart("cases")
			e.ArrStart()
			for _, c := range a.Oneof.Cases {
				e.ObjStart()
				marshalField(e, c.Field)
				e.FieldStart("case")
				e.Int32(c.Case)
				e.FieldStart("kind")
				e.Str(c.Kind.String())
				if c.MessageType != "" {
					e.FieldStart("message_type")
					e.Str(c.MessageType)
				}
				if c.ViaFieldBuilder {
					e.FieldStart("via_field_builder")
					e.Bool(true)
				}
				e.ObjEnd()
			}
			e.ArrEnd()
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func marshalDispatchEntry(e *jx.Encoder, d *ir.DispatchEntry) {
	e.ObjStart()
	e.FieldStart("tag")
	e.UInt32(d.Tag)
	marshalField(e, d.Field)
	e.FieldStart("wire_type")
	e.Str(wireTypeName(d.WireType))
	e.FieldStart("mode")
	e.Str(d.Mode.String())
	e.FieldStart("op")
	e.Str(d.Op.String())
	e.FieldStart("type")
	e.Str(kindName(d.Type))
	if d.Mode == ir.DecodePacked {
		e.FieldStart("elem_wire_type")
		e.Str(wireTypeName(d.ElemType))
	}
	if d.MessageType != "" {
		e.FieldStart("message_type")
		e.Str(d.MessageType)
	}
	if d.KeyType != 0 {
		e.FieldStart("key_type")
		e.Str(kindName(d.KeyType))
		e.FieldStart("value_type")
		e.Str(kindName(d.ValueType))
	}
	marshalBitRef(e, "presence", d.Presence)
	if d.Oneof >= 0 {
		e.FieldStart("oneof")
		e.Int(d.Oneof)
	}
	e.ObjEnd()
}

func marshalValidationStep(e *jx.Encoder, s *ir.ValidationStep) {
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(s.Kind.String())
	if s.Kind != ir.CheckExtensions {
		marshalField(e, s.Field)
	}
	marshalBitRef(e, "presence", s.Presence)
	if s.Kind == ir.CheckOneofMessage {
		e.FieldStart("oneof")
		e.Int(s.Oneof)
		e.FieldStart("case")
		e.Int32(s.Case)
	}
	if s.MessageType != "" {
		e.FieldStart("message_type")
		e.Str(s.MessageType)
	}
	e.ObjEnd()
}

func wireTypeName(t protowire.Type) string {
	switch t {
	case protowire.VarintType:
		return "varint"
	case protowire.Fixed32Type:
		return "fixed32"
	case protowire.Fixed64Type:
		return "fixed64"
	case protowire.BytesType:
		return "bytes"
	case protowire.StartGroupType:
		return "start_group"
	case protowire.EndGroupType:
		return "end_group"
	default:
		return "invalid"
	}
}

func kindName(k protoreflect.Kind) string {
	if !k.IsValid() {
		return ""
	}
	return k.String()
}
