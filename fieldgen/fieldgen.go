// Package fieldgen is the per-kind field capability table. Planners never
// switch on field kinds themselves; they ask the table.
package fieldgen

import (
	"fmt"

	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/schema"
)

// BuilderBitPolicy reports whether a field without a message bit still gets
// a builder-only presence bit.
type BuilderBitPolicy func(f *schema.FieldSpec) bool

type Capability struct {
	MessageBits func(f *schema.FieldSpec) int
	BuilderBits func(f *schema.FieldSpec, builderOnly BuilderBitPolicy) int
	Merge       func(f *schema.FieldSpec) ir.MergeKind
	Decode      func(f *schema.FieldSpec) ir.DecodeOp
	// PackedDecode returns the op for the packed length-delimited form.
	PackedDecode func(f *schema.FieldSpec) (ir.DecodeOp, bool)
	// Validate returns the recursion step for message-typed fields.
	Validate func(f *schema.FieldSpec) (ir.CheckKind, bool)
}

type Table map[schema.Kind]Capability

// For returns the capability of kind k. A missing kind is a programming
// error and panics.
func (t Table) For(k schema.Kind) Capability {
	c, ok := t[k]
	if !ok {
		panic(fmt.Sprintf("fieldgen: no capability for kind %s", k))
	}
	return c
}

// Default returns the standard capability table.
func Default() Table {
	return Table{
		schema.KindScalar:          singularScalar,
		schema.KindEnum:            singularScalar,
		schema.KindMessage:         singularMessage,
		schema.KindRepeatedScalar:  repeatedScalar,
		schema.KindRepeatedMessage: repeatedMessage,
		schema.KindMap:             mapField,
		schema.KindOneofMember:     oneofMember,
	}
}

func zeroBits(*schema.FieldSpec) int { return 0 }

func zeroBuilderBits(*schema.FieldSpec, BuilderBitPolicy) int { return 0 }

func noPacked(*schema.FieldSpec) (ir.DecodeOp, bool) { return 0, false }

func noValidate(*schema.FieldSpec) (ir.CheckKind, bool) { return 0, false }

var singularScalar = Capability{
	MessageBits: func(f *schema.FieldSpec) int {
		if f.ImplicitPresence {
			return 0
		}
		return 1
	},
	BuilderBits: func(f *schema.FieldSpec, builderOnly BuilderBitPolicy) int {
		if !f.ImplicitPresence {
			return 1
		}
		if builderOnly != nil && builderOnly(f) {
			return 1
		}
		return 0
	},
	Merge:        func(*schema.FieldSpec) ir.MergeKind { return ir.MergeOverwrite },
	Decode:       func(*schema.FieldSpec) ir.DecodeOp { return ir.OpSetScalar },
	PackedDecode: noPacked,
	Validate:     noValidate,
}

var singularMessage = Capability{
	MessageBits:  func(*schema.FieldSpec) int { return 1 },
	BuilderBits:  func(*schema.FieldSpec, BuilderBitPolicy) int { return 1 },
	Merge:        func(*schema.FieldSpec) ir.MergeKind { return ir.MergeMessage },
	Decode:       func(*schema.FieldSpec) ir.DecodeOp { return ir.OpMergeMessage },
	PackedDecode: noPacked,
	Validate: func(f *schema.FieldSpec) (ir.CheckKind, bool) {
		if f.Required {
			return ir.CheckMessage, true
		}
		return ir.CheckMessageIfPresent, true
	},
}

var repeatedScalar = Capability{
	MessageBits: zeroBits,
	BuilderBits: zeroBuilderBits,
	Merge:       func(*schema.FieldSpec) ir.MergeKind { return ir.MergeAppend },
	Decode:      func(*schema.FieldSpec) ir.DecodeOp { return ir.OpAppendScalar },
	PackedDecode: func(f *schema.FieldSpec) (ir.DecodeOp, bool) {
		if !f.Packable {
			return 0, false
		}
		return ir.OpAppendPacked, true
	},
	Validate: noValidate,
}

var repeatedMessage = Capability{
	MessageBits:  zeroBits,
	BuilderBits:  zeroBuilderBits,
	Merge:        func(*schema.FieldSpec) ir.MergeKind { return ir.MergeAppend },
	Decode:       func(*schema.FieldSpec) ir.DecodeOp { return ir.OpAppendMessage },
	PackedDecode: noPacked,
	Validate:     func(*schema.FieldSpec) (ir.CheckKind, bool) { return ir.CheckEachMessage, true },
}

var mapField = Capability{
	MessageBits:  zeroBits,
	BuilderBits:  zeroBuilderBits,
	Merge:        func(*schema.FieldSpec) ir.MergeKind { return ir.MergePutAll },
	Decode:       func(*schema.FieldSpec) ir.DecodeOp { return ir.OpPutMapEntry },
	PackedDecode: noPacked,
	Validate: func(f *schema.FieldSpec) (ir.CheckKind, bool) {
		if !f.IsMessageTyped() {
			return 0, false
		}
		return ir.CheckMapValues, true
	},
}

var oneofMember = Capability{
	MessageBits: zeroBits,
	BuilderBits: zeroBuilderBits,
	Merge: func(f *schema.FieldSpec) ir.MergeKind {
		if f.IsMessageTyped() {
			return ir.MergeMessage
		}
		return ir.MergeOverwrite
	},
	Decode: func(f *schema.FieldSpec) ir.DecodeOp {
		if f.IsMessageTyped() {
			return ir.OpMergeOneofMessage
		}
		return ir.OpSetOneofScalar
	},
	PackedDecode: noPacked,
	Validate: func(f *schema.FieldSpec) (ir.CheckKind, bool) {
		if !f.IsMessageTyped() {
			return 0, false
		}
		return ir.CheckOneofMessage, true
	},
}
