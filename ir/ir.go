// Package ir holds the immutable plans handed from the planners to emitters.
package ir

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// FilePlan holds the plans of every message declared in one file, nested
// messages flattened in pre-order.
type FilePlan struct {
	Path     string
	Package  string
	Messages []*MessagePlan
	// ExtensionDeps is the minimal set of transitive dependencies declaring
	// extensions, sorted by path.
	ExtensionDeps []string
	// ExtraImports are the ExtensionDeps that are not direct imports.
	ExtraImports []string
	Diagnostics  []Diagnostic
}

type MessagePlan struct {
	FullName   string
	Bits       *BitPlan
	Oneofs     []*OneofPlan
	Merge      *MergePlan
	Dispatch   *DispatchTable
	Validation *ValidationTree
}

type FieldRef struct {
	Name   string
	Number protowire.Number
}

func (r FieldRef) String() string {
	return fmt.Sprintf("%s=%d", r.Name, r.Number)
}

// WordBits is the width of one presence word.
const WordBits = 32

// BitRef addresses one presence bit.
type BitRef struct {
	Index int
	Word  int
	Mask  uint32
}

func NewBitRef(index int) BitRef {
	return BitRef{
		Index: index,
		Word:  index / WordBits,
		Mask:  1 << uint(index%WordBits),
	}
}

// Words returns the number of presence words needed for bits.
func Words(bits int) int {
	return (bits + WordBits - 1) / WordBits
}

// WordName is the conventional name of the i-th presence word.
func WordName(i int) string {
	return fmt.Sprintf("bitField%d_", i)
}

type FieldBits struct {
	Field   FieldRef
	Builder *BitRef
	Message *BitRef
}

// BitPlan assigns presence bits for the builder and the immutable message.
// The two assignments are independent.
type BitPlan struct {
	Fields       []FieldBits
	BuilderBits  int
	MessageBits  int
	BuilderWords int
	MessageWords int
}

func (p *BitPlan) Builder(n protowire.Number) (BitRef, bool) {
	for _, f := range p.Fields {
		if f.Field.Number == n && f.Builder != nil {
			return *f.Builder, true
		}
	}
	return BitRef{}, false
}

func (p *BitPlan) Message(n protowire.Number) (BitRef, bool) {
	for _, f := range p.Fields {
		if f.Field.Number == n && f.Message != nil {
			return *f.Message, true
		}
	}
	return BitRef{}, false
}

// OneofNotSet is the case value of a oneof with no member set.
const OneofNotSet int32 = 0

type OneofCase struct {
	Field FieldRef
	// Value is the member's field number.
	Value int32
	Const string
}

type OneofPlan struct {
	Name        string
	Index       int
	CaseField   string
	SlotField   string
	NotSetConst string
	Cases       []OneofCase
}

func (p *OneofPlan) Case(n protowire.Number) (OneofCase, bool) {
	for _, c := range p.Cases {
		if c.Field.Number == n {
			return c, true
		}
	}
	return OneofCase{}, false
}

type MergeKind int

const (
	MergeOverwrite MergeKind = iota
	MergeMessage
	MergeAppend
	MergePutAll
	MergeOneof
	MergeExtensions
	MergeUnknown
)

func (k MergeKind) String() string {
	switch k {
	case MergeOverwrite:
		return "overwrite"
	case MergeMessage:
		return "merge_message"
	case MergeAppend:
		return "append"
	case MergePutAll:
		return "put_all"
	case MergeOneof:
		return "oneof"
	case MergeExtensions:
		return "extensions"
	case MergeUnknown:
		return "unknown_fields"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

type MergeAction struct {
	Kind  MergeKind
	Field FieldRef
	// Presence is the builder bit tested on the source and set on the
	// destination. Nil for fields without presence tracking.
	Presence        *BitRef
	MessageType     string
	ViaFieldBuilder bool
	Oneof           *OneofMerge
}

type OneofMerge struct {
	Oneof int
	Name  string
	Cases []OneofCaseMerge
}

type OneofCaseMerge struct {
	Field           FieldRef
	Case            int32
	Kind            MergeKind
	MessageType     string
	ViaFieldBuilder bool
}

// MergePlan lists merge actions in execution order. Merging the canonical
// default instance is a no-op when SkipIfDefault is set.
type MergePlan struct {
	SkipIfDefault bool
	Actions       []MergeAction
}

type CheckKind int

const (
	// CheckPresent fails when a required field's message bit is clear.
	CheckPresent CheckKind = iota
	// CheckMessage always validates a required singular message.
	CheckMessage
	// CheckMessageIfPresent validates an optional message when its bit is set.
	CheckMessageIfPresent
	// CheckOneofMessage validates a oneof member when its case is active.
	CheckOneofMessage
	// CheckEachMessage validates every element, stopping at the first failure.
	CheckEachMessage
	// CheckMapValues validates every map value.
	CheckMapValues
	// CheckExtensions validates every populated extension value.
	CheckExtensions
)

func (k CheckKind) String() string {
	switch k {
	case CheckPresent:
		return "present"
	case CheckMessage:
		return "message"
	case CheckMessageIfPresent:
		return "message_if_present"
	case CheckOneofMessage:
		return "oneof_message"
	case CheckEachMessage:
		return "each_message"
	case CheckMapValues:
		return "map_values"
	case CheckExtensions:
		return "extensions"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

type ValidationStep struct {
	Kind  CheckKind
	Field FieldRef
	// Presence is the message-side bit of the field, if any.
	Presence *BitRef
	Oneof    int
	Case     int32
	// MessageType names the nested tree to evaluate. Trees refer to each
	// other by name so recursive types stay finite.
	MessageType string
}

type ValidationTree struct {
	Steps []ValidationStep
}

// Empty reports whether the message is trivially initialized.
func (t *ValidationTree) Empty() bool {
	return t == nil || len(t.Steps) == 0
}

type DiagnosticLevel string

// DiagInfo notes a planning decision. Schema problems are errors from
// schema.Build, never diagnostics.
const DiagInfo DiagnosticLevel = "info"

type Diagnostic struct {
	Level   DiagnosticLevel
	Message string
	Subject string
}

func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Level != diags[j].Level {
			return diags[i].Level < diags[j].Level
		}
		return diags[i].Subject < diags[j].Subject
	})
}

// WireType returns the natural wire type for values of kind k.
func WireType(k protoreflect.Kind) protowire.Type {
	switch k {
	case protoreflect.Fixed32Kind, protoreflect.Sfixed32Kind, protoreflect.FloatKind:
		return protowire.Fixed32Type
	case protoreflect.Fixed64Kind, protoreflect.Sfixed64Kind, protoreflect.DoubleKind:
		return protowire.Fixed64Type
	case protoreflect.StringKind, protoreflect.BytesKind, protoreflect.MessageKind:
		return protowire.BytesType
	case protoreflect.GroupKind:
		return protowire.StartGroupType
	default:
		return protowire.VarintType
	}
}
