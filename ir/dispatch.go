package ir

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// EndTag is returned by tag readers at end of input. The decode loop
// terminates successfully when it reads it.
const EndTag uint32 = 0

// Tag combines a field number and wire type.
func Tag(n protowire.Number, typ protowire.Type) uint32 {
	return uint32(protowire.EncodeTag(n, typ))
}

type DecodeMode int

const (
	DecodeSingle DecodeMode = iota
	DecodePacked
)

func (m DecodeMode) String() string {
	switch m {
	case DecodeSingle:
		return "single"
	case DecodePacked:
		return "packed"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

type DecodeOp int

const (
	OpSetScalar DecodeOp = iota
	OpMergeMessage
	OpAppendScalar
	OpAppendPacked
	OpAppendMessage
	OpPutMapEntry
	OpSetOneofScalar
	OpMergeOneofMessage
)

func (op DecodeOp) String() string {
	switch op {
	case OpSetScalar:
		return "set_scalar"
	case OpMergeMessage:
		return "merge_message"
	case OpAppendScalar:
		return "append_scalar"
	case OpAppendPacked:
		return "append_packed"
	case OpAppendMessage:
		return "append_message"
	case OpPutMapEntry:
		return "put_map_entry"
	case OpSetOneofScalar:
		return "set_oneof_scalar"
	case OpMergeOneofMessage:
		return "merge_oneof_message"
	default:
		return fmt.Sprintf("unknown(%d)", int(op))
	}
}

type DispatchEntry struct {
	Tag      uint32
	Field    FieldRef
	WireType protowire.Type
	Mode     DecodeMode
	Op       DecodeOp
	// Type is the element kind. For packed entries each element uses
	// ElemType inside the length-delimited payload.
	Type        protoreflect.Kind
	ElemType    protowire.Type
	MessageType string
	// KeyType and ValueType describe map entries.
	KeyType   protoreflect.Kind
	ValueType protoreflect.Kind
	// Presence is the builder bit set when the field is decoded.
	Presence *BitRef
	// Oneof is the oneof index for member fields, -1 otherwise.
	Oneof int
}

// DispatchTable maps tags to decode actions. Entries are ordered by field
// number, the natural encoding before the packed one.
type DispatchTable struct {
	Entries []DispatchEntry
	index   map[uint32]int
}

func NewDispatchTable(entries []DispatchEntry) *DispatchTable {
	t := &DispatchTable{
		Entries: entries,
		index:   make(map[uint32]int, len(entries)),
	}
	for i, e := range entries {
		t.index[e.Tag] = i
	}
	return t
}

func (t *DispatchTable) Lookup(tag uint32) (*DispatchEntry, bool) {
	i, ok := t.index[tag]
	if !ok {
		return nil, false
	}
	return &t.Entries[i], true
}

func (t *DispatchTable) Len() int {
	return len(t.Entries)
}
