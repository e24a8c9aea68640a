package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func TestBitRef(t *testing.T) {
	tests := []struct {
		index int
		word  int
		mask  uint32
	}{
		{0, 0, 0x1},
		{5, 0, 0x20},
		{31, 0, 0x80000000},
		{32, 1, 0x1},
		{70, 2, 0x40},
	}
	for _, tt := range tests {
		ref := NewBitRef(tt.index)
		if ref.Word != tt.word || ref.Mask != tt.mask {
			t.Fatalf("NewBitRef(%d) = %+v, want word %d mask %#x", tt.index, ref, tt.word, tt.mask)
		}
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, 0, Words(0))
	assert.Equal(t, 1, Words(1))
	assert.Equal(t, 1, Words(32))
	assert.Equal(t, 2, Words(33))
	assert.Equal(t, "bitField1_", WordName(1))
}

func TestDispatchLookup(t *testing.T) {
	table := NewDispatchTable([]DispatchEntry{
		{Tag: Tag(3, protowire.VarintType), Field: FieldRef{Name: "tags", Number: 3}, Mode: DecodeSingle, Op: OpAppendScalar},
		{Tag: Tag(3, protowire.BytesType), Field: FieldRef{Name: "tags", Number: 3}, Mode: DecodePacked, Op: OpAppendPacked},
	})
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, uint32(24), Tag(3, protowire.VarintType))

	e, ok := table.Lookup(26)
	require.True(t, ok)
	assert.Equal(t, DecodePacked, e.Mode)

	_, ok = table.Lookup(EndTag)
	assert.False(t, ok)
	_, ok = table.Lookup(Tag(4, protowire.VarintType))
	assert.False(t, ok)
}

func TestWireType(t *testing.T) {
	assert.Equal(t, protowire.VarintType, WireType(protoreflect.Sint64Kind))
	assert.Equal(t, protowire.VarintType, WireType(protoreflect.EnumKind))
	assert.Equal(t, protowire.Fixed32Type, WireType(protoreflect.FloatKind))
	assert.Equal(t, protowire.Fixed64Type, WireType(protoreflect.Sfixed64Kind))
	assert.Equal(t, protowire.BytesType, WireType(protoreflect.MessageKind))
	assert.Equal(t, protowire.StartGroupType, WireType(protoreflect.GroupKind))
}

func TestDiagnostics(t *testing.T) {
	diags := []Diagnostic{
		{Level: DiagInfo, Subject: "b", Message: "first"},
		{Level: DiagInfo, Subject: "a"},
		{Level: DiagInfo, Subject: "b", Message: "second"},
	}
	SortDiagnostics(diags)
	assert.Equal(t, "a", diags[0].Subject)
	assert.Equal(t, "first", diags[1].Message)
	assert.Equal(t, "second", diags[2].Message)
}

func TestPlanLookups(t *testing.T) {
	b := NewBitRef(1)
	bits := &BitPlan{Fields: []FieldBits{
		{Field: FieldRef{Name: "a", Number: 1}},
		{Field: FieldRef{Name: "b", Number: 2}, Builder: &b, Message: &b},
	}}
	_, ok := bits.Builder(1)
	assert.False(t, ok)
	got, ok := bits.Message(2)
	require.True(t, ok)
	assert.Equal(t, b, got)

	oneof := &OneofPlan{Cases: []OneofCase{{Field: FieldRef{Name: "x", Number: 7}, Value: 7}}}
	c, ok := oneof.Case(7)
	require.True(t, ok)
	assert.Equal(t, int32(7), c.Value)

	assert.True(t, (*ValidationTree)(nil).Empty())
	assert.Equal(t, "put_all", MergePutAll.String())
	assert.Equal(t, "unknown(99)", CheckKind(99).String())
}
