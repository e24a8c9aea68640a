package planner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaroher/protoc-gen-go-plan/fieldgen"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func TestAllocateBitsOrder(t *testing.T) {
	_, order := orderSchema(t)
	plan := AllocateBits(order, Config{})

	assert.Equal(t, 2, plan.MessageBits)
	assert.Equal(t, 2, plan.BuilderBits)
	assert.Equal(t, 1, plan.MessageWords)
	assert.Equal(t, 1, plan.BuilderWords)

	id, ok := plan.Message(1)
	require.True(t, ok)
	assert.Equal(t, ir.NewBitRef(0), id)
	child, ok := plan.Message(2)
	require.True(t, ok)
	assert.Equal(t, ir.NewBitRef(1), child)
	_, ok = plan.Message(3)
	assert.False(t, ok)
	_, ok = plan.Builder(3)
	assert.False(t, ok)
}

func TestAllocateBitsWords(t *testing.T) {
	m := &schema.MessageSpec{FullName: "test.Wide"}
	for i := 1; i <= 33; i++ {
		m.Fields = append(m.Fields, optionalScalar(fmt.Sprintf("f%d", i), protowire.Number(i), protoreflect.BoolKind))
	}
	link(t, m)
	plan := AllocateBits(m, Config{})
	assert.Equal(t, 33, plan.MessageBits)
	assert.Equal(t, 2, plan.MessageWords)
	assert.Equal(t, 2, plan.BuilderWords)

	last, ok := plan.Message(33)
	require.True(t, ok)
	assert.Equal(t, 1, last.Word)
	assert.Equal(t, uint32(1), last.Mask)
}

func TestAllocateBitsBuilderOnly(t *testing.T) {
	implicit := &schema.FieldSpec{Name: "count", Number: 1, Kind: schema.KindScalar, Type: protoreflect.Int64Kind, ImplicitPresence: true}
	explicit := optionalScalar("label", 2, protoreflect.StringKind)
	m := &schema.MessageSpec{FullName: "test.Counter", Fields: []*schema.FieldSpec{implicit, explicit}}
	link(t, m)

	plain := AllocateBits(m, Config{})
	assert.Equal(t, 1, plain.MessageBits)
	assert.Equal(t, 1, plain.BuilderBits)

	tracked := AllocateBits(m, Config{ImplicitPresenceBuilderBits: true})
	assert.Equal(t, 1, tracked.MessageBits)
	assert.Equal(t, 2, tracked.BuilderBits)

	b, ok := tracked.Builder(1)
	require.True(t, ok)
	assert.Equal(t, 0, b.Index)
	_, ok = tracked.Message(1)
	assert.False(t, ok)

	b, ok = tracked.Builder(2)
	require.True(t, ok)
	assert.Equal(t, 1, b.Index)
	mb, ok := tracked.Message(2)
	require.True(t, ok)
	assert.Equal(t, 0, mb.Index)
}

func TestAllocateBitsIgnoresPolicyForCollections(t *testing.T) {
	a := oneofMember("a", 4, protoreflect.StringKind, "")
	m := &schema.MessageSpec{
		FullName: "test.Mixed",
		Fields: []*schema.FieldSpec{
			packableInts("ints", 1),
			{Name: "children", Number: 2, Kind: schema.KindRepeatedMessage, MessageType: "test.Mixed"},
			{
				Name:     "attrs",
				Number:   3,
				Kind:     schema.KindMap,
				MapKey:   &schema.FieldSpec{Name: "key", Number: 1, Kind: schema.KindScalar, Type: protoreflect.StringKind},
				MapValue: &schema.FieldSpec{Name: "value", Number: 2, Kind: schema.KindScalar, Type: protoreflect.StringKind},
			},
			a,
		},
		Oneofs: []*schema.OneofSpec{{Name: "pick", Fields: []*schema.FieldSpec{a}}},
	}
	link(t, m)
	plan := AllocateBits(m, Config{BuilderOnlyBit: func(*schema.FieldSpec) bool { return true }})
	assert.Zero(t, plan.BuilderBits)
	assert.Zero(t, plan.MessageBits)
	assert.Zero(t, plan.BuilderWords)
	for _, fb := range plan.Fields {
		assert.Nil(t, fb.Builder, fb.Field.Name)
		assert.Nil(t, fb.Message, fb.Field.Name)
	}
}

func TestAllocateBitsRejectsBrokenCapability(t *testing.T) {
	table := fieldgen.Default()
	broken := table[schema.KindRepeatedScalar]
	broken.MessageBits = func(*schema.FieldSpec) int { return 1 }
	table[schema.KindRepeatedScalar] = broken

	m := &schema.MessageSpec{FullName: "test.R", Fields: []*schema.FieldSpec{packableInts("r", 1)}}
	link(t, m)
	assert.Panics(t, func() { AllocateBits(m, Config{Fields: table}) })
}
