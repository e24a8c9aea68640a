package planner

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func stepKinds(tree *ir.ValidationTree) []ir.CheckKind {
	return lo.Map(tree.Steps, func(s ir.ValidationStep, _ int) ir.CheckKind { return s.Kind })
}

func TestPlanValidationEmptyWithoutRequired(t *testing.T) {
	m := &schema.MessageSpec{FullName: "test.Plain", Fields: []*schema.FieldSpec{
		optionalScalar("a", 1, protoreflect.Int32Kind),
		messageField("self", 2, "test.Plain"),
	}}
	link(t, m)
	tree := PlanValidation(m, AllocateBits(m, Config{}), Config{})
	assert.True(t, tree.Empty())
}

func TestPlanValidationOrder(t *testing.T) {
	leaf := &schema.MessageSpec{FullName: "test.Leaf", Fields: []*schema.FieldSpec{requiredScalar("id", 1)}}
	plain := &schema.MessageSpec{FullName: "test.Plain", Fields: []*schema.FieldSpec{optionalScalar("x", 1, protoreflect.Int32Kind)}}
	pick := oneofMember("pick", 8, protoreflect.MessageKind, "test.Leaf")
	root := &schema.MessageSpec{
		FullName:           "test.Root",
		HasExtensionRanges: true,
		Fields: []*schema.FieldSpec{
			messageField("opt", 1, "test.Leaf"),
			requiredScalar("key", 2),
			{Name: "must", Number: 3, Kind: schema.KindMessage, MessageType: "test.Leaf", Required: true},
			messageField("skip", 4, "test.Plain"),
			{Name: "many", Number: 5, Kind: schema.KindRepeatedMessage, MessageType: "test.Leaf"},
			{
				Name:     "byName",
				Number:   6,
				Kind:     schema.KindMap,
				MapKey:   &schema.FieldSpec{Name: "key", Number: 1, Kind: schema.KindScalar, Type: protoreflect.StringKind},
				MapValue: &schema.FieldSpec{Name: "value", Number: 2, Kind: schema.KindMessage, MessageType: "test.Leaf"},
			},
			{Name: "plains", Number: 7, Kind: schema.KindRepeatedMessage, MessageType: "test.Plain"},
			pick,
		},
		Oneofs: []*schema.OneofSpec{{Name: "choice", Fields: []*schema.FieldSpec{pick}}},
	}
	link(t, root, leaf, plain)

	bits := AllocateBits(root, Config{})
	tree := PlanValidation(root, bits, Config{})
	assert.Equal(t, []ir.CheckKind{
		ir.CheckPresent,
		ir.CheckPresent,
		ir.CheckMessageIfPresent,
		ir.CheckMessage,
		ir.CheckEachMessage,
		ir.CheckMapValues,
		ir.CheckOneofMessage,
		ir.CheckExtensions,
	}, stepKinds(tree))

	key := tree.Steps[0]
	assert.Equal(t, "key", key.Field.Name)
	require.NotNil(t, key.Presence)
	want, _ := bits.Message(2)
	assert.Equal(t, want, *key.Presence)

	opt := tree.Steps[2]
	assert.Equal(t, "test.Leaf", opt.MessageType)
	require.NotNil(t, opt.Presence)

	oneof := tree.Steps[6]
	assert.Equal(t, 0, oneof.Oneof)
	assert.Equal(t, int32(8), oneof.Case)
	assert.Nil(t, oneof.Presence)
}

func TestPlanValidationRecursiveType(t *testing.T) {
	node := &schema.MessageSpec{FullName: "test.Node", Fields: []*schema.FieldSpec{
		requiredScalar("id", 1),
		{Name: "children", Number: 2, Kind: schema.KindRepeatedMessage, MessageType: "test.Node"},
	}}
	link(t, node)
	tree := PlanValidation(node, AllocateBits(node, Config{}), Config{})
	assert.Equal(t, []ir.CheckKind{ir.CheckPresent, ir.CheckEachMessage}, stepKinds(tree))
	assert.Equal(t, "test.Node", tree.Steps[1].MessageType)
}

func TestPlanValidationExtensionsOnly(t *testing.T) {
	open := &schema.MessageSpec{FullName: "test.Open", HasExtensionRanges: true}
	link(t, open)
	tree := PlanValidation(open, AllocateBits(open, Config{}), Config{})
	assert.Equal(t, []ir.CheckKind{ir.CheckExtensions}, stepKinds(tree))
}
