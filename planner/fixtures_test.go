package planner

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func optionalScalar(name string, num protowire.Number, typ protoreflect.Kind) *schema.FieldSpec {
	return &schema.FieldSpec{Name: name, Number: num, Kind: schema.KindScalar, Type: typ}
}

func requiredScalar(name string, num protowire.Number) *schema.FieldSpec {
	return &schema.FieldSpec{Name: name, Number: num, Kind: schema.KindScalar, Type: protoreflect.Int32Kind, Required: true}
}

func messageField(name string, num protowire.Number, typ string) *schema.FieldSpec {
	return &schema.FieldSpec{Name: name, Number: num, Kind: schema.KindMessage, MessageType: typ}
}

func packableInts(name string, num protowire.Number) *schema.FieldSpec {
	return &schema.FieldSpec{Name: name, Number: num, Kind: schema.KindRepeatedScalar, Type: protoreflect.Int32Kind, Packable: true}
}

func oneofMember(name string, num protowire.Number, typ protoreflect.Kind, msgType string) *schema.FieldSpec {
	return &schema.FieldSpec{Name: name, Number: num, Kind: schema.KindOneofMember, Type: typ, MessageType: msgType}
}

func link(t *testing.T, msgs ...*schema.MessageSpec) *schema.Schema {
	t.Helper()
	s, err := schema.Build(&schema.FileSpec{Path: "test.proto", Package: "test", Messages: msgs})
	require.NoError(t, err)
	return s
}

// orderSchema is {required int32 id = 1; optional Child child = 2;
// repeated int32 tags = 3;} with Child holding one optional string.
func orderSchema(t *testing.T) (*schema.Schema, *schema.MessageSpec) {
	t.Helper()
	order := &schema.MessageSpec{
		FullName: "test.Order",
		Fields: []*schema.FieldSpec{
			requiredScalar("id", 1),
			messageField("child", 2, "test.Child"),
			packableInts("tags", 3),
		},
	}
	child := &schema.MessageSpec{
		FullName: "test.Child",
		Fields:   []*schema.FieldSpec{optionalScalar("name", 1, protoreflect.StringKind)},
	}
	s := link(t, order, child)
	return s, order
}
