package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yaroher/protoc-gen-go-plan/internal/testutil"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"github.com/yaroher/protoc-gen-go-plan/planner"
	"github.com/yaroher/protoc-gen-go-plan/runtime"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"
)

const shopProto = `
syntax = "proto2";
package rt;

message Item {
  required string sku = 1;
  optional int32 qty = 2;
}

message Order {
  required int32 id = 1;
  optional Item main = 2;
  repeated int32 tags = 3;
  repeated Item items = 4;
  map<string, Item> by_sku = 5;
  oneof choice {
    string a = 6;
    Item b = 7;
  }
  optional string note = 8;
  optional group Extra = 9 {
    optional int32 level = 10;
  }
  extensions 100 to 200;
}

message Plain {
  optional int32 x = 1;
  repeated Plain children = 2;
}
`

const counterProto = `
syntax = "proto3";
package rt3;

message Counter {
  int64 count = 1;
  string label = 2;
  optional int32 limit = 3;
}
`

const (
	fieldID    protowire.Number = 1
	fieldMain  protowire.Number = 2
	fieldTags  protowire.Number = 3
	fieldItems protowire.Number = 4
	fieldBySku protowire.Number = 5
	fieldA     protowire.Number = 6
	fieldB     protowire.Number = 7
	fieldNote  protowire.Number = 8
	fieldExtra protowire.Number = 9

	fieldSku protowire.Number = 1
	fieldQty protowire.Number = 2
)

func newRegistry(t *testing.T, cfg planner.Config) *runtime.Registry {
	t.Helper()
	s := testutil.Schema(t, map[string]string{
		"rt.proto":  shopProto,
		"rt3.proto": counterProto,
	}, "rt.proto", "rt3.proto")
	p := planner.New(cfg, planner.WithLogger(zap.NewNop()))
	var files []*ir.FilePlan
	for _, f := range s.Files() {
		fp, err := p.PlanFile(f, nil)
		require.NoError(t, err)
		files = append(files, fp)
	}
	return runtime.NewRegistryFromFiles(files...)
}

func newMessage(t *testing.T, r *runtime.Registry, name string) *runtime.Message {
	t.Helper()
	m, err := r.New(name)
	require.NoError(t, err)
	return m
}

func item(t *testing.T, r *runtime.Registry, sku string, qty uint64) *runtime.Message {
	t.Helper()
	m := newMessage(t, r, "rt.Item")
	if sku != "" {
		require.NoError(t, m.Set(fieldSku, sku))
	}
	if qty != 0 {
		require.NoError(t, m.Set(fieldQty, qty))
	}
	return m
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func encodeItem(sku string, qty uint64) []byte {
	var b []byte
	if sku != "" {
		b = appendBytesField(b, fieldSku, []byte(sku))
	}
	if qty != 0 {
		b = appendVarintField(b, fieldQty, qty)
	}
	return b
}
