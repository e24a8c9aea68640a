package generator

import (
	"context"
	"testing"

	"github.com/go-faster/jx"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaroher/protoc-gen-go-plan/internal/testutil"
	"go.uber.org/zap"
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/pluginpb"
)

var pingSources = map[string]string{
	"ping.proto": `
syntax = "proto2";
package ping;
option go_package = "example.com/ping";
message Ping {
  required int32 id = 1;
}
`,
}

var shopSources = map[string]string{
	"base.proto": `
syntax = "proto2";
package shop;
option go_package = "example.com/shop";
message Item {
  required string sku = 1;
  extensions 100 to 199;
}
extend Item {
  optional string note = 100;
}
`,
	"order.proto": `
syntax = "proto2";
package shop;
option go_package = "example.com/shop";
import "base.proto";
message Order {
  repeated Item items = 1;
  oneof payment {
    string card = 2;
    Item voucher = 3;
  }
}
`,
}

const pingGolden = `{
  "extension_deps": [],
  "extra_imports": [],
  "messages": [
    {
      "bits": {
        "builder_bits": 1,
        "builder_words": 1,
        "fields": [
          {
            "builder": {
              "index": 0,
              "mask": 1,
              "word": "bitField0_"
            },
            "field": "id",
            "message": {
              "index": 0,
              "mask": 1,
              "word": "bitField0_"
            },
            "number": 1
          }
        ],
        "message_bits": 1,
        "message_words": 1
      },
      "dispatch": [
        {
          "field": "id",
          "mode": "single",
          "number": 1,
          "op": "set_scalar",
          "presence": {
            "index": 0,
            "mask": 1,
            "word": "bitField0_"
          },
          "tag": 8,
          "type": "int32",
          "wire_type": "varint"
        }
      ],
      "full_name": "ping.Ping",
      "merge": {
        "actions": [
          {
            "field": "id",
            "kind": "overwrite",
            "number": 1,
            "presence": {
              "index": 0,
              "mask": 1,
              "word": "bitField0_"
            }
          },
          {
            "kind": "unknown_fields"
          }
        ],
        "skip_if_default": true
      },
      "validation": [
        {
          "field": "id",
          "kind": "present",
          "number": 1,
          "presence": {
            "index": 0,
            "mask": 1,
            "word": "bitField0_"
          }
        }
      ]
    }
  ],
  "package": "ping",
  "path": "ping.proto"
}`

// normalize re-encodes a JSON document with sorted keys so golden files do
// not depend on encoder layout.
func normalize(t *testing.T, data []byte) string {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal(data, &v))
	out, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	return string(out)
}

func TestRenderFilePlanGolden(t *testing.T) {
	s := testutil.Schema(t, pingSources, "ping.proto")
	plans, err := PlanFiles(context.Background(), s, []string{"ping.proto"}, DefaultSettings(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, plans, 1)

	data := RenderFilePlan(plans[0])
	require.True(t, jx.Valid(data))
	testutil.ExpectNoDiff(t, pingGolden, normalize(t, data))
}

func TestPlanFilesOrderAndExtensions(t *testing.T) {
	s := testutil.Schema(t, shopSources, "order.proto")
	settings := DefaultSettings()
	settings.Parallelism = 1
	paths := []string{"order.proto", "base.proto"}

	plans, err := PlanFiles(context.Background(), s, paths, settings, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "order.proto", plans[0].Path)
	assert.Equal(t, "base.proto", plans[1].Path)
	assert.Equal(t, []string{"base.proto"}, plans[0].ExtensionDeps)
	assert.Empty(t, plans[0].ExtraImports)

	order := plans[0].Messages[0]
	assert.Equal(t, "shop.Order", order.FullName)
	require.Len(t, order.Oneofs, 1)
	assert.Equal(t, "paymentCase_", order.Oneofs[0].CaseField)
	assert.False(t, order.Validation.Empty())
}

func TestPlanFilesUnknownPath(t *testing.T) {
	s := testutil.Schema(t, pingSources, "ping.proto")
	_, err := PlanFiles(context.Background(), s, []string{"missing.proto"}, DefaultSettings(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `plan file "missing.proto"`)
}

func TestPlanFilesRejectsInvalidSettings(t *testing.T) {
	s := testutil.Schema(t, pingSources, "ping.proto")
	_, err := PlanFiles(context.Background(), s, []string{"ping.proto"}, &Settings{Parallelism: 0, Suffix: DefaultSuffix}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parallelism must be positive")
}

func newPlugin(t *testing.T, sources map[string]string, param string, generate ...string) *protogen.Plugin {
	t.Helper()
	fds := testutil.Compile(t, sources, generate...)
	req := &pluginpb.CodeGeneratorRequest{
		FileToGenerate: generate,
		Parameter:      proto.String(param),
	}
	seen := make(map[string]bool)
	var add func(fd protoreflect.FileDescriptor)
	add = func(fd protoreflect.FileDescriptor) {
		if seen[fd.Path()] {
			return
		}
		seen[fd.Path()] = true
		imports := fd.Imports()
		for i := 0; i < imports.Len(); i++ {
			add(imports.Get(i).FileDescriptor)
		}
		req.ProtoFile = append(req.ProtoFile, protodesc.ToFileDescriptorProto(fd))
	}
	for _, fd := range fds {
		add(fd)
	}
	p, err := protogen.Options{}.New(req)
	require.NoError(t, err)
	return p
}

func TestGenerate(t *testing.T) {
	p := newPlugin(t, shopSources, "paths=source_relative,parallelism=2", "base.proto", "order.proto")
	g, err := NewGenerator(p, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Settings.Parallelism)
	assert.Equal(t, []string{"base.proto", "order.proto"}, g.Targets())

	require.NoError(t, g.Generate())
	resp := p.Response()
	require.Empty(t, resp.GetError())
	require.Len(t, resp.File, 2)
	assert.Equal(t, "base.plan.json", resp.File[0].GetName())
	assert.Equal(t, "order.plan.json", resp.File[1].GetName())
	content := []byte(resp.File[1].GetContent())
	require.True(t, jx.Valid(content))
	var doc struct {
		Path          string   `json:"path"`
		ExtensionDeps []string `json:"extension_deps"`
	}
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, "order.proto", doc.Path)
	assert.Equal(t, []string{"base.proto"}, doc.ExtensionDeps)
}

func TestGenerateSkipsPackages(t *testing.T) {
	p := newPlugin(t, pingSources, "paths=source_relative", "ping.proto")
	settings := DefaultSettings()
	settings.SkipPackages = []string{"ping"}
	g, err := NewGenerator(p, WithSettings(settings), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Empty(t, g.Targets())
	require.NoError(t, g.Generate())
	assert.Empty(t, p.Response().File)
}

func TestWithSettingsValidates(t *testing.T) {
	p := newPlugin(t, pingSources, "", "ping.proto")
	_, err := NewGenerator(p, WithSettings(&Settings{Parallelism: 0, Suffix: DefaultSuffix}))
	assert.Error(t, err)
}
