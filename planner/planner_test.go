package planner

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaroher/protoc-gen-go-plan/extdeps"
	"github.com/yaroher/protoc-gen-go-plan/internal/testutil"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"go.uber.org/zap"
)

func TestPlanMessageCaches(t *testing.T) {
	_, order := orderSchema(t)
	p := New(Config{}, WithLogger(zap.NewNop()))

	var wg sync.WaitGroup
	plans := make([]*ir.MessagePlan, 8)
	for i := range plans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plans[i] = p.PlanMessage(order)
		}(i)
	}
	wg.Wait()
	for _, plan := range plans[1:] {
		assert.Same(t, plans[0], plan)
	}
	assert.Equal(t, "test.Order", plans[0].FullName)
	assert.Equal(t, 4, plans[0].Dispatch.Len())
	assert.Len(t, plans[0].Validation.Steps, 1)
}

func TestPlanFile(t *testing.T) {
	s := testutil.Schema(t, map[string]string{
		"ext.proto": `
syntax = "proto2";
package ext;
message Base {
  extensions 100 to max;
}
extend Base {
  optional string tag = 100;
}
`,
		"mid.proto": `
syntax = "proto2";
package mid;
import "ext.proto";
message Wrapper {
  optional ext.Base base = 1;
}
`,
		"top.proto": `
syntax = "proto2";
package top;
import "mid.proto";
message Top {
  required int32 id = 1;
  optional mid.Wrapper wrapper = 2;
  repeated int32 codes = 3;
  oneof kind {
    string name = 4;
    int64 number = 5;
  }
  message Inner {
    optional string note = 1;
  }
}
`,
	}, "top.proto")

	p := New(Config{}, WithLogger(zap.NewNop()))
	fp, err := p.PlanFile(s.File("top.proto"), extdeps.New(s))
	require.NoError(t, err)

	assert.Equal(t, "top.proto", fp.Path)
	assert.Equal(t, "top", fp.Package)
	require.Len(t, fp.Messages, 2)
	assert.Equal(t, "top.Top", fp.Messages[0].FullName)
	assert.Equal(t, "top.Top.Inner", fp.Messages[1].FullName)
	assert.Equal(t, []string{"ext.proto"}, fp.ExtensionDeps)
	assert.Equal(t, []string{"ext.proto"}, fp.ExtraImports)

	top := fp.Messages[0]
	require.Len(t, top.Oneofs, 1)
	assert.Equal(t, "KIND_NOT_SET", top.Oneofs[0].NotSetConst)
	// wrapper reaches Base, whose extension ranges may carry required fields.
	kinds := stepKinds(top.Validation)
	assert.Equal(t, []ir.CheckKind{ir.CheckPresent, ir.CheckMessageIfPresent}, kinds)
	assert.True(t, fp.Messages[1].Validation.Empty())

	require.NotEmpty(t, fp.Diagnostics)
	assert.Equal(t, "top.Top.codes", fp.Diagnostics[0].Subject)

	noExts, err := p.PlanFile(s.File("mid.proto"), nil)
	require.NoError(t, err)
	assert.Nil(t, noExts.ExtensionDeps)
}
