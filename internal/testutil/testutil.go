package testutil

import (
	"context"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/yaroher/protoc-gen-go-plan/internal/protoload"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func ExpectNoDiff(t *testing.T, a, b string) {
	t.Helper()
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       difflib.SplitLines(a),
		B:       difflib.SplitLines(b),
		Context: 5,
	})
	if diff != "" {
		t.Error(diff)
	}
}

// Compile compiles in-memory sources and returns the descriptors of paths.
func Compile(t *testing.T, sources map[string]string, paths ...string) []protoreflect.FileDescriptor {
	t.Helper()
	loader := &protoload.Loader{Sources: sources}
	fds, err := loader.Load(context.Background(), paths...)
	if err != nil {
		t.Fatalf("compile %v: %v", paths, err)
	}
	return fds
}

// Schema compiles in-memory sources and links them into a Schema.
func Schema(t *testing.T, sources map[string]string, paths ...string) *schema.Schema {
	t.Helper()
	s, err := schema.FromFiles(Compile(t, sources, paths...)...)
	if err != nil {
		t.Fatalf("schema %v: %v", paths, err)
	}
	return s
}
