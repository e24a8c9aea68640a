// Package protoload compiles .proto sources into linked descriptors.
package protoload

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type Loader struct {
	ImportPaths []string
	// Sources overrides the filesystem for the listed paths.
	Sources map[string]string
}

func (l *Loader) Load(ctx context.Context, paths ...string) ([]protoreflect.FileDescriptor, error) {
	resolver := &protocompile.SourceResolver{
		ImportPaths: l.ImportPaths,
		Accessor: func(path string) (io.ReadCloser, error) {
			if src, ok := l.Sources[path]; ok {
				return io.NopCloser(strings.NewReader(src)), nil
			}
			return os.Open(path)
		},
	}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(resolver),
	}
	files, err := compiler.Compile(ctx, paths...)
	if err != nil {
		return nil, err
	}
	out := make([]protoreflect.FileDescriptor, 0, len(files))
	for _, f := range files {
		out = append(out, f)
	}
	return out, nil
}
