package schema

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// FromFiles converts linked descriptors, and every file they import, into
// a Schema. Requested files come first in the result, in the given order.
// Placeholder imports are kept as dependency paths and surface as
// unresolved references.
func FromFiles(fds ...protoreflect.FileDescriptor) (*Schema, error) {
	seen := make(map[string]bool)
	var specs []*FileSpec
	var queue []protoreflect.FileDescriptor
	queue = append(queue, fds...)
	for len(queue) > 0 {
		fd := queue[0]
		queue = queue[1:]
		if fd.IsPlaceholder() || seen[fd.Path()] {
			continue
		}
		seen[fd.Path()] = true
		specs = append(specs, FromFile(fd))
		imports := fd.Imports()
		for i := 0; i < imports.Len(); i++ {
			queue = append(queue, imports.Get(i).FileDescriptor)
		}
	}
	return Build(specs...)
}

// FromFile converts a single file. The result is unlinked until passed to
// Build together with its dependencies.
func FromFile(fd protoreflect.FileDescriptor) *FileSpec {
	f := &FileSpec{
		Path:          fd.Path(),
		Package:       string(fd.Package()),
		HasExtensions: fd.Extensions().Len() > 0,
	}
	imports := fd.Imports()
	for i := 0; i < imports.Len(); i++ {
		f.Deps = append(f.Deps, imports.Get(i).Path())
	}
	msgs := fd.Messages()
	for i := 0; i < msgs.Len(); i++ {
		md := msgs.Get(i)
		if md.IsMapEntry() {
			continue
		}
		f.Messages = append(f.Messages, messageSpec(md, &f.HasExtensions))
	}
	return f
}

func messageSpec(md protoreflect.MessageDescriptor, fileHasExt *bool) *MessageSpec {
	m := &MessageSpec{
		FullName:           string(md.FullName()),
		Name:               string(md.Name()),
		HasExtensionRanges: md.ExtensionRanges().Len() > 0,
	}
	if md.Extensions().Len() > 0 {
		*fileHasExt = true
	}
	byNumber := make(map[protoreflect.FieldNumber]*FieldSpec)
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fs := fieldSpec(fields.Get(i))
		byNumber[fields.Get(i).Number()] = fs
		m.Fields = append(m.Fields, fs)
	}
	oneofs := md.Oneofs()
	for i := 0; i < oneofs.Len(); i++ {
		od := oneofs.Get(i)
		if od.IsSynthetic() {
			continue
		}
		o := &OneofSpec{Name: string(od.Name())}
		members := od.Fields()
		for j := 0; j < members.Len(); j++ {
			o.Fields = append(o.Fields, byNumber[members.Get(j).Number()])
		}
		m.Oneofs = append(m.Oneofs, o)
	}
	nested := md.Messages()
	for i := 0; i < nested.Len(); i++ {
		nd := nested.Get(i)
		if nd.IsMapEntry() {
			continue
		}
		m.Nested = append(m.Nested, messageSpec(nd, fileHasExt))
	}
	return m
}

func fieldSpec(fd protoreflect.FieldDescriptor) *FieldSpec {
	f := &FieldSpec{
		Name:     string(fd.Name()),
		FullName: string(fd.FullName()),
		Number:   fd.Number(),
		Type:     fd.Kind(),
		Required: fd.Cardinality() == protoreflect.Required,
	}
	if md := fd.Message(); md != nil && !fd.IsMap() {
		f.MessageType = string(md.FullName())
	}
	switch {
	case fd.IsMap():
		f.Kind = KindMap
		f.MapKey = fieldSpec(fd.MapKey())
		f.MapValue = fieldSpec(fd.MapValue())
		f.MessageType = f.MapValue.MessageType
	case fd.IsList() && isMessageKind(fd.Kind()):
		f.Kind = KindRepeatedMessage
	case fd.IsList():
		f.Kind = KindRepeatedScalar
		f.Packable = IsPackable(fd.Kind())
		f.Packed = fd.IsPacked()
	case fd.ContainingOneof() != nil && !fd.ContainingOneof().IsSynthetic():
		f.Kind = KindOneofMember
	case isMessageKind(fd.Kind()):
		f.Kind = KindMessage
	case fd.Kind() == protoreflect.EnumKind:
		f.Kind = KindEnum
		f.ImplicitPresence = !fd.HasPresence()
	default:
		f.Kind = KindScalar
		f.ImplicitPresence = !fd.HasPresence()
	}
	return f
}

// IsPackable reports whether repeated values of kind k may use the packed
// length-delimited encoding.
func IsPackable(k protoreflect.Kind) bool {
	switch k {
	case protoreflect.StringKind, protoreflect.BytesKind,
		protoreflect.MessageKind, protoreflect.GroupKind:
		return false
	}
	return k.IsValid()
}
