// Package schema is the read-only descriptor view consumed by the planners.
//
// Specs are plain structs so they can be built by hand in tests or converted
// from protoreflect descriptors. Build links back-references, checks the
// structural rules the planners depend on and precomputes the
// required-field reachability of every message.
package schema

import (
	"strings"

	"go.uber.org/multierr"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type FieldSpec struct {
	Name     string
	FullName string
	Number   protowire.Number
	Kind     Kind
	// Type is the element kind and decides the wire type.
	Type protoreflect.Kind
	// Packable is set for repeated numeric, enum and bool fields.
	Packable bool
	// Packed is the declared encoding option. Decoders accept both forms.
	Packed           bool
	Required         bool
	ImplicitPresence bool
	// MessageType is the full name of the referenced message. For maps it is
	// the value message, if the value is a message.
	MessageType string
	MapKey      *FieldSpec
	MapValue    *FieldSpec
	// Index is the declaration position inside the message.
	Index int

	Oneof   *OneofSpec
	Message *MessageSpec

	target *MessageSpec
}

// IsMessageTyped reports whether the field refers to another message,
// directly, as repeated elements, as a oneof member or as map values.
func (f *FieldSpec) IsMessageTyped() bool {
	switch f.Kind {
	case KindMessage, KindRepeatedMessage:
		return true
	case KindOneofMember:
		return isMessageKind(f.Type)
	case KindMap:
		return f.MapValue != nil && f.MapValue.Kind == KindMessage
	}
	return false
}

// Target returns the resolved message type of a message-typed field.
func (f *FieldSpec) Target() *MessageSpec {
	return f.target
}

type OneofSpec struct {
	Name   string
	Fields []*FieldSpec
	Index  int

	Message *MessageSpec
}

type MessageSpec struct {
	FullName           string
	Name               string
	Fields             []*FieldSpec
	Oneofs             []*OneofSpec
	Nested             []*MessageSpec
	HasExtensionRanges bool

	File   *FileSpec
	Parent *MessageSpec

	mayHaveRequired bool
	byNumber        map[protowire.Number]*FieldSpec
}

// MayHaveRequiredFields reports whether an instance of the message, or any
// message reachable from it, can fail validation because of a missing
// required field. Extension ranges count as "may", since extensions are
// open-world.
func (m *MessageSpec) MayHaveRequiredFields() bool {
	return m.mayHaveRequired
}

func (m *MessageSpec) FieldByNumber(n protowire.Number) *FieldSpec {
	return m.byNumber[n]
}

// RegularFields returns declared fields that are not oneof members.
func (m *MessageSpec) RegularFields() []*FieldSpec {
	out := make([]*FieldSpec, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.Oneof == nil {
			out = append(out, f)
		}
	}
	return out
}

type FileSpec struct {
	Path    string
	Package string
	// Deps are the direct imports in declaration order.
	Deps     []string
	Messages []*MessageSpec
	// HasExtensions is set when the file declares at least one extension,
	// at top level or nested in a message.
	HasExtensions bool

	imports []*FileSpec
}

// Imports returns the resolved direct dependencies.
func (f *FileSpec) Imports() []*FileSpec {
	return f.imports
}

// IsDirectDependency reports whether path is one of the file's own imports.
func (f *FileSpec) IsDirectDependency(path string) bool {
	for _, d := range f.Deps {
		if d == path {
			return true
		}
	}
	return false
}

type Schema struct {
	files    []*FileSpec
	byPath   map[string]*FileSpec
	messages map[string]*MessageSpec
	order    []*MessageSpec
}

func (s *Schema) Files() []*FileSpec {
	return s.files
}

func (s *Schema) File(path string) *FileSpec {
	return s.byPath[path]
}

func (s *Schema) Message(fullName string) *MessageSpec {
	return s.messages[normalizeName(fullName)]
}

// Messages returns every message, files in input order, each file flattened
// in pre-order.
func (s *Schema) Messages() []*MessageSpec {
	return s.order
}

// FileMessages flattens the messages declared in f in pre-order.
func FileMessages(f *FileSpec) []*MessageSpec {
	var out []*MessageSpec
	var walk func(ms []*MessageSpec)
	walk = func(ms []*MessageSpec) {
		for _, m := range ms {
			out = append(out, m)
			walk(m.Nested)
		}
	}
	walk(f.Messages)
	return out
}

// Build links the files into a Schema. All violations found are returned
// together; on error the Schema is nil.
func Build(files ...*FileSpec) (*Schema, error) {
	s := &Schema{
		files:    files,
		byPath:   make(map[string]*FileSpec, len(files)),
		messages: make(map[string]*MessageSpec),
	}
	var errs error
	for _, f := range files {
		if _, ok := s.byPath[f.Path]; ok {
			errs = multierr.Append(errs, errDuplicateName("file", f.Path))
			continue
		}
		s.byPath[f.Path] = f
	}
	for _, f := range files {
		errs = multierr.Append(errs, s.indexMessages(f, nil, f.Messages))
	}
	for _, m := range s.order {
		errs = multierr.Append(errs, checkMessage(m))
	}
	if errs != nil {
		return nil, errs
	}
	for _, m := range s.order {
		errs = multierr.Append(errs, s.resolveFields(m))
	}
	for _, f := range files {
		errs = multierr.Append(errs, s.resolveImports(f))
	}
	if errs != nil {
		return nil, errs
	}
	if err := checkImportCycles(files); err != nil {
		return nil, err
	}
	computeMayHaveRequired(s.order)
	return s, nil
}

func (s *Schema) indexMessages(f *FileSpec, parent *MessageSpec, ms []*MessageSpec) error {
	var errs error
	for _, m := range ms {
		m.FullName = normalizeName(m.FullName)
		if m.Name == "" {
			m.Name = m.FullName[strings.LastIndex(m.FullName, ".")+1:]
		}
		if _, ok := s.messages[m.FullName]; ok {
			errs = multierr.Append(errs, errDuplicateName("message", m.FullName))
			continue
		}
		m.File = f
		m.Parent = parent
		s.messages[m.FullName] = m
		s.order = append(s.order, m)
		errs = multierr.Append(errs, s.indexMessages(f, m, m.Nested))
	}
	return errs
}

func checkMessage(m *MessageSpec) error {
	var errs error
	m.byNumber = make(map[protowire.Number]*FieldSpec, len(m.Fields))
	declared := make(map[*FieldSpec]bool, len(m.Fields))
	for i, f := range m.Fields {
		f.Index = i
		f.Message = m
		f.Oneof = nil
		if f.FullName == "" {
			f.FullName = m.FullName + "." + f.Name
		}
		declared[f] = true
		if !f.Number.IsValid() {
			errs = multierr.Append(errs, errInvalidFieldNumber(f.FullName, int32(f.Number)))
		}
		if prev, ok := m.byNumber[f.Number]; ok {
			errs = multierr.Append(errs, errDuplicateFieldNumber(m.FullName, int32(f.Number), prev.Name, f.Name))
		} else {
			m.byNumber[f.Number] = f
		}
		errs = multierr.Append(errs, checkFieldShape(f))
	}
	for i, o := range m.Oneofs {
		o.Index = i
		o.Message = m
		for _, f := range o.Fields {
			if !declared[f] {
				errs = multierr.Append(errs, errOneofMemberForeign(f.FullName, o.Name))
				continue
			}
			if f.Oneof != nil {
				errs = multierr.Append(errs, errOneofMemberTwice(f.FullName, f.Oneof.Name, o.Name))
				continue
			}
			if f.Kind != KindOneofMember {
				errs = multierr.Append(errs, errOneofMemberKind(f.FullName, f.Kind))
				continue
			}
			f.Oneof = o
		}
	}
	for _, f := range m.Fields {
		if f.Kind == KindOneofMember && f.Oneof == nil {
			errs = multierr.Append(errs, errOneofMemberOutsideOneof(f.FullName))
		}
	}
	return errs
}

func checkFieldShape(f *FieldSpec) error {
	if !f.Kind.Valid() {
		return errInvalidKind(f.FullName, f.Kind)
	}
	if !defaultType(f) {
		return errMissingElementType(f.FullName, f.Kind)
	}
	if f.Packable && f.Kind != KindRepeatedScalar {
		return errPackableNotRepeatedScalar(f.FullName, f.Kind)
	}
	if f.Kind == KindMap {
		if f.MapKey == nil || f.MapValue == nil {
			return errMapEntryMissing(f.FullName)
		}
		if !defaultType(f.MapKey) || !defaultType(f.MapValue) {
			return errMissingElementType(f.FullName, f.Kind)
		}
		if f.MessageType == "" && f.MapValue.Kind == KindMessage {
			f.MessageType = f.MapValue.MessageType
		}
	}
	if f.IsMessageTyped() && f.MessageType == "" {
		return errMissingMessageType(f.FullName)
	}
	return nil
}

func (s *Schema) resolveFields(m *MessageSpec) error {
	var errs error
	for _, f := range m.Fields {
		if !f.IsMessageTyped() {
			continue
		}
		f.MessageType = normalizeName(f.MessageType)
		t, ok := s.messages[f.MessageType]
		if !ok {
			errs = multierr.Append(errs, errUnresolvedMessage(f.FullName, f.MessageType))
			continue
		}
		f.target = t
	}
	return errs
}

func (s *Schema) resolveImports(f *FileSpec) error {
	var errs error
	f.imports = f.imports[:0]
	for _, dep := range f.Deps {
		d, ok := s.byPath[dep]
		if !ok {
			errs = multierr.Append(errs, errUnresolvedImport(f.Path, dep))
			continue
		}
		f.imports = append(f.imports, d)
	}
	return errs
}

func checkImportCycles(files []*FileSpec) error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[*FileSpec]int, len(files))
	var stack []*FileSpec
	var visit func(f *FileSpec) error
	visit = func(f *FileSpec) error {
		switch state[f] {
		case active:
			var path []string
			for i := len(stack) - 1; i >= 0; i-- {
				path = append([]string{stack[i].Path}, path...)
				if stack[i] == f {
					break
				}
			}
			return errImportCycle(append(path, f.Path))
		case done:
			return nil
		}
		state[f] = active
		stack = append(stack, f)
		for _, d := range f.imports {
			if err := visit(d); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[f] = done
		return nil
	}
	for _, f := range files {
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

// defaultType fills in the element type of kinds that imply one. It reports
// false when the type cannot be inferred.
func defaultType(f *FieldSpec) bool {
	if f.Type != 0 {
		return true
	}
	switch f.Kind {
	case KindMessage, KindRepeatedMessage, KindMap:
		f.Type = protoreflect.MessageKind
	case KindEnum:
		f.Type = protoreflect.EnumKind
	default:
		return false
	}
	return true
}

func isMessageKind(k protoreflect.Kind) bool {
	return k == protoreflect.MessageKind || k == protoreflect.GroupKind
}

func normalizeName(name string) string {
	return strings.TrimPrefix(name, ".")
}
