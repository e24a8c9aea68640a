package schema

import "fmt"

// ErrorKind classifies schema errors.
type ErrorKind int

const (
	// SchemaInvariantViolation means the input schema breaks a structural rule
	// the planners rely on. It indicates a bug upstream.
	SchemaInvariantViolation ErrorKind = iota
	// UnresolvedReference means a named message type or file is missing.
	UnresolvedReference
)

func (k ErrorKind) String() string {
	switch k {
	case SchemaInvariantViolation:
		return "schema invariant violation"
	case UnresolvedReference:
		return "unresolved reference"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

type Error struct {
	code    uint32
	kind    ErrorKind
	subject string
	message string
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	return fmt.Sprintf("E%d %s: %s: %s", err.code, err.kind, err.subject, err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Kind() ErrorKind {
	return err.kind
}

// Subject is the full name of the file, message or field the error is about.
func (err *Error) Subject() string {
	return err.subject
}

func (err *Error) Message() string {
	return err.message
}

func errDuplicateFieldNumber(msg string, num int32, first, second string) error {
	return &Error{
		code:    1000,
		kind:    SchemaInvariantViolation,
		subject: msg,
		message: fmt.Sprintf("field number %d used by both %q and %q", num, first, second),
	}
}

func errOneofMemberKind(field string, kind Kind) error {
	return &Error{
		code:    1001,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: fmt.Sprintf("oneof member has kind %s", kind),
	}
}

func errOneofMemberOutsideOneof(field string) error {
	return &Error{
		code:    1002,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: "field has kind oneof_member but belongs to no oneof",
	}
}

func errOneofMemberForeign(field, oneof string) error {
	return &Error{
		code:    1003,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: fmt.Sprintf("oneof %q lists a field that is not declared in the same message", oneof),
	}
}

func errOneofMemberTwice(field, first, second string) error {
	return &Error{
		code:    1004,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: fmt.Sprintf("field is a member of both oneof %q and oneof %q", first, second),
	}
}

func errPackableNotRepeatedScalar(field string, kind Kind) error {
	return &Error{
		code:    1005,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: fmt.Sprintf("packable field has kind %s", kind),
	}
}

func errMapEntryMissing(field string) error {
	return &Error{
		code:    1006,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: "map field has no key or value entry",
	}
}

func errInvalidKind(field string, kind Kind) error {
	return &Error{
		code:    1007,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: fmt.Sprintf("invalid field kind %s", kind),
	}
}

func errImportCycle(path []string) error {
	return &Error{
		code:    1008,
		kind:    SchemaInvariantViolation,
		subject: path[0],
		message: fmt.Sprintf("import cycle: %v", path),
	}
}

func errInvalidFieldNumber(field string, num int32) error {
	return &Error{
		code:    1009,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: fmt.Sprintf("field number %d out of range", num),
	}
}

func errDuplicateName(kind, name string) error {
	return &Error{
		code:    1010,
		kind:    SchemaInvariantViolation,
		subject: name,
		message: fmt.Sprintf("%s declared twice", kind),
	}
}

func errUnresolvedMessage(field, typeName string) error {
	return &Error{
		code:    2000,
		kind:    UnresolvedReference,
		subject: field,
		message: fmt.Sprintf("message type %q not found", typeName),
	}
}

func errUnresolvedImport(file, dep string) error {
	return &Error{
		code:    2001,
		kind:    UnresolvedReference,
		subject: file,
		message: fmt.Sprintf("imported file %q not found", dep),
	}
}

func errMissingMessageType(field string) error {
	return &Error{
		code:    2002,
		kind:    UnresolvedReference,
		subject: field,
		message: "message-typed field names no message type",
	}
}

func errMissingElementType(field string, kind Kind) error {
	return &Error{
		code:    1011,
		kind:    SchemaInvariantViolation,
		subject: field,
		message: fmt.Sprintf("%s field has no element type", kind),
	}
}
