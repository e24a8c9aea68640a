package schema

import "fmt"

// Kind is the closed set of field shapes the planners dispatch on.
type Kind int

const (
	KindScalar Kind = iota
	KindEnum
	KindMessage
	KindRepeatedScalar
	KindRepeatedMessage
	KindMap
	KindOneofMember
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{
	KindScalar,
	KindEnum,
	KindMessage,
	KindRepeatedScalar,
	KindRepeatedMessage,
	KindMap,
	KindOneofMember,
}

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindEnum:
		return "enum"
	case KindMessage:
		return "message"
	case KindRepeatedScalar:
		return "repeated_scalar"
	case KindRepeatedMessage:
		return "repeated_message"
	case KindMap:
		return "map"
	case KindOneofMember:
		return "oneof_member"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindScalar && k <= KindOneofMember
}

// IsRepeated reports whether the field holds a collection.
func (k Kind) IsRepeated() bool {
	return k == KindRepeatedScalar || k == KindRepeatedMessage || k == KindMap
}
