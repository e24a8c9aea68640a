package runtime

import (
	"fmt"
	"math"

	"github.com/go-faster/errors"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// DecodeError reports malformed input for a known field or a broken tag.
// Unknown fields are never errors.
type DecodeError struct {
	Field  protowire.Number
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field == 0 {
		return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("decode field %d at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var (
	errInvalidFieldNumber = errors.New("invalid field number")
	errUnexpectedEndGroup = errors.New("unexpected end group")
)

// Unmarshal merges the encoding in b into m.
func (m *Message) Unmarshal(b []byte) error {
	m.checkMutable()
	return m.decodeDelimited(b, 0)
}

// decodeDelimited decodes a payload whose extent is known up front, so an
// end-group marker can only be stray. Group bodies qualify too:
// protowire.ConsumeGroup has already matched and stripped their marker.
func (m *Message) decodeDelimited(b []byte, base int) error {
	end, err := m.decode(b, base)
	if err != nil {
		return err
	}
	if end >= 0 {
		return &DecodeError{Offset: end, Err: errUnexpectedEndGroup}
	}
	return nil
}

// decode is the dispatch loop. A zero tag or the end of input ends it.
// Unrecognized tags go to the unknown-field handler. An end-group marker
// stops the loop and its absolute offset is returned, -1 otherwise.
func (m *Message) decode(b []byte, base int) (int, error) {
	table := m.plan.Dispatch
	pos := 0
	for pos < len(b) {
		raw, n := protowire.ConsumeVarint(b[pos:])
		if n < 0 {
			return -1, &DecodeError{Offset: base + pos, Err: protowire.ParseError(n)}
		}
		if raw == uint64(ir.EndTag) {
			return -1, nil
		}
		num, typ := protowire.DecodeTag(raw)
		if num < protowire.MinValidNumber {
			return -1, &DecodeError{Offset: base + pos, Err: errInvalidFieldNumber}
		}
		var entry *ir.DispatchEntry
		if raw <= math.MaxUint32 {
			entry, _ = table.Lookup(uint32(raw))
		}
		if entry == nil {
			if typ == protowire.EndGroupType {
				return base + pos, nil
			}
			l, err := m.unknownField(num, typ, b[pos:], n, base+pos)
			if err != nil {
				return -1, err
			}
			pos += l
			continue
		}
		l, err := m.decodeField(entry, b[pos+n:], base+pos+n)
		if err != nil {
			return -1, err
		}
		pos += n + l
	}
	return -1, nil
}

// unknownField preserves an unrecognized field as raw bytes.
func (m *Message) unknownField(num protowire.Number, typ protowire.Type, b []byte, tagLen, offset int) (int, error) {
	l := protowire.ConsumeFieldValue(num, typ, b[tagLen:])
	if l < 0 {
		return 0, &DecodeError{Field: num, Offset: offset, Err: protowire.ParseError(l)}
	}
	m.unknown = append(m.unknown, b[:tagLen+l]...)
	return tagLen + l, nil
}

func (m *Message) decodeField(e *ir.DispatchEntry, b []byte, offset int) (int, error) {
	num := e.Field.Number
	fail := func(err error) (int, error) {
		return 0, &DecodeError{Field: num, Offset: offset, Err: err}
	}

	var (
		payload []byte
		scalar  any
		n       int
		// start is the absolute offset of the first payload byte.
		start = offset
	)
	switch e.WireType {
	case protowire.BytesType:
		payload, n = protowire.ConsumeBytes(b)
		if n < 0 {
			return fail(protowire.ParseError(n))
		}
		scalar = string(payload)
		start = offset + n - len(payload)
	case protowire.StartGroupType:
		payload, n = protowire.ConsumeGroup(num, b)
		if n < 0 {
			return fail(protowire.ParseError(n))
		}
	default:
		var err error
		if scalar, n, err = consumeScalar(e.WireType, b); err != nil {
			return fail(err)
		}
	}

	switch e.Op {
	case ir.OpSetScalar:
		m.values[num] = scalar
		m.markPresent(e)
	case ir.OpAppendScalar:
		m.lists[num] = append(m.lists[num], scalar)
	case ir.OpAppendPacked:
		for len(payload) > 0 {
			v, k, err := consumeScalar(e.ElemType, payload)
			if err != nil {
				return fail(err)
			}
			m.lists[num] = append(m.lists[num], v)
			payload = payload[k:]
		}
	case ir.OpMergeMessage:
		sub, err := m.mutableMessage(e)
		if err != nil {
			return fail(err)
		}
		if err := sub.decodeDelimited(payload, start); err != nil {
			return 0, errors.Wrapf(err, "field %s", e.Field)
		}
	case ir.OpAppendMessage:
		sub, err := m.reg.New(e.MessageType)
		if err != nil {
			return fail(err)
		}
		if err := sub.decodeDelimited(payload, start); err != nil {
			return 0, errors.Wrapf(err, "field %s", e.Field)
		}
		m.lists[num] = append(m.lists[num], sub)
	case ir.OpPutMapEntry:
		if err := m.decodeMapEntry(e, payload, start); err != nil {
			return 0, err
		}
	case ir.OpSetOneofScalar:
		m.cases[e.Oneof] = int32(num)
		m.slots[e.Oneof] = scalar
	case ir.OpMergeOneofMessage:
		var sub *Message
		if m.cases[e.Oneof] == int32(num) {
			sub, _ = m.slots[e.Oneof].(*Message)
		}
		if sub == nil {
			var err error
			if sub, err = m.reg.New(e.MessageType); err != nil {
				return fail(err)
			}
		}
		sub = sub.owned()
		if err := sub.decodeDelimited(payload, start); err != nil {
			return 0, errors.Wrapf(err, "field %s", e.Field)
		}
		m.cases[e.Oneof] = int32(num)
		m.slots[e.Oneof] = sub
	default:
		return fail(errors.Errorf("unsupported decode op %s", e.Op))
	}
	return n, nil
}

// decodeMapEntry reads one key/value entry. Key and value records with an
// unexpected wire type are skipped like unknown fields.
func (m *Message) decodeMapEntry(e *ir.DispatchEntry, b []byte, base int) error {
	num := e.Field.Number
	keyType, valueType := ir.WireType(e.KeyType), ir.WireType(e.ValueType)
	key := zeroValue(e.KeyType)
	var value any
	pos := 0
	for pos < len(b) {
		tagPos := pos
		n, typ, l := protowire.ConsumeTag(b[pos:])
		if l < 0 {
			return &DecodeError{Field: num, Offset: base + pos, Err: protowire.ParseError(l)}
		}
		pos += l
		switch {
		case n == 2 && typ == valueType && e.MessageType != "":
			v, k := protowire.ConsumeBytes(b[pos:])
			if k < 0 {
				return &DecodeError{Field: num, Offset: base + pos, Err: protowire.ParseError(k)}
			}
			sub, err := m.reg.New(e.MessageType)
			if err != nil {
				return err
			}
			if err := sub.decodeDelimited(v, base+pos+k-len(v)); err != nil {
				return errors.Wrapf(err, "map %s value", e.Field)
			}
			value = sub
			pos += k
		case (n == 1 && typ == keyType) || (n == 2 && typ == valueType):
			v, k, err := consumeScalar(typ, b[pos:])
			if err != nil {
				return &DecodeError{Field: num, Offset: base + pos, Err: err}
			}
			if n == 1 {
				key = v
			} else {
				value = v
			}
			pos += k
		default:
			k := protowire.ConsumeFieldValue(n, typ, b[pos:])
			if k < 0 {
				return &DecodeError{Field: num, Offset: base + tagPos, Err: protowire.ParseError(k)}
			}
			pos += k
		}
	}
	if value == nil {
		if e.MessageType != "" {
			sub, err := m.reg.New(e.MessageType)
			if err != nil {
				return err
			}
			value = sub
		} else {
			value = zeroValue(e.ValueType)
		}
	}
	m.putEntry(num, key, value)
	return nil
}

func consumeScalar(typ protowire.Type, b []byte) (any, int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		return v, n, nil
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		return v, n, nil
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		return v, n, nil
	case protowire.BytesType:
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		return string(v), n, nil
	}
	return nil, 0, errors.Errorf("unexpected wire type %d", typ)
}

func zeroValue(k protoreflect.Kind) any {
	switch ir.WireType(k) {
	case protowire.Fixed32Type:
		return uint32(0)
	case protowire.BytesType:
		return ""
	default:
		return uint64(0)
	}
}
