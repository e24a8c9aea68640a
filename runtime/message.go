package runtime

import (
	"bytes"
	"slices"

	"github.com/go-faster/errors"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"google.golang.org/protobuf/encoding/protowire"
)

// Message is a dynamic instance of a planned message. A fresh Message is a
// builder; Build turns it into an immutable message with message-side
// presence bits.
type Message struct {
	reg       *Registry
	plan      *ir.MessagePlan
	isDefault bool
	built     bool

	builderBits presence
	messageBits presence
	values      map[protowire.Number]any
	lists       map[protowire.Number][]any
	maps        map[protowire.Number]map[any]any
	cases       []int32
	slots       []any
	extensions  map[protowire.Number]any
	unknown     []byte
}

func (m *Message) FullName() string {
	return m.plan.FullName
}

func (m *Message) Plan() *ir.MessagePlan {
	return m.plan
}

// IsDefault reports whether m is the registry's canonical default instance.
func (m *Message) IsDefault() bool {
	return m.isDefault
}

func (m *Message) IsBuilt() bool {
	return m.built
}

func (m *Message) checkMutable() {
	if m.isDefault || m.built {
		panic("runtime: " + m.plan.FullName + " is immutable")
	}
}

// entry returns the natural dispatch entry of a declared field.
func (m *Message) entry(num protowire.Number) (*ir.DispatchEntry, error) {
	for i := range m.plan.Dispatch.Entries {
		e := &m.plan.Dispatch.Entries[i]
		if e.Field.Number == num && e.Mode == ir.DecodeSingle {
			return e, nil
		}
	}
	return nil, errors.Errorf("%s has no field %d", m.plan.FullName, num)
}

func (m *Message) markPresent(e *ir.DispatchEntry) {
	if e.Presence != nil {
		m.builderBits.set(*e.Presence)
	}
}

func (m *Message) checkType(e *ir.DispatchEntry, v any) (*Message, error) {
	sub, ok := v.(*Message)
	if !ok || sub == nil {
		return nil, errors.Errorf("field %s wants a %s message, got %T", e.Field, e.MessageType, v)
	}
	if sub.plan.FullName != e.MessageType {
		return nil, errors.Errorf("field %s wants a %s message, got %s", e.Field, e.MessageType, sub.plan.FullName)
	}
	return sub, nil
}

// Set assigns a singular field or a oneof member. Setting a oneof member
// replaces whichever member was active.
func (m *Message) Set(num protowire.Number, v any) error {
	m.checkMutable()
	e, err := m.entry(num)
	if err != nil {
		return err
	}
	switch e.Op {
	case ir.OpSetScalar:
		m.values[num] = v
		m.markPresent(e)
	case ir.OpMergeMessage:
		sub, err := m.checkType(e, v)
		if err != nil {
			return err
		}
		m.values[num] = sub
		m.markPresent(e)
	case ir.OpSetOneofScalar:
		m.cases[e.Oneof] = int32(num)
		m.slots[e.Oneof] = v
	case ir.OpMergeOneofMessage:
		sub, err := m.checkType(e, v)
		if err != nil {
			return err
		}
		m.cases[e.Oneof] = int32(num)
		m.slots[e.Oneof] = sub
	default:
		return errors.Errorf("field %s is not singular", e.Field)
	}
	return nil
}

// Mutable returns the nested builder of a singular message field, creating
// it when absent.
func (m *Message) Mutable(num protowire.Number) (*Message, error) {
	m.checkMutable()
	e, err := m.entry(num)
	if err != nil {
		return nil, err
	}
	if e.Op != ir.OpMergeMessage {
		return nil, errors.Errorf("field %s is not a singular message", e.Field)
	}
	return m.mutableMessage(e)
}

func (m *Message) mutableMessage(e *ir.DispatchEntry) (*Message, error) {
	num := e.Field.Number
	if sub, ok := m.values[num].(*Message); ok {
		sub = sub.owned()
		m.values[num] = sub
		m.markPresent(e)
		return sub, nil
	}
	sub, err := m.reg.New(e.MessageType)
	if err != nil {
		return nil, err
	}
	m.values[num] = sub
	m.markPresent(e)
	return sub, nil
}

// owned returns m if it can be modified, or a mutable copy.
func (m *Message) owned() *Message {
	if m.isDefault || m.built {
		return m.clone(false)
	}
	return m
}

func (m *Message) Get(num protowire.Number) (any, bool) {
	e, err := m.entry(num)
	if err != nil {
		return nil, false
	}
	if e.Oneof >= 0 {
		if m.cases[e.Oneof] != int32(num) {
			return nil, false
		}
		return m.slots[e.Oneof], true
	}
	v, ok := m.values[num]
	return v, ok
}

// Has reports field presence. Builders consult builder bits, built
// messages consult message bits, and fields without a bit are present when
// they hold a non-zero value.
func (m *Message) Has(num protowire.Number) bool {
	e, err := m.entry(num)
	if err != nil {
		return false
	}
	if e.Oneof >= 0 {
		return m.cases[e.Oneof] == int32(num)
	}
	if m.built {
		if ref, ok := m.plan.Bits.Message(num); ok {
			return m.messageBits.has(ref)
		}
	} else if ref, ok := m.plan.Bits.Builder(num); ok {
		return m.builderBits.has(ref)
	}
	v, ok := m.values[num]
	return ok && !isZero(v)
}

// Clear resets a singular field and its builder bit.
func (m *Message) Clear(num protowire.Number) error {
	m.checkMutable()
	e, err := m.entry(num)
	if err != nil {
		return err
	}
	if e.Oneof >= 0 {
		if m.cases[e.Oneof] == int32(num) {
			m.ClearOneof(e.Oneof)
		}
		return nil
	}
	delete(m.values, num)
	delete(m.lists, num)
	delete(m.maps, num)
	if e.Presence != nil {
		m.builderBits.clear(*e.Presence)
	}
	return nil
}

// Append adds an element to a repeated field.
func (m *Message) Append(num protowire.Number, v any) error {
	m.checkMutable()
	e, err := m.entry(num)
	if err != nil {
		return err
	}
	switch e.Op {
	case ir.OpAppendScalar:
	case ir.OpAppendMessage:
		if _, err := m.checkType(e, v); err != nil {
			return err
		}
	default:
		return errors.Errorf("field %s is not repeated", e.Field)
	}
	m.lists[num] = append(m.lists[num], v)
	return nil
}

func (m *Message) List(num protowire.Number) []any {
	return m.lists[num]
}

// Put stores a map entry, replacing any previous value of key.
func (m *Message) Put(num protowire.Number, key, value any) error {
	m.checkMutable()
	e, err := m.entry(num)
	if err != nil {
		return err
	}
	if e.Op != ir.OpPutMapEntry {
		return errors.Errorf("field %s is not a map", e.Field)
	}
	if e.MessageType != "" {
		if _, err := m.checkType(e, value); err != nil {
			return err
		}
	}
	m.putEntry(num, key, value)
	return nil
}

func (m *Message) putEntry(num protowire.Number, key, value any) {
	entries, ok := m.maps[num]
	if !ok {
		entries = make(map[any]any)
		m.maps[num] = entries
	}
	entries[key] = value
}

func (m *Message) Map(num protowire.Number) map[any]any {
	return m.maps[num]
}

// WhichOneof returns the active case of the oneof at index, or
// ir.OneofNotSet.
func (m *Message) WhichOneof(index int) int32 {
	return m.cases[index]
}

func (m *Message) ClearOneof(index int) {
	m.checkMutable()
	m.cases[index] = ir.OneofNotSet
	m.slots[index] = nil
}

func (m *Message) SetExtension(num protowire.Number, v any) {
	m.checkMutable()
	m.extensions[num] = v
}

func (m *Message) Extension(num protowire.Number) (any, bool) {
	v, ok := m.extensions[num]
	return v, ok
}

// Unknown returns the raw bytes of fields the decoder did not recognize.
func (m *Message) Unknown() []byte {
	return m.unknown
}

// BuildPartial copies the builder into an immutable message without
// checking required fields. Every builder bit with a message counterpart is
// transferred.
func (m *Message) BuildPartial() *Message {
	out := m.clone(true)
	out.transferBits()
	return out
}

// Build is BuildPartial followed by CheckInitialized.
func (m *Message) Build() (*Message, error) {
	out := m.BuildPartial()
	if err := out.CheckInitialized(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToBuilder returns a mutable copy.
func (m *Message) ToBuilder() *Message {
	return m.clone(false)
}

func (m *Message) transferBits() {
	for _, fb := range m.plan.Bits.Fields {
		if fb.Builder == nil || fb.Message == nil {
			continue
		}
		if m.builderBits.has(*fb.Builder) {
			m.messageBits.set(*fb.Message)
		}
	}
	m.eachNested(func(sub *Message) {
		sub.transferBits()
	})
}

func (m *Message) eachNested(fn func(*Message)) {
	visit := func(v any) {
		if sub, ok := v.(*Message); ok && sub != nil {
			fn(sub)
		}
	}
	for _, v := range m.values {
		visit(v)
	}
	for _, list := range m.lists {
		for _, v := range list {
			visit(v)
		}
	}
	for _, entries := range m.maps {
		for _, v := range entries {
			visit(v)
		}
	}
	for _, v := range m.slots {
		visit(v)
	}
	for _, v := range m.extensions {
		visit(v)
	}
}

func (m *Message) clone(built bool) *Message {
	out := &Message{
		reg:         m.reg,
		plan:        m.plan,
		built:       built,
		builderBits: m.builderBits.clone(),
		messageBits: m.messageBits.clone(),
		values:      make(map[protowire.Number]any, len(m.values)),
		lists:       make(map[protowire.Number][]any, len(m.lists)),
		maps:        make(map[protowire.Number]map[any]any, len(m.maps)),
		extensions:  make(map[protowire.Number]any, len(m.extensions)),
		cases:       slices.Clone(m.cases),
		slots:       make([]any, len(m.slots)),
		unknown:     bytes.Clone(m.unknown),
	}
	if !built {
		out.messageBits = newPresence(m.plan.Bits.MessageWords)
	}
	for k, v := range m.values {
		out.values[k] = cloneValue(v, built)
	}
	for k, list := range m.lists {
		cp := make([]any, len(list))
		for i, v := range list {
			cp[i] = cloneValue(v, built)
		}
		out.lists[k] = cp
	}
	for k, entries := range m.maps {
		cp := make(map[any]any, len(entries))
		for key, v := range entries {
			cp[key] = cloneValue(v, built)
		}
		out.maps[k] = cp
	}
	for k, v := range m.extensions {
		out.extensions[k] = cloneValue(v, built)
	}
	for i, v := range m.slots {
		out.slots[i] = cloneValue(v, built)
	}
	return out
}

func cloneValue(v any, built bool) any {
	if sub, ok := v.(*Message); ok && sub != nil {
		return sub.clone(built)
	}
	return v
}

// Equal compares field contents and builder presence. Empty and missing
// collections are equal.
func (m *Message) Equal(o *Message) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil || m.plan != o.plan {
		return false
	}
	if !slices.Equal(m.builderBits, o.builderBits) || !slices.Equal(m.cases, o.cases) {
		return false
	}
	if !bytes.Equal(m.unknown, o.unknown) {
		return false
	}
	if !equalValues(m.values, o.values) || !equalValues(m.extensions, o.extensions) {
		return false
	}
	for i := range m.slots {
		if !equalValue(m.slots[i], o.slots[i]) {
			return false
		}
	}
	if !equalCollections(m.lists, o.lists, func(a, b []any) bool {
		return slices.EqualFunc(a, b, equalValue)
	}) {
		return false
	}
	return equalCollections(m.maps, o.maps, func(a, b map[any]any) bool {
		if len(a) != len(b) {
			return false
		}
		for k, v := range a {
			w, ok := b[k]
			if !ok || !equalValue(v, w) {
				return false
			}
		}
		return true
	})
}

func equalValues(a, b map[protowire.Number]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !equalValue(v, w) {
			return false
		}
	}
	return true
}

func equalCollections[C interface{ ~[]any | ~map[any]any }](a, b map[protowire.Number]C, eq func(C, C) bool) bool {
	for k, v := range a {
		if !eq(v, b[k]) {
			return false
		}
	}
	for k, v := range b {
		if _, ok := a[k]; !ok && len(v) != 0 {
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	am, aok := a.(*Message)
	bm, bok := b.(*Message)
	if aok || bok {
		return aok && bok && am.Equal(bm)
	}
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if aok || bok {
		return aok && bok && bytes.Equal(ab, bb)
	}
	return a == b
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case uint64:
		return x == 0
	case uint32:
		return x == 0
	case int64:
		return x == 0
	case int32:
		return x == 0
	case bool:
		return !x
	case float32:
		return x == 0
	case float64:
		return x == 0
	case string:
		return x == ""
	case []byte:
		return len(x) == 0
	}
	return false
}
