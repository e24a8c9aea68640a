package runtime

import (
	"github.com/go-faster/errors"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"google.golang.org/protobuf/encoding/protowire"
)

// Merge merges src into m by running the message's merge plan.
func (m *Message) Merge(src *Message) error {
	m.checkMutable()
	if src.plan != m.plan {
		return errors.Errorf("merge %s into %s", src.plan.FullName, m.plan.FullName)
	}
	plan := m.plan.Merge
	if plan.SkipIfDefault && src.isDefault {
		return nil
	}
	for i := range plan.Actions {
		if err := m.applyMerge(&plan.Actions[i], src); err != nil {
			return err
		}
	}
	return nil
}

func (m *Message) applyMerge(a *ir.MergeAction, src *Message) error {
	num := a.Field.Number
	switch a.Kind {
	case ir.MergeOverwrite:
		if !src.assigned(a.Presence, num) {
			return nil
		}
		m.values[num] = src.values[num]
		m.setBit(a.Presence)
	case ir.MergeMessage:
		if !src.assigned(a.Presence, num) {
			return nil
		}
		s, ok := src.values[num].(*Message)
		if !ok {
			return nil
		}
		if err := m.mergeMessageValue(m.values, num, s); err != nil {
			return errors.Wrapf(err, "field %s", a.Field)
		}
		m.setBit(a.Presence)
	case ir.MergeAppend:
		for _, v := range src.lists[num] {
			m.lists[num] = append(m.lists[num], cloneValue(v, false))
		}
	case ir.MergePutAll:
		for k, v := range src.maps[num] {
			m.putEntry(num, k, cloneValue(v, false))
		}
	case ir.MergeOneof:
		return m.mergeOneof(a.Oneof, src)
	case ir.MergeExtensions:
		for n, v := range src.extensions {
			s, ok := v.(*Message)
			if !ok {
				m.extensions[n] = v
				continue
			}
			if err := m.mergeMessageValue(m.extensions, n, s); err != nil {
				return errors.Wrapf(err, "extension %d", n)
			}
		}
	case ir.MergeUnknown:
		m.unknown = append(m.unknown, src.unknown...)
	default:
		return errors.Errorf("unsupported merge kind %s", a.Kind)
	}
	return nil
}

// mergeMessageValue deep-merges s into dst[num], or adopts a copy of s
// when dst holds no message there.
func (m *Message) mergeMessageValue(dst map[protowire.Number]any, num protowire.Number, s *Message) error {
	d, ok := dst[num].(*Message)
	if !ok || d == nil || d.plan != s.plan {
		dst[num] = s.clone(false)
		return nil
	}
	d = d.owned()
	dst[num] = d
	return d.Merge(s)
}

func (m *Message) mergeOneof(o *ir.OneofMerge, src *Message) error {
	active := src.cases[o.Oneof]
	if active == ir.OneofNotSet {
		return nil
	}
	for _, c := range o.Cases {
		if c.Case != active {
			continue
		}
		switch c.Kind {
		case ir.MergeMessage:
			s, _ := src.slots[o.Oneof].(*Message)
			if s == nil {
				return nil
			}
			if d, ok := m.slots[o.Oneof].(*Message); ok && m.cases[o.Oneof] == active {
				d = d.owned()
				m.slots[o.Oneof] = d
				return d.Merge(s)
			}
			m.cases[o.Oneof] = active
			m.slots[o.Oneof] = s.clone(false)
		default:
			m.cases[o.Oneof] = active
			m.slots[o.Oneof] = src.slots[o.Oneof]
		}
		return nil
	}
	return errors.Errorf("oneof %s has no case %d", o.Name, active)
}

// assigned reports whether a field was set on the builder: its bit when it
// has one, otherwise a non-zero value.
func (m *Message) assigned(ref *ir.BitRef, num protowire.Number) bool {
	if ref != nil {
		return m.builderBits.has(*ref)
	}
	v, ok := m.values[num]
	return ok && !isZero(v)
}

func (m *Message) setBit(ref *ir.BitRef) {
	if ref != nil {
		m.builderBits.set(*ref)
	}
}
