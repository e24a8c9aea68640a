package runtime

import (
	"fmt"
	"sort"

	"github.com/yaroher/protoc-gen-go-plan/ir"
	"google.golang.org/protobuf/encoding/protowire"
)

// NotInitializedError names the first required field found missing.
type NotInitializedError struct {
	Message string
	Field   string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("message %s is missing required field %s", e.Message, e.Field)
}

func (m *Message) IsInitialized() bool {
	return m.CheckInitialized() == nil
}

// CheckInitialized evaluates the message's validation tree. Builders are
// checked against builder bits, built messages against message bits.
func (m *Message) CheckInitialized() error {
	return m.checkInitialized(m.plan.FullName, "")
}

func (m *Message) checkInitialized(root, path string) error {
	for _, step := range m.plan.Validation.Steps {
		name := path + step.Field.Name
		switch step.Kind {
		case ir.CheckPresent:
			if !m.Has(step.Field.Number) {
				return &NotInitializedError{Message: root, Field: name}
			}
		case ir.CheckMessage:
			sub, _ := m.values[step.Field.Number].(*Message)
			if sub == nil {
				sub = m.reg.Default(step.MessageType)
			}
			if err := m.checkNested(root, name, sub); err != nil {
				return err
			}
		case ir.CheckMessageIfPresent:
			if !m.Has(step.Field.Number) {
				continue
			}
			sub, _ := m.values[step.Field.Number].(*Message)
			if err := m.checkNested(root, name, sub); err != nil {
				return err
			}
		case ir.CheckOneofMessage:
			if m.cases[step.Oneof] != step.Case {
				continue
			}
			sub, _ := m.slots[step.Oneof].(*Message)
			if err := m.checkNested(root, name, sub); err != nil {
				return err
			}
		case ir.CheckEachMessage:
			for i, v := range m.lists[step.Field.Number] {
				sub, _ := v.(*Message)
				if err := m.checkNested(root, fmt.Sprintf("%s[%d]", name, i), sub); err != nil {
					return err
				}
			}
		case ir.CheckMapValues:
			entries := m.maps[step.Field.Number]
			keys := make([]string, 0, len(entries))
			byKey := make(map[string]any, len(entries))
			for k, v := range entries {
				ks := fmt.Sprint(k)
				keys = append(keys, ks)
				byKey[ks] = v
			}
			sort.Strings(keys)
			for _, k := range keys {
				sub, _ := byKey[k].(*Message)
				if err := m.checkNested(root, fmt.Sprintf("%s[%s]", name, k), sub); err != nil {
					return err
				}
			}
		case ir.CheckExtensions:
			nums := make([]int, 0, len(m.extensions))
			for n := range m.extensions {
				nums = append(nums, int(n))
			}
			sort.Ints(nums)
			for _, n := range nums {
				sub, ok := m.extensions[protowire.Number(n)].(*Message)
				if !ok {
					continue
				}
				if err := m.checkNested(root, fmt.Sprintf("%s(%d)", path, n), sub); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *Message) checkNested(root, path string, sub *Message) error {
	if sub == nil {
		return nil
	}
	return sub.checkInitialized(root, path+".")
}
