package runtime

import (
	"github.com/go-faster/errors"
	"github.com/yaroher/protoc-gen-go-plan/ir"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrUnknownMessage is returned for message names without a plan.
var ErrUnknownMessage = errors.New("unknown message")

// Registry resolves message plans by full name and owns the canonical
// default instance of each message.
type Registry struct {
	plans    map[string]*ir.MessagePlan
	defaults map[string]*Message
}

func NewRegistry(plans ...*ir.MessagePlan) *Registry {
	r := &Registry{
		plans:    make(map[string]*ir.MessagePlan, len(plans)),
		defaults: make(map[string]*Message, len(plans)),
	}
	for _, p := range plans {
		r.plans[p.FullName] = p
	}
	for _, p := range plans {
		d := r.newMessage(p)
		d.isDefault = true
		r.defaults[p.FullName] = d
	}
	return r
}

// NewRegistryFromFiles registers every message of the given file plans.
func NewRegistryFromFiles(files ...*ir.FilePlan) *Registry {
	var plans []*ir.MessagePlan
	for _, f := range files {
		plans = append(plans, f.Messages...)
	}
	return NewRegistry(plans...)
}

func (r *Registry) Plan(name string) (*ir.MessagePlan, bool) {
	p, ok := r.plans[name]
	return p, ok
}

// New returns an empty builder for the named message.
func (r *Registry) New(name string) (*Message, error) {
	p, ok := r.plans[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownMessage, name)
	}
	return r.newMessage(p), nil
}

// Default returns the shared, immutable default instance, or nil.
func (r *Registry) Default(name string) *Message {
	return r.defaults[name]
}

func (r *Registry) newMessage(p *ir.MessagePlan) *Message {
	return &Message{
		reg:         r,
		plan:        p,
		builderBits: newPresence(p.Bits.BuilderWords),
		messageBits: newPresence(p.Bits.MessageWords),
		values:      make(map[protowire.Number]any),
		lists:       make(map[protowire.Number][]any),
		maps:        make(map[protowire.Number]map[any]any),
		extensions:  make(map[protowire.Number]any),
		cases:       make([]int32, len(p.Oneofs)),
		slots:       make([]any, len(p.Oneofs)),
	}
}
