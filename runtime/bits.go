// Package runtime executes plans against dynamic messages. It is the
// reference behavior emitters must reproduce: merge order, the decode loop
// and its unknown-field policy, builder to message presence transfer and
// required-field validation.
//
// Scalar values are kept in their wire representation: varints and 64-bit
// fixed values as uint64, 32-bit fixed values as uint32, length-delimited
// values as string.
package runtime

import "github.com/yaroher/protoc-gen-go-plan/ir"

// presence is a set of 32-bit presence words addressed by ir.BitRef.
type presence []uint32

func newPresence(words int) presence {
	if words == 0 {
		return nil
	}
	return make(presence, words)
}

func (p presence) has(r ir.BitRef) bool {
	return r.Word < len(p) && p[r.Word]&r.Mask != 0
}

func (p presence) set(r ir.BitRef) {
	p[r.Word] |= r.Mask
}

func (p presence) clear(r ir.BitRef) {
	p[r.Word] &^= r.Mask
}

func (p presence) clone() presence {
	if p == nil {
		return nil
	}
	out := make(presence, len(p))
	copy(out, p)
	return out
}
