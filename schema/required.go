package schema

// computeMayHaveRequired marks every message that declares a required field
// or an extension range, then walks the referrer graph backwards so each
// message that can reach a marked one through message-typed fields is marked
// as well. Each message is enqueued at most once, so cycles terminate and
// the result is exact for every member of a cycle.
func computeMayHaveRequired(msgs []*MessageSpec) {
	referrers := make(map[*MessageSpec][]*MessageSpec, len(msgs))
	var queue []*MessageSpec
	for _, m := range msgs {
		m.mayHaveRequired = false
		direct := m.HasExtensionRanges
		for _, f := range m.Fields {
			if f.Required {
				direct = true
			}
			if t := f.Target(); t != nil {
				referrers[t] = append(referrers[t], m)
			}
		}
		if direct {
			m.mayHaveRequired = true
			queue = append(queue, m)
		}
	}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		for _, r := range referrers[m] {
			if r.mayHaveRequired {
				continue
			}
			r.mayHaveRequired = true
			queue = append(queue, r)
		}
	}
}
