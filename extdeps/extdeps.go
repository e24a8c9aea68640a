// Package extdeps computes, for every file, the minimal set of transitive
// dependencies that declare extensions. A generated file only needs to wire
// the extension registries of those files; every other extension-bearing
// file is already reachable through one of them.
package extdeps

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/yaroher/protoc-gen-go-plan/logger"
	"github.com/yaroher/protoc-gen-go-plan/schema"
	"go.uber.org/zap"
)

// FileID indexes a file inside a Closure.
type FileID int

type Entry struct {
	// HasExtensions is the file's own flag, not its dependencies'.
	HasExtensions bool
	// MinDeps and CoveredDeps are sorted by file path.
	MinDeps     []FileID
	CoveredDeps []FileID
}

// Closure holds one Entry per file. It is fully computed by New and never
// modified afterwards, so concurrent readers need no locking.
type Closure struct {
	files   []*schema.FileSpec
	ids     map[string]FileID
	deps    [][]FileID
	entries []Entry
}

type idSet map[FileID]struct{}

func (s idSet) addAll(ids []FileID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// New computes the closure of every file in s.
func New(s *schema.Schema) *Closure {
	files := s.Files()
	c := &Closure{
		files:   files,
		ids:     make(map[string]FileID, len(files)),
		deps:    make([][]FileID, len(files)),
		entries: make([]Entry, len(files)),
	}
	for i, f := range files {
		c.ids[f.Path] = FileID(i)
	}
	for i, f := range files {
		for _, imp := range f.Imports() {
			c.deps[i] = append(c.deps[i], c.ids[imp.Path])
		}
	}
	c.computeAll()
	logger.Logger.Named("extdeps").Debug("closure computed", zap.Int("files", len(files)))
	return c
}

const (
	unvisited = iota
	active
	done
)

type frame struct {
	id   FileID
	next int
}

// computeAll visits the import graph in post-order with an explicit stack so
// deep import chains cannot exhaust the goroutine stack.
func (c *Closure) computeAll() {
	state := make([]uint8, len(c.files))
	for root := range c.files {
		if state[root] != unvisited {
			continue
		}
		state[root] = active
		stack := []frame{{id: FileID(root)}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if deps := c.deps[top.id]; top.next < len(deps) {
				d := deps[top.next]
				top.next++
				switch state[d] {
				case unvisited:
					state[d] = active
					stack = append(stack, frame{id: d})
				case active:
					panic(fmt.Sprintf("extdeps: import cycle through %s", c.files[d].Path))
				}
				continue
			}
			c.entries[top.id] = c.compute(top.id)
			state[top.id] = done
			stack = stack[:len(stack)-1]
		}
	}
}

func (c *Closure) compute(id FileID) Entry {
	minDeps := idSet{}
	covered := idSet{}
	toPrune := idSet{}
	deps := c.deps[id]
	for _, d := range deps {
		dep := &c.entries[d]
		covered.addAll(dep.CoveredDeps)
		toPrune.addAll(dep.CoveredDeps)
		if dep.HasExtensions {
			minDeps[d] = struct{}{}
			toPrune.addAll(dep.MinDeps)
			covered.addAll(dep.MinDeps)
		} else {
			minDeps.addAll(dep.MinDeps)
		}
	}
	if len(toPrune) > 0 && len(deps) > 1 {
		for pruned := range toPrune {
			delete(minDeps, pruned)
		}
	}
	return Entry{
		HasExtensions: c.files[id].HasExtensions,
		MinDeps:       c.sorted(minDeps),
		CoveredDeps:   c.sorted(covered),
	}
}

func (c *Closure) sorted(s idSet) []FileID {
	ids := lo.Keys(map[FileID]struct{}(s))
	slices.SortFunc(ids, func(a, b FileID) int {
		pa, pb := c.files[a].Path, c.files[b].Path
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		}
		return 0
	})
	return ids
}

func (c *Closure) ID(path string) (FileID, bool) {
	id, ok := c.ids[path]
	return id, ok
}

func (c *Closure) Path(id FileID) string {
	return c.files[id].Path
}

func (c *Closure) Entry(id FileID) *Entry {
	return &c.entries[id]
}

func (c *Closure) lookup(path string) (*Entry, error) {
	id, ok := c.ids[path]
	if !ok {
		return nil, fmt.Errorf("extdeps: unknown file %q", path)
	}
	return &c.entries[id], nil
}

func (c *Closure) paths(ids []FileID) []string {
	return lo.Map(ids, func(id FileID, _ int) string { return c.files[id].Path })
}

// MinDeps returns the minimal extension-bearing dependencies of path.
func (c *Closure) MinDeps(path string) ([]string, error) {
	e, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	return c.paths(e.MinDeps), nil
}

// CoveredDeps returns the extension-bearing files reachable through MinDeps.
func (c *Closure) CoveredDeps(path string) ([]string, error) {
	e, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	return c.paths(e.CoveredDeps), nil
}

// Reachable returns every extension-bearing transitive dependency of path:
// the min set together with everything it covers.
func (c *Closure) Reachable(path string) ([]string, error) {
	e, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	all := idSet{}
	all.addAll(e.MinDeps)
	all.addAll(e.CoveredDeps)
	return c.paths(c.sorted(all)), nil
}

// ExtraImports returns the min deps of path that it does not import
// directly. Generated code must import them to reach their registries.
func (c *Closure) ExtraImports(path string) ([]string, error) {
	e, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	f := c.files[c.ids[path]]
	var out []string
	for _, id := range e.MinDeps {
		if p := c.files[id].Path; !f.IsDirectDependency(p) {
			out = append(out, p)
		}
	}
	return out, nil
}
