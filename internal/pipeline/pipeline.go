// Package pipeline resolves chains of stages by capability: given
// what a claim starts with and what it must end up with, it searches
// the registered stage descriptors breadth-first for orderings whose
// accumulated capabilities cover the target.
package pipeline

// Key names one capability a stage requires or provides.
type Key string

// Descriptor advertises a stage to the resolver. A final stage may
// complete a chain or open one, but is never walked through in the
// middle of a search.
type Descriptor struct {
	Provides []Key
	Requires []Key
	Final    bool
}

type entry struct {
	desc Descriptor
	live bool
}

// Arena owns the registered descriptors. Entries are addressed by the
// integer index Insert returned; removal tombstones the slot so
// indices stay stable for the lifetime of the arena.
type Arena struct {
	entries []entry
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Insert registers a descriptor and returns its index.
func (a *Arena) Insert(d Descriptor) int {
	a.entries = append(a.entries, entry{desc: d, live: true})
	return len(a.entries) - 1
}

// Remove tombstones an entry. It reports whether the index was live.
func (a *Arena) Remove(index int) bool {
	if index < 0 || index >= len(a.entries) || !a.entries[index].live {
		return false
	}
	a.entries[index].live = false
	return true
}

// Get returns the descriptor at index, if live.
func (a *Arena) Get(index int) (Descriptor, bool) {
	if index < 0 || index >= len(a.entries) || !a.entries[index].live {
		return Descriptor{}, false
	}
	return a.entries[index].desc, true
}

// Len reports the number of live entries.
func (a *Arena) Len() int {
	n := 0
	for _, e := range a.entries {
		if e.live {
			n++
		}
	}
	return n
}

// Claim asks for chains turning the Src capability set into a
// superset of Sink. MaxDepth zero means unbounded; a positive bound
// stops the search from walking past that many stages, though a
// branch may still complete with one stage beyond it. Fastest stops
// at the first chain found.
type Claim struct {
	Src      []Key
	Sink     []Key
	Fastest  bool
	MaxDepth int
}

// Chain is one resolved ordering of arena indices.
type Chain []int

type searchState struct {
	have keySet
	path Chain
}

// Resolve searches for chains satisfying the claim. The second return
// is false when no chain exists. A trivial claim, one whose sink is
// empty or already covered by src, resolves to zero chains with ok
// true. Chains come out in breadth-first discovery order, so shorter
// chains first and, within a length, chains led by earlier-registered
// stages first.
func (a *Arena) Resolve(claim Claim) ([]Chain, bool) {
	src := newKeySet(claim.Src)
	sink := newKeySet(claim.Sink)
	if len(sink) == 0 || src.containsAll(sink) {
		return []Chain{}, true
	}

	var chains []Chain
	var queue []searchState
	for i, e := range a.entries {
		if !e.live {
			continue
		}
		if !src.containsAll(newKeySet(e.desc.Requires)) {
			continue
		}
		have := src.withAll(e.desc.Provides)
		if have.containsAll(sink) {
			chains = append(chains, Chain{i})
			if claim.Fastest {
				return chains, true
			}
			continue
		}
		queue = append(queue, searchState{have: have, path: Chain{i}})
	}

	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]

		for i, e := range a.entries {
			if !e.live || state.path.contains(i) {
				continue
			}
			if !state.have.containsAll(newKeySet(e.desc.Requires)) {
				continue
			}
			have := state.have.withAll(e.desc.Provides)
			next := make(Chain, len(state.path), len(state.path)+1)
			copy(next, state.path)
			next = append(next, i)

			// Completion wins before any pruning, so a chain one
			// stage past the depth bound still comes out.
			if have.containsAll(sink) {
				chains = append(chains, next)
				if claim.Fastest {
					return chains, true
				}
				continue
			}
			if claim.MaxDepth > 0 && claim.MaxDepth <= len(state.path)+1 {
				continue
			}
			if e.desc.Final {
				continue
			}
			queue = append(queue, searchState{have: have, path: next})
		}
	}
	if chains == nil {
		return nil, false
	}
	return chains, true
}

func (c Chain) contains(index int) bool {
	for _, i := range c {
		if i == index {
			return true
		}
	}
	return false
}

// keySet is a set of capability keys.
type keySet map[Key]struct{}

func newKeySet(keys []Key) keySet {
	s := make(keySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s keySet) containsAll(other keySet) bool {
	for k := range other {
		if _, ok := s[k]; !ok {
			return false
		}
	}
	return true
}

func (s keySet) withAll(keys []Key) keySet {
	out := make(keySet, len(s)+len(keys))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}
