// Package automaton implements an online suffix automaton (a DAWG) over a
// byte/rune stream, supporting "longest repeated substring ending at
// position i" queries in O(1) amortized per query character after an O(n)
// build. It backs the dedup scorer's duplicate-content detection.
package automaton

import "sort"

// state is one automaton state. Link and transitions are indices into the
// owning Automaton's states slice, never pointers, so the slice can grow
// without invalidating existing states.
type state struct {
	length int
	link   int
	trans  map[rune]int
	count  int // endpos count; 0 until propagateCounts runs
}

// Automaton is an online suffix automaton. The zero value is not usable;
// construct with New.
type Automaton struct {
	states     []state
	last       int
	propagated bool
}

// New returns an empty automaton with just its initial state.
func New() *Automaton {
	a := &Automaton{
		states: make([]state, 1, 64),
		last:   0,
	}
	a.states[0] = state{length: 0, link: -1}
	return a
}

// Extend appends one character to the automaton, cloning states as the
// classical online construction requires. Extend must not be called after
// PropagateCounts.
func (a *Automaton) Extend(c rune) {
	if a.propagated {
		panic("automaton: Extend called after PropagateCounts")
	}
	cur := len(a.states)
	a.states = append(a.states, state{
		length: a.states[a.last].length + 1,
		count:  1,
	})

	p := a.last
	for p != -1 {
		if _, ok := a.states[p].trans[c]; ok {
			break
		}
		a.setTrans(p, c, cur)
		p = a.states[p].link
	}

	if p == -1 {
		a.states[cur].link = 0
	} else {
		q := a.states[p].trans[c]
		if a.states[p].length+1 == a.states[q].length {
			a.states[cur].link = q
		} else {
			clone := len(a.states)
			cloneTrans := make(map[rune]int, len(a.states[q].trans))
			for k, v := range a.states[q].trans {
				cloneTrans[k] = v
			}
			a.states = append(a.states, state{
				length: a.states[p].length + 1,
				link:   a.states[q].link,
				trans:  cloneTrans,
				count:  0,
			})
			for p != -1 {
				if a.states[p].trans[c] != q {
					break
				}
				a.setTrans(p, c, clone)
				p = a.states[p].link
			}
			a.states[q].link = clone
			a.states[cur].link = clone
		}
	}
	a.last = cur
}

func (a *Automaton) setTrans(s int, c rune, to int) {
	if a.states[s].trans == nil {
		a.states[s].trans = make(map[rune]int)
	}
	a.states[s].trans[c] = to
}

// PropagateCounts sums each state's endpos count into its suffix-link
// parent, processing states in decreasing length order (a topological order
// of the suffix-link tree, since link always points to a shorter state).
// Must be called exactly once, after all Extend calls and before any Query.
func (a *Automaton) PropagateCounts() {
	order := make([]int, len(a.states))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return a.states[order[i]].length > a.states[order[j]].length })
	for _, v := range order {
		if link := a.states[v].link; link >= 0 {
			a.states[link].count += a.states[v].count
		}
	}
	a.propagated = true
}

// StateCount returns the number of states in the automaton, for
// diagnostics.
func (a *Automaton) StateCount() int {
	return len(a.states)
}

// CountAt returns the endpos count of the state reached by walking text
// from the initial state, or 0 if text is not a substring of the automaton's
// source. Exposed mainly for tests of automaton correctness.
func (a *Automaton) CountAt(text []rune) int {
	cur := 0
	for _, c := range text {
		next, ok := a.states[cur].trans[c]
		if !ok {
			return 0
		}
		cur = next
	}
	return a.states[cur].count
}

// MatchRepeatedLength walks the automaton against text, descending through
// suffix links on mismatch exactly as the classical online-matching
// algorithm does, and at each position returns the length of the longest
// substring ending there whose endpos count is >= 2 (i.e. it recurs
// somewhere else in the automaton's source, not just at this occurrence).
func (a *Automaton) MatchRepeatedLength(text []rune) []int {
	lengths := make([]int, len(text))
	cur := 0
	curLen := 0

	for i, c := range text {
		for cur != 0 {
			if _, ok := a.states[cur].trans[c]; ok {
				break
			}
			cur = a.states[cur].link
			curLen = a.states[cur].length
		}
		if next, ok := a.states[cur].trans[c]; ok {
			cur = next
			curLen++
		} else {
			cur = 0
			curLen = 0
		}

		effective := cur
		effectiveLen := curLen
		for effective != 0 && a.states[effective].count < 2 {
			effective = a.states[effective].link
			effectiveLen = a.states[effective].length
		}
		lengths[i] = effectiveLen
	}
	return lengths
}
