package cause

import (
	"iter"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Chain is an ordered list of root causes attached to one run.
//
// The zero value is an empty chain. A Chain never changes after it is
// built; accessors hand out copies of the backing slice.
type Chain struct {
	causes []Cause
}

// Restore wraps causes read from storage into a Chain without applying any
// policy. Nil entries are dropped.
func Restore(causes []Cause) Chain {
	out := make([]Cause, 0, len(causes))
	for _, c := range causes {
		if c != nil {
			out = append(out, c)
		}
	}
	return Chain{causes: out}
}

// Len returns the number of root causes.
func (c Chain) Len() int { return len(c.causes) }

// IsEmpty reports whether the chain has no root causes.
func (c Chain) IsEmpty() bool { return len(c.causes) == 0 }

// At returns the i-th root cause.
func (c Chain) At(i int) Cause { return c.causes[i] }

// Causes returns a copy of the root causes in insertion order.
func (c Chain) Causes() []Cause { return slices.Clone(c.causes) }

// All iterates the root causes in insertion order.
func (c Chain) All() iter.Seq2[int, Cause] {
	return func(yield func(int, Cause) bool) {
		for i, x := range c.causes {
			if !yield(i, x) {
				return
			}
		}
	}
}

// Upstreams returns the upstream root causes in insertion order.
func (c Chain) Upstreams() []UpstreamCause {
	var ups []UpstreamCause
	for _, x := range c.causes {
		if up, ok := x.(UpstreamCause); ok {
			ups = append(ups, up)
		}
	}
	return ups
}

// Find returns the first root cause of variant T.
func Find[T Cause](c Chain) (T, bool) {
	for _, x := range c.causes {
		if t, ok := x.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Contains reports whether the chain references the given build at any
// nesting level.
func Contains(c Chain, project string, number int) bool {
	for _, x := range c.causes {
		up, ok := x.(UpstreamCause)
		if !ok {
			continue
		}
		if up.PointsTo(project, number) || Contains(up.causes, project, number) {
			return true
		}
	}
	return false
}

// Stats summarizes the materialized size of a chain.
type Stats struct {
	Roots     int `json:"roots"`     // root entries
	Upstreams int `json:"upstreams"` // UpstreamCause nodes at every level
	Nodes     int `json:"nodes"`     // causes of any variant at every level
	Depth     int `json:"depth"`     // deepest UpstreamCause nesting
}

// Measure walks the chain and counts its nodes.
func Measure(c Chain) Stats {
	var s Stats
	s.Roots = c.Len()
	s.Depth = measure(c, 1, &s)
	return s
}

func measure(c Chain, level int, s *Stats) int {
	depth := 0
	for _, x := range c.causes {
		s.Nodes++
		up, ok := x.(UpstreamCause)
		if !ok {
			continue
		}
		s.Upstreams++
		d := level
		if nested := measure(up.causes, level+1, s); nested > d {
			d = nested
		}
		if d > depth {
			depth = d
		}
	}
	return depth
}

// chainOptions compare chains structurally, including unexported fields.
// A nil chain and an empty chain are the same chain.
var chainOptions = cmp.Options{
	cmp.AllowUnexported(Chain{}, UpstreamCause{}, UserIDCause{}),
	cmpopts.EquateEmpty(),
}

// Equal reports whether two chains are structurally identical.
func Equal(a, b Chain) bool {
	return cmp.Equal(a, b, chainOptions)
}

// Diff returns a human-readable difference between two chains, or "" when
// they are equal.
func Diff(want, got Chain) string {
	return cmp.Diff(want, got, chainOptions)
}
