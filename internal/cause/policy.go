package cause

import "fmt"

// Default policy limits.
const (
	DefaultMaxDepth     = 10
	DefaultMaxUpstreams = 50
	DefaultMaxCauses    = 200
)

// Build is the read-only view of a completed run that an UpstreamCause
// snapshots. The scheduler's run type implements it.
type Build interface {
	ProjectName() string
	BuildNumber() int
	Causes() Chain
}

// Policy bounds the size of cause chains.
//
// Policy is a plain value: it holds no state, and Apply returns the same
// chain for the same input and limits.
type Policy struct {
	// MaxDepth is the number of UpstreamCause levels one upstream snapshot
	// may contain, itself included.
	MaxDepth int `json:"max_depth" yaml:"max_depth" toml:"max_depth"`

	// MaxUpstreams is the number of UpstreamCause nodes one upstream
	// snapshot may contain, itself included.
	MaxUpstreams int `json:"max_upstreams" yaml:"max_upstreams" toml:"max_upstreams"`

	// MaxCauses is the number of root causes one chain retains.
	MaxCauses int `json:"max_causes" yaml:"max_causes" toml:"max_causes"`
}

// DefaultPolicy returns the default limits.
func DefaultPolicy() Policy {
	return Policy{
		MaxDepth:     DefaultMaxDepth,
		MaxUpstreams: DefaultMaxUpstreams,
		MaxCauses:    DefaultMaxCauses,
	}
}

// Validate checks that every limit is at least 1.
func (p Policy) Validate() error {
	switch {
	case p.MaxDepth < 1:
		return &PolicyError{Field: "max_depth", Value: p.MaxDepth}
	case p.MaxUpstreams < 1:
		return &PolicyError{Field: "max_upstreams", Value: p.MaxUpstreams}
	case p.MaxCauses < 1:
		return &PolicyError{Field: "max_causes", Value: p.MaxCauses}
	}
	return nil
}

// NewChain builds a chain from raw causes under the default policy.
func NewChain(raw ...Cause) Chain {
	return DefaultPolicy().Apply(raw)
}

// NewUpstreamCause snapshots b under the default policy.
func NewUpstreamCause(b Build) (UpstreamCause, error) {
	return DefaultPolicy().Upstream(b)
}

// Apply builds a bounded chain from raw causes.
//
// In order:
//  1. every UpstreamCause root is re-bounded to MaxDepth and MaxUpstreams
//     (a no-op for causes built by the same policy)
//  2. later roots that reference an upstream run already present are dropped
//  3. only the first MaxCauses roots are kept
//
// Nil entries are skipped. Insertion order is preserved.
func (p Policy) Apply(raw []Cause) Chain {
	p = p.normalized()

	out := make([]Cause, 0, min(len(raw), p.MaxCauses))
	seen := make(map[buildKey]bool)
	for _, c := range raw {
		if c == nil {
			continue
		}
		if up, ok := c.(UpstreamCause); ok {
			if seen[up.key()] {
				continue
			}
			seen[up.key()] = true
			c = p.bound(up)
		}
		if len(out) == p.MaxCauses {
			break
		}
		out = append(out, c)
	}
	return Chain{causes: out}
}

// Upstream snapshots the chain of a completed run into a new UpstreamCause.
//
// A nil build, an empty project, or a non-positive build number is a caller
// contract violation and returns an error wrapping ErrInvalidArgument.
func (p Policy) Upstream(b Build) (UpstreamCause, error) {
	if b == nil {
		return UpstreamCause{}, fmt.Errorf("%w: upstream build is nil", ErrInvalidArgument)
	}
	project, number := b.ProjectName(), b.BuildNumber()
	if err := validateRef(project, number); err != nil {
		return UpstreamCause{}, err
	}
	up := UpstreamCause{
		project: project,
		number:  number,
		url:     ProjectURL(project),
		causes:  b.Causes(),
	}
	return p.normalized().bound(up), nil
}

// normalized replaces unusable limits with defaults so Apply never panics on
// a zero Policy.
func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.MaxDepth < 1 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MaxUpstreams < 1 {
		p.MaxUpstreams = d.MaxUpstreams
	}
	if p.MaxCauses < 1 {
		p.MaxCauses = d.MaxCauses
	}
	return p
}

// bound trims the snapshot held by up so that the subtree rooted at up has
// at most MaxDepth levels and MaxUpstreams UpstreamCause nodes.
func (p Policy) bound(up UpstreamCause) UpstreamCause {
	t := &trimmer{
		traversed: map[buildKey]bool{up.key(): true},
		budget:    p.MaxUpstreams - 1,
	}
	return up.withCauses(t.chain(up.causes, p.MaxDepth-1))
}

// trimmer carries the state of one snapshot walk.
type trimmer struct {
	traversed map[buildKey]bool // upstream runs already embedded
	budget    int               // UpstreamCause nodes still allowed
}

// chain copies c, embedding UpstreamCause entries only while depth and
// budget remain. Anything cut is summarized by a single trailing
// DeeplyNestedCause. An upstream run already embedded elsewhere in the
// snapshot keeps its node, but its own causes are replaced by the
// placeholder; the full history sits at the first occurrence.
func (t *trimmer) chain(c Chain, depth int) Chain {
	out := make([]Cause, 0, c.Len())
	severed := false
	for _, x := range c.causes {
		switch v := x.(type) {
		case UpstreamCause:
			if depth < 1 || t.budget < 1 {
				severed = true
				continue
			}
			t.budget--
			if t.traversed[v.key()] {
				out = append(out, v.withCauses(collapsed(v.causes)))
				continue
			}
			t.traversed[v.key()] = true
			out = append(out, v.withCauses(t.chain(v.causes, depth-1)))
		case DeeplyNestedCause:
			severed = true
		case nil:
		default:
			out = append(out, v)
		}
	}
	if severed {
		out = append(out, DeeplyNestedCause{})
	}
	return Chain{causes: out}
}

// collapsed stands in for the causes of a repeated upstream reference.
func collapsed(c Chain) Chain {
	if c.IsEmpty() {
		return Chain{}
	}
	return Chain{causes: []Cause{DeeplyNestedCause{}}}
}
