package cause

import (
	"fmt"
	"io"
	"strings"
)

// Resolver maps a stored user id to a display name.
// It reports false when the id is unknown.
type Resolver interface {
	DisplayName(id string) (string, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(id string) (string, bool)

// DisplayName calls f(id).
func (f ResolverFunc) DisplayName(id string) (string, bool) { return f(id) }

// DefaultSystemLabel is shown for causes started by the system actor.
const DefaultSystemLabel = "SYSTEM"

// AnonymousUser is shown when a user id is absent or cannot be resolved.
const AnonymousUser = "unknown or anonymous"

// Renderer turns causes into human-readable lines.
//
// A Renderer is immutable after construction and safe for concurrent use as
// long as its Resolver is.
type Renderer struct {
	users       Resolver
	systemLabel string
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithSystemLabel overrides the label shown for the system actor.
func WithSystemLabel(label string) RendererOption {
	return func(r *Renderer) {
		if label != "" {
			r.systemLabel = label
		}
	}
}

// NewRenderer creates a Renderer. A nil resolver treats every id as unknown.
func NewRenderer(users Resolver, opts ...RendererOption) *Renderer {
	r := &Renderer{
		users:       users,
		systemLabel: DefaultSystemLabel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Describe returns the one-line description of c.
// Nested upstream causes are not included; see PrintTree.
func (r *Renderer) Describe(c Cause) string {
	switch v := c.(type) {
	case ManualCause:
		if v.Note != "" {
			return "Started manually: " + v.Note
		}
		return "Started manually"
	case UserIDCause:
		return "Started by user " + r.userName(v)
	case TimerCause:
		return "Started by timer"
	case RemoteCause:
		s := "Started by remote host " + v.Addr
		if v.Note != "" {
			s += " with note: " + v.Note
		}
		return s
	case SCMCause:
		if v.Note != "" {
			return "Started by an SCM change: " + v.Note
		}
		return "Started by an SCM change"
	case UpstreamCause:
		return fmt.Sprintf("Started by upstream project %q build number %d", v.project, v.number)
	case DeeplyNestedCause:
		return "(deeply nested causes)"
	case nil:
		return ""
	default:
		panic(fmt.Sprintf("cause: unhandled variant %T", c))
	}
}

func (r *Renderer) userName(c UserIDCause) string {
	id, ok := c.UserID()
	if !ok {
		return AnonymousUser
	}
	if id == SystemUserID {
		return r.systemLabel
	}
	if r.users == nil {
		return AnonymousUser
	}
	name, found := r.users.DisplayName(id)
	if !found {
		return AnonymousUser
	}
	return name
}

// Print writes the description of c followed by a newline.
func (r *Renderer) Print(w io.Writer, c Cause) error {
	_, err := fmt.Fprintln(w, r.Describe(c))
	return err
}

// PrintChain writes one line per root cause.
func (r *Renderer) PrintChain(w io.Writer, ch Chain) error {
	for _, c := range ch.causes {
		if err := r.Print(w, c); err != nil {
			return err
		}
	}
	return nil
}

// PrintTree writes every root cause and, below each upstream cause, its
// snapshot chain indented under "originally caused by:".
func (r *Renderer) PrintTree(w io.Writer, ch Chain) error {
	return r.printTree(w, ch, 0)
}

func (r *Renderer) printTree(w io.Writer, ch Chain, level int) error {
	indent := strings.Repeat(" ", level*2)
	for _, c := range ch.causes {
		if _, err := fmt.Fprintln(w, indent+r.Describe(c)); err != nil {
			return err
		}
		up, ok := c.(UpstreamCause)
		if !ok || up.causes.IsEmpty() {
			continue
		}
		if _, err := fmt.Fprintln(w, indent+"originally caused by:"); err != nil {
			return err
		}
		if err := r.printTree(w, up.causes, level+1); err != nil {
			return err
		}
	}
	return nil
}
