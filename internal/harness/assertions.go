package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/ci"
)

// evaluate checks one assertion. A nil error means it held.
func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	run, err := h.resolve(ctx, a.Run)
	if err != nil {
		return err
	}
	chain := run.Causes()

	switch a.Type {
	case AssertMaxUpstreamNodes:
		return checkMax(run, "upstream nodes", cause.Measure(chain).Upstreams, a.Max)
	case AssertMaxDepth:
		return checkMax(run, "depth", cause.Measure(chain).Depth, a.Max)
	case AssertMaxRoots:
		return checkMax(run, "roots", chain.Len(), a.Max)
	case AssertContainsBuild:
		return checkContains(run, a.Build, a.Absent)
	case AssertRenders:
		return h.checkRenders(run, a.Text)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func checkMax(run *ci.Run, what string, got, limit int) error {
	if got > limit {
		return fmt.Errorf("%s has %d %s, want at most %d", run, got, what, limit)
	}
	return nil
}

func checkContains(run *ci.Run, ref string, absent bool) error {
	project, number, err := ci.ParseRef(ref)
	if err != nil {
		return err
	}
	found := cause.Contains(run.Causes(), project, number)
	switch {
	case found && absent:
		return fmt.Errorf("%s references %s, want it cut", run, ref)
	case !found && !absent:
		return fmt.Errorf("%s does not reference %s", run, ref)
	}
	return nil
}

func (h *Harness) checkRenders(run *ci.Run, text string) error {
	var sb strings.Builder
	if err := h.renderer.PrintTree(&sb, run.Causes()); err != nil {
		return err
	}
	if !strings.Contains(sb.String(), text) {
		return fmt.Errorf("%s rendering does not contain %q:\n%s", run, text, sb.String())
	}
	return nil
}
