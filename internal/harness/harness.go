package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/ci"
	"github.com/roach88/causetrail/internal/identity"
	"github.com/roach88/causetrail/internal/store"
	"github.com/roach88/causetrail/internal/testutil"
)

// Harness executes one scenario.
type Harness struct {
	sched    *ci.Scheduler
	renderer *cause.Renderer
	aliases  map[string][]*ci.Run
	runs     []*ci.Run
	alias    map[*ci.Run]string
}

// Run executes a scenario against a fresh in-memory store.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
//
// Execution flow:
//  1. open a fresh in-memory store and register the scenario's users
//  2. schedule every step in order
//  3. evaluate the assertions
//
// Errors in the scenario itself (unresolved references, invalid causes)
// are returned as errors. Failed assertions are reported in the Result.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(ctx, st, scenario)
	if err != nil {
		return nil, err
	}

	if err := h.executeSteps(ctx, scenario.Steps, 0); err != nil {
		return nil, err
	}

	result := NewResult()
	for _, r := range h.runs {
		result.Runs = append(result.Runs, RunSummary{
			Alias:   h.alias[r],
			Project: r.Project,
			Number:  r.Number,
			Seq:     r.Seq,
			ChainID: r.ChainID,
			Stats:   cause.Measure(r.Causes()),
			chain:   r.Causes(),
		})
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(ctx, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return result, nil
}

func newHarness(ctx context.Context, st *store.Store, scenario *Scenario) (*Harness, error) {
	for _, id := range slices.Sorted(maps.Keys(scenario.Users)) {
		if err := st.PutUser(ctx, store.User{ID: id, DisplayName: scenario.Users[id]}); err != nil {
			return nil, err
		}
	}
	users, err := identity.Load(ctx, st)
	if err != nil {
		return nil, err
	}

	prefix := scenario.RunIDPrefix
	if prefix == "" {
		prefix = scenario.Name
	}
	sched, err := ci.New(st, scenario.Policy.Apply(cause.DefaultPolicy()),
		ci.WithClock(testutil.NewDeterministicClock()),
		ci.WithIDGenerator(testutil.NewSequentialIDs(prefix)),
		ci.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, err
	}

	return &Harness{
		sched:    sched,
		renderer: cause.NewRenderer(users),
		aliases:  make(map[string][]*ci.Run),
		alias:    make(map[*ci.Run]string),
	}, nil
}

func (h *Harness) executeSteps(ctx context.Context, steps []Step, n int) error {
	for i, step := range steps {
		for rep := 1; rep <= step.times(); rep++ {
			idx := n
			if step.Repeat > 0 {
				idx = rep
			}
			if len(step.Steps) > 0 {
				if err := h.executeSteps(ctx, step.Steps, idx); err != nil {
					return err
				}
				continue
			}
			if err := h.trigger(ctx, step, idx); err != nil {
				return fmt.Errorf("steps[%d] %s: %w", i, step.Trigger, err)
			}
		}
	}
	return nil
}

func (h *Harness) trigger(ctx context.Context, step Step, n int) error {
	var causes []cause.Cause
	for _, spec := range step.Causes {
		cs, err := h.buildCauses(ctx, spec)
		if err != nil {
			return err
		}
		causes = append(causes, cs...)
	}

	project := strings.ReplaceAll(step.Trigger, "{n}", strconv.Itoa(n))
	run, err := h.sched.Schedule(ctx, project, causes...)
	if err != nil {
		return err
	}
	h.runs = append(h.runs, run)
	if step.As != "" {
		h.aliases[step.As] = append(h.aliases[step.As], run)
		h.alias[run] = step.As
	}
	return nil
}

func (h *Harness) buildCauses(ctx context.Context, spec CauseSpec) ([]cause.Cause, error) {
	switch spec.Kind {
	case cause.KindManual:
		return []cause.Cause{cause.ManualCause{Note: spec.Note}}, nil
	case cause.KindUser:
		switch {
		case spec.System:
			return []cause.Cause{cause.SystemUserCause()}, nil
		case spec.User == nil:
			return []cause.Cause{cause.AnonymousUserCause()}, nil
		default:
			return []cause.Cause{cause.UserCause(*spec.User)}, nil
		}
	case cause.KindTimer:
		return []cause.Cause{cause.TimerCause{}}, nil
	case cause.KindRemote:
		return []cause.Cause{cause.RemoteCause{Addr: spec.Addr, Note: spec.Note}}, nil
	case cause.KindSCM:
		return []cause.Cause{cause.SCMCause{Note: spec.Note}}, nil
	case cause.KindUpstream:
		runs, err := h.resolveAll(ctx, spec.Ref, spec.All)
		if errors.Is(err, errUnresolved) && spec.Optional {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		causes := make([]cause.Cause, 0, len(runs))
		for _, r := range runs {
			up, err := h.sched.Upstream(r)
			if err != nil {
				return nil, err
			}
			causes = append(causes, up)
		}
		return causes, nil
	default:
		return nil, fmt.Errorf("unknown cause kind %q", spec.Kind)
	}
}

var errUnresolved = errors.New("unresolved run reference")

// resolve returns the run ref names: the latest run under an alias, or a
// stored run for "project#number".
func (h *Harness) resolve(ctx context.Context, ref string) (*ci.Run, error) {
	runs, err := h.resolveAll(ctx, ref, false)
	if err != nil {
		return nil, err
	}
	return runs[0], nil
}

func (h *Harness) resolveAll(ctx context.Context, ref string, all bool) ([]*ci.Run, error) {
	if runs := h.aliases[ref]; len(runs) > 0 {
		if all {
			return runs, nil
		}
		return runs[len(runs)-1:], nil
	}
	project, number, err := ci.ParseRef(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errUnresolved, ref)
	}
	run, err := h.sched.Lookup(ctx, project, number)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, fmt.Errorf("%w: %q", errUnresolved, ref)
	}
	if err != nil {
		return nil, err
	}
	return []*ci.Run{run}, nil
}
