package ci

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/codec"
	"github.com/roach88/causetrail/internal/store"
)

// RunStore persists runs. Implemented by *store.Store.
type RunStore interface {
	WriteRun(ctx context.Context, rec store.RunRecord) error
	ReadRun(ctx context.Context, project string, number int) (store.RunRecord, error)
	ListRuns(ctx context.Context, project string) ([]store.RunRecord, error)
	ReadAllRuns(ctx context.Context) ([]store.RunRecord, error)
	RunsByChain(ctx context.Context, chainID string) ([]store.RunRecord, error)
	LatestNumber(ctx context.Context, project string) (int, error)
	MaxSeq(ctx context.Context) (int64, error)
}

// maxNumberRetries bounds how often Schedule re-reads the latest build
// number after losing a race with another writer on the same database.
const maxNumberRetries = 3

// Scheduler creates runs with bounded cause chains.
//
// Thread-safety: all methods are safe for concurrent use. Numbering and
// persistence are serialized so build numbers within a project are dense.
type Scheduler struct {
	store  RunStore
	policy cause.Policy
	ids    RunIDGenerator
	logger *slog.Logger

	mu    sync.Mutex
	clock SeqClock // resumed from the store on first use when nil
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used to stamp run seq values.
// Default: a Clock resumed from the highest seq in the store.
func WithClock(c SeqClock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithIDGenerator sets the run ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g RunIDGenerator) Option {
	return func(s *Scheduler) {
		s.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a Scheduler storing runs in st under policy p.
// Returns an error if p has a limit below 1.
func New(st RunStore, p cause.Policy, opts ...Option) (*Scheduler, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: run store is nil", cause.ErrInvalidArgument)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		store:  st,
		policy: p,
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the policy runs are scheduled under.
func (s *Scheduler) Policy() cause.Policy {
	return s.policy
}

// Schedule creates the next run of project, triggered by causes.
//
// The causes are bounded by the scheduler's policy before the run is
// stored: each upstream snapshot is re-bounded, repeated upstream roots are
// dropped, and only the first MaxCauses roots are kept. Nil causes are
// skipped.
func (s *Scheduler) Schedule(ctx context.Context, project string, causes ...cause.Cause) (*Run, error) {
	if project == "" {
		return nil, fmt.Errorf("%w: project name is empty", cause.ErrInvalidArgument)
	}

	chain := s.policy.Apply(causes)
	chainID, err := codec.ChainID(chain)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", project, err)
	}
	s.logTruncation(project, causes, chain)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureClock(ctx); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		latest, err := s.store.LatestNumber(ctx, project)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", project, err)
		}

		rec := store.RunRecord{
			ID:      s.ids.Generate(),
			Project: project,
			Number:  latest + 1,
			Causes:  chain,
			ChainID: chainID,
			Policy:  s.policy,
			Seq:     s.clock.Next(),
		}
		err = s.store.WriteRun(ctx, rec)
		if errors.Is(err, store.ErrDuplicateRun) && attempt < maxNumberRetries {
			s.logger.Debug("build number taken, retrying",
				"project", project,
				"number", rec.Number,
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", project, err)
		}

		stats := cause.Measure(chain)
		s.logger.Debug("run scheduled",
			"project", rec.Project,
			"number", rec.Number,
			"run_id", rec.ID,
			"seq", rec.Seq,
			"roots", stats.Roots,
			"upstream_nodes", stats.Upstreams,
			"chain_id", chainID,
		)
		return runFromRecord(rec), nil
	}
}

// Upstream snapshots a completed run into a cause for a downstream trigger.
func (s *Scheduler) Upstream(b cause.Build) (cause.UpstreamCause, error) {
	return s.policy.Upstream(b)
}

// Trigger schedules project as a downstream of every run in upstreams, in
// order, followed by extra causes.
func (s *Scheduler) Trigger(ctx context.Context, project string, upstreams []*Run, extra ...cause.Cause) (*Run, error) {
	causes := make([]cause.Cause, 0, len(upstreams)+len(extra))
	for _, u := range upstreams {
		up, err := s.Upstream(u)
		if err != nil {
			return nil, err
		}
		causes = append(causes, up)
	}
	causes = append(causes, extra...)
	return s.Schedule(ctx, project, causes...)
}

// Lookup returns a stored run. The chain is returned as stored, without
// re-applying the policy. Returns an error wrapping store.ErrRunNotFound
// when the run does not exist.
func (s *Scheduler) Lookup(ctx context.Context, project string, number int) (*Run, error) {
	rec, err := s.store.ReadRun(ctx, project, number)
	if err != nil {
		return nil, err
	}
	return runFromRecord(rec), nil
}

// Runs returns every run of project ordered by build number.
func (s *Scheduler) Runs(ctx context.Context, project string) ([]*Run, error) {
	recs, err := s.store.ListRuns(ctx, project)
	if err != nil {
		return nil, err
	}
	return runsFromRecords(recs), nil
}

// History returns every run of every project in scheduling order.
func (s *Scheduler) History(ctx context.Context) ([]*Run, error) {
	recs, err := s.store.ReadAllRuns(ctx)
	if err != nil {
		return nil, err
	}
	return runsFromRecords(recs), nil
}

// SameCauses returns every run, of any project, whose chain has the given
// chain ID, in scheduling order.
func (s *Scheduler) SameCauses(ctx context.Context, chainID string) ([]*Run, error) {
	recs, err := s.store.RunsByChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return runsFromRecords(recs), nil
}

func runsFromRecords(recs []store.RunRecord) []*Run {
	runs := make([]*Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, runFromRecord(rec))
	}
	return runs
}

// ensureClock resumes the clock from the store. Caller holds s.mu.
func (s *Scheduler) ensureClock(ctx context.Context) error {
	if s.clock != nil {
		return nil
	}
	seq, err := s.store.MaxSeq(ctx)
	if err != nil {
		return fmt.Errorf("resume clock: %w", err)
	}
	s.clock = NewClockAt(seq)
	return nil
}

func (s *Scheduler) logTruncation(project string, raw []cause.Cause, chain cause.Chain) {
	given := 0
	for _, c := range raw {
		if c != nil {
			given++
		}
	}
	if dropped := given - chain.Len(); dropped > 0 {
		s.logger.Info("cause chain truncated",
			"project", project,
			"given", given,
			"kept", chain.Len(),
			"dropped", dropped,
		)
	}
	if trimmed(chain) {
		stats := cause.Measure(chain)
		s.logger.Debug("upstream snapshot trimmed",
			"project", project,
			"upstreams", stats.Upstreams,
			"depth", stats.Depth,
		)
	}
}

// trimmed reports whether any upstream snapshot in chain ends in a
// DeeplyNestedCause.
func trimmed(chain cause.Chain) bool {
	for _, up := range chain.Upstreams() {
		if _, ok := cause.Find[cause.DeeplyNestedCause](up.Causes()); ok {
			return true
		}
		if trimmed(up.Causes()) {
			return true
		}
	}
	return false
}
