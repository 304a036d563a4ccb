package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/ci"
)

// TriggerOptions holds flags for the trigger command.
type TriggerOptions struct {
	*RootOptions
	Database  string
	Project   string
	User      string
	System    bool
	Anonymous bool
	Timer     bool
	Remote    string
	SCM       bool
	Note      string
	Upstreams []string
}

// NewTriggerCommand creates the trigger command.
func NewTriggerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TriggerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Schedule a run with the given causes",
		Long: `Schedule the next run of a project.

Causes are given by flags and kept in this order: user, system,
anonymous, timer, remote, scm, then each --upstream in turn. With no
cause flags the run is started manually. --note annotates manual,
remote and scm causes.

Upstream causes snapshot the referenced run's own chain, bounded by the
configured policy.

Examples:
  causetrail trigger --db ci.db --project app --user alice
  causetrail trigger --db ci.db --project deploy --upstream app#12 --upstream lib#3
  causetrail trigger --db ci.db --project nightly --timer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project to schedule (required)")
	cmd.Flags().StringVar(&opts.User, "user", "", "started by this user id")
	cmd.Flags().BoolVar(&opts.System, "system", false, "started by the system actor")
	cmd.Flags().BoolVar(&opts.Anonymous, "anonymous", false, "started by an anonymous user")
	cmd.Flags().BoolVar(&opts.Timer, "timer", false, "started by a timer")
	cmd.Flags().StringVar(&opts.Remote, "remote", "", "started by this remote host")
	cmd.Flags().BoolVar(&opts.SCM, "scm", false, "started by an SCM change")
	cmd.Flags().StringVar(&opts.Note, "note", "", "note for manual, remote and scm causes")
	cmd.Flags().StringArrayVar(&opts.Upstreams, "upstream", nil, "upstream run as project#number (repeatable)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runTrigger(opts *TriggerOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := opts.openStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	sched, err := opts.scheduler(st)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid policy", err)
	}

	causes := opts.directCauses()
	for _, ref := range opts.Upstreams {
		project, number, err := ci.ParseRef(ref)
		if err != nil {
			return err
		}
		upstream, err := sched.Lookup(ctx, project, number)
		if err != nil {
			return fmt.Errorf("upstream %s: %w", ref, err)
		}
		up, err := sched.Upstream(upstream)
		if err != nil {
			return err
		}
		causes = append(causes, up)
	}
	if len(causes) == 0 {
		causes = append(causes, cause.ManualCause{Note: opts.Note})
	}

	run, err := sched.Schedule(ctx, opts.Project, causes...)
	if err != nil {
		return err
	}

	rn, err := opts.renderer(ctx, st)
	if err != nil {
		return err
	}
	view, err := newRunView(run, rn, false)
	if err != nil {
		return err
	}
	return opts.formatter(cmd).Success(view)
}

func (o *TriggerOptions) directCauses() []cause.Cause {
	var causes []cause.Cause
	if o.User != "" {
		causes = append(causes, cause.UserCause(o.User))
	}
	if o.System {
		causes = append(causes, cause.SystemUserCause())
	}
	if o.Anonymous {
		causes = append(causes, cause.AnonymousUserCause())
	}
	if o.Timer {
		causes = append(causes, cause.TimerCause{})
	}
	if o.Remote != "" {
		causes = append(causes, cause.RemoteCause{Addr: o.Remote, Note: o.Note})
	}
	if o.SCM {
		causes = append(causes, cause.SCMCause{Note: o.Note})
	}
	return causes
}
