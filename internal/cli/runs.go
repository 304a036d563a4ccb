package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/causetrail/internal/ci"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Project  string
	Chain    string
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs",
		Long: `List every run of a project in build-number order with its first cause.
Without --project every run of every project is listed in scheduling order.
With --chain only runs whose cause chain has that chain ID are listed, in
scheduling order; the ID is shown by "show --format json".

Examples:
  causetrail runs --db ci.db --project deploy
  causetrail runs --db ci.db
  causetrail runs --db ci.db --chain 3f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project name (all projects when empty)")
	cmd.Flags().StringVar(&opts.Chain, "chain", "", "list runs with this chain ID")
	cmd.MarkFlagsMutuallyExclusive("project", "chain")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
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
	var runs []*ci.Run
	switch {
	case opts.Chain != "":
		runs, err = sched.SameCauses(ctx, opts.Chain)
	case opts.Project != "":
		runs, err = sched.Runs(ctx, opts.Project)
	default:
		runs, err = sched.History(ctx)
	}
	if err != nil {
		return err
	}
	rn, err := opts.renderer(ctx, st)
	if err != nil {
		return err
	}

	list := &RunList{Project: opts.Project, Runs: make([]*RunView, 0, len(runs))}
	for _, r := range runs {
		view, err := newRunView(r, rn, false)
		if err != nil {
			return err
		}
		list.Runs = append(list.Runs, view)
	}
	return opts.formatter(cmd).Success(list)
}
