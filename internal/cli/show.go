package cli

import (
	"github.com/spf13/cobra"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	Project  string
	Build    int
	Tree     bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the causes of a run",
		Long: `Show why a run was started.

By default only the root causes are listed. With --tree every upstream
cause is followed by the chain it snapshotted, indented under
"originally caused by:"; JSON output then also carries the encoded chain.

The chain is shown exactly as stored, even when it was written under a
looser policy.

Examples:
  causetrail show --db ci.db --project deploy --build 7
  causetrail show --db ci.db --project deploy --build 7 --tree --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project name (required)")
	cmd.Flags().IntVar(&opts.Build, "build", 0, "build number (required)")
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "include nested upstream chains")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("build")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
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
	run, err := sched.Lookup(ctx, opts.Project, opts.Build)
	if err != nil {
		return err
	}

	rn, err := opts.renderer(ctx, st)
	if err != nil {
		return err
	}
	view, err := newRunView(run, rn, opts.Tree)
	if err != nil {
		return err
	}
	return opts.formatter(cmd).Success(view)
}
