// Package cli implements the causetrail command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/ci"
	"github.com/roach88/causetrail/internal/config"
	"github.com/roach88/causetrail/internal/identity"
	"github.com/roach88/causetrail/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded from ConfigPath (or defaults) before any command runs.
	Config config.Config

	// IDGenerator overrides the run ID generator. Tests set it for stable IDs.
	IDGenerator ci.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the causetrail CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "causetrail",
		Short: "Bounded build provenance",
		Long: `causetrail records why each build ran.

Every run carries the chain of causes that triggered it. Upstream causes
embed the triggering run's own chain, bounded in depth, node count and
root count so provenance never grows without limit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg := config.Default()
			if opts.ConfigPath != "" {
				loaded, err := config.Load(opts.ConfigPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				cfg = loaded
			}
			opts.Config = cfg
			setupLogging(opts, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (.yaml, .toml or .cue)")

	cmd.AddCommand(NewTriggerCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// Execute runs the command tree with args and returns the process exit
// code. Errors are reported on stderr, or on stdout as a JSON error
// response when --format json is set.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	f := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	if opts.Format != "json" {
		f.Format = "text"
	}
	_ = f.Error(ErrorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

// setupLogging installs the default slog handler: Debug with --verbose,
// otherwise the configured level.
func setupLogging(opts *RootOptions, w io.Writer) {
	level := opts.Config.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// dbPath returns flagValue, or the configured database when it is empty.
func (o *RootOptions) dbPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return o.Config.Database
}

// openStore opens the database, logging the path.
func (o *RootOptions) openStore(flagValue string) (*store.Store, error) {
	path := o.dbPath(flagValue)
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// scheduler builds a scheduler over st using the configured policy.
func (o *RootOptions) scheduler(st *store.Store) (*ci.Scheduler, error) {
	opts := []ci.Option{ci.WithLogger(slog.Default())}
	if o.IDGenerator != nil {
		opts = append(opts, ci.WithIDGenerator(o.IDGenerator))
	}
	return ci.New(st, o.Config.Policy(), opts...)
}

// renderer builds a renderer resolving users from st.
func (o *RootOptions) renderer(ctx context.Context, st *store.Store) (*cause.Renderer, error) {
	users, err := identity.Load(ctx, st)
	if err != nil {
		return nil, err
	}
	return cause.NewRenderer(users, cause.WithSystemLabel(o.Config.SystemUserLabel)), nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
