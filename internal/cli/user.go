package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/causetrail/internal/store"
)

// UserOptions holds flags for the user commands.
type UserOptions struct {
	*RootOptions
	Database string
}

// UserList is the output form of user list.
type UserList struct {
	Users []store.User `json:"users"`
}

// WriteText prints one "id<TAB>name" line per user.
func (l *UserList) WriteText(w io.Writer) error {
	for _, u := range l.Users {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", u.ID, u.DisplayName); err != nil {
			return err
		}
	}
	return nil
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
		Long: `Manage the directory that maps user ids to display names.

User causes render the display name of their user id. Ids missing from
the directory render as "unknown or anonymous".`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> <display-name>",
		Short: "Add or rename a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(opts, cmd, store.User{ID: args[0], DisplayName: args[1]})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(opts, cmd)
		},
	})

	return cmd
}

func runUserAdd(opts *UserOptions, cmd *cobra.Command, u store.User) error {
	st, err := opts.openStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.PutUser(cmd.Context(), u); err != nil {
		return WrapExitError(ExitCommandError, "failed to add user", err)
	}
	f := opts.formatter(cmd)
	if f.Format == "json" {
		return f.Success(u)
	}
	return f.Success(fmt.Sprintf("added %s (%s)", u.ID, u.DisplayName))
}

func runUserList(opts *UserOptions, cmd *cobra.Command) error {
	st, err := opts.openStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	users, err := st.ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	return opts.formatter(cmd).Success(&UserList{Users: users})
}
