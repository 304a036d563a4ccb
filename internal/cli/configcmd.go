package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/causetrail/internal/config"
)

// ConfigView is the output form of config check: the effective settings.
type ConfigView struct {
	File   string        `json:"file" yaml:"-"`
	Config config.Config `json:"config" yaml:"config"`
}

// WriteText prints the effective settings as YAML.
func (v *ConfigView) WriteText(w io.Writer) error {
	data, err := yaml.Marshal(v.Config)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# %s: ok\n", v.File); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a config file and print the effective settings",
		Long: `Validate a .yaml, .toml or .cue config file against the schema and
print the settings it yields, with defaults filled in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid config", err)
			}
			return rootOpts.formatter(cmd).Success(&ConfigView{File: args[0], Config: cfg})
		},
	})
	return cmd
}
