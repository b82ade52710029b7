package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/hamed0406/waithttp/internal/config"
)

// NewConfigCommand prints the effective configuration and every problem
// with it, without probing anything.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show and validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := configOptions(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Read(opts)
			if err != nil {
				return err
			}

			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))

			problems := multierr.Errors(config.Validate(cfg))
			for _, p := range problems {
				fmt.Fprintln(cmd.ErrOrStderr(), "✖", p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("configuration has %d problem(s)", len(problems))
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "✔ configuration valid")
			return nil
		},
	}
}
