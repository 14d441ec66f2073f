package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xabinapal/unifi-vpn/internal/version"
)

// newVersionCmd creates the version command.
func (cli *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(cli.outputFlag)
			if err != nil {
				return err
			}
			info := version.Get()
			return NewOutputWriter(format, cli.stdout).Write(info, func() {
				fmt.Fprintln(cli.stdout, info.String())
			})
		},
	}
}
