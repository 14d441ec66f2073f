// Package cli provides the command-line interface for unifi-vpn.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xabinapal/unifi-vpn/internal/credentials"
	"github.com/xabinapal/unifi-vpn/internal/notify"
	"github.com/xabinapal/unifi-vpn/internal/unifi"
)

// Actions accepted by --action.
const (
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionStatus = "status"
)

// CLI holds the application state for the CLI.
type CLI struct {
	Keyring credentials.Store
	// NewNotifier builds the notifier once the configuration is known.
	NewNotifier func(enabled bool) notify.Notifier
	Getenv      func(string) string

	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	rootCmd *cobra.Command

	// clientOptions adjusts the controller client before it is built.
	clientOptions func(*unifi.Options)

	// Flags
	actionFlag        string
	vpnNameFlag       string
	configFlag        string
	createConfigFlag  bool
	controllerURLFlag string
	usernameFlag      string
	passwordFlag      string
	siteFlag          string
	debugFlag         bool
	outputFlag        string
}

// New creates a new CLI instance.
func New() *CLI {
	cli := &CLI{
		Keyring: credentials.DefaultStore(),
		NewNotifier: func(enabled bool) notify.Notifier {
			return notify.New(enabled)
		},
		Getenv: os.Getenv,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	cli.rootCmd = &cobra.Command{
		Use:   "unifi-vpn",
		Short: "Pause, resume and inspect VPN clients on a UniFi gateway",
		Long: `unifi-vpn manages the VPN client network profiles of a UniFi gateway
(UCG Ultra, UDM and other UniFi OS consoles) through the controller API.

Pausing a VPN client disables its network profile; resuming enables it again.
When no --vpn-name is given the first VPN client found is used.

Examples:
  # Pause the first VPN client found
  unifi-vpn --action pause

  # Resume a specific client
  unifi-vpn --action resume --vpn-name Surfshark

  # Show every VPN client as JSON
  unifi-vpn status -o json

  # Write a sample configuration file
  unifi-vpn --create-config`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.createConfigFlag {
				return cli.runCreateConfig()
			}
			switch cli.actionFlag {
			case ActionPause, ActionResume, ActionStatus:
				return cli.runAction(cmd.Context(), cli.actionFlag)
			case "":
				return fmt.Errorf("--action is required (pause, resume or status) unless --create-config is given")
			default:
				return fmt.Errorf("invalid action %q: must be pause, resume or status", cli.actionFlag)
			}
		},
	}

	flags := cli.rootCmd.Flags()
	flags.StringVar(&cli.actionFlag, "action", "", "Action to perform (pause, resume, status)")
	flags.BoolVar(&cli.createConfigFlag, "create-config", false, "Create a sample configuration file and exit")

	persistent := cli.rootCmd.PersistentFlags()
	persistent.StringVar(&cli.vpnNameFlag, "vpn-name", "", "VPN client name to match (case-insensitive substring)")
	persistent.StringVar(&cli.configFlag, "config", "", "Configuration file (default: ./unifi_config.json or the user config directory)")
	persistent.StringVar(&cli.controllerURLFlag, "controller-url", "", "UniFi controller URL (overrides config file)")
	persistent.StringVar(&cli.usernameFlag, "username", "", "UniFi username (overrides config file)")
	persistent.StringVar(&cli.passwordFlag, "password", "", "UniFi password (overrides config file)")
	persistent.StringVar(&cli.siteFlag, "site", "", "UniFi site (default \"default\")")
	persistent.BoolVar(&cli.debugFlag, "debug", false, "Enable debug logging to stderr")
	persistent.StringVarP(&cli.outputFlag, "output", "o", "text", "Output format (text, json)")

	_ = cli.rootCmd.RegisterFlagCompletionFunc("action", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{ActionPause, ActionResume, ActionStatus}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cli.rootCmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(OutputFormatText), string(OutputFormatJSON)}, cobra.ShellCompDirectiveNoFileComp
	})

	cli.addCommands()

	return cli
}

// addCommands adds all subcommands to the root command.
func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.newActionCmd(ActionPause, "Pause (disable) a VPN client"),
		cli.newActionCmd(ActionResume, "Resume (enable) a VPN client"),
		cli.newActionCmd(ActionStatus, "Show the status of VPN clients"),
		cli.newCredentialsCmd(),
		cli.newVersionCmd(),
		cli.newCompletionCmd(),
	)
}

// newActionCmd creates a subcommand equivalent to --action <name>.
func (cli *CLI) newActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runAction(cmd.Context(), action)
		},
	}
}

// Execute runs the CLI with the given arguments.
func (cli *CLI) Execute(ctx context.Context, args []string) error {
	cli.rootCmd.SetArgs(args)
	cli.rootCmd.SetIn(cli.stdin)
	cli.rootCmd.SetOut(cli.stdout)
	cli.rootCmd.SetErr(cli.stderr)
	return cli.rootCmd.ExecuteContext(ctx)
}
