package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xabinapal/unifi-vpn/internal/credentials"
)

// newCredentialsCmd creates the credentials command group.
func (cli *CLI) newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the controller password stored in the system keyring",
		Long: `Store the controller password in your system's credential store
(Keychain on macOS, Credential Manager on Windows, Secret Service on Linux)
so it does not have to live in the configuration file.

The password is stored for the username and controller URL resolved from
flags, environment and configuration file, and is used whenever no password
is given any other way.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set",
			Short: "Store the controller password in the keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.runCredentialsSet()
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the controller password from the keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.runCredentialsDelete()
			},
		},
	)

	return cmd
}

// credentialsKey resolves the keyring key for the configured account.
func (cli *CLI) credentialsKey() (string, error) {
	settings, err := cli.loadSettings()
	if err != nil {
		return "", err
	}

	key := credentials.Key(settings.Username, settings.ControllerURL)
	if key == "" {
		return "", errors.New("controller URL and username are required to manage credentials")
	}
	return key, nil
}

func (cli *CLI) runCredentialsSet() error {
	if err := cli.Keyring.IsAvailable(); err != nil {
		return fmt.Errorf("cannot store password: %w", err)
	}

	key, err := cli.credentialsKey()
	if err != nil {
		return err
	}

	password := cli.passwordFlag
	if password == "" {
		password, err = cli.readPassword()
		if err != nil {
			return err
		}
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if err := cli.Keyring.Set(key, password); err != nil {
		return fmt.Errorf("failed to store password securely: %w", err)
	}

	fmt.Fprintf(cli.stdout, "Password for %s stored in your system's credential store.\n", key)
	return nil
}

func (cli *CLI) runCredentialsDelete() error {
	key, err := cli.credentialsKey()
	if err != nil {
		return err
	}

	if err := cli.Keyring.Delete(key); err != nil {
		return fmt.Errorf("failed to delete password: %w", err)
	}

	fmt.Fprintf(cli.stdout, "Password for %s removed from your system's credential store.\n", key)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func (cli *CLI) readPassword() (string, error) {
	if f, ok := cli.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cli.stderr, "Password: ")
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cli.stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}

	line, err := bufio.NewReader(cli.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
