package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xabinapal/unifi-vpn/internal/config"
	"github.com/xabinapal/unifi-vpn/internal/credentials"
	"github.com/xabinapal/unifi-vpn/internal/logging"
	"github.com/xabinapal/unifi-vpn/internal/unifi"
	"github.com/xabinapal/unifi-vpn/internal/vpn"
)

// logoutTimeout bounds the logout issued when an action finishes.
const logoutTimeout = 10 * time.Second

// maxLogSize is the log file size that triggers rotation.
const maxLogSize = 5 * 1024 * 1024

// loadSettings loads the configuration file and merges flags and environment.
func (cli *CLI) loadSettings() (config.Settings, error) {
	path := cli.configFlag
	if path == "" {
		path = config.DefaultConfigFile()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	return config.Resolve(cfg, config.Overrides{
		ControllerURL: cli.controllerURLFlag,
		Username:      cli.usernameFlag,
		Password:      cli.passwordFlag,
		Site:          cli.siteFlag,
		Debug:         cli.debugFlag,
	}, cli.Getenv), nil
}

// passwordFromKeyring fills in the password from the keyring when no other
// source provided one.
func (cli *CLI) passwordFromKeyring(s *config.Settings, logger *logging.Logger) {
	if s.Password != "" || cli.Keyring == nil {
		return
	}
	key := credentials.Key(s.Username, s.ControllerURL)
	if key == "" {
		return
	}

	password, err := cli.Keyring.Get(key)
	if err != nil {
		if !errors.Is(err, credentials.ErrPasswordNotFound) {
			logger.Debug("keyring lookup failed", "key", key, "error", err)
		}
		return
	}
	s.Password = password
}

// newLogger opens the log file. If the file cannot be opened, logs go to stderr.
func (cli *CLI) newLogger(s config.Settings) (*logging.Logger, error) {
	level := logging.LogLevelError
	if s.LogLevel != "" {
		parsed, err := logging.ParseLogLevel(s.LogLevel)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	if s.Debug {
		level = logging.LogLevelDebug
	}

	var jsonMode bool
	switch strings.ToLower(s.LogFormat) {
	case "", "text":
	case "json":
		jsonMode = true
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", s.LogFormat)
	}

	path := s.LogFile
	if path == "" {
		path = config.GetPaths().LogFile
	}

	logCfg := logging.Config{
		Level:    level,
		FilePath: path,
		JSONMode: jsonMode,
		MaxSize:  maxLogSize,
	}
	if s.Debug {
		logCfg.Mirror = cli.stderr
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(cli.stderr, "Warning: %v, logging to stderr\n", err)
		logCfg.FilePath = ""
		logCfg.Mirror = cli.stderr
		return logging.New(logCfg)
	}
	return logger, nil
}

// runAction performs login, the requested action and logout.
func (cli *CLI) runAction(ctx context.Context, action string) error {
	format, err := ParseOutputFormat(cli.outputFlag)
	if err != nil {
		return err
	}

	settings, err := cli.loadSettings()
	if err != nil {
		return err
	}

	logger, err := cli.newLogger(settings)
	if err != nil {
		return err
	}
	defer logger.Close()

	cli.passwordFromKeyring(&settings, logger)

	if err := settings.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingParams) {
			fmt.Fprintln(cli.stderr, "Error: Missing required parameters.")
			fmt.Fprintln(cli.stderr, "Please provide --controller-url, --username, and --password")
			fmt.Fprintln(cli.stderr, "or create a configuration file using --create-config")
		}
		return err
	}

	opts := unifi.Options{
		BaseURL:   settings.ControllerURL,
		Site:      settings.Site,
		Username:  settings.Username,
		Password:  settings.Password,
		VerifyTLS: settings.VerifyTLS,
		CACert:    settings.CACert,
		Timeout:   settings.Timeout,
		Logger:    logger,
	}
	if cli.clientOptions != nil {
		cli.clientOptions(&opts)
	}

	client, err := unifi.NewClient(opts)
	if err != nil {
		return err
	}

	// Logout is attempted on every exit path, failed login included.
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if err := client.Logout(logoutCtx); err != nil {
			logger.Debug("logout failed", "error", err)
		}
	}()

	if err := client.Login(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintln(cli.stderr, "Failed to authenticate with UniFi Controller")
		return fmt.Errorf("authentication failed: %w", err)
	}

	controller := vpn.NewController(client, logger)
	output := NewOutputWriter(format, cli.stdout)

	if action == ActionStatus {
		result, err := controller.Status(ctx, cli.vpnNameFlag)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		return output.Write(result, func() { writeStatusTable(cli.stdout, result) })
	}

	return cli.runToggle(ctx, controller, output, action, settings.Notify)
}

// runToggle pauses or resumes a VPN client and reports the outcome.
func (cli *CLI) runToggle(ctx context.Context, controller *vpn.Controller, output *OutputWriter, action string, notifyEnabled bool) error {
	notifier := cli.NewNotifier(notifyEnabled)

	label := cli.vpnNameFlag
	if label == "" {
		label = "first found"
	}
	verb := "paused"
	if action == ActionResume {
		verb = "resumed"
	}

	var (
		result *vpn.ToggleResult
		err    error
	)
	if action == ActionPause {
		result, err = controller.Pause(ctx, cli.vpnNameFlag)
	} else {
		result, err = controller.Resume(ctx, cli.vpnNameFlag)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = notifier.NotifyFailure(action, err)
		fmt.Fprintf(cli.stderr, "Failed to %s VPN client: %s\n", action, label)
		return err
	}

	if result.Changed {
		_ = notifier.NotifyChanged(result.Name, result.Enabled)
	}

	return output.Write(result, func() {
		fmt.Fprintf(cli.stdout, "Successfully %s VPN client: %s\n", verb, label)
	})
}

// runCreateConfig writes the sample configuration file, by default into the
// working directory.
func (cli *CLI) runCreateConfig() error {
	path := cli.configFlag
	if path == "" {
		path = config.LocalConfigFile
	}

	if err := config.WriteTemplate(path); err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}

	fmt.Fprintf(cli.stdout, "Sample configuration file created: %s\n", path)
	fmt.Fprintln(cli.stdout, "Please edit the file with your UniFi controller details.")
	fmt.Fprintln(cli.stdout, "Set 'debug': true to enable verbose logging.")
	return nil
}
