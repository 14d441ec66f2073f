package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	// AppName is the application name used for directories.
	AppName = "unifi-vpn"
	// ConfigFileName is the configuration file name inside the config directory.
	ConfigFileName = "config.json"
	// LocalConfigFile is looked up in the working directory first.
	LocalConfigFile = "unifi_config.json"
	// LogFileName is the default log file name inside the data directory.
	LogFileName = "unifi_vpn_manager.log"

	// ConfigDirEnvVar overrides the configuration directory.
	ConfigDirEnvVar = "UNIFI_VPN_CONFIG_DIR"
)

// Paths holds the application paths.
type Paths struct {
	ConfigDir  string
	DataDir    string
	ConfigFile string
	LogFile    string
}

// GetPaths returns the application paths following the XDG Base Directory
// layout on Unix and the usual locations on macOS and Windows.
func GetPaths() Paths {
	configDir := getConfigDir()
	dataDir := getDataDir()
	return Paths{
		ConfigDir:  configDir,
		DataDir:    dataDir,
		ConfigFile: filepath.Join(configDir, ConfigFileName),
		LogFile:    filepath.Join(dataDir, LogFileName),
	}
}

// DefaultConfigFile returns unifi_config.json when it exists in the working
// directory, and the per-user config file otherwise.
func DefaultConfigFile() string {
	if info, err := os.Stat(LocalConfigFile); err == nil && !info.IsDir() {
		return LocalConfigFile
	}
	return GetPaths().ConfigFile
}

func getConfigDir() string {
	if dir := os.Getenv(ConfigDirEnvVar); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			return filepath.Join(userProfile, "AppData", "Roaming", AppName)
		}
	case "darwin":
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, AppName)
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Application Support", AppName)
		}
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, AppName)
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", AppName)
		}
	}

	return filepath.Join(".", "."+AppName)
}

func getDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, AppName)
		}
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Logs", AppName)
		}
	default:
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			return filepath.Join(xdgState, AppName)
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".local", "state", AppName)
		}
	}

	return filepath.Join(".", "."+AppName, "data")
}
