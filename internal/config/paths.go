package config

import (
	"os"
	"path/filepath"
)

// ArchonRoot returns archon's XDG config directory
// (<XDG_CONFIG_HOME or $HOME/.config>/archon), one of the directories
// Load searches for config.yaml.
func ArchonRoot() string {
	return getXDGConfigDir()
}

func getXDGConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), ".config", "archon")
			}
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "archon")
}
