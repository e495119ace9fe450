package commands

import (
	"github.com/mosaicnetworks/gossipchain/src/config"
)

// CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Node    config.Config `mapstructure:",squash"`
	Genesis string        `mapstructure:"genesis"`
	LogFile string        `mapstructure:"log-file"`
	Stdin   bool          `mapstructure:"stdin"`
}

// NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Node:    *config.NewDefaultConfig(),
		Genesis: "",
		LogFile: "",
		Stdin:   true,
	}
}
