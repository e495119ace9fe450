package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

// RootCmd is the root command for gossipchain
var RootCmd = &cobra.Command{
	Use:              "gossipchain",
	Short:            "gossipchain peer-to-peer chain node",
	TraverseChildren: true,
}
