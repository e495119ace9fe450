package commands

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/gossipchain/src/chain"
	"github.com/mosaicnetworks/gossipchain/src/config"
	"github.com/mosaicnetworks/gossipchain/src/node"
	"github.com/mosaicnetworks/gossipchain/src/service"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// NewRunCmd returns the command that starts a node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runNode,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runNode(cmd *cobra.Command, args []string) error {
	logger := _config.Node.Logger()

	n, err := startNode(&_config.Node, _config.Genesis)
	if err != nil {
		logger.WithError(err).Error("Cannot start node")
		return err
	}
	defer n.Close()

	if !_config.Node.NoService {
		serviceServer := service.NewService[string](_config.Node.ServiceAddr, n, logger)
		go serviceServer.Serve()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if _config.Stdin {
		go readBlocks(n, logger)
	}

	<-sigCh
	logger.Debug("Reacting to signal - shutting down")

	return nil
}

// startNode creates a node from the genesis payload, or from the first peer
// when peers are configured, then connects to the remaining peers.
func startNode(conf *config.Config, genesis string) (*node.Node[string], error) {
	logger := conf.Logger()

	if len(conf.Peers) == 0 {
		var tip *chain.Block[string]
		if genesis != "" {
			tip = chain.NewGenesis(genesis)
		}
		return node.NewNode(conf, tip)
	}

	n, err := node.JoinNode[string](conf, conf.Peers[0])
	if err != nil {
		return nil, err
	}

	for _, peer := range conf.Peers[1:] {
		if err := n.AddNode(peer); err != nil {
			logger.WithError(err).WithField("peer", peer).Warn("Cannot connect to peer")
		}
	}

	return n, nil
}

// readBlocks appends every line typed on stdin as a new block.
func readBlocks(n *node.Node[string], logger *logrus.Entry) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		if _, err := n.AddBlock(text); err != nil {
			fmt.Printf("Error in AddBlock: %v\n", err)
		}
		fmt.Printf("chain length: %d\n", n.GetChain().Len())
	}
	if err := scanner.Err(); err != nil {
		logger.WithError(err).Error("Reading stdin")
	}
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Node.DataDir, "Directory containing the optional gossipchain config file")
	cmd.Flags().String("log", _config.Node.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs to this file")
	cmd.Flags().String("moniker", _config.Node.Moniker, "Optional name")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Node.BindAddr, "Listen IP:Port for gossipchain node")
	cmd.Flags().StringP("advertise", "a", _config.Node.AdvertiseAddr, "Advertise IP:Port for gossipchain node")
	cmd.Flags().StringSliceP("peers", "p", _config.Node.Peers, "IP:Port of peers to connect to; the first one provides the initial chain")
	cmd.Flags().DurationP("dial-timeout", "t", _config.Node.DialTimeout, "Dial timeout, 0 for none")
	cmd.Flags().Int("max-line-size", _config.Node.MaxLineSize, "Longest message in bytes accepted from a peer")

	// Chain
	cmd.Flags().StringP("genesis", "g", _config.Genesis, "Payload of the genesis block when no peer is given")
	cmd.Flags().Bool("stdin", _config.Stdin, "Append every line read from stdin as a block")

	// Service
	cmd.Flags().Bool("no-service", _config.Node.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Node.ServiceAddr, "Listen IP:Port for HTTP service")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	_config.Node.SetLogger(newLogger(_config.Node.LogLevel, _config.LogFile))

	logFields := logrus.Fields{
		"node.DataDir":       _config.Node.DataDir,
		"node.BindAddr":      _config.Node.BindAddr,
		"node.AdvertiseAddr": _config.Node.AdvertiseAddr,
		"node.Peers":         _config.Node.Peers,
		"node.DialTimeout":   _config.Node.DialTimeout,
		"node.MaxLineSize":   _config.Node.MaxLineSize,
		"node.NoService":     _config.Node.NoService,
		"node.ServiceAddr":   _config.Node.ServiceAddr,
		"node.LogLevel":      _config.Node.LogLevel,
		"node.Moniker":       _config.Node.Moniker,
		"Genesis":            _config.Genesis,
		"LogFile":            _config.LogFile,
		"Stdin":              _config.Stdin,
	}

	_config.Node.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/gossipchain.toml (.json, .yaml also work)
	viper.SetConfigName("gossipchain")        // name of config file (without extension)
	viper.AddConfigPath(_config.Node.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Node.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Node.Logger().Debugf("No config file found in: %s", _config.Node.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

// newLogger builds the process logger. When logFile is set, every entry at or
// above the configured level is also written there.
func newLogger(level string, logFile string) *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(level)
	logger.Formatter = new(prefixed.TextFormatter)

	if logFile == "" {
		return logger
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logger.Infof("Failed to open %s, using default stderr", logFile)
		return logger
	}
	f.Close()

	pathMap := lfshook.PathMap{}
	for _, l := range logrus.AllLevels {
		pathMap[l] = logFile
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return logger
}
