package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/gossipchain/src/common"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default configuration values.
const (
	DefaultLogLevel    = "debug"
	DefaultBindAddr    = "127.0.0.1:1337"
	DefaultServiceAddr = "127.0.0.1:8000"
	DefaultDialTimeout = 0 * time.Millisecond
	DefaultNoService   = false
	DefaultMaxLineSize = 32 << 20
)

// Config contains all the configuration properties of a node.
type Config struct {
	// DataDir is the top-level directory where the command line looks for a
	// configuration file. Nothing else is stored there.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// BindAddr is the local address:port where this node accepts peer
	// connections.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is the address reported to operators as the one peers
	// should dial, when BindAddr is not reachable from outside.
	AdvertiseAddr string `mapstructure:"advertise"`

	// Peers lists addresses to connect to at startup. The first one is used
	// to pull the initial chain.
	Peers []string `mapstructure:"peers"`

	// DialTimeout bounds outgoing connection attempts. Zero means no
	// timeout. Reads and writes are never bounded.
	DialTimeout time.Duration `mapstructure:"dial-timeout"`

	// MaxLineSize is the longest message, in bytes, accepted from a peer. A
	// peer sending a longer one is disconnected.
	MaxLineSize int `mapstructure:"max-line-size"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Moniker defines the friendly name of this node
	Moniker string `mapstructure:"moniker"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		BindAddr:    DefaultBindAddr,
		ServiceAddr: DefaultServiceAddr,
		DialTimeout: DefaultDialTimeout,
		MaxLineSize: DefaultMaxLineSize,
		NoService:   DefaultNoService,
	}

	return config
}

// NewTestConfig returns a config object with default values, bound to a
// random local port, and a special logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.BindAddr = "127.0.0.1:0"
	config.NoService = true
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetLogger replaces the logger returned by Logger. Call it before the Config
// is shared.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Logger returns a formatted logrus Entry, with prefix set to "gossipchain".
// Without SetLogger, every call builds a logger from LogLevel; the Config
// itself is never written, so nodes may share it.
func (c *Config) Logger() *logrus.Entry {
	logger := c.logger
	if logger == nil {
		logger = logrus.New()
		logger.Level = LogLevel(c.LogLevel)
		logger.Formatter = new(prefixed.TextFormatter)
	}

	entry := logger.WithField("prefix", "gossipchain")
	if c.Moniker != "" {
		entry = entry.WithField("moniker", c.Moniker)
	}

	return entry
}

// DefaultDataDir return the default directory name for top-level config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Gossipchain")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Gossipchain")
		} else {
			return filepath.Join(home, ".gossipchain")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
