// Package config defines the configuration for a gossipchain node.
//
// Whether a node is started from Go code or from the command line, it reads
// its options from the Config object defined here. The command line also
// looks for an optional configuration file in Config.DataDir:
//
//	gossipchain.toml // or .json, .yaml; keys match the mapstructure tags
package config
