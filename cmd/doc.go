// Package cmd implements the command-line interface for gridclient. It
// provides a small set of operations for exercising a cluster connection
// from a terminal: connecting, issuing a raw put/get against a cache by
// opcode, and reporting the router's live state.
//
// The package is organized into subpackages:
//
//   - gridcli: the actual subcommands (connect, send, status)
//   - util: shared flag and viper/godotenv configuration plumbing
//
// See gridclient -help for the full command list.
package cmd
