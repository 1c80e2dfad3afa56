// Package util holds shared flag and configuration plumbing for the
// gridcli subcommands, generalized from cmd/util's viper/godotenv setup in
// the dKV CLI this module descends from.
package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/latticegrid/gridclient/config"
)

// Wrap is the number of characters to wrap help text at.
const Wrap int = 60

// WrapString wraps text at Wrap characters, breaking on word boundaries.
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection flags every gridcli subcommand that
// talks to a cluster needs.
func SetupClientFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("endpoints", "127.0.0.1:10800", WrapString("Comma-separated list of host:port cluster members to try"))
	cmd.PersistentFlags().Int("timeout", 10, WrapString("Handshake and request timeout in seconds"))
	cmd.PersistentFlags().Bool("partition-awareness", true, WrapString("Enable affinity-based routing once at least two nodes are reachable"))
	cmd.PersistentFlags().Bool("tls", false, WrapString("Use TLS for every connection"))
	cmd.PersistentFlags().String("username", "", WrapString("Handshake username, if the cluster requires authentication"))
	cmd.PersistentFlags().String("password", "", WrapString("Handshake password, if the cluster requires authentication"))
}

// InitClientConfig loads .env files and wires viper to read matching
// GRIDCLIENT_-prefixed environment variables.
func InitClientConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("gridclient")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// GetClientConfig reads a config.Config from viper, populated by
// SetupClientFlags's flags (and any matching environment variable or .env
// entry).
func GetClientConfig() *config.Config {
	return &config.Config{
		Endpoints:          strings.Split(viper.GetString("endpoints"), ","),
		UserName:           viper.GetString("username"),
		Password:           viper.GetString("password"),
		UseTLS:             viper.GetBool("tls"),
		PartitionAwareness: viper.GetBool("partition-awareness"),
		TimeoutSecond:      viper.GetInt("timeout"),
	}
}

// BindCommandFlags binds a command's flags to viper so GetClientConfig
// picks up command-line overrides.
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
