// Package config defines the configuration accepted by gridclient.Connect,
// generalizing rpc/common.ClientConfig to the options spec §6 names:
// endpoints, credentials, TLS, and whether to opt into partition-awareness.
package config

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
)

// Config holds every option a caller can set on Connect.
type Config struct {
	// Endpoints is the static list of "host:port" cluster members to try.
	// Required, non-empty.
	Endpoints []string

	// UserName and Password are optional handshake credentials.
	UserName string
	Password string

	// UseTLS selects TLS sockets over plain TCP. TLSConfig is the platform
	// TLS configuration to use when UseTLS is true; nil means the Go
	// standard library's defaults.
	UseTLS    bool
	TLSConfig *tls.Config

	// PartitionAwareness opts into affinity-based routing (spec §1, I3).
	// When false, the router always sends to allSessions()[0].
	PartitionAwareness bool

	// TimeoutSecond bounds handshake and per-request waits. Zero means no
	// timeout (infinite wait, relying on disconnect() for cancellation).
	TimeoutSecond int

	// ConnectionsPerEndpoint mirrors rpc/common.ClientConfig's field of the
	// same name. It is only validated and reported by String(), where zero
	// shows as the default of 1; Connect opens one session per endpoint
	// whatever its value.
	ConnectionsPerEndpoint int
}

// Validate checks the invariants required before Connect may proceed
// (spec §7, KindIllegalArgument).
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("config: at least one endpoint is required")
	}
	for _, ep := range c.Endpoints {
		if strings.TrimSpace(ep) == "" {
			return fmt.Errorf("config: empty endpoint string")
		}
	}
	if c.ConnectionsPerEndpoint < 0 {
		return fmt.Errorf("config: connections per endpoint must be >= 0")
	}
	return nil
}

// String returns a formatted, human-readable summary of the configuration,
// matching the section/field layout of rpc/common.ClientConfig.String().
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Partition Awareness", strconv.FormatBool(c.PartitionAwareness))
	addField("TLS", strconv.FormatBool(c.UseTLS))
	addField("Connections Per Endpoint", strconv.Itoa(connectionsPerEndpoint(c)))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

func connectionsPerEndpoint(c *Config) int {
	if c.ConnectionsPerEndpoint <= 0 {
		return 1
	}
	return c.ConnectionsPerEndpoint
}
