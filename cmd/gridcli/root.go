// Package gridcli implements the gridclient CLI's subcommands: connect
// (a connectivity smoke test), send (issue one raw opcode/payload request,
// optionally affinity-routed) and status (report the router's state).
package gridcli

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/latticegrid/gridclient"
	"github.com/latticegrid/gridclient/cmd/util"
	"github.com/latticegrid/gridclient/logging"
	"github.com/latticegrid/gridclient/protocol"
	"github.com/latticegrid/gridclient/wire"
)

var defaultCodec = wire.NewDefaultCodec()

var ConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the cluster and report success or failure",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newConnectedClient(cmd)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		fmt.Printf("connected, router state: %s\n", client.State())
		return nil
	},
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect and print the router's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newConnectedClient(cmd)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		fmt.Printf("state: %s\n", client.State())
		return nil
	},
}

var SendCmd = &cobra.Command{
	Use:   "send <opcode> <hex-payload>",
	Short: "Send one raw request and print the hex-encoded response",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opCode, err := strconv.ParseInt(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid opcode %q: %w", args[0], err)
		}
		payload, err := hex.DecodeString(args[1])
		if err != nil {
			return fmt.Errorf("invalid hex payload: %w", err)
		}

		client, err := newConnectedClient(cmd)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		hint, err := affinityHintFromFlags(cmd)
		if err != nil {
			return err
		}

		value, err := client.Send(protocol.OpCode(opCode),
			func([]byte) ([]byte, error) { return payload, nil },
			func(body []byte) (interface{}, error) { return body, nil },
			hint,
		)
		if err != nil {
			return err
		}

		body, _ := value.([]byte)
		fmt.Println(hex.EncodeToString(body))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{ConnectCmd, StatusCmd, SendCmd} {
		util.SetupClientFlags(cmd)
	}

	SendCmd.Flags().Int32("cache-id", 0, util.WrapString("Cache id to route the request to, if affinity-aware routing should be used"))
	SendCmd.Flags().String("key", "", util.WrapString("Affinity key, used together with --cache-id"))
}

func newConnectedClient(cmd *cobra.Command) (*gridclient.Client, error) {
	if err := util.BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	util.InitClientConfig()

	level, _ := cmd.Flags().GetString("log-level")
	logging.Init(level)

	cfg := util.GetClientConfig()

	client := gridclient.New(defaultCodec)
	if err := client.Connect(*cfg); err != nil {
		return nil, err
	}
	return client, nil
}

func affinityHintFromFlags(cmd *cobra.Command) (*gridclient.AffinityHint, error) {
	cacheId, _ := cmd.Flags().GetInt32("cache-id")
	key, _ := cmd.Flags().GetString("key")

	if cacheId == 0 && strings.TrimSpace(key) == "" {
		return nil, nil
	}

	return &gridclient.AffinityHint{
		CacheId: cacheId,
		Key:     key,
	}, nil
}
