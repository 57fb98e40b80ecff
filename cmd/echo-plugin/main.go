// Echo plugin - a minimal gangway plugin that completes the handshake
// with an empty schema set and echoes host messages until the channel
// closes.
package main

import (
	"fmt"
	"os"

	"github.com/solweaver/gangway/channel"
	"github.com/solweaver/gangway/plugin"
	"github.com/solweaver/gangway/schema"
)

func main() {
	conn, err := plugin.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening channels: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	set, err := schema.NewSet()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building schema set: %v\n", err)
		os.Exit(1)
	}
	if err := conn.Handshake(set); err != nil {
		fmt.Fprintf(os.Stderr, "Handshake failed: %v\n", err)
		os.Exit(1)
	}

	for {
		msg, err := conn.Recv(channel.Block)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
			os.Exit(1)
		}
		if _, err := conn.Send(msg, channel.Block); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			os.Exit(1)
		}
	}
}
