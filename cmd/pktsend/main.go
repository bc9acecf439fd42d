// Command pktsend connects to a pktudp listener and sends a single packet
// read from stdin or a file.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/internal/secure"
	"github.com/arkforge/pktudp/pktconn"
)

func main() {
	var (
		addr       string
		inputPath  string
		retransmit time.Duration
		maxLost    int
		secureKey  string
	)

	root := &cobra.Command{
		Use:   "pktsend",
		Short: "Send a single packet over a reliable pktudp connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(inputPath)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			if secureKey != "" {
				payload, err = sealPayload(secureKey, payload)
				if err != nil {
					return fmt.Errorf("seal payload: %w", err)
				}
			}

			log := obslog.GetDefault()
			conn, err := pktconn.Connect(addr,
				pktconn.WithRetransmitInterval(retransmit),
				pktconn.WithMaxLostFrames(maxLost),
				pktconn.WithLogger(log),
			)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", addr, err)
			}
			defer conn.Close()

			if err := conn.Send(payload); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			fmt.Fprintf(os.Stderr, "sent %d bytes to %s\n", len(payload), addr)
			return nil
		},
	}

	root.Flags().StringVar(&addr, "addr", "", "listener address (host:port), required")
	root.Flags().StringVar(&inputPath, "in", "-", "file to send, - for stdin")
	root.Flags().DurationVar(&retransmit, "retransmit-interval", 200*time.Millisecond, "NACK/ACK wait before retry")
	root.Flags().IntVar(&maxLost, "max-lost-frames", 16, "consecutive timeouts tolerated before giving up")
	root.Flags().StringVar(&secureKey, "secure-key", "", "hex-encoded 32-byte key; when set, the payload is sealed before sending")
	root.MarkFlagRequired("addr")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func sealPayload(hexKey string, payload []byte) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode secure-key: %w", err)
	}
	c, err := secure.New(key)
	if err != nil {
		return nil, err
	}
	return c.Seal(payload)
}
