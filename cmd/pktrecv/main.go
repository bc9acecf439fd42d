// Command pktrecv listens for a single incoming pktudp connection, accepts
// it, receives one packet, and writes it to stdout or a file.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/internal/secure"
	"github.com/arkforge/pktudp/listener"
	"github.com/arkforge/pktudp/pktconn"
)

func main() {
	var (
		addr       string
		outputPath string
		retransmit time.Duration
		maxLost    int
		secureKey  string
	)

	root := &cobra.Command{
		Use:   "pktrecv",
		Short: "Accept one pktudp connection and receive a single packet",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := obslog.GetDefault()

			l, err := listener.Listen(addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			defer l.Close()
			fmt.Fprintf(os.Stderr, "listening on %s\n", l.Addr())

			conn, err := l.Accept(
				pktconn.WithRetransmitInterval(retransmit),
				pktconn.WithMaxLostFrames(maxLost),
				pktconn.WithLogger(log),
			)
			if err != nil {
				return fmt.Errorf("accept: %w", err)
			}
			defer conn.Close()

			payload, err := conn.Recv()
			if err != nil {
				return fmt.Errorf("recv: %w", err)
			}
			if secureKey != "" {
				payload, err = openPayload(secureKey, payload)
				if err != nil {
					return fmt.Errorf("open payload: %w", err)
				}
			}
			return writePayload(outputPath, payload)
		},
	}

	root.Flags().StringVar(&addr, "addr", "127.0.0.1:0", "address to listen on")
	root.Flags().StringVar(&outputPath, "out", "-", "file to write the received packet to, - for stdout")
	root.Flags().DurationVar(&retransmit, "retransmit-interval", 200*time.Millisecond, "NACK/ACK wait before retry")
	root.Flags().IntVar(&maxLost, "max-lost-frames", 16, "consecutive timeouts tolerated before giving up")
	root.Flags().StringVar(&secureKey, "secure-key", "", "hex-encoded 32-byte key; when set, the received payload is opened before writing")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writePayload(path string, payload []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func openPayload(hexKey string, sealed []byte) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode secure-key: %w", err)
	}
	c, err := secure.New(key)
	if err != nil {
		return nil, err
	}
	return c.Open(sealed)
}
