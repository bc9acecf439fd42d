// Command tunbridge bridges a TUN device to a single pktudp connection,
// either by dialing a listener or by accepting one incoming connection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/internal/tunbridge"
	"github.com/arkforge/pktudp/listener"
	"github.com/arkforge/pktudp/pktconn"
)

func main() {
	var (
		devName string
		cidr    string
	)

	root := &cobra.Command{Use: "tunbridge"}

	dial := &cobra.Command{
		Use:   "dial [addr]",
		Short: "Create a TUN device and dial a pktudp listener",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := obslog.GetDefault()
			conn, err := pktconn.Connect(args[0], pktconn.WithLogger(log))
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			return bridgeAndRun(devName, cidr, conn, log)
		},
	}
	dial.Flags().StringVar(&devName, "dev", "", "TUN device name, empty lets the OS choose")
	dial.Flags().StringVar(&cidr, "addr", "", "CIDR address to assign to the TUN device, e.g. 10.10.0.2/24")

	accept := &cobra.Command{
		Use:   "listen [addr]",
		Short: "Create a TUN device and accept one pktudp connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := obslog.GetDefault()
			l, err := listener.Listen(args[0])
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			defer l.Close()
			fmt.Fprintf(os.Stderr, "listening on %s\n", l.Addr())

			conn, err := l.Accept(pktconn.WithLogger(log))
			if err != nil {
				return fmt.Errorf("accept: %w", err)
			}
			return bridgeAndRun(devName, cidr, conn, log)
		},
	}
	accept.Flags().StringVar(&devName, "dev", "", "TUN device name, empty lets the OS choose")
	accept.Flags().StringVar(&cidr, "addr", "", "CIDR address to assign to the TUN device, e.g. 10.10.0.1/24")

	root.AddCommand(dial, accept)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bridgeAndRun(devName, cidr string, conn *pktconn.Conn, log *obslog.Logger) error {
	defer conn.Close()
	dev, err := tunbridge.Open(devName, cidr, conn, log)
	if err != nil {
		return err
	}
	defer dev.Close()
	fmt.Fprintf(os.Stderr, "bridging %s\n", dev.Name())
	return dev.Run()
}
