// Package tunbridge relays IP packets between a TUN device and a pktudp
// connection, adapted from pkg/layer3's TUNInterface: water.New to create
// the device, an ip-command-driven address configuration step on Linux,
// and an async write queue on the connection-to-device path so a slow TUN
// write never blocks receiving packets from the connection.
package tunbridge

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/songgao/water"

	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/pktconn"
)

// Device wraps a TUN interface bridged to one pktudp connection.
type Device struct {
	iface      *water.Interface
	conn       *pktconn.Conn
	log        *obslog.Logger
	writeQueue chan []byte
	wg         sync.WaitGroup
}

// Open creates a TUN device named name (empty lets the OS pick one),
// assigns cidr to it if non-empty, and binds it to conn.
func Open(name, cidr string, conn *pktconn.Conn, log *obslog.Logger) (*Device, error) {
	if log == nil {
		log = obslog.GetDefault()
	}

	cfg := water.Config{DeviceType: water.TUN}
	if name != "" {
		cfg.Name = name
	}
	iface, err := water.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("tunbridge: create tun device: %w", err)
	}

	if cidr != "" {
		if err := configureLinux(iface.Name(), cidr); err != nil {
			iface.Close()
			return nil, fmt.Errorf("tunbridge: configure address: %w", err)
		}
	}

	d := &Device{
		iface:      iface,
		conn:       conn,
		log:        log,
		writeQueue: make(chan []byte, 2048),
	}

	d.wg.Add(1)
	go d.writeWorker()

	log.Infof("tunbridge: device %s up", iface.Name())
	return d, nil
}

// Name returns the OS-assigned TUN device name.
func (d *Device) Name() string { return d.iface.Name() }

// Run pumps packets between the TUN device and the connection until
// either side fails. It blocks until done.
func (d *Device) Run() error {
	errCh := make(chan error, 2)
	go func() { errCh <- d.pumpTunToConn() }()
	go func() { errCh <- d.pumpConnToTun() }()
	return <-errCh
}

func (d *Device) pumpTunToConn() error {
	buf := make([]byte, 1500)
	for {
		n, err := d.iface.Read(buf)
		if err != nil {
			return fmt.Errorf("tunbridge: read tun: %w", err)
		}
		pkt := append([]byte(nil), buf[:n]...)
		if err := d.conn.Send(pkt); err != nil {
			d.log.Warnf("tunbridge: send dropped packet: %v", err)
		}
	}
}

func (d *Device) pumpConnToTun() error {
	for {
		pkt, err := d.conn.Recv()
		if err != nil {
			return fmt.Errorf("tunbridge: recv: %w", err)
		}
		select {
		case d.writeQueue <- pkt:
		default:
			d.log.Warn("tunbridge: write queue full, dropping packet")
		}
	}
}

func (d *Device) writeWorker() {
	defer d.wg.Done()
	for pkt := range d.writeQueue {
		if _, err := d.iface.Write(pkt); err != nil {
			d.log.Warnf("tunbridge: write tun: %v", err)
		}
	}
}

// Close shuts down the write worker and releases the TUN device.
func (d *Device) Close() error {
	close(d.writeQueue)
	d.wg.Wait()
	return d.iface.Close()
}

func configureLinux(name, cidr string) error {
	if err := exec.Command("ip", "link", "set", "dev", name, "up").Run(); err != nil {
		return fmt.Errorf("bring up interface: %w", err)
	}
	if err := exec.Command("ip", "addr", "add", cidr, "dev", name).Run(); err != nil {
		return fmt.Errorf("assign address: %w", err)
	}
	return nil
}
