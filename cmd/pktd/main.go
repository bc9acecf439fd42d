// Command pktd runs a long-lived pktudp listener daemon, wiring the core
// transport to the optional ambient stack (connection registry, transfer
// audit log, live stats feed) described by a YAML config file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkforge/pktudp/internal/audit"
	"github.com/arkforge/pktudp/internal/config"
	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/internal/registry"
	"github.com/arkforge/pktudp/internal/statsfeed"
	"github.com/arkforge/pktudp/listener"
	"github.com/arkforge/pktudp/pktconn"
)

const version = "0.1.0"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "pktd",
		Short: "Run the pktudp listener daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to YAML config file, required")
	root.MarkFlagRequired("config")

	genDefault := &cobra.Command{
		Use:   "gen-config [path]",
		Short: "Write a default config file to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.WriteConfigFile(config.GenerateDefaultConfig(), args[0])
		},
	}
	root.AddCommand(genDefault)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := obslog.New("pktd", logLevel(cfg.Logging.Level), cfg.Logging.OutputFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.SetMaxFileSize(int64(cfg.Logging.MaxSizeMB) * 1024 * 1024)
	log.SetMaxBackups(cfg.Logging.MaxBackups)
	defer log.Close()

	log.Infof("pktd v%s starting, listen=%s", version, cfg.Listen.Addr)

	opts := []pktconn.Option{
		pktconn.WithRetransmitInterval(cfg.Protocol.RetransmitInterval),
		pktconn.WithMaxLostFrames(cfg.Protocol.MaxLostFrames),
		pktconn.WithLogger(log),
	}

	if cfg.Registry.Enabled {
		reg, err := registry.New(registry.Config{
			Addr: cfg.Registry.Addr,
			DB:   cfg.Registry.DB,
		})
		if err != nil {
			log.Warnf("registry disabled, connect failed: %v", err)
		} else {
			defer reg.Close()
			opts = append(opts, pktconn.WithActivityNotifier(reg))
			log.Info("connection registry enabled")
		}
	}

	var store *audit.Store
	if cfg.Audit.Enabled {
		store, err = audit.Open(cfg.Audit.DSN)
		if err != nil {
			log.Warnf("audit disabled, connect failed: %v", err)
		} else {
			defer store.Close()
			opts = append(opts, pktconn.WithRecorder(store))
			log.Info("transfer audit log enabled")
		}
	}

	var feed *statsfeed.Server
	if cfg.Stats.Enabled {
		feed = statsfeed.New(log)
		go func() {
			log.Infof("stats feed listening on %s", cfg.Stats.Addr)
			if err := feed.ListenAndServe(cfg.Stats.Addr); err != nil {
				log.Errorf("stats feed stopped: %v", err)
			}
		}()
	}

	l, err := listener.Listen(cfg.Listen.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer l.Close()
	log.Infof("listening on %s", l.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
		l.Close()
	}()

	acceptLoop(ctx, l, opts, feed, log)
	log.Info("pktd stopped")
	return nil
}

func logLevel(s string) obslog.Level {
	switch s {
	case "debug":
		return obslog.DEBUG
	case "warn":
		return obslog.WARN
	case "error":
		return obslog.ERROR
	default:
		return obslog.INFO
	}
}

func acceptLoop(ctx context.Context, l *listener.Listener, opts []pktconn.Option, feed *statsfeed.Server, log *obslog.Logger) {
	for {
		conn, err := l.Accept(opts...)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Warnf("accept: %v", err)
				continue
			}
		}
		go serveConn(conn, feed, log)
	}
}

func serveConn(conn *pktconn.Conn, feed *statsfeed.Server, log *obslog.Logger) {
	defer conn.Close()
	for {
		start := time.Now()
		payload, err := conn.Recv()
		if err != nil {
			log.Infof("connection from %s closed: %v", conn.LocalAddr(), err)
			return
		}
		if feed != nil {
			feed.Publish(statsfeed.Snapshot{
				Timestamp:  time.Now(),
				PktSz:      uint32(len(payload)),
				Direction:  "recv",
				PeerAddr:   conn.LocalAddr().String(),
				DurationMS: float64(time.Since(start).Microseconds()) / 1000.0,
			})
		}
	}
}
