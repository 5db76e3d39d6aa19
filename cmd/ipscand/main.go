// Package main provides the entry point for ipscand, the HTTP-initiated
// IPv6 port scanner daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/icmp"

	"github.com/ipscand/ipscand/internal/config"
	"github.com/ipscand/ipscand/internal/dispatcher"
	"github.com/ipscand/ipscand/internal/logging"
	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/probe"
	"github.com/ipscand/ipscand/internal/store"
)

var (
	version    = "dev"
	configPath string
	listenAddr string
)

func main() {
	flag.StringVar(&configPath, "config", "/etc/ipscand/config.yaml", "path to configuration file")
	flag.StringVar(&listenAddr, "listen", "", "override the configured listen address")
	showVersion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ipscand %s\n", version)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	logger, err := logging.Build(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Close()

	resultStore, err := newStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer resultStore.Close()

	var current atomic.Pointer[dispatcher.Dispatcher]
	current.Store(buildDispatcher(cfg, resultStore, logger))

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current.Load().ServeHTTP(w, r)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("main", "listening", "ipscand starting", map[string]any{"addr": cfg.Listen})
		serveErrCh <- srv.ListenAndServe()
	}()

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				reloaded, err := config.Load(configPath)
				if err != nil {
					logger.Error("main", "reload_failed", err.Error(), nil)
					continue
				}
				current.Store(buildDispatcher(reloaded, resultStore, logger))
				logger.Info("main", "reloaded", "configuration reloaded; in-flight scans unaffected", nil)
			case syscall.SIGTERM, syscall.SIGINT:
				cancel()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				return srv.Shutdown(shutdownCtx)
			}
		case err := <-serveErrCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// newStore selects bbolt or the in-memory store per cfg.Path, mirroring the
// teacher's pattern of a config-selected storage adapter behind one port.
func newStore(cfg config.StoreConfig) (store.Store, error) {
	if cfg.Path == "" {
		return store.NewMemStore(), nil
	}
	return store.NewBoltStore(cfg.Path)
}

// buildDispatcher wires the configured probes, port catalog, and store into
// a fresh Dispatcher. It is called once at startup and again on SIGHUP so a
// config reload only affects subsequently-dispatched scans.
func buildDispatcher(cfg *config.Config, s store.Store, logger logging.Logger) *dispatcher.Dispatcher {
	d := &dispatcher.Dispatcher{
		Store:     s,
		Logger:    logger,
		Scan:      cfg.Scan,
		Lifecycle: cfg.Store,
		TCPProbe:  probe.NewTCPProbe(cfg.Scan.TCPTimeout.Duration()),
		UDPProbe:  probe.NewUDPProbe(cfg.Scan.UDPTimeout.Duration()),
		TCPPorts:  portcatalog.DefaultTCPPorts,
		UDPPorts:  portcatalog.DefaultUDPPorts,
	}

	if cfg.Scan.EnableICMPv6 {
		if icmpv6Available() {
			d.ICMPv6Probe = probe.NewICMPv6Probe(cfg.Scan.ICMPv6Timeout.Duration())
		} else {
			logger.Warn("main", "icmpv6_unavailable", "CAP_NET_RAW unavailable; disabling ICMPv6 echo probe", nil)
		}
	}

	return d
}

// icmpv6Available reports whether the process can open a raw ICMPv6
// socket, per DESIGN NOTES §9: an implementation MAY omit the ICMPv6 probe
// if the capability is unavailable, but must not silently misreport it as
// ECHONOREPLY — omitting the probe entirely (rather than running it and
// returning PORTINTERROR every time) is the honest reflection of that rule.
func icmpv6Available() bool {
	conn, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
