package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/bubo/internal/blocklist"
	"firestige.xyz/bubo/internal/config"
	"firestige.xyz/bubo/internal/forwarder"
	"firestige.xyz/bubo/internal/log"
	"firestige.xyz/bubo/internal/metrics"
	"firestige.xyz/bubo/internal/observer"
	"firestige.xyz/bubo/internal/pipeline"
	"firestige.xyz/bubo/internal/tunnel"
)

var tunFD uint

// runCmd runs a filtering session in the foreground.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a DNS filtering session in foreground",
	Long: `Run a filtering session over an already-established tunnel device.

The session will:
  1. Load configuration and initialize logging
  2. Start the metrics server (if enabled)
  3. Attach to the tunnel device file descriptor passed via --tun-fd
  4. Process frames until SIGTERM or SIGINT, then shut down in order:
     stop reading, close the upstream socket, close the device`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession()
	},
}

func init() {
	runCmd.Flags().UintVar(&tunFD, "tun-fd", 0,
		"tunnel device file descriptor inherited from the supervising process")
	_ = runCmd.MarkFlagRequired("tun-fd")
}

func runSession() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer srv.Stop(context.Background())
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	device := tunnel.FromFD(uintptr(tunFD))
	fwd := forwarder.New(forwarder.Config{Timeout: cfg.Upstream.Timeout})
	store := observer.NewStore(cfg.Blocklist.ObservedLimit)

	session, err := pipeline.New(pipeline.Config{
		Device:    device,
		Engine:    engine,
		Exchanger: fwd,
		Upstream:  cfg.UpstreamAddrPort(),
		Sink:      store,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("session starting",
		"upstream", cfg.UpstreamAddrPort(),
		"tun_fd", tunFD,
	)

	// Shutdown order matters: cancel stops the read loop before the
	// handles are closed, so no read returns on a dead descriptor.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
		fwd.Close()
		device.Close()
	}()

	err = session.Run(ctx)

	stats := session.Stats()
	slog.Info("session finished",
		"received", stats.Received,
		"blocked", stats.Blocked,
		"forwarded", stats.Forwarded,
		"dropped", stats.Dropped,
	)
	return err
}

// buildEngine assembles the blocklist engine from the built-in defaults,
// the optional extra file and the configured user overrides.
func buildEngine(cfg *config.Config) (*blocklist.Engine, error) {
	defaults := blocklist.DefaultDomains
	if cfg.Blocklist.ExtraFile != "" {
		extra, err := blocklist.LoadFile(cfg.Blocklist.ExtraFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load extra blocklist: %w", err)
		}
		defaults = append(append([]string{}, defaults...), extra...)
		slog.Info("loaded extra blocklist", "path", cfg.Blocklist.ExtraFile, "domains", len(extra))
	}

	engine := blocklist.New(defaults)
	engine.UpdateUserDomains(cfg.Blocklist.UserBlocked)
	engine.UpdateUserUnblockedDomains(cfg.Blocklist.UserUnblocked)
	return engine, nil
}
