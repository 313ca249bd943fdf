// Command kvnode launches a single linekv cluster node, grounded on
// boot_handler.py's argparse launcher and the teacher's cmd/server
// flag-based bootstrap (rewritten atop cobra per the rest of the pack's
// CLI convention).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linekv/internal/cluster"
	"linekv/internal/config"
	"linekv/internal/frontend"
	"linekv/internal/store"
	"linekv/pkg/klog"
	"linekv/pkg/kmetrics"
)

var (
	flagHost      string
	flagPort      int
	flagNodeID    int
	flagDataDir   string
	flagRole      string
	flagMode      string
	flagPeers     string
	flagDropRate  float64
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kvnode",
	Short: "linekv cluster node",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flagHost, "host", "127.0.0.1", "bind host")
	rootCmd.Flags().IntVar(&flagPort, "port", 9000, "bind port")
	rootCmd.Flags().IntVar(&flagNodeID, "node-id", 1, "unique node id")
	rootCmd.Flags().StringVar(&flagDataDir, "data-dir", "./data", "data directory")
	rootCmd.Flags().StringVar(&flagRole, "role", "primary", "initial role: primary|secondary")
	rootCmd.Flags().StringVar(&flagMode, "mode", "leader", "cluster mode: leader|dynamo")
	rootCmd.Flags().StringVar(&flagPeers, "peers", "", "JSON array of {node_id,host,port} peers")
	rootCmd.Flags().Float64Var(&flagDropRate, "drop-rate", 0, "snapshot fault-injection probability")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "optional YAML config file")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.Flags().StringVar(&flagLogFormat, "log-format", "console", "log format: console|json")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Node{
		Host:               flagHost,
		Port:               flagPort,
		NodeID:             flagNodeID,
		DataDir:            flagDataDir,
		Role:               flagRole,
		Mode:               flagMode,
		DropRate:           flagDropRate,
		ReplicationTimeout: 2 * time.Second,
		ElectionInterval:   500 * time.Millisecond,
		LogLevel:           flagLogLevel,
		LogFormat:          flagLogFormat,
	}
	if flagPeers != "" {
		var peers []config.PeerConfig
		if err := json.Unmarshal([]byte(flagPeers), &peers); err != nil {
			return fmt.Errorf("kvnode: parse --peers: %w", err)
		}
		cfg.Peers = peers
	}
	if flagConfig != "" {
		loaded, err := config.LoadYAML(flagConfig, cfg)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	klog.Init(klog.Config{
		Level: klog.Level(cfg.LogLevel),
		JSON:  cfg.LogFormat == "json",
	})
	log := klog.WithNodeID(cfg.NodeID)

	engine, err := store.NewEngine(cfg.DataDir, cfg.DropRate)
	if err != nil {
		return fmt.Errorf("kvnode: init storage engine: %w", err)
	}
	defer engine.Close()

	metrics := kmetrics.New()
	membership := cluster.NewMembership(cfg.NodeID, cfg.ClusterPeers(), cfg.ClusterRole())
	replicator := cluster.NewReplicator(membership, metrics, cfg.ReplicationTimeout)
	coordinator := cluster.NewCoordinator(membership, metrics, cfg.ReplicationTimeout, cfg.ElectionInterval)
	server := frontend.NewServer(engine, membership, replicator, metrics, frontend.Mode(cfg.Mode))

	replicator.Start()
	coordinator.Start()

	serveErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		serveErr <- server.Serve(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("kvnode: serve: %w", err)
		}
	}

	server.Stop()
	replicator.Stop()
	coordinator.Stop()
	log.Info().Msg("shutdown complete")
	return nil
}
