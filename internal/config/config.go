// Package config loads node launch settings from flags and an optional
// YAML file, grounded on node_config.py's DatastoreSettings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"linekv/internal/cluster"
)

// PeerConfig is one entry of the --peers JSON array / config file peer list.
type PeerConfig struct {
	NodeID int    `yaml:"node_id" json:"node_id"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
}

// Node is the full set of settings a kvnode process launches with.
type Node struct {
	Host    string       `yaml:"host"`
	Port    int          `yaml:"port"`
	NodeID  int          `yaml:"node_id"`
	DataDir string       `yaml:"data_dir"`
	Role    string       `yaml:"role"`
	Mode    string       `yaml:"mode"`
	Peers   []PeerConfig `yaml:"peers"`

	DropRate           float64       `yaml:"drop_rate"`
	ReplicationTimeout time.Duration `yaml:"replication_timeout"`
	ElectionInterval   time.Duration `yaml:"election_interval"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LoadYAML reads and parses a YAML config file, overlaying it onto a
// default Node. Fields absent from the file keep their default value.
func LoadYAML(path string, base Node) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Node{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return Node{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return out, nil
}

// ClusterRole converts the string role into a cluster.Role.
func (n Node) ClusterRole() cluster.Role {
	if n.Role == "secondary" {
		return cluster.Secondary
	}
	return cluster.Primary
}

// ClusterPeers converts the configured peer list into cluster.Peer values.
func (n Node) ClusterPeers() []cluster.Peer {
	peers := make([]cluster.Peer, len(n.Peers))
	for i, p := range n.Peers {
		peers[i] = cluster.Peer{NodeID: p.NodeID, Host: p.Host, Port: p.Port}
	}
	return peers
}

// Validate checks that role and mode hold one of their allowed values.
func (n Node) Validate() error {
	if n.Role != "primary" && n.Role != "secondary" {
		return fmt.Errorf("config: role must be \"primary\" or \"secondary\", got %q", n.Role)
	}
	if n.Mode != "leader" && n.Mode != "dynamo" {
		return fmt.Errorf("config: mode must be \"leader\" or \"dynamo\", got %q", n.Mode)
	}
	return nil
}
