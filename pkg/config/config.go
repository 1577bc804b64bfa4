// Package config loads and validates a replica's cluster configuration,
// the way the teacher's pkg/cluster validates ClusterConfig before a node
// joins.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// PeerConfig names one other replica this process should link to at
// startup — the static "actors" set from §3.
type PeerConfig struct {
	ID   string `yaml:"id" validate:"required,numeric"`
	Addr string `yaml:"addr" validate:"required"`
}

// ReplicaConfig is the full bootstrap configuration for one songlist
// replica process, parsed from an optional YAML file and overridable by
// CLI flags in cmd/songlist-replica.
type ReplicaConfig struct {
	SelfID string `yaml:"self_id" validate:"required,numeric"`

	// Addr is this replica's own address, reported to operators in the
	// startup log; it is not dialed or listened on directly — each pairwise
	// link in Peers carries its own address instead, since the pair
	// socket protocol is strictly one-to-one.
	Addr string `yaml:"addr"`

	Peers []PeerConfig `yaml:"peers" validate:"dive"`

	BeatRate       time.Duration `yaml:"beat_rate"`
	AliveThreshold time.Duration `yaml:"alive_threshold"`
	BootstrapDelay time.Duration `yaml:"bootstrap_delay"`

	// MasterAddr is the address this replica listens on for the master's
	// connection. The master always dials in — a replica accepts whichever
	// master connects rather than tracking a master's own address.
	MasterAddr string `yaml:"master_addr"`

	// AuthSecret is a shared secret for pkg/authtoken session tokens. At
	// least 32 characters, the same floor the teacher's JWTManager enforces.
	// cmd/songlist-replica validates it but does not otherwise read it.
	AuthSecret string `yaml:"auth_secret" validate:"omitempty,min=32"`

	DatabaseURL string `yaml:"database_url"`

	ArchiveBucket   string        `yaml:"archive_bucket"`
	ArchiveInterval time.Duration `yaml:"archive_interval"`

	MetricsAddr string `yaml:"metrics_addr"`
	RoomQLAddr  string `yaml:"roomql_addr"`

	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultReplicaConfig mirrors DefaultClusterConfig's role: safe defaults
// for everything a flag or YAML key doesn't override.
func DefaultReplicaConfig() ReplicaConfig {
	return ReplicaConfig{
		BeatRate:        500 * time.Millisecond,
		AliveThreshold:  1500 * time.Millisecond,
		BootstrapDelay:  3000 * time.Millisecond,
		ArchiveInterval: 5 * time.Minute,
		MetricsAddr:     ":9090",
		LogLevel:        "info",
	}
}

// LoadYAML reads and parses a YAML config file on top of the defaults.
func LoadYAML(path string) (ReplicaConfig, error) {
	cfg := DefaultReplicaConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration with go-playground/validator, the
// way pkg/auth and pkg/compliance validate their own config structs.
func (c *ReplicaConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	if c.AliveThreshold <= c.BeatRate {
		return fmt.Errorf("config: alive_threshold (%s) must exceed beat_rate (%s)", c.AliveThreshold, c.BeatRate)
	}
	for _, p := range c.Peers {
		if p.ID == c.SelfID {
			return fmt.Errorf("config: peer id %q collides with self_id", p.ID)
		}
	}
	return nil
}
