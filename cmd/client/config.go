package client

import (
	"fmt"
	"os"

	"go.miragespace.co/ringstore/util"

	"gopkg.in/yaml.v3"
)

// Config seeds a router with an existing cluster. Seed nodes are assumed to
// already hold their keys; no migration is driven for them.
type Config struct {
	VirtualNodes int      `yaml:"virtualNodes,omitempty"`
	Nodes        []string `yaml:"nodes,omitempty"`
}

func NewConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.VirtualNodes < 0 {
		return fmt.Errorf("negative virtualNodes is invalid")
	}
	for _, addr := range c.Nodes {
		if _, err := util.CanonicalizeAddr(addr); err != nil {
			return fmt.Errorf("invalid seed node: %w", err)
		}
	}
	return nil
}
