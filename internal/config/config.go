// Package config loads the HCL configuration for the table server.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/holdemtable/internal/game"
)

// Config represents the complete server configuration
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Tables []TableConfig   `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address        string `hcl:"address,optional"`
	LogLevel       string `hcl:"log_level,optional"`
	ActionTimeout  string `hcl:"action_timeout,optional"`
	HandHistoryDir string `hcl:"hand_history_dir,optional"`
	AMQPURL        string `hcl:"amqp_url,optional"`
	AMQPExchange   string `hcl:"amqp_exchange,optional"`
}

// TableConfig defines one table hosted by the server
type TableConfig struct {
	Name          string `hcl:"name,label"`
	SmallBlind    int    `hcl:"small_blind,optional"`
	BigBlind      int    `hcl:"big_blind,optional"`
	StartingStack int    `hcl:"starting_stack,optional"`
	MaxSeats      int    `hcl:"max_seats,optional"`
	AutoContinue  *bool  `hcl:"auto_continue,optional"`
	Showdown      string `hcl:"showdown,optional"`
}

const (
	DefaultAddress       = ":8080"
	DefaultLogLevel      = "info"
	DefaultActionTimeout = "30s"
	DefaultAMQPExchange  = "holdem.events"
)

// Default returns the configuration used when no file is given: one table named "main".
func Default() *Config {
	cfg := &Config{Server: &ServerSettings{}, Tables: []TableConfig{{Name: "main"}}}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from an HCL file. A missing file yields Default().
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decode(file.Body)
}

// Parse decodes configuration from HCL source held in memory
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*Config, error) {
	var cfg Config
	if diags := gohcl.DecodeBody(body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	if cfg.Server == nil {
		cfg.Server = &ServerSettings{}
	}
	if len(cfg.Tables) == 0 {
		cfg.Tables = []TableConfig{{Name: "main"}}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Server.ActionTimeout == "" {
		c.Server.ActionTimeout = DefaultActionTimeout
	}
	if c.Server.AMQPExchange == "" {
		c.Server.AMQPExchange = DefaultAMQPExchange
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.SmallBlind == 0 {
			t.SmallBlind = game.DefaultSmallBlind
		}
		if t.BigBlind == 0 {
			t.BigBlind = game.DefaultBigBlind
		}
		if t.StartingStack == 0 {
			t.StartingStack = game.DefaultStartingStack
		}
		if t.MaxSeats == 0 {
			t.MaxSeats = game.MaxSeats
		}
		if t.AutoContinue == nil {
			enabled := true
			t.AutoContinue = &enabled
		}
		if t.Showdown == "" {
			t.Showdown = game.FirstAfterDealer{}.Name()
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.ActionTimeout(); err != nil {
		return err
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if seen[t.Name] {
			return fmt.Errorf("table %s: defined more than once", t.Name)
		}
		seen[t.Name] = true

		if t.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", t.Name)
		}
		if t.BigBlind < t.SmallBlind {
			return fmt.Errorf("table %s: big blind must be at least the small blind", t.Name)
		}
		if t.StartingStack < t.BigBlind {
			return fmt.Errorf("table %s: starting stack must cover the big blind", t.Name)
		}
		if t.MaxSeats < game.MinSeats || t.MaxSeats > game.MaxSeats {
			return fmt.Errorf("table %s: max seats must be between %d and %d", t.Name, game.MinSeats, game.MaxSeats)
		}
		if _, err := game.ParseShowdownPolicy(t.Showdown); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	return nil
}

// ActionTimeout returns how long a player may think before being folded. Zero disables the timer.
func (c *Config) ActionTimeout() (time.Duration, error) {
	if c.Server.ActionTimeout == "0" || c.Server.ActionTimeout == "off" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Server.ActionTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid action_timeout %q: %w", c.Server.ActionTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid action_timeout %q: must not be negative", c.Server.ActionTimeout)
	}
	return d, nil
}

// GetTableByName returns a table configuration by name
func (c *Config) GetTableByName(name string) *TableConfig {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i]
		}
	}
	return nil
}

// Options converts the table configuration into game table options
func (t TableConfig) Options() ([]game.TableOption, error) {
	policy, err := game.ParseShowdownPolicy(t.Showdown)
	if err != nil {
		return nil, err
	}
	autoContinue := t.AutoContinue == nil || *t.AutoContinue
	return []game.TableOption{
		game.WithBlinds(t.SmallBlind, t.BigBlind),
		game.WithStartingStack(t.StartingStack),
		game.WithMaxSeats(t.MaxSeats),
		game.WithAutoContinue(autoContinue),
		game.WithShowdownPolicy(policy),
	}, nil
}
