// Package config loads dynvland's configuration from a YAML file with
// environment-variable overrides, the layering the rest of the retrieved
// stack uses for daemon configuration.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DynamicVlanMode is the three-valued config knob for dynamic VLAN support.
type DynamicVlanMode string

const (
	DynamicVlanDisabled DynamicVlanMode = "disabled"
	DynamicVlanOptional DynamicVlanMode = "optional"
	DynamicVlanRequired DynamicVlanMode = "required"
)

// VlanNamingMode selects trunk-child naming.
type VlanNamingMode string

const (
	WithDevice    VlanNamingMode = "with_device"
	WithoutDevice VlanNamingMode = "without_device"
)

// DriverKind selects which OS interface driver implementation to use.
type DriverKind string

const (
	DriverNetlink DriverKind = "netlink"
	DriverScript  DriverKind = "script"
)

// BindingConfig is one configured VLAN binding, concrete or wildcard.
type BindingConfig struct {
	IfName   string `yaml:"ifname"`
	VlanID   int    `yaml:"vlan_id"`
	Untagged int    `yaml:"untagged"`
	Tagged   []int  `yaml:"tagged"`
}

// BSSConfig is the per-BSS configuration block.
type BSSConfig struct {
	Iface       string          `yaml:"iface"`
	WEPKeyed    bool            `yaml:"wep_keyed"`
	DynamicVlan DynamicVlanMode `yaml:"dynamic_vlan"`
	PerStaVIF   bool            `yaml:"per_sta_vif"`
	Bridge      string          `yaml:"bridge"`
	VlanList    []BindingConfig `yaml:"vlan_list"`
}

// Config is the top-level dynvland configuration. Fields with an env tag
// may be overridden by environment variables prefixed DYNVLAND_, following
// the caarlos0/env convention used elsewhere in the retrieved stack for
// daemon configuration; an envDefault only fills a field the YAML file
// left empty.
type Config struct {
	VlanNaming    VlanNamingMode `yaml:"vlan_naming" env:"VLAN_NAMING" envDefault:"without_device"`
	TaggedTrunk   string         `yaml:"vlan_tagged_interface" env:"TAGGED_TRUNK"`
	BridgePrefix  string         `yaml:"vlan_bridge" env:"BRIDGE_PREFIX"`
	Driver        DriverKind     `yaml:"driver" env:"DRIVER" envDefault:"netlink"`
	ScriptPath    string         `yaml:"vlan_script" env:"SCRIPT_PATH"`
	BSSes         []BSSConfig    `yaml:"bsses"`

	ListenMetricsAddr string `yaml:"listen_metrics_addr" env:"LISTEN_METRICS_ADDR" envDefault:":9107"`
	LogLevel          string `yaml:"log_level" env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string `yaml:"log_format" env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads path as YAML, then applies environment-variable overrides.
// An empty path skips the YAML stage and loads defaults plus environment
// overrides only, the mode used by the test suite.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "DYNVLAND_", SetDefaultsForZeroValuesOnly: true}); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fixed invariants Load cannot express through struct
// tags alone: a script driver needs a script path, and every BSS names a
// non-empty interface.
func (c *Config) Validate() error {
	if c.Driver == DriverScript && c.ScriptPath == "" {
		return fmt.Errorf("config: driver=script requires vlan_script to be set")
	}
	for i, bss := range c.BSSes {
		if bss.Iface == "" {
			return fmt.Errorf("config: bsses[%d].iface must not be empty", i)
		}
	}
	return nil
}
