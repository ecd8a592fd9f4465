package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("DYNVLAND_VLAN_NAMING", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.VlanNaming != WithoutDevice {
		t.Fatalf("VlanNaming = %q, want %q", cfg.VlanNaming, WithoutDevice)
	}
	if cfg.Driver != DriverNetlink {
		t.Fatalf("Driver = %q, want %q", cfg.Driver, DriverNetlink)
	}
	if cfg.ListenMetricsAddr != ":9107" {
		t.Fatalf("ListenMetricsAddr = %q, want :9107", cfg.ListenMetricsAddr)
	}
}

func TestLoadParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dynvland.yaml")
	yaml := `
vlan_naming: with_device
vlan_tagged_interface: eth0
vlan_bridge: brvl
bsses:
  - iface: wlan0
    dynamic_vlan: optional
    per_sta_vif: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.VlanNaming != WithDevice {
		t.Fatalf("VlanNaming = %q, want %q", cfg.VlanNaming, WithDevice)
	}
	if cfg.TaggedTrunk != "eth0" {
		t.Fatalf("TaggedTrunk = %q, want eth0", cfg.TaggedTrunk)
	}
	if len(cfg.BSSes) != 1 || cfg.BSSes[0].Iface != "wlan0" {
		t.Fatalf("bsses = %+v", cfg.BSSes)
	}
}

func TestLoadRejectsScriptDriverWithoutPath(t *testing.T) {
	t.Setenv("DYNVLAND_DRIVER", "script")
	t.Setenv("DYNVLAND_SCRIPT_PATH", "")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error for driver=script without a script path")
	}
}

func TestLoadRejectsMissingIface(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dynvland.yaml")
	if err := os.WriteFile(path, []byte("bsses:\n  - iface: \"\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for empty bss iface")
	}
}
