package config

import (
	"path/filepath"
	"testing"
)

func TestGenerateDefaultConfigValidates(t *testing.T) {
	c := GenerateDefaultConfig()
	if err := c.validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pktudp.yaml")

	want := GenerateDefaultConfig()
	want.Listen.Addr = "127.0.0.1:9100"
	if err := WriteConfigFile(want, path); err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Listen.Addr != "127.0.0.1:9100" {
		t.Fatalf("Listen.Addr = %q, want %q", got.Listen.Addr, "127.0.0.1:9100")
	}
	if got.Protocol.MaxLostFrames != 10 {
		t.Fatalf("MaxLostFrames = %d, want 10", got.Protocol.MaxLostFrames)
	}
}

func TestLoadConfigRejectsBadLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := WriteConfigFile(&Config{Logging: LoggingConfig{Level: "verbose"}}, path); err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for bad logging level")
	}
}

func TestLoadConfigRequiresAuditDSN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.yaml")
	c := GenerateDefaultConfig()
	c.Audit.Enabled = true
	if err := WriteConfigFile(c, path); err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error when audit enabled without dsn")
	}
}
