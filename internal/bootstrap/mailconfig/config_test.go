package mailconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"eppie-mail/go-core/internal/backend"
)

func boolPtr(v bool) *bool {
	return &v
}

func TestMergeOverridesScalars(t *testing.T) {
	dst := backend.DefaultConfig()
	src := DaemonNetworkConfig{
		Transport:           "go-waku",
		Backends:            []string{"relay-a"},
		MinPeers:            4,
		StoreQueryFanout:    5,
		ReconnectInterval:   2 * time.Second,
		ReconnectBackoffMax: 45 * time.Second,
	}

	Merge(&dst, src)

	if dst.Transport != "go-waku" {
		t.Fatalf("expected transport=go-waku, got %q", dst.Transport)
	}
	if len(dst.Backends) != 1 || dst.Backends[0] != "relay-a" {
		t.Fatalf("expected backends=[relay-a], got %v", dst.Backends)
	}
	if dst.MinPeers != 4 {
		t.Fatalf("expected minPeers=4, got %d", dst.MinPeers)
	}
	if dst.StoreQueryFanout != 5 {
		t.Fatalf("expected storeQueryFanout=5, got %d", dst.StoreQueryFanout)
	}
	if dst.ReconnectInterval != 2*time.Second {
		t.Fatalf("expected reconnectInterval=2s, got %s", dst.ReconnectInterval)
	}
	if dst.ReconnectBackoffMax != 45*time.Second {
		t.Fatalf("expected reconnectBackoffMax=45s, got %s", dst.ReconnectBackoffMax)
	}
}

func TestMergeDoesNotOverwriteBoolDefaultsWhenUnset(t *testing.T) {
	dst := backend.DefaultConfig()

	Merge(&dst, DaemonNetworkConfig{Transport: "go-waku"})

	if !dst.EnableRelay || !dst.EnableStore || !dst.EnableFilter || !dst.EnableLightPush || !dst.Failover {
		t.Fatal("unset bool fields must not overwrite existing defaults")
	}
}

func TestMergeAppliesExplicitBoolFalse(t *testing.T) {
	dst := backend.DefaultConfig()
	src := DaemonNetworkConfig{
		EnableRelay: boolPtr(false),
		EnableStore: boolPtr(false),
		Failover:    boolPtr(false),
	}

	Merge(&dst, src)

	if dst.EnableRelay {
		t.Fatal("expected enableRelay=false from explicit config")
	}
	if dst.EnableStore {
		t.Fatal("expected enableStore=false from explicit config")
	}
	if dst.Failover {
		t.Fatal("expected failover=false from explicit config")
	}
}

func TestLoadFromPathReadsFileAndStoreSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
network:
  transport: memory
  backends: [a, b, c]
  storeQueryFanout: 2
store:
  keyPath: /tmp/keys.sealed
  messagePath: /tmp/messages.sealed
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, store := LoadFromPath(path)
	if len(cfg.Backends) != 3 {
		t.Fatalf("expected 3 backends, got %v", cfg.Backends)
	}
	if cfg.StoreQueryFanout != 2 {
		t.Fatalf("expected storeQueryFanout=2, got %d", cfg.StoreQueryFanout)
	}
	if store.KeyPath != "/tmp/keys.sealed" {
		t.Fatalf("unexpected keyPath %q", store.KeyPath)
	}
	if store.MessagePath != "/tmp/messages.sealed" {
		t.Fatalf("unexpected messagePath %q", store.MessagePath)
	}
}

func TestLoadFromPathFallsBackToDefaults(t *testing.T) {
	cfg, _ := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	def := backend.DefaultConfig()
	if cfg.Transport != def.Transport {
		t.Fatalf("expected default transport, got %q", cfg.Transport)
	}
}

func TestApplyEnvOverridesCanDisableFailover(t *testing.T) {
	t.Setenv("EPPIE_NETWORK_FAILOVER", "false")
	cfg := backend.DefaultConfig()
	ApplyEnvOverrides(&cfg)
	if cfg.Failover {
		t.Fatal("expected failover=false from env override")
	}
}

func TestApplyEnvOverridesIgnoresInvalidValue(t *testing.T) {
	t.Setenv("EPPIE_NETWORK_FAILOVER", "invalid")
	cfg := backend.DefaultConfig()
	cfg.Failover = false
	ApplyEnvOverrides(&cfg)
	if cfg.Failover {
		t.Fatal("invalid env value must not change failover")
	}
}

func TestApplyEnvOverridesTransport(t *testing.T) {
	t.Setenv("EPPIE_NETWORK_TRANSPORT", "go-waku")
	cfg := backend.DefaultConfig()
	ApplyEnvOverrides(&cfg)
	if cfg.Transport != "go-waku" {
		t.Fatalf("expected transport=go-waku, got %q", cfg.Transport)
	}
}
