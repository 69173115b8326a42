// Package mailconfig loads the daemon configuration file and folds in
// environment overrides on top of the transport defaults.
package mailconfig

import (
	"os"
	"strconv"
	"strings"
	"time"

	"eppie-mail/go-core/internal/backend"

	"gopkg.in/yaml.v3"
)

type DaemonConfig struct {
	Network DaemonNetworkConfig `yaml:"network"`
	Store   DaemonStoreConfig   `yaml:"store"`
}

type DaemonNetworkConfig struct {
	Transport           string        `yaml:"transport"`
	Backends            []string      `yaml:"backends"`
	Port                int           `yaml:"port"`
	BootstrapNodes      []string      `yaml:"bootstrapNodes"`
	MinPeers            int           `yaml:"minPeers"`
	StoreQueryFanout    int           `yaml:"storeQueryFanout"`
	ReconnectInterval   time.Duration `yaml:"reconnectInterval"`
	ReconnectBackoffMax time.Duration `yaml:"reconnectBackoffMax"`
	EnableRelay         *bool         `yaml:"enableRelay"`
	EnableStore         *bool         `yaml:"enableStore"`
	EnableFilter        *bool         `yaml:"enableFilter"`
	EnableLightPush     *bool         `yaml:"enableLightPush"`
	Failover            *bool         `yaml:"failover"`
}

type DaemonStoreConfig struct {
	KeyPath     string `yaml:"keyPath"`
	MessagePath string `yaml:"messagePath"`
}

// LoadFromPath reads the first readable candidate config file and
// returns transport defaults when none parses.
func LoadFromPath(configPath string) (backend.Config, DaemonStoreConfig) {
	cfg := backend.DefaultConfig()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"go-core/configs/config.yaml",
			"configs/config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var parsed DaemonConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}

		merged := cfg
		Merge(&merged, parsed.Network)
		ApplyEnvOverrides(&merged)
		return merged, parsed.Store
	}

	ApplyEnvOverrides(&cfg)
	return cfg, DaemonStoreConfig{}
}

func Merge(dst *backend.Config, src DaemonNetworkConfig) {
	if src.Transport != "" {
		dst.Transport = src.Transport
	}
	if src.Backends != nil {
		dst.Backends = src.Backends
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.BootstrapNodes != nil {
		dst.BootstrapNodes = src.BootstrapNodes
	}
	if src.MinPeers != 0 {
		dst.MinPeers = src.MinPeers
	}
	if src.StoreQueryFanout != 0 {
		dst.StoreQueryFanout = src.StoreQueryFanout
	}
	if src.ReconnectInterval != 0 {
		dst.ReconnectInterval = src.ReconnectInterval
	}
	if src.ReconnectBackoffMax != 0 {
		dst.ReconnectBackoffMax = src.ReconnectBackoffMax
	}
	if src.EnableRelay != nil {
		dst.EnableRelay = *src.EnableRelay
	}
	if src.EnableStore != nil {
		dst.EnableStore = *src.EnableStore
	}
	if src.EnableFilter != nil {
		dst.EnableFilter = *src.EnableFilter
	}
	if src.EnableLightPush != nil {
		dst.EnableLightPush = *src.EnableLightPush
	}
	if src.Failover != nil {
		dst.Failover = *src.Failover
	}
}

func ApplyEnvOverrides(cfg *backend.Config) {
	if transport := strings.TrimSpace(os.Getenv("EPPIE_NETWORK_TRANSPORT")); transport != "" {
		cfg.Transport = transport
	}

	raw := strings.TrimSpace(os.Getenv("EPPIE_NETWORK_FAILOVER"))
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return
	}
	cfg.Failover = v
}
