package backend

import (
	"errors"
	"fmt"
	"time"
)

const (
	TransportMemory = "memory"
	TransportGoWaku = "go-waku"
)

var ErrUnknownTransport = errors.New("backend: unknown transport")

// Config selects the transport and shapes the node behind it. The
// memory transport spins up one independent backend per listed name;
// go-waku runs a single networked backend.
type Config struct {
	Transport           string        `yaml:"transport"`
	Backends            []string      `yaml:"backends"`
	Port                int           `yaml:"port"`
	BootstrapNodes      []string      `yaml:"bootstrapNodes"`
	MinPeers            int           `yaml:"minPeers"`
	StoreQueryFanout    int           `yaml:"storeQueryFanout"`
	ReconnectInterval   time.Duration `yaml:"reconnectInterval"`
	ReconnectBackoffMax time.Duration `yaml:"reconnectBackoffMax"`
	EnableRelay         bool          `yaml:"enableRelay"`
	EnableStore         bool          `yaml:"enableStore"`
	EnableFilter        bool          `yaml:"enableFilter"`
	EnableLightPush     bool          `yaml:"enableLightPush"`
	Failover            bool          `yaml:"failover"`
}

func DefaultConfig() Config {
	return Config{
		Transport:           TransportMemory,
		Backends:            []string{"primary", "mirror"},
		Port:                60000,
		MinPeers:            2,
		StoreQueryFanout:    3,
		ReconnectInterval:   1 * time.Second,
		ReconnectBackoffMax: 30 * time.Second,
		EnableRelay:         true,
		EnableStore:         true,
		EnableFilter:        true,
		EnableLightPush:     true,
		Failover:            true,
	}
}

func normalizeConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Transport == "" {
		cfg.Transport = def.Transport
	}
	if len(cfg.Backends) == 0 {
		cfg.Backends = append([]string(nil), def.Backends...)
	}
	if cfg.StoreQueryFanout <= 0 {
		cfg.StoreQueryFanout = def.StoreQueryFanout
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = def.ReconnectInterval
	}
	if cfg.ReconnectBackoffMax <= 0 {
		cfg.ReconnectBackoffMax = def.ReconnectBackoffMax
	}
	if cfg.ReconnectBackoffMax < cfg.ReconnectInterval {
		cfg.ReconnectBackoffMax = cfg.ReconnectInterval
	}
	if cfg.MinPeers < 0 {
		cfg.MinPeers = 0
	}
	return cfg
}

// BuildClients turns a config into the set of backends the mailbox
// fans out over.
func BuildClients(cfg Config) ([]Client, error) {
	cfg = normalizeConfig(cfg)
	switch cfg.Transport {
	case TransportMemory:
		clients := make([]Client, 0, len(cfg.Backends))
		for _, name := range cfg.Backends {
			clients = append(clients, NewMemory(name))
		}
		return clients, nil
	case TransportGoWaku:
		c, err := newWakuClient(cfg)
		if err != nil {
			return nil, err
		}
		return []Client{c}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}
