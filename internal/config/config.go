package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"

	DiscoveryStatic = "static"
	DiscoveryEtcd   = "etcd"
)

type LogConfig struct {
	Dir   string `yaml:"dir" validate:"required"`
	Level string `yaml:"level" validate:"oneof=DEBUG INFO WARN ERROR"`
}

type DiscoveryConfig struct {
	Type        string        `yaml:"type" validate:"oneof=static etcd"`
	Endpoints   []string      `yaml:"endpoints,omitempty" validate:"omitempty,dive,hostname_port"`
	Prefix      string        `yaml:"prefix,omitempty"`
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`
	LeaseTTL    int64         `yaml:"lease_ttl,omitempty" validate:"gte=0"`
}

// NamingConfig configures a naming server.
type NamingConfig struct {
	NodeID              string          `yaml:"node_id" validate:"required"`
	Transport           string          `yaml:"transport" validate:"oneof=grpc http"`
	ServiceAddress      string          `yaml:"service_address" validate:"required,hostname_port"`
	RegistrationAddress string          `yaml:"registration_address" validate:"required,hostname_port,nefield=ServiceAddress"`
	MetricsAddress      string          `yaml:"metrics_address,omitempty" validate:"omitempty,hostname_port"`
	Log                 LogConfig       `yaml:"log"`
	Discovery           DiscoveryConfig `yaml:"discovery"`
}

// StorageConfig configures a storage node. NamingAddress is the naming
// server's registration address; it may be left empty when discovery is etcd.
type StorageConfig struct {
	NodeID         string          `yaml:"node_id" validate:"required"`
	Transport      string          `yaml:"transport" validate:"oneof=grpc http"`
	RootDir        string          `yaml:"root_dir" validate:"required"`
	ClientAddress  string          `yaml:"client_address" validate:"required,hostname_port"`
	CommandAddress string          `yaml:"command_address" validate:"required,hostname_port,nefield=ClientAddress"`
	NamingAddress  string          `yaml:"naming_address,omitempty" validate:"omitempty,hostname_port"`
	MetricsAddress string          `yaml:"metrics_address,omitempty" validate:"omitempty,hostname_port"`
	Log            LogConfig       `yaml:"log"`
	Discovery      DiscoveryConfig `yaml:"discovery"`
}

// ClientConfig configures the command line client and the MCP server.
// NamingAddress is the naming server's service address.
type ClientConfig struct {
	NodeID        string          `yaml:"node_id" validate:"required"`
	Transport     string          `yaml:"transport" validate:"oneof=grpc http"`
	NamingAddress string          `yaml:"naming_address,omitempty" validate:"omitempty,hostname_port"`
	Timeout       time.Duration   `yaml:"timeout,omitempty"`
	Log           LogConfig       `yaml:"log"`
	Discovery     DiscoveryConfig `yaml:"discovery"`
}

func DefaultNamingConfig() *NamingConfig {
	cfg := &NamingConfig{
		NodeID:              "naming",
		ServiceAddress:      "localhost:7000",
		RegistrationAddress: "localhost:7001",
	}
	cfg.ApplyDefaults()
	return cfg
}

func DefaultStorageConfig() *StorageConfig {
	cfg := &StorageConfig{
		ClientAddress:  "localhost:7100",
		CommandAddress: "localhost:7101",
		NamingAddress:  "localhost:7001",
	}
	cfg.ApplyDefaults()
	return cfg
}

func DefaultClientConfig() *ClientConfig {
	cfg := &ClientConfig{
		NamingAddress: "localhost:7000",
	}
	cfg.ApplyDefaults()
	return cfg
}

func (l *LogConfig) applyDefaults() {
	if l.Dir == "" {
		l.Dir = "logs"
	}
	l.Level = strings.ToUpper(l.Level)
	if l.Level == "" {
		l.Level = "INFO"
	}
}

func (d *DiscoveryConfig) applyDefaults() {
	d.Type = strings.ToLower(d.Type)
	if d.Type == "" {
		d.Type = DiscoveryStatic
	}
	if d.DialTimeout == 0 {
		d.DialTimeout = 5 * time.Second
	}
}

func applyTransportDefault(transport *string) {
	*transport = strings.ToLower(*transport)
	if *transport == "" {
		*transport = TransportGRPC
	}
}

func (c *NamingConfig) ApplyDefaults() {
	applyTransportDefault(&c.Transport)
	c.Log.applyDefaults()
	c.Discovery.applyDefaults()
}

// ApplyDefaults fills unset fields. A storage node without an id gets a fresh
// uuid and, without a root directory, stores under data/<id>.
func (c *StorageConfig) ApplyDefaults() {
	if c.NodeID == "" {
		c.NodeID = uuid.NewString()
	}
	if c.RootDir == "" {
		c.RootDir = filepath.Join("data", c.NodeID)
	}
	applyTransportDefault(&c.Transport)
	c.Log.applyDefaults()
	c.Discovery.applyDefaults()
}

func (c *ClientConfig) ApplyDefaults() {
	if c.NodeID == "" {
		c.NodeID = "client-" + uuid.NewString()[:8]
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	applyTransportDefault(&c.Transport)
	c.Log.applyDefaults()
	c.Discovery.applyDefaults()
}

type config interface {
	ApplyDefaults()
	Validate() error
}

// load reads path into cfg. When path does not exist the defaults in cfg are
// written there and returned.
func load[T config](path string, cfg T) (T, error) {
	var zero T

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return zero, fmt.Errorf("%w: %w", ErrWriteDefaultFailed, err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return zero, fmt.Errorf("%w: %w", ErrWriteDefaultFailed, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return zero, fmt.Errorf("%w: %w", ErrWriteDefaultFailed, err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return zero, err
	}
	return cfg, nil
}

func LoadNamingConfig(path string) (*NamingConfig, error) {
	return load(path, DefaultNamingConfig())
}

func LoadStorageConfig(path string) (*StorageConfig, error) {
	return load(path, DefaultStorageConfig())
}

func LoadClientConfig(path string) (*ClientConfig, error) {
	return load(path, DefaultClientConfig())
}
