package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadNamingConfig_WritesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "naming.yaml")

	cfg, err := LoadNamingConfig(path)
	if err != nil {
		t.Fatalf("LoadNamingConfig() error = %v", err)
	}
	if cfg.ServiceAddress != "localhost:7000" || cfg.RegistrationAddress != "localhost:7001" {
		t.Errorf("default addresses = %q, %q", cfg.ServiceAddress, cfg.RegistrationAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	reloaded, err := LoadNamingConfig(path)
	if err != nil {
		t.Fatalf("reloading default config error = %v", err)
	}
	if reloaded.ServiceAddress != cfg.ServiceAddress ||
		reloaded.Discovery.DialTimeout != cfg.Discovery.DialTimeout ||
		reloaded.Log != cfg.Log {
		t.Errorf("reloaded config = %+v, want %+v", reloaded, cfg)
	}
}

func TestLoadNamingConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		check   func(t *testing.T, cfg *NamingConfig)
	}{
		{
			name: "explicit values",
			content: `
node_id: ns1
transport: HTTP
service_address: 10.0.0.1:9000
registration_address: 10.0.0.1:9001
metrics_address: localhost:9100
log:
  dir: /var/log/dfs
  level: debug
discovery:
  type: etcd
  endpoints: [etcd1:2379, etcd2:2379]
  dial_timeout: 2s
`,
			check: func(t *testing.T, cfg *NamingConfig) {
				if cfg.Transport != TransportHTTP {
					t.Errorf("Transport = %q, want http", cfg.Transport)
				}
				if cfg.Log.Level != "DEBUG" {
					t.Errorf("Log.Level = %q, want DEBUG", cfg.Log.Level)
				}
				if cfg.Discovery.DialTimeout != 2*time.Second || len(cfg.Discovery.Endpoints) != 2 {
					t.Errorf("Discovery = %+v", cfg.Discovery)
				}
			},
		},
		{
			name: "partial file keeps defaults",
			content: `
service_address: localhost:8000
registration_address: localhost:8001
`,
			check: func(t *testing.T, cfg *NamingConfig) {
				if cfg.NodeID != "naming" || cfg.Transport != TransportGRPC || cfg.Log.Dir != "logs" {
					t.Errorf("defaults not kept: %+v", cfg)
				}
			},
		},
		{
			name: "same address for both interfaces",
			content: `
service_address: localhost:8000
registration_address: localhost:8000
`,
			wantErr: ErrInvalidConfig,
		},
		{
			name: "unknown transport",
			content: `
transport: carrier-pigeon
`,
			wantErr: ErrInvalidConfig,
		},
		{
			name: "etcd without endpoints",
			content: `
discovery:
  type: etcd
`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "malformed yaml",
			content: "service_address: [unterminated",
			wantErr: ErrParseFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadNamingConfig(writeConfig(t, tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoadNamingConfig() error = %v, want %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadStorageConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		check   func(t *testing.T, cfg *StorageConfig)
	}{
		{
			name: "generated node id and root dir",
			content: `
client_address: localhost:7200
command_address: localhost:7201
naming_address: localhost:7001
`,
			check: func(t *testing.T, cfg *StorageConfig) {
				if cfg.NodeID == "" {
					t.Fatal("NodeID not generated")
				}
				if cfg.RootDir != filepath.Join("data", cfg.NodeID) {
					t.Errorf("RootDir = %q", cfg.RootDir)
				}
			},
		},
		{
			name: "static discovery needs naming address",
			content: `
naming_address: ""
`,
			wantErr: ErrInvalidConfig,
		},
		{
			name: "etcd discovery without naming address",
			content: `
naming_address: ""
discovery:
  type: etcd
  endpoints: [localhost:2379]
`,
		},
		{
			name: "client and command share an address",
			content: `
client_address: localhost:7200
command_address: localhost:7200
`,
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadStorageConfig(writeConfig(t, tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoadStorageConfig() error = %v, want %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadClientConfig(t *testing.T) {
	cfg, err := LoadClientConfig(writeConfig(t, "naming_address: nameserver:7000\ntimeout: 1m\n"))
	if err != nil {
		t.Fatalf("LoadClientConfig() error = %v", err)
	}
	if cfg.NamingAddress != "nameserver:7000" || cfg.Timeout != time.Minute {
		t.Errorf("LoadClientConfig() = %+v", cfg)
	}

	if _, err := LoadClientConfig(writeConfig(t, "naming_address: not-an-address\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid naming address error = %v, want %v", err, ErrInvalidConfig)
	}
}
