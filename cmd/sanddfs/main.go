package main

import (
	"flag"
	"log"
	"strings"

	"github.com/AnishMulay/sanddfs/internal/config"
	"github.com/AnishMulay/sanddfs/servers/naming"
	"github.com/AnishMulay/sanddfs/servers/storage"
)

func main() {
	var (
		role          = flag.String("role", "naming", "Node role (naming|storage)")
		configPath    = flag.String("config", "", "Path to the YAML config file (default ./config/<role>.yaml)")
		nodeID        = flag.String("node-id", "", "Node ID")
		transport     = flag.String("transport", "", "Transport (grpc|http)")
		service       = flag.String("service", "", "Naming service listen address")
		registration  = flag.String("registration", "", "Naming registration listen address")
		client        = flag.String("client", "", "Storage client interface listen address")
		command       = flag.String("command", "", "Storage command interface listen address")
		namingAddr    = flag.String("naming", "", "Naming server registration address")
		rootDir       = flag.String("root", "", "Storage root directory")
		logDir        = flag.String("log-dir", "", "Log directory")
		logLevel      = flag.String("log-level", "", "Minimum log level (DEBUG|INFO|WARN|ERROR)")
		metricsAddr   = flag.String("metrics", "", "Prometheus metrics listen address")
		etcdEndpoints = flag.String("etcd", "", "Comma-separated etcd endpoints; enables etcd discovery")
	)
	flag.Parse()

	if *configPath == "" {
		*configPath = "./config/" + *role + ".yaml"
	}

	var endpoints []string
	if *etcdEndpoints != "" {
		for _, e := range strings.Split(*etcdEndpoints, ",") {
			endpoints = append(endpoints, strings.TrimSpace(e))
		}
	}

	switch *role {
	case "naming":
		cfg, err := config.LoadNamingConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		override(&cfg.NodeID, *nodeID)
		override(&cfg.Transport, *transport)
		override(&cfg.ServiceAddress, *service)
		override(&cfg.RegistrationAddress, *registration)
		override(&cfg.Log.Dir, *logDir)
		override(&cfg.Log.Level, *logLevel)
		override(&cfg.MetricsAddress, *metricsAddr)
		overrideDiscovery(&cfg.Discovery, endpoints)
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}

		server := naming.Build(naming.Options{Config: cfg})
		if err := server.Run(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case "storage":
		cfg, err := config.LoadStorageConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		override(&cfg.NodeID, *nodeID)
		override(&cfg.Transport, *transport)
		override(&cfg.ClientAddress, *client)
		override(&cfg.CommandAddress, *command)
		override(&cfg.NamingAddress, *namingAddr)
		override(&cfg.RootDir, *rootDir)
		override(&cfg.Log.Dir, *logDir)
		override(&cfg.Log.Level, *logLevel)
		override(&cfg.MetricsAddress, *metricsAddr)
		overrideDiscovery(&cfg.Discovery, endpoints)
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}

		server := storage.Build(storage.Options{Config: cfg})
		if err := server.Run(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	default:
		log.Fatalf("Unknown role: %s", *role)
	}
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func overrideDiscovery(d *config.DiscoveryConfig, endpoints []string) {
	if len(endpoints) > 0 {
		d.Type = config.DiscoveryEtcd
		d.Endpoints = endpoints
	}
}
