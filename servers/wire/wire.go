// Package wire builds the collaborators shared by the naming server, the
// storage node and the clients from their configuration.
package wire

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	sandlib "github.com/AnishMulay/sanddfs/clients/library"
	cluster "github.com/AnishMulay/sanddfs/internal/cluster_service"
	clusteretcd "github.com/AnishMulay/sanddfs/internal/cluster_service/etcd"
	clusterstatic "github.com/AnishMulay/sanddfs/internal/cluster_service/static"
	"github.com/AnishMulay/sanddfs/internal/communication"
	grpccomm "github.com/AnishMulay/sanddfs/internal/communication/grpc"
	httpcomm "github.com/AnishMulay/sanddfs/internal/communication/http"
	"github.com/AnishMulay/sanddfs/internal/config"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	"github.com/AnishMulay/sanddfs/internal/metrics"
)

func NewCommunicator(transport, addr string, ls log_service.LogService) (communication.Communicator, error) {
	switch transport {
	case config.TransportGRPC, "":
		return grpccomm.NewGRPCCommunicator(addr, ls), nil
	case config.TransportHTTP:
		return httpcomm.NewHTTPCommunicator(addr, ls), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

// NewClusterService returns the discovery backend named by cfg. A static
// backend resolves to fallback.
func NewClusterService(cfg config.DiscoveryConfig, fallback cluster.NamingAddresses, ls log_service.LogService) cluster.ClusterService {
	if cfg.Type == config.DiscoveryEtcd {
		opts := []clusteretcd.Option{clusteretcd.WithDialTimeout(cfg.DialTimeout)}
		if cfg.Prefix != "" {
			opts = append(opts, clusteretcd.WithPrefix(cfg.Prefix))
		}
		if cfg.LeaseTTL > 0 {
			opts = append(opts, clusteretcd.WithLeaseTTL(cfg.LeaseTTL))
		}
		return clusteretcd.NewEtcdClusterService(cfg.Endpoints, ls, opts...)
	}
	return clusterstatic.NewStaticClusterService(fallback, ls)
}

// ResolveNaming starts a cluster service just long enough to look up the
// naming server's addresses.
func ResolveNaming(ctx context.Context, cfg config.DiscoveryConfig, fallback cluster.NamingAddresses, ls log_service.LogService) (cluster.NamingAddresses, error) {
	cs := NewClusterService(cfg, fallback, ls)
	if err := cs.Start(ctx); err != nil {
		return cluster.NamingAddresses{}, err
	}
	defer cs.Stop(context.WithoutCancel(ctx))
	return cs.Resolve(ctx)
}

// Metrics holds a registry and the HTTP server exposing it. The zero value,
// returned when no address is configured, records nothing.
type Metrics struct {
	Registry *prometheus.Registry
	server   *metrics.Server
}

func NewMetrics(addr string, ls log_service.LogService) *Metrics {
	if addr == "" {
		return &Metrics{}
	}
	reg := metrics.NewRegistry()
	return &Metrics{Registry: reg, server: metrics.NewServer(addr, reg, ls)}
}

func (m *Metrics) For(service string) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(m.Registry, service)
}

func (m *Metrics) Start() error {
	if m.server == nil {
		return nil
	}
	return m.server.Start()
}

func (m *Metrics) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Stop(ctx)
}

// NewClient resolves the naming server's service address and returns a
// client talking to it. The communicator is returned so callers can stop it.
func NewClient(ctx context.Context, cfg *config.ClientConfig, ls log_service.LogService) (*sandlib.SanddfsClient, communication.Communicator, error) {
	addrs, err := ResolveNaming(ctx, cfg.Discovery, cluster.NamingAddresses{
		Service: cfg.NamingAddress,
	}, ls)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve naming server: %w", err)
	}

	comm, err := NewCommunicator(cfg.Transport, cfg.NodeID, ls)
	if err != nil {
		return nil, nil, err
	}
	return sandlib.NewRemoteClient(addrs.Service, comm), comm, nil
}
