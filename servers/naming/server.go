package naming

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	cluster "github.com/AnishMulay/sanddfs/internal/cluster_service"
	"github.com/AnishMulay/sanddfs/internal/config"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	locallog "github.com/AnishMulay/sanddfs/internal/log_service/localdisc"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	nsinmemory "github.com/AnishMulay/sanddfs/internal/naming_service/inmemory"
	rrinmemory "github.com/AnishMulay/sanddfs/internal/replica_registry/inmemory"
	namingserver "github.com/AnishMulay/sanddfs/internal/server/naming"
	"github.com/AnishMulay/sanddfs/servers/wire"
)

type Options struct {
	Config *config.NamingConfig
}

type runnable interface {
	Run() error
}

// NamingNode is a naming server together with its discovery entry and
// metrics endpoint.
type NamingNode struct {
	cfg     *config.NamingConfig
	ls      *locallog.LocalDiscLogService
	server  *namingserver.NamingServer
	cluster cluster.ClusterService
	metrics *wire.Metrics
}

func (n *NamingNode) Start(ctx context.Context) error {
	if err := n.cluster.Start(ctx); err != nil {
		return err
	}
	if err := n.server.Start(); err != nil {
		_ = n.cluster.Stop(ctx)
		return err
	}

	addrs := cluster.NamingAddresses{
		NodeID:       n.cfg.NodeID,
		Service:      n.cfg.ServiceAddress,
		Registration: n.cfg.RegistrationAddress,
	}
	if err := n.cluster.Publish(ctx, addrs); err != nil {
		_ = n.server.Stop()
		_ = n.cluster.Stop(ctx)
		return err
	}

	if err := n.metrics.Start(); err != nil {
		n.ls.Warn(log_service.LogEvent{
			Message:  "Metrics endpoint unavailable",
			Metadata: map[string]any{"error": err.Error()},
		})
	}

	n.ls.Info(log_service.LogEvent{
		Message:  "Naming node started",
		Metadata: map[string]any{"id": n.cfg.NodeID, "transport": n.cfg.Transport},
	})
	return nil
}

func (n *NamingNode) Stop(ctx context.Context) error {
	errServer := n.server.Stop()
	errCluster := n.cluster.Stop(ctx)
	errMetrics := n.metrics.Stop(ctx)
	n.ls.Info(log_service.LogEvent{Message: "Naming node stopped"})
	_ = n.ls.Close()
	return errors.Join(errServer, errCluster, errMetrics)
}

func (n *NamingNode) Run() error {
	if err := n.Start(context.Background()); err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return n.Stop(ctx)
}

func Build(opts Options) runnable {
	return New(opts)
}

// New wires a naming node from opts without starting it.
func New(opts Options) *NamingNode {
	cfg := opts.Config

	// 1. Logging
	ls := locallog.NewLocalDiscLogService(cfg.Log.Dir, cfg.NodeID, cfg.Log.Level)

	// 2. Communication, one communicator per interface
	serviceComm, err := wire.NewCommunicator(cfg.Transport, cfg.ServiceAddress, ls)
	if err != nil {
		panic(err)
	}
	registrationComm, err := wire.NewCommunicator(cfg.Transport, cfg.RegistrationAddress, ls)
	if err != nil {
		panic(err)
	}

	// 3. Namespace and replica bookkeeping
	registry := rrinmemory.NewInMemoryReplicaRegistry()
	svc := nsinmemory.NewInMemoryNamingService(registry, ns.RandomSelector, ls)

	// 4. Metrics and discovery
	m := wire.NewMetrics(cfg.MetricsAddress, ls)
	cs := wire.NewClusterService(cfg.Discovery, cluster.NamingAddresses{}, ls)

	// 5. Server
	srv := namingserver.NewNamingServer(serviceComm, registrationComm, svc, svc, ls, m.For("naming"))

	return &NamingNode{
		cfg:     cfg,
		ls:      ls,
		server:  srv,
		cluster: cs,
		metrics: m,
	}
}
