package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cluster "github.com/AnishMulay/sanddfs/internal/cluster_service"
	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/config"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	locallog "github.com/AnishMulay/sanddfs/internal/log_service/localdisc"
	"github.com/AnishMulay/sanddfs/internal/remote"
	storageserver "github.com/AnishMulay/sanddfs/internal/server/storage"
	sslocal "github.com/AnishMulay/sanddfs/internal/storage_service/localdisc"
	"github.com/AnishMulay/sanddfs/servers/wire"
)

type Options struct {
	Config *config.StorageConfig
}

type runnable interface {
	Run() error
}

// StorageNode is a storage server plus the lookup of the naming server it
// registers with.
type StorageNode struct {
	cfg        *config.StorageConfig
	ls         *locallog.LocalDiscLogService
	server     *storageserver.StorageServer
	clientComm communication.Communicator
	metrics    *wire.Metrics
}

func (n *StorageNode) Start(ctx context.Context) error {
	if err := os.MkdirAll(n.cfg.RootDir, 0755); err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}

	addrs, err := wire.ResolveNaming(ctx, n.cfg.Discovery, cluster.NamingAddresses{
		Registration: n.cfg.NamingAddress,
	}, n.ls)
	if err != nil {
		return fmt.Errorf("resolve naming server: %w", err)
	}
	n.ls.Info(log_service.LogEvent{
		Message:  "Registering with naming server",
		Metadata: map[string]any{"registration": addrs.Registration},
	})

	registration := remote.NewRegistrationStub(addrs.Registration, n.clientComm)
	if err := n.server.Start(ctx, registration); err != nil {
		return err
	}

	if err := n.metrics.Start(); err != nil {
		n.ls.Warn(log_service.LogEvent{
			Message:  "Metrics endpoint unavailable",
			Metadata: map[string]any{"error": err.Error()},
		})
	}
	return nil
}

func (n *StorageNode) Stop(ctx context.Context) error {
	errServer := n.server.Stop()
	errMetrics := n.metrics.Stop(ctx)
	n.ls.Info(log_service.LogEvent{Message: "Storage node stopped"})
	_ = n.ls.Close()
	return errors.Join(errServer, errMetrics)
}

func (n *StorageNode) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := n.Start(ctx)
	cancel()
	if err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return n.Stop(stopCtx)
}

func Build(opts Options) runnable {
	return New(opts)
}

// New wires a storage node from opts without starting it.
func New(opts Options) *StorageNode {
	cfg := opts.Config

	// 1. Logging
	ls := locallog.NewLocalDiscLogService(cfg.Log.Dir, cfg.NodeID, cfg.Log.Level)

	// 2. Communication
	clientComm, err := wire.NewCommunicator(cfg.Transport, cfg.ClientAddress, ls)
	if err != nil {
		panic(err)
	}
	commandComm, err := wire.NewCommunicator(cfg.Transport, cfg.CommandAddress, ls)
	if err != nil {
		panic(err)
	}

	// 3. Local storage
	store := sslocal.NewLocalDiscStorageService(cfg.RootDir, ls)

	// 4. Metrics and server
	m := wire.NewMetrics(cfg.MetricsAddress, ls)
	srv := storageserver.NewStorageServer(clientComm, commandComm, store, ls, m.For("storage"))

	return &StorageNode{
		cfg:        cfg,
		ls:         ls,
		server:     srv,
		clientComm: clientComm,
		metrics:    m,
	}
}
