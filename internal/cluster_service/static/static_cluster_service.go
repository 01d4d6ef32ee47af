package static

import (
	"context"
	"sync"

	cluster "github.com/AnishMulay/sanddfs/internal/cluster_service"
	"github.com/AnishMulay/sanddfs/internal/log_service"
)

// StaticClusterService resolves to addresses fixed in configuration. Publish
// replaces them in-process, which is enough for a single binary and for tests.
type StaticClusterService struct {
	mu        sync.RWMutex
	addrs     cluster.NamingAddresses
	published bool
	callbacks []func(cluster.NamingAddresses)
	ls        log_service.LogService
}

func NewStaticClusterService(addrs cluster.NamingAddresses, ls log_service.LogService) *StaticClusterService {
	return &StaticClusterService{addrs: addrs, ls: ls}
}

func (s *StaticClusterService) Start(ctx context.Context) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Static cluster service started",
		Metadata: map[string]any{"service": s.addrs.Service, "registration": s.addrs.Registration},
	})
	return nil
}

func (s *StaticClusterService) Stop(ctx context.Context) error {
	return nil
}

func (s *StaticClusterService) Publish(ctx context.Context, addrs cluster.NamingAddresses) error {
	if addrs.Service == "" || addrs.Registration == "" {
		return cluster.ErrInvalidAddresses
	}

	s.mu.Lock()
	if s.published {
		s.mu.Unlock()
		return cluster.ErrAlreadyPublished
	}
	s.addrs = addrs
	s.published = true
	callbacks := append([]func(cluster.NamingAddresses){}, s.callbacks...)
	s.mu.Unlock()

	s.ls.Info(log_service.LogEvent{
		Message:  "Naming server published",
		Metadata: map[string]any{"id": addrs.NodeID, "service": addrs.Service, "registration": addrs.Registration},
	})
	for _, cb := range callbacks {
		cb(addrs)
	}
	return nil
}

func (s *StaticClusterService) Resolve(ctx context.Context) (cluster.NamingAddresses, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addrs.IsZero() {
		return cluster.NamingAddresses{}, cluster.ErrNotPublished
	}
	return s.addrs, nil
}

func (s *StaticClusterService) Watch(callback func(cluster.NamingAddresses)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

var _ cluster.ClusterService = (*StaticClusterService)(nil)
