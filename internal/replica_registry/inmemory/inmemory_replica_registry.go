package inmemory

import (
	"slices"
	"sync"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	rr "github.com/AnishMulay/sanddfs/internal/replica_registry"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

type InMemoryReplicaRegistry struct {
	mu        sync.RWMutex
	endpoints []ss.Endpoint
	replicas  map[dfs_path.Path][]ss.Endpoint
}

func NewInMemoryReplicaRegistry() *InMemoryReplicaRegistry {
	return &InMemoryReplicaRegistry{
		endpoints: []ss.Endpoint{},
		replicas:  make(map[dfs_path.Path][]ss.Endpoint),
	}
}

func (r *InMemoryReplicaRegistry) RegisterEndpoint(ep ss.Endpoint) error {
	if !ep.IsValid() {
		return rr.ErrInvalidEndpoint
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.endpoints, ep) {
		return rr.ErrEndpointAlreadyRegistered
	}
	r.endpoints = append(r.endpoints, ep)
	return nil
}

// Endpoints returns the registered endpoints in registration order.
func (r *InMemoryReplicaRegistry) Endpoints() []ss.Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.endpoints)
}

func (r *InMemoryReplicaRegistry) AddReplica(file dfs_path.Path, ep ss.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.endpoints, ep) {
		return rr.ErrEndpointNotRegistered
	}
	if slices.Contains(r.replicas[file], ep) {
		return nil
	}
	r.replicas[file] = append(r.replicas[file], ep)
	return nil
}

func (r *InMemoryReplicaRegistry) Replicas(file dfs_path.Path) ([]ss.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	holders, ok := r.replicas[file]
	if !ok || len(holders) == 0 {
		return nil, rr.ErrNoReplicas
	}
	return slices.Clone(holders), nil
}

func (r *InMemoryReplicaRegistry) RemoveUnder(path dfs_path.Path) []ss.Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	var holders []ss.Endpoint
	for file, eps := range r.replicas {
		if !file.IsSubpath(path) {
			continue
		}
		for _, ep := range eps {
			if !slices.Contains(holders, ep) {
				holders = append(holders, ep)
			}
		}
		delete(r.replicas, file)
	}
	return holders
}

var _ rr.ReplicaRegistry = (*InMemoryReplicaRegistry)(nil)
