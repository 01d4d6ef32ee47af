package replica_registry

import (
	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// ReplicaRegistry tracks the registered storage endpoints and which of them
// hold a replica of each file. Implementations must be safe for concurrent use.
type ReplicaRegistry interface {
	RegisterEndpoint(ep ss.Endpoint) error
	Endpoints() []ss.Endpoint

	AddReplica(file dfs_path.Path, ep ss.Endpoint) error
	Replicas(file dfs_path.Path) ([]ss.Endpoint, error)

	// RemoveUnder drops every entry for path or a file nested below it and
	// returns the distinct endpoints that held any of them.
	RemoveUnder(path dfs_path.Path) []ss.Endpoint
}
