package cluster_service

import "context"

// NamingAddresses are the two endpoints a naming server listens on: the
// service interface used by clients and the registration interface used by
// storage nodes.
type NamingAddresses struct {
	NodeID       string `json:"node_id"`
	Service      string `json:"service"`
	Registration string `json:"registration"`
}

func (a NamingAddresses) IsZero() bool {
	return a.Service == "" && a.Registration == ""
}

// ClusterService lets a naming server advertise itself and lets storage nodes
// and clients find it.
type ClusterService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Publish advertises addrs until Stop.
	Publish(ctx context.Context, addrs NamingAddresses) error

	// Resolve returns the addresses of the published naming server.
	Resolve(ctx context.Context) (NamingAddresses, error)

	// Watch registers a callback run whenever the published addresses change.
	Watch(callback func(NamingAddresses))
}
