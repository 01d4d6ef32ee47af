package inmemory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	rr "github.com/AnishMulay/sanddfs/internal/replica_registry"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

var p = dfs_path.MustParse

// handle stands in for a remote stub; only its identity matters here.
type handle struct{ name string }

func (h *handle) Size(context.Context, dfs_path.Path) (int64, error) { return 0, nil }
func (h *handle) Read(context.Context, dfs_path.Path, int64, int) ([]byte, error) {
	return nil, nil
}
func (h *handle) Write(context.Context, dfs_path.Path, int64, []byte) error     { return nil }
func (h *handle) Create(context.Context, dfs_path.Path) (bool, error)           { return true, nil }
func (h *handle) Delete(context.Context, dfs_path.Path) (bool, error)           { return true, nil }
func (h *handle) Copy(context.Context, dfs_path.Path, ss.Storage) (bool, error) { return true, nil }

func endpoint(name string) ss.Endpoint {
	h := &handle{name: name}
	return ss.Endpoint{Client: h, Command: h}
}

func TestInMemoryReplicaRegistry_RegisterEndpoint(t *testing.T) {
	e1 := endpoint("e1")
	shared := &handle{name: "shared"}

	tests := []struct {
		name    string
		setupFn func(*InMemoryReplicaRegistry)
		ep      ss.Endpoint
		wantErr error
	}{
		{name: "first registration", ep: e1},
		{
			name:    "same identity twice",
			setupFn: func(r *InMemoryReplicaRegistry) { _ = r.RegisterEndpoint(e1) },
			ep:      e1,
			wantErr: rr.ErrEndpointAlreadyRegistered,
		},
		{
			name:    "shared client handle but different command handle",
			setupFn: func(r *InMemoryReplicaRegistry) { _ = r.RegisterEndpoint(ss.Endpoint{Client: shared, Command: shared}) },
			ep:      ss.Endpoint{Client: shared, Command: &handle{name: "other"}},
		},
		{name: "missing command handle", ep: ss.Endpoint{Client: shared}, wantErr: rr.ErrInvalidEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewInMemoryReplicaRegistry()
			if tt.setupFn != nil {
				tt.setupFn(r)
			}
			err := r.RegisterEndpoint(tt.ep)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RegisterEndpoint() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInMemoryReplicaRegistry_Replicas(t *testing.T) {
	r := NewInMemoryReplicaRegistry()
	e1, e2 := endpoint("e1"), endpoint("e2")
	_ = r.RegisterEndpoint(e1)

	if err := r.AddReplica(p("/f"), e2); !errors.Is(err, rr.ErrEndpointNotRegistered) {
		t.Errorf("AddReplica() unregistered error = %v", err)
	}
	_ = r.RegisterEndpoint(e2)
	_ = r.AddReplica(p("/f"), e1)
	_ = r.AddReplica(p("/f"), e2)
	_ = r.AddReplica(p("/f"), e1)

	got, err := r.Replicas(p("/f"))
	if err != nil {
		t.Fatalf("Replicas() error = %v", err)
	}
	if !slices.Equal(got, []ss.Endpoint{e1, e2}) {
		t.Errorf("Replicas() = %v, want [e1 e2]", got)
	}
	if _, err := r.Replicas(p("/g")); !errors.Is(err, rr.ErrNoReplicas) {
		t.Errorf("Replicas() missing error = %v", err)
	}
}

func TestInMemoryReplicaRegistry_RemoveUnder(t *testing.T) {
	r := NewInMemoryReplicaRegistry()
	e1, e2, e3 := endpoint("e1"), endpoint("e2"), endpoint("e3")
	for _, ep := range []ss.Endpoint{e1, e2, e3} {
		_ = r.RegisterEndpoint(ep)
	}
	_ = r.AddReplica(p("/a/x"), e1)
	_ = r.AddReplica(p("/a/y"), e2)
	_ = r.AddReplica(p("/a/y"), e1)
	_ = r.AddReplica(p("/a/deep/z"), e2)
	_ = r.AddReplica(p("/ab"), e3)

	holders := r.RemoveUnder(p("/a"))
	if len(holders) != 2 || !slices.Contains(holders, e1) || !slices.Contains(holders, e2) {
		t.Errorf("RemoveUnder() = %v, want e1 and e2 once each", holders)
	}
	for _, f := range []string{"/a/x", "/a/y", "/a/deep/z"} {
		if _, err := r.Replicas(p(f)); !errors.Is(err, rr.ErrNoReplicas) {
			t.Errorf("%s still has replicas", f)
		}
	}
	if _, err := r.Replicas(p("/ab")); err != nil {
		t.Errorf("sibling /ab removed: %v", err)
	}

	if holders := r.RemoveUnder(p("/ab")); !slices.Equal(holders, []ss.Endpoint{e3}) {
		t.Errorf("RemoveUnder(file) = %v, want [e3]", holders)
	}
}

func TestInMemoryReplicaRegistry_ConcurrentAccess(t *testing.T) {
	r := NewInMemoryReplicaRegistry()
	ep := endpoint("e")
	_ = r.RegisterEndpoint(ep)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); _ = r.AddReplica(p("/d/f"), ep) }()
		go func() { defer wg.Done(); _, _ = r.Replicas(p("/d/f")) }()
		go func() { defer wg.Done(); _ = r.Endpoints() }()
	}
	wg.Wait()

	if got, _ := r.Replicas(p("/d/f")); len(got) != 1 {
		t.Errorf("Replicas() = %v, want a single entry", got)
	}
}
