package static

import (
	"context"
	"errors"
	"testing"

	cluster "github.com/AnishMulay/sanddfs/internal/cluster_service"
	logdisc "github.com/AnishMulay/sanddfs/internal/log_service/localdisc"
)

func TestStaticClusterService_Resolve(t *testing.T) {
	ls := logdisc.NewLocalDiscLogService(t.TempDir(), "static-test", "ERROR")
	t.Cleanup(func() { _ = ls.Close() })
	ctx := context.Background()

	tests := []struct {
		name    string
		addrs   cluster.NamingAddresses
		wantErr error
	}{
		{
			name:  "configured addresses",
			addrs: cluster.NamingAddresses{Service: "localhost:7000", Registration: "localhost:7001"},
		},
		{
			name:    "nothing configured",
			wantErr: cluster.ErrNotPublished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStaticClusterService(tt.addrs, ls)
			if err := s.Start(ctx); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			defer s.Stop(ctx)

			got, err := s.Resolve(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.addrs {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.addrs)
			}
		})
	}
}

func TestStaticClusterService_Publish(t *testing.T) {
	ls := logdisc.NewLocalDiscLogService(t.TempDir(), "static-test", "ERROR")
	t.Cleanup(func() { _ = ls.Close() })
	ctx := context.Background()

	s := NewStaticClusterService(cluster.NamingAddresses{}, ls)

	var seen []cluster.NamingAddresses
	s.Watch(func(a cluster.NamingAddresses) { seen = append(seen, a) })

	if err := s.Publish(ctx, cluster.NamingAddresses{Service: "localhost:7000"}); !errors.Is(err, cluster.ErrInvalidAddresses) {
		t.Errorf("Publish() with missing registration address error = %v, want %v", err, cluster.ErrInvalidAddresses)
	}

	addrs := cluster.NamingAddresses{NodeID: "naming", Service: "localhost:7000", Registration: "localhost:7001"}
	if err := s.Publish(ctx, addrs); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := s.Publish(ctx, addrs); !errors.Is(err, cluster.ErrAlreadyPublished) {
		t.Errorf("second Publish() error = %v, want %v", err, cluster.ErrAlreadyPublished)
	}

	got, err := s.Resolve(ctx)
	if err != nil || got != addrs {
		t.Errorf("Resolve() = %+v, %v; want %+v, nil", got, err, addrs)
	}
	if len(seen) != 1 || seen[0] != addrs {
		t.Errorf("watch callbacks saw %+v, want one %+v", seen, addrs)
	}
}
