package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	cluster "github.com/AnishMulay/sanddfs/internal/cluster_service"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	DefaultDialTimeout = 5 * time.Second
	DefaultLeaseTTL    = 10 // seconds
	DefaultPrefix      = "/sanddfs/naming/"
)

type Option func(*EtcdClusterService)

func WithPrefix(prefix string) Option {
	return func(s *EtcdClusterService) {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		s.prefix = prefix
	}
}

func WithLeaseTTL(seconds int64) Option {
	return func(s *EtcdClusterService) { s.leaseTTL = seconds }
}

func WithDialTimeout(d time.Duration) Option {
	return func(s *EtcdClusterService) { s.dialTimeout = d }
}

// EtcdClusterService publishes a naming server's addresses under a key bound
// to a lease, so the entry disappears when the naming server stops renewing
// it. Resolvers keep a cache fed by a watch on the prefix.
type EtcdClusterService struct {
	mu          sync.RWMutex
	client      *clientv3.Client
	endpoints   []string
	prefix      string
	leaseTTL    int64
	dialTimeout time.Duration
	ls          log_service.LogService

	leaseID   clientv3.LeaseID
	published map[string]cluster.NamingAddresses
	callbacks []func(cluster.NamingAddresses)

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewEtcdClusterService(endpoints []string, ls log_service.LogService, opts ...Option) *EtcdClusterService {
	s := &EtcdClusterService{
		endpoints:   endpoints,
		prefix:      DefaultPrefix,
		leaseTTL:    DefaultLeaseTTL,
		dialTimeout: DefaultDialTimeout,
		ls:          ls,
		published:   make(map[string]cluster.NamingAddresses),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EtcdClusterService) Start(ctx context.Context) error {
	s.ls.Info(log_service.LogEvent{
		Message:  "Starting EtcdClusterService",
		Metadata: map[string]any{"endpoints": s.endpoints, "prefix": s.prefix},
	})

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.endpoints,
		DialTimeout: s.dialTimeout,
		Context:     ctx,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to etcd: %w", err)
	}
	s.client = cli

	rev, err := s.syncState(ctx)
	if err != nil {
		_ = cli.Close()
		return err
	}

	s.wg.Add(1)
	go s.watchLoop(rev + 1)

	return nil
}

func (s *EtcdClusterService) Stop(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	var err error
	s.stopOnce.Do(func() {
		s.ls.Info(log_service.LogEvent{Message: "Stopping EtcdClusterService"})
		close(s.stopCh)

		s.mu.RLock()
		leaseID := s.leaseID
		s.mu.RUnlock()
		if leaseID != 0 {
			if _, revokeErr := s.client.Revoke(ctx, leaseID); revokeErr != nil {
				s.ls.Warn(log_service.LogEvent{
					Message:  "Failed to revoke lease during shutdown",
					Metadata: map[string]any{"error": revokeErr.Error()},
				})
			}
		}

		err = s.client.Close()
		s.wg.Wait()
	})
	return err
}

func (s *EtcdClusterService) Publish(ctx context.Context, addrs cluster.NamingAddresses) error {
	if addrs.Service == "" || addrs.Registration == "" || addrs.NodeID == "" {
		return cluster.ErrInvalidAddresses
	}
	if s.client == nil {
		return cluster.ErrNotStarted
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaseID != 0 {
		return cluster.ErrAlreadyPublished
	}

	lease, err := s.client.Grant(ctx, s.leaseTTL)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}

	val, err := json.Marshal(addrs)
	if err != nil {
		return err
	}
	if _, err := s.client.Put(ctx, s.prefix+addrs.NodeID, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to put naming server key: %w", err)
	}

	ch, err := s.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return fmt.Errorf("failed to start keepalive: %w", err)
	}
	s.leaseID = lease.ID

	s.ls.Info(log_service.LogEvent{
		Message: "Naming server published",
		Metadata: map[string]any{
			"id":           addrs.NodeID,
			"service":      addrs.Service,
			"registration": addrs.Registration,
			"leaseID":      lease.ID,
		},
	})

	s.wg.Add(1)
	go s.heartbeatLoop(ch)
	return nil
}

func (s *EtcdClusterService) heartbeatLoop(ch <-chan *clientv3.LeaseKeepAliveResponse) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case _, ok := <-ch:
			if !ok {
				select {
				case <-s.stopCh:
				default:
					s.ls.Error(log_service.LogEvent{Message: "Etcd keepalive channel closed unexpectedly"})
				}
				return
			}
		}
	}
}

// Resolve returns the published naming server with the smallest node id.
func (s *EtcdClusterService) Resolve(ctx context.Context) (cluster.NamingAddresses, error) {
	if s.client == nil {
		return cluster.NamingAddresses{}, cluster.ErrNotStarted
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return pick(s.published)
}

func (s *EtcdClusterService) Watch(callback func(cluster.NamingAddresses)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

func (s *EtcdClusterService) syncState(ctx context.Context) (int64, error) {
	resp, err := s.client.Get(ctx, s.prefix, clientv3.WithPrefix())
	if err != nil {
		return 0, fmt.Errorf("failed to read published naming servers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kv := range resp.Kvs {
		addrs, err := decodeAddresses(kv.Value)
		if err != nil {
			s.ls.Warn(log_service.LogEvent{
				Message:  "Skipping malformed naming server entry",
				Metadata: map[string]any{"key": string(kv.Key), "error": err.Error()},
			})
			continue
		}
		s.published[strings.TrimPrefix(string(kv.Key), s.prefix)] = addrs
	}
	return resp.Header.Revision, nil
}

func (s *EtcdClusterService) watchLoop(rev int64) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchCh := s.client.Watch(ctx, s.prefix, clientv3.WithPrefix(), clientv3.WithRev(rev))

	for {
		select {
		case <-s.stopCh:
			return
		case resp, ok := <-watchCh:
			if !ok {
				return
			}
			for _, ev := range resp.Events {
				s.handleEvent(ev)
			}
		}
	}
}

func (s *EtcdClusterService) handleEvent(ev *clientv3.Event) {
	id := strings.TrimPrefix(string(ev.Kv.Key), s.prefix)

	s.mu.Lock()
	switch ev.Type {
	case clientv3.EventTypePut:
		addrs, err := decodeAddresses(ev.Kv.Value)
		if err != nil {
			s.mu.Unlock()
			return
		}
		s.published[id] = addrs
	case clientv3.EventTypeDelete:
		delete(s.published, id)
	}
	current, _ := pick(s.published)
	callbacks := append([]func(cluster.NamingAddresses){}, s.callbacks...)
	s.mu.Unlock()

	for _, cb := range callbacks {
		go cb(current)
	}
}

func decodeAddresses(value []byte) (cluster.NamingAddresses, error) {
	var addrs cluster.NamingAddresses
	if err := json.Unmarshal(value, &addrs); err != nil {
		return cluster.NamingAddresses{}, err
	}
	if addrs.Service == "" || addrs.Registration == "" {
		return cluster.NamingAddresses{}, cluster.ErrInvalidAddresses
	}
	return addrs, nil
}

func pick(published map[string]cluster.NamingAddresses) (cluster.NamingAddresses, error) {
	var (
		best   cluster.NamingAddresses
		bestID string
		found  bool
	)
	for id, addrs := range published {
		if !found || id < bestID {
			best, bestID, found = addrs, id, true
		}
	}
	if !found {
		return cluster.NamingAddresses{}, cluster.ErrNotPublished
	}
	return best, nil
}

var _ cluster.ClusterService = (*EtcdClusterService)(nil)
