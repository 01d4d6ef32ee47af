package sandlib

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	logdisc "github.com/AnishMulay/sanddfs/internal/log_service/localdisc"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	nsinmemory "github.com/AnishMulay/sanddfs/internal/naming_service/inmemory"
	rrinmemory "github.com/AnishMulay/sanddfs/internal/replica_registry/inmemory"
	sslocal "github.com/AnishMulay/sanddfs/internal/storage_service/localdisc"
)

func newTestClient(t *testing.T) *SanddfsClient {
	t.Helper()
	ls := logdisc.NewLocalDiscLogService(t.TempDir(), "sandlib-test", "ERROR")
	t.Cleanup(func() { _ = ls.Close() })

	svc := nsinmemory.NewInMemoryNamingService(rrinmemory.NewInMemoryReplicaRegistry(), ns.FirstSelector, ls)
	store := sslocal.NewLocalDiscStorageService(t.TempDir(), ls)
	if _, err := svc.Register(context.Background(), store, store, []dfs_path.Path{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return NewSanddfsClient(svc)
}

func TestSanddfsClient_ReadWrite(t *testing.T) {
	c := newTestClient(t)
	c.ReadChunk = 4
	c.WriteChunk = 3
	ctx := context.Background()

	if err := c.MkdirAll(ctx, "/a/b/c"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := c.MkdirAll(ctx, "/a/b"); err != nil {
		t.Errorf("MkdirAll() over existing directories error = %v", err)
	}

	created, err := c.Create(ctx, "/a/b/c/file.txt")
	if err != nil || !created {
		t.Fatalf("Create() = %v, %v; want true, nil", created, err)
	}
	if err := c.MkdirAll(ctx, "/a/b/c/file.txt/d"); !errors.Is(err, ns.ErrInvalidArgument) {
		t.Errorf("MkdirAll() through a file error = %v, want %v", err, ns.ErrInvalidArgument)
	}

	payload := []byte("the quick brown fox")
	if err := c.WriteFile(ctx, "/a/b/c/file.txt", 0, payload); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := c.ReadFile(ctx, "/a/b/c/file.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ReadFile() = %q, want %q", got, payload)
	}

	// A chunked overwrite still drops the bytes past its end.
	if err := c.WriteFile(ctx, "/a/b/c/file.txt", 4, []byte("slow red")); err != nil {
		t.Fatalf("WriteFile() at offset error = %v", err)
	}
	got, err = c.ReadFile(ctx, "/a/b/c/file.txt")
	if err != nil || string(got) != "the slow red" {
		t.Errorf("ReadFile() after overwrite = %q, %v; want \"the slow red\"", got, err)
	}
	payload = []byte("the slow red")

	size, err := c.Size(ctx, "/a//b/./c/file.txt")
	if err != nil || size != int64(len(payload)) {
		t.Errorf("Size() = %d, %v; want %d, nil", size, err, len(payload))
	}

	// Locks taken by ReadFile and WriteFile are released again.
	if err := c.Lock(ctx, "/a/b/c/file.txt", true); err != nil {
		t.Fatalf("Lock() after transfers error = %v", err)
	}
	if err := c.Unlock(ctx, "/a/b/c/file.txt", true); err != nil {
		t.Errorf("Unlock() error = %v", err)
	}
}

func TestSanddfsClient_Namespace(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for _, dir := range []string{"/x", "/y"} {
		if _, err := c.Mkdir(ctx, dir); err != nil {
			t.Fatalf("Mkdir(%s) error = %v", dir, err)
		}
	}
	if _, err := c.Create(ctx, "/x/f"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	names, err := c.List(ctx, "/")
	if err != nil || !slices.Equal(names, []string{"x", "y"}) {
		t.Errorf("List(/) = %v, %v; want [x y]", names, err)
	}

	isDir, err := c.IsDir(ctx, "/x/f")
	if err != nil || isDir {
		t.Errorf("IsDir(/x/f) = %v, %v; want false, nil", isDir, err)
	}

	removed, err := c.Remove(ctx, "/x")
	if err != nil || !removed {
		t.Fatalf("Remove(/x) = %v, %v; want true, nil", removed, err)
	}
	if _, err := c.ReadFile(ctx, "/x/f"); !errors.Is(err, ns.ErrNotFound) {
		t.Errorf("ReadFile() after Remove error = %v, want %v", err, ns.ErrNotFound)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "/", want: "/"},
		{in: " /a/b/ ", want: "/a/b"},
		{in: "/a/../b", want: "/b"},
		{in: "", wantErr: true},
		{in: "relative/path", wantErr: true},
		{in: "/bad:name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizePath(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizePath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
