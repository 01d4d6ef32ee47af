package sandlib

import (
	"context"
	"fmt"
	pathpkg "path"
	"strings"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	"github.com/AnishMulay/sanddfs/internal/remote"
)

const maxBufferSize = 2 * 1024 * 1024

func NewSanddfsClient(naming ns.NamingService) *SanddfsClient {
	return &SanddfsClient{Naming: naming, ReadChunk: maxBufferSize, WriteChunk: maxBufferSize}
}

// NewRemoteClient talks to the naming server listening at namingAddr.
func NewRemoteClient(namingAddr string, comm communication.Communicator) *SanddfsClient {
	return NewSanddfsClient(remote.NewNamingStub(namingAddr, comm))
}

func (c *SanddfsClient) Lock(ctx context.Context, path string, exclusive bool) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}
	return c.Naming.Lock(ctx, p, exclusive)
}

func (c *SanddfsClient) Unlock(ctx context.Context, path string, exclusive bool) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}
	return c.Naming.Unlock(ctx, p, exclusive)
}

func (c *SanddfsClient) IsDir(ctx context.Context, path string) (bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	return c.Naming.IsDirectory(ctx, p)
}

func (c *SanddfsClient) List(ctx context.Context, path string) ([]string, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	return c.Naming.List(ctx, p)
}

func (c *SanddfsClient) Mkdir(ctx context.Context, path string) (bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	return c.Naming.CreateDirectory(ctx, p)
}

// MkdirAll creates path and any missing parents. Existing directories are
// not an error; an existing file on the way is.
func (c *SanddfsClient) MkdirAll(ctx context.Context, path string) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	current := dfs_path.Root()
	for _, component := range p.Components() {
		if current, err = current.Append(component); err != nil {
			return err
		}
		if _, err := c.Naming.CreateDirectory(ctx, current); err != nil {
			return fmt.Errorf("mkdir %s: %w", current, err)
		}
		isDir, err := c.Naming.IsDirectory(ctx, current)
		if err != nil {
			return fmt.Errorf("mkdir %s: %w", current, err)
		}
		if !isDir {
			return fmt.Errorf("mkdir %s: %w", current, ns.ErrInvalidArgument)
		}
	}
	return nil
}

func (c *SanddfsClient) Create(ctx context.Context, path string) (bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	return c.Naming.CreateFile(ctx, p)
}

func (c *SanddfsClient) Remove(ctx context.Context, path string) (bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	return c.Naming.Delete(ctx, p)
}

func (c *SanddfsClient) Size(ctx context.Context, path string) (int64, error) {
	p, err := normalizePath(path)
	if err != nil {
		return 0, err
	}
	if err := c.Naming.Lock(ctx, p, false); err != nil {
		return 0, err
	}
	defer c.unlock(ctx, p, false)

	storage, err := c.Naming.GetStorage(ctx, p)
	if err != nil {
		return 0, err
	}
	return storage.Size(ctx, p)
}

// ReadFile returns the whole file, holding a shared lock on it while reading.
func (c *SanddfsClient) ReadFile(ctx context.Context, path string) ([]byte, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	if err := c.Naming.Lock(ctx, p, false); err != nil {
		return nil, err
	}
	defer c.unlock(ctx, p, false)

	storage, err := c.Naming.GetStorage(ctx, p)
	if err != nil {
		return nil, err
	}
	size, err := storage.Size(ctx, p)
	if err != nil {
		return nil, err
	}

	chunk := int64(c.ReadChunk)
	if chunk <= 0 {
		chunk = maxBufferSize
	}
	data := make([]byte, 0, size)
	for offset := int64(0); offset < size; offset += chunk {
		part, err := storage.Read(ctx, p, offset, int(min(chunk, size-offset)))
		if err != nil {
			return nil, fmt.Errorf("read %s at %d: %w", p, offset, err)
		}
		data = append(data, part...)
	}
	return data, nil
}

// WriteFile writes data at offset, holding an exclusive lock on the file.
// Bytes stored past offset+len(data) are dropped. Data larger than
// WriteChunk goes out as successive writes at increasing offsets.
func (c *SanddfsClient) WriteFile(ctx context.Context, path string, offset int64, data []byte) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}
	if err := c.Naming.Lock(ctx, p, true); err != nil {
		return err
	}
	defer c.unlock(ctx, p, true)

	storage, err := c.Naming.GetStorage(ctx, p)
	if err != nil {
		return err
	}

	chunk := c.WriteChunk
	if chunk <= 0 {
		chunk = maxBufferSize
	}
	for written := 0; ; {
		n := min(chunk, len(data)-written)
		if err := storage.Write(ctx, p, offset+int64(written), data[written:written+n]); err != nil {
			return fmt.Errorf("write %s at %d: %w", p, offset+int64(written), err)
		}
		written += n
		if written == len(data) {
			return nil
		}
	}
}

// Locate returns the client address of the storage node the naming service
// picks for path.
func (c *SanddfsClient) Locate(ctx context.Context, path string) (string, error) {
	p, err := normalizePath(path)
	if err != nil {
		return "", err
	}
	storage, err := c.Naming.GetStorage(ctx, p)
	if err != nil {
		return "", err
	}
	addressable, ok := storage.(remote.Addressable)
	if !ok {
		return "", remote.ErrNoAddress
	}
	return addressable.Address(), nil
}

// unlock ignores cancellation of ctx so a cancelled caller still releases.
func (c *SanddfsClient) unlock(ctx context.Context, p dfs_path.Path, exclusive bool) {
	_ = c.Naming.Unlock(context.WithoutCancel(ctx), p, exclusive)
}

func normalizePath(path string) (dfs_path.Path, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return dfs_path.Path{}, fmt.Errorf("invalid path: empty path")
	}
	if !strings.HasPrefix(trimmed, "/") {
		return dfs_path.Path{}, fmt.Errorf("invalid path %q: expected absolute path", path)
	}
	return dfs_path.Parse(pathpkg.Clean(trimmed))
}
