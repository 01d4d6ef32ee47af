package localdisc

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// LocalDiscStorageService serves the files below baseDir. Every operation is
// serialized behind one per-instance lock.
type LocalDiscStorageService struct {
	mu      sync.Mutex
	baseDir string
	ls      log_service.LogService
}

func NewLocalDiscStorageService(baseDir string, ls log_service.LogService) *LocalDiscStorageService {
	if err := os.MkdirAll(baseDir, os.ModePerm); err != nil {
		panic(err)
	}
	return &LocalDiscStorageService{
		baseDir: baseDir,
		ls:      ls,
	}
}

func (s *LocalDiscStorageService) BaseDir() string {
	return s.baseDir
}

func (s *LocalDiscStorageService) localPath(p dfs_path.Path) string {
	return p.ToFile(s.baseDir)
}

// statFile returns the size of a regular file, or ErrNotFound.
func (s *LocalDiscStorageService) statFile(p dfs_path.Path) (int64, error) {
	info, err := os.Stat(s.localPath(p))
	if err != nil || info.IsDir() {
		return 0, ss.ErrNotFound
	}
	return info.Size(), nil
}

func (s *LocalDiscStorageService) Size(ctx context.Context, file dfs_path.Path) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size, err := s.statFile(file)
	if err != nil {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Size requested for missing file",
			Metadata: map[string]any{"path": file.String()},
		})
		return 0, err
	}
	return size, nil
}

func (s *LocalDiscStorageService) Read(ctx context.Context, file dfs_path.Path, offset int64, length int) ([]byte, error) {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Reading file",
		Metadata: map[string]any{"path": file.String(), "offset": offset, "length": length},
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	size, err := s.statFile(file)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 || offset > size-int64(length) {
		return nil, ss.ErrOutOfBounds
	}

	f, err := os.Open(s.localPath(file))
	if err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to open file for read",
			Metadata: map[string]any{"path": file.String(), "error": err.Error()},
		})
		return nil, ss.ErrReadFailed
	}
	defer f.Close()

	data := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(f, offset, int64(length)), data); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to read file",
			Metadata: map[string]any{"path": file.String(), "error": err.Error()},
		})
		return nil, ss.ErrReadFailed
	}
	return data, nil
}

func (s *LocalDiscStorageService) Write(ctx context.Context, file dfs_path.Path, offset int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocal(file, offset, data)
}

// writeLocal cuts the file at offset, extending it with a zero-filled gap if
// it was shorter, then writes data there. Bytes that were stored past
// offset+len(data) are dropped.
func (s *LocalDiscStorageService) writeLocal(file dfs_path.Path, offset int64, data []byte) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Writing file",
		Metadata: map[string]any{"path": file.String(), "offset": offset, "size": len(data)},
	})

	if _, err := s.statFile(file); err != nil {
		return err
	}
	if offset < 0 {
		return ss.ErrOutOfBounds
	}

	f, err := os.OpenFile(s.localPath(file), os.O_RDWR, 0644)
	if err != nil {
		return s.writeFailed(file, err)
	}
	defer f.Close()

	if err := f.Truncate(offset); err != nil {
		return s.writeFailed(file, err)
	}
	if _, err := f.WriteAt(data, offset); err != nil {
		return s.writeFailed(file, err)
	}
	if err := f.Close(); err != nil {
		return s.writeFailed(file, err)
	}
	return nil
}

func (s *LocalDiscStorageService) writeFailed(file dfs_path.Path, err error) error {
	s.ls.Error(log_service.LogEvent{
		Message:  "Failed to write file",
		Metadata: map[string]any{"path": file.String(), "error": err.Error()},
	})
	return ss.ErrWriteFailed
}

func (s *LocalDiscStorageService) Create(ctx context.Context, file dfs_path.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocal(file), nil
}

func (s *LocalDiscStorageService) createLocal(file dfs_path.Path) bool {
	if file.IsRoot() {
		return false
	}

	local := s.localPath(file)
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to create parent directories",
			Metadata: map[string]any{"path": file.String(), "error": err.Error()},
		})
		return false
	}

	f, err := os.OpenFile(local, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !errors.Is(err, os.ErrExist) {
			s.ls.Error(log_service.LogEvent{
				Message:  "Failed to create file",
				Metadata: map[string]any{"path": file.String(), "error": err.Error()},
			})
		}
		return false
	}
	f.Close()

	s.ls.Info(log_service.LogEvent{
		Message:  "File created",
		Metadata: map[string]any{"path": file.String()},
	})
	return true
}

func (s *LocalDiscStorageService) Delete(ctx context.Context, path dfs_path.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocal(path), nil
}

// deleteLocal removes a file or a whole directory subtree. A failure part way
// through a subtree leaves whatever was not yet removed in place.
func (s *LocalDiscStorageService) deleteLocal(path dfs_path.Path) bool {
	if path.IsRoot() {
		return false
	}

	local := s.localPath(path)
	if _, err := os.Lstat(local); err != nil {
		return false
	}
	if err := os.RemoveAll(local); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to delete path",
			Metadata: map[string]any{"path": path.String(), "error": err.Error()},
		})
		return false
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Path deleted",
		Metadata: map[string]any{"path": path.String()},
	})
	return true
}

// Copy replaces the local copy of file with the one held by source, pulling
// it in CopyChunkSize pieces.
func (s *LocalDiscStorageService) Copy(ctx context.Context, file dfs_path.Path, source ss.Storage) (bool, error) {
	s.ls.Info(log_service.LogEvent{
		Message:  "Copying file from peer",
		Metadata: map[string]any{"path": file.String()},
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	size, err := source.Size(ctx, file)
	if err != nil {
		return false, err
	}

	s.deleteLocal(file)
	if !s.createLocal(file) {
		return false, ss.ErrCreateFailed
	}

	for offset := int64(0); offset < size; offset += ss.CopyChunkSize {
		length := int(min(ss.CopyChunkSize, size-offset))
		data, err := source.Read(ctx, file, offset, length)
		if err != nil {
			s.ls.Error(log_service.LogEvent{
				Message:  "Failed to read chunk from peer",
				Metadata: map[string]any{"path": file.String(), "offset": offset, "error": err.Error()},
			})
			return false, err
		}
		if err := s.writeLocal(file, offset, data); err != nil {
			return false, err
		}
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "File copied from peer",
		Metadata: map[string]any{"path": file.String(), "size": size},
	})
	return true, nil
}

// ListFiles returns every regular file currently stored below baseDir.
func (s *LocalDiscStorageService) ListFiles() ([]dfs_path.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dfs_path.List(s.baseDir)
}

// RemoveDuplicates deletes files the naming server refused at registration,
// then prunes parent directories left empty, stopping at baseDir.
func (s *LocalDiscStorageService) RemoveDuplicates(files []dfs_path.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, file := range files {
		if !s.deleteLocal(file) {
			continue
		}
		for parent, err := file.Parent(); err == nil && !parent.IsRoot(); parent, err = parent.Parent() {
			entries, readErr := os.ReadDir(s.localPath(parent))
			if readErr != nil || len(entries) > 0 {
				break
			}
			if rmErr := os.Remove(s.localPath(parent)); rmErr != nil {
				break
			}
		}
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Removed duplicate files rejected by naming server",
		Metadata: map[string]any{"count": len(files)},
	})
}

var _ ss.StorageService = (*LocalDiscStorageService)(nil)
