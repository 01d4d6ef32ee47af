package main

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	sandlib "github.com/AnishMulay/sanddfs/clients/library"
	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	locallog "github.com/AnishMulay/sanddfs/internal/log_service/localdisc"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	nsinmemory "github.com/AnishMulay/sanddfs/internal/naming_service/inmemory"
	rrinmemory "github.com/AnishMulay/sanddfs/internal/replica_registry/inmemory"
	sslocal "github.com/AnishMulay/sanddfs/internal/storage_service/localdisc"
)

type toolHandler func(context.Context, mcp.CallToolRequest, *sandlib.SanddfsClient) (*mcp.CallToolResult, error)

func newClient(t *testing.T) *sandlib.SanddfsClient {
	t.Helper()
	ls := locallog.NewLocalDiscLogService(t.TempDir(), "mcp-test", "ERROR")
	t.Cleanup(func() { _ = ls.Close() })

	svc := nsinmemory.NewInMemoryNamingService(rrinmemory.NewInMemoryReplicaRegistry(), ns.FirstSelector, ls)
	store := sslocal.NewLocalDiscStorageService(t.TempDir(), ls)
	if _, err := svc.Register(context.Background(), store, store, []dfs_path.Path{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return sandlib.NewSanddfsClient(svc)
}

func call(t *testing.T, client *sandlib.SanddfsClient, handler toolHandler, args map[string]any) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args

	result, err := handler(context.Background(), request, client)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("handler returned no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", result.Content[0])
	}
	return text.Text, result.IsError
}

func TestTools(t *testing.T) {
	client := newClient(t)

	steps := []struct {
		name      string
		handler   toolHandler
		args      map[string]any
		wantText  string
		wantError bool
	}{
		{name: "mkdir with parents", handler: handleCreateDirectory, args: map[string]any{"path": "/a/b", "parents": true}, wantText: "ready"},
		{name: "mkdir existing", handler: handleCreateDirectory, args: map[string]any{"path": "/a"}, wantText: "already exists", wantError: true},
		{name: "create file", handler: handleCreateFile, args: map[string]any{"path": "/a/b/f.txt"}, wantText: "created"},
		{name: "write", handler: handleWriteFile, args: map[string]any{"path": "/a/b/f.txt", "content": "hello"}, wantText: "Wrote 5 bytes"},
		{name: "append", handler: handleWriteFile, args: map[string]any{"path": "/a/b/f.txt", "content": " world", "offset": 5}, wantText: "offset 5"},
		{name: "read", handler: handleReadFile, args: map[string]any{"path": "/a/b/f.txt"}, wantText: "hello world"},
		{name: "list", handler: handleList, args: map[string]any{"path": "/a/b"}, wantText: "f.txt"},
		{name: "is directory", handler: handleIsDirectory, args: map[string]any{"path": "/a"}, wantText: "true"},
		{name: "in-process storage has no address", handler: handleGetStorage, args: map[string]any{"path": "/a/b/f.txt"}, wantText: "Failed to locate", wantError: true},
		{name: "missing path argument", handler: handleList, args: map[string]any{}, wantError: true},
		{name: "delete", handler: handleDelete, args: map[string]any{"path": "/a"}, wantText: "Deleted /a"},
		{name: "list after delete", handler: handleList, args: map[string]any{"path": "/"}, wantText: "/ is empty"},
		{name: "read deleted", handler: handleReadFile, args: map[string]any{"path": "/a/b/f.txt"}, wantText: "Failed to read", wantError: true},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			text, isError := call(t, client, step.handler, step.args)
			if isError != step.wantError {
				t.Errorf("IsError = %v, want %v (text %q)", isError, step.wantError, text)
			}
			if !strings.Contains(text, step.wantText) {
				t.Errorf("text = %q, want it to contain %q", text, step.wantText)
			}
		})
	}
}
