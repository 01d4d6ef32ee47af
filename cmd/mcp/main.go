package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	sandlib "github.com/AnishMulay/sanddfs/clients/library"
	"github.com/AnishMulay/sanddfs/internal/config"
	locallog "github.com/AnishMulay/sanddfs/internal/log_service/localdisc"
	"github.com/AnishMulay/sanddfs/servers/wire"
)

func pathTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute DFS path, e.g. /docs/readme.txt"),
		),
	}, opts...)
	return mcp.NewTool(name, opts...)
}

func addTools(s *server.MCPServer, client *sandlib.SanddfsClient) {
	s.AddTool(pathTool("list", "List the entries of a directory"),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleList(ctx, request, client)
		})
	s.AddTool(pathTool("is_directory", "Report whether a path is a directory"),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleIsDirectory(ctx, request, client)
		})
	s.AddTool(pathTool("create_directory", "Create a directory",
		mcp.WithBoolean("parents", mcp.Description("Also create missing parent directories")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCreateDirectory(ctx, request, client)
	})
	s.AddTool(pathTool("create_file", "Create an empty file on a storage node"),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateFile(ctx, request, client)
		})
	s.AddTool(pathTool("delete", "Delete a file or a directory tree"),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDelete(ctx, request, client)
		})
	s.AddTool(pathTool("get_storage", "Show which storage node serves a file"),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetStorage(ctx, request, client)
		})
	s.AddTool(pathTool("read_file", "Read a whole file as text"),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReadFile(ctx, request, client)
		})
	s.AddTool(pathTool("write_file", "Write text to a file at an offset, dropping anything stored after it",
		mcp.WithString("content", mcp.Required(), mcp.Description("Text to write")),
		mcp.WithNumber("offset", mcp.Description("Byte offset to write at, default 0")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleWriteFile(ctx, request, client)
	})
}

func handleList(ctx context.Context, request mcp.CallToolRequest, client *sandlib.SanddfsClient) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	names, err := client.List(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list %s: %v", path, err)), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s is empty", path)), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func handleIsDirectory(ctx context.Context, request mcp.CallToolRequest, client *sandlib.SanddfsClient) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	isDir, err := client.IsDir(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to stat %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%t", isDir)), nil
}

func handleCreateDirectory(ctx context.Context, request mcp.CallToolRequest, client *sandlib.SanddfsClient) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if request.GetBool("parents", false) {
		if err := client.MkdirAll(ctx, path); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create %s: %v", path, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Directory %s ready", path)), nil
	}

	created, err := client.Mkdir(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create %s: %v", path, err)), nil
	}
	if !created {
		return mcp.NewToolResultError(fmt.Sprintf("%s already exists", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Directory %s created", path)), nil
}

func handleCreateFile(ctx context.Context, request mcp.CallToolRequest, client *sandlib.SanddfsClient) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created, err := client.Create(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create %s: %v", path, err)), nil
	}
	if !created {
		return mcp.NewToolResultError(fmt.Sprintf("%s already exists", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("File %s created", path)), nil
}

func handleDelete(ctx context.Context, request mcp.CallToolRequest, client *sandlib.SanddfsClient) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := client.Remove(ctx, path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", path)), nil
}

func handleGetStorage(ctx context.Context, request mcp.CallToolRequest, client *sandlib.SanddfsClient) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	addr, err := client.Locate(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to locate %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is served by %s", path, addr)), nil
}

func handleReadFile(ctx context.Context, request mcp.CallToolRequest, client *sandlib.SanddfsClient) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := client.ReadFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleWriteFile(ctx context.Context, request mcp.CallToolRequest, client *sandlib.SanddfsClient) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	offset := request.GetInt("offset", 0)

	if err := client.WriteFile(ctx, path, int64(offset), []byte(content)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to write %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Wrote %d bytes to %s at offset %d", len(content), path, offset)), nil
}

func main() {
	configPath := flag.String("config", "./config/mcp.yaml", "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ls := locallog.NewLocalDiscLogService(cfg.Log.Dir, cfg.NodeID, cfg.Log.Level)
	defer ls.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	client, comm, err := wire.NewClient(ctx, cfg, ls)
	cancel()
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer comm.Stop()

	s := server.NewMCPServer(
		"sanddfs",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	addTools(s, client)

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}
}
