package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/AnishMulay/sanddfs/internal/config"
	locallog "github.com/AnishMulay/sanddfs/internal/log_service/localdisc"
	"github.com/AnishMulay/sanddfs/servers/wire"
)

const usage = `usage: dfs-client [flags] <command> [args]

commands:
  ls <dir>                  list a directory
  isdir <path>              report whether path is a directory
  mkdir <dir>               create a directory
  mkdirs <dir>              create a directory and missing parents
  touch <file>              create an empty file on a storage node
  rm <path>                 delete a file or directory tree
  stat <file>               print the file size
  cat <file>                print the file contents
  put <file> [offset]       write stdin to file at offset (default 0)
`

func main() {
	var (
		configPath = flag.String("config", "./config/client.yaml", "Path to the YAML config file")
		namingAddr = flag.String("naming", "", "Naming server service address")
		transport  = flag.String("transport", "", "Transport (grpc|http)")
		etcd       = flag.String("etcd", "", "Comma-separated etcd endpoints; enables etcd discovery")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *namingAddr != "" {
		cfg.NamingAddress = *namingAddr
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *etcd != "" {
		cfg.Discovery.Type = config.DiscoveryEtcd
		cfg.Discovery.Endpoints = strings.Split(*etcd, ",")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ls := locallog.NewLocalDiscLogService(cfg.Log.Dir, cfg.NodeID, cfg.Log.Level)
	defer ls.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, comm, err := wire.NewClient(ctx, cfg, ls)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer comm.Stop()

	if err := run(ctx, client, args[0], args[1], args[2:]); err != nil {
		log.Fatalf("%s %s: %v", args[0], args[1], err)
	}
}

type fileSystem interface {
	List(ctx context.Context, path string) ([]string, error)
	IsDir(ctx context.Context, path string) (bool, error)
	Mkdir(ctx context.Context, path string) (bool, error)
	MkdirAll(ctx context.Context, path string) error
	Create(ctx context.Context, path string) (bool, error)
	Remove(ctx context.Context, path string) (bool, error)
	Size(ctx context.Context, path string) (int64, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, offset int64, data []byte) error
}

func run(ctx context.Context, fs fileSystem, cmd, path string, rest []string) error {
	switch cmd {
	case "ls":
		names, err := fs.List(ctx, path)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case "isdir":
		isDir, err := fs.IsDir(ctx, path)
		if err != nil {
			return err
		}
		fmt.Println(isDir)
	case "mkdir":
		return reportCreated(fs.Mkdir(ctx, path))
	case "mkdirs":
		return fs.MkdirAll(ctx, path)
	case "touch":
		return reportCreated(fs.Create(ctx, path))
	case "rm":
		_, err := fs.Remove(ctx, path)
		return err
	case "stat":
		size, err := fs.Size(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%d bytes\n", path, size)
	case "cat":
		data, err := fs.ReadFile(ctx, path)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "put":
		var offset int64
		if len(rest) > 0 {
			var err error
			if offset, err = strconv.ParseInt(rest[0], 10, 64); err != nil {
				return fmt.Errorf("invalid offset %q: %w", rest[0], err)
			}
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		return fs.WriteFile(ctx, path, offset, data)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func reportCreated(created bool, err error) error {
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("already exists")
	}
	return nil
}
