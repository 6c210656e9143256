package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.miragespace.co/ringstore/kv/aof"
	"go.miragespace.co/ringstore/kv/memory"
	"go.miragespace.co/ringstore/node"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = time.Second * 5

func Generate() *cli.Command {
	return &cli.Command{
		Name:      "server",
		Usage:     "start a storage node",
		ArgsUsage: "<PORT>",
		Description: `The node listens on 0.0.0.0:PORT and owns one shard of the cluster's
	key space. It does not know about the ring; the router decides which keys
	land here and pulls ranges away during rebalancing.`,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "data-dir",
				Aliases: []string{"data"},
				Usage:   "Directory for the append-only mutation log. Omit to run purely in memory",
			},
			&cli.DurationFlag{
				Name:  "flush-interval",
				Value: time.Second,
				Usage: "How often the mutation log is flushed to disk",
			},
		},
		Action: cmdServer,
	}
}

func cmdServer(ctx *cli.Context) error {
	logger := ctx.App.Metadata["logger"].(*zap.Logger)

	if ctx.NArg() != 1 {
		return cli.Exit("usage: ringstore server <PORT>", 1)
	}
	port, err := strconv.ParseUint(ctx.Args().First(), 10, 16)
	if err != nil || port == 0 {
		return cli.Exit(fmt.Sprintf("invalid port %q", ctx.Args().First()), 1)
	}

	var store node.KV
	if dataDir := ctx.Path("data-dir"); dataDir != "" {
		diskKV, err := aof.New(aof.Config{
			Logger:        logger,
			DataDir:       dataDir,
			FlushInterval: ctx.Duration("flush-interval"),
		})
		if err != nil {
			return fmt.Errorf("opening data dir: %w", err)
		}
		go diskKV.Start()
		defer diskKV.Stop()
		store = diskKV
	} else {
		store = memory.New()
	}

	r := chi.NewRouter()
	node.New(logger, store).Mount(r)

	errorLog, err := zap.NewStdLogAt(logger.With(zap.String("subsystem", "http")), zapcore.WarnLevel)
	if err != nil {
		return fmt.Errorf("error getting logger: %w", err)
	}

	srv := &http.Server{
		Addr:     fmt.Sprintf("0.0.0.0:%d", port),
		Handler:  r,
		ErrorLog: errorLog,
	}

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Storage node listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-sigCtx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
