package client

import (
	"go.miragespace.co/ringstore/router"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func Generate() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "start the cluster router REPL",
		Description: `The client owns the authoritative ring view for this session: it adds
	and removes storage nodes, drives the resulting range migrations, and
	routes SET/GET/DEL to the owning node.`,
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a yaml file listing seed nodes of an existing cluster",
			},
			&cli.IntFlag{
				Name:  "virtual",
				Usage: "Number of virtual nodes per member. Every router of one cluster must agree",
			},
		},
		Action: cmdClient,
	}
}

func cmdClient(ctx *cli.Context) error {
	logger := ctx.App.Metadata["logger"].(*zap.Logger)

	cfg := &Config{}
	if path := ctx.Path("config"); path != "" {
		var err error
		cfg, err = NewConfig(path)
		if err != nil {
			return err
		}
	}

	virtual := cfg.VirtualNodes
	if ctx.IsSet("virtual") {
		virtual = ctx.Int("virtual")
	}

	r, err := router.New(router.Config{
		Logger:       logger,
		VirtualNodes: virtual,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	for _, addr := range cfg.Nodes {
		canonical, err := r.Seed(addr)
		if err != nil {
			return err
		}
		logger.Info("Seeded ring member", zap.String("node", canonical))
	}

	repl := &repl{
		router: r,
		in:     ctx.App.Reader,
		out:    ctx.App.Writer,
	}
	return repl.Run(ctx.Context)
}
