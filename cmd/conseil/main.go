// Command conseil is the CLI entrypoint: `sync` drives the
// synchronization engine against a Tezos node, `send` is a stub that
// always exits with an error (it does not forge, sign or inject
// anything, and does not call package signer), and `status` prints the
// store's indexing progress against the node's head.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/time/rate"

	"github.com/moneytrackio/conseil/chainsync"
	"github.com/moneytrackio/conseil/config"
	"github.com/moneytrackio/conseil/logging"
	"github.com/moneytrackio/conseil/node"
	"github.com/moneytrackio/conseil/rpc"
	"github.com/moneytrackio/conseil/store"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintln(os.Stderr, "conseil: could not set GOMAXPROCS:", err)
	}

	app := &cli.App{
		Name:  "conseil",
		Usage: "Tezos chain-synchronization indexer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "conseil.toml", Usage: "path to the TOML configuration file"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
			&cli.StringFlag{Name: "log-file", Value: ""},
		},
		Commands: []*cli.Command{
			syncCommand,
			statusCommand,
			sendCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "conseil:", err)
		os.Exit(1)
	}
}

func rootLogger(c *cli.Context) *logrus.Logger {
	return logging.New(logging.Config{
		Level:    c.String("log-level"),
		FilePath: c.String("log-file"),
	})
}

func loadConfig(c *cli.Context) (config.Config, error) {
	return config.Load(c.String("config"))
}

func buildRPCClient(cfg config.Config, log *logrus.Entry) *rpc.Client {
	handler := rpc.New(rpc.Config{
		Scheme:                    cfg.Node.Scheme,
		Host:                      cfg.Node.Host,
		Port:                      cfg.Node.Port,
		Prefix:                    cfg.Node.Prefix,
		GetResponseEntityTimeout:  cfg.GetResponseEntityTimeout(),
		PostResponseEntityTimeout: cfg.PostResponseEntityTimeout(),
		RateLimit:                 rate.Limit(cfg.RateLimitPerSecond),
		Burst:                     cfg.RateLimitBurst,
		MaxIdleConns:              cfg.MaxIdleConns,
		MaxIdleConnsPerHost:       cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:           cfg.IdleConnTimeout(),
	}, log)
	return rpc.NewClient(handler)
}

var syncCommand = &cli.Command{
	Name:  "sync",
	Usage: "catch up the store to the node's current head, then poll periodically",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "once", Usage: "run a single catch-up cycle and exit instead of polling forever"},
		&cli.DurationFlag{Name: "poll-interval", Value: 15 * time.Second},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		root := rootLogger(c)
		log := logging.Component(root, "node")

		rpcClient := buildRPCClient(cfg, logging.Component(root, "rpc"))
		db := store.NewMemory() // the relational store lives outside this module; Memory stands in until it's wired
		engine := chainsync.New(rpcClient, db, chainsync.Config{
			BlockPageSize:                   cfg.BlockPageSize,
			BlockOperationsConcurrencyLevel: cfg.BlockOperationsConcurrencyLevel,
			AccountConcurrencyLevel:         cfg.AccountConcurrencyLevel,
		}, logging.Component(root, "chainsync"))

		n := node.New(rpcClient, engine, db, log)
		ctx, cleanup := n.WithSignalHandling(c.Context)
		defer cleanup()

		if c.Bool("once") {
			pages, _, err := engine.SyncFromLastIndexed(ctx, cfg.FollowFork)
			if err != nil {
				return err
			}
			written, err := n.RunOnce(ctx, pages)
			log.WithField("blocks", written).Info("sync: single cycle complete")
			return err
		}

		interval := c.Duration("poll-interval")
		return n.RunForever(ctx, cfg.FollowFork, func(ctx context.Context) error {
			t := time.NewTimer(interval)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	},
}

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "print the store's indexed level against the node's head",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		root := rootLogger(c)
		rpcClient := buildRPCClient(cfg, logging.Component(root, "rpc"))
		db := store.NewMemory()

		ctx := c.Context
		head, err := rpcClient.GetHead(ctx)
		if err != nil {
			return err
		}
		storedMax, err := db.FetchMaxLevel(ctx)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"stored max level", "node head level", "behind"})
		behind := head.Level - storedMax
		if storedMax < 0 {
			behind = head.Level
		}
		table.Append([]string{fmt.Sprint(storedMax), fmt.Sprint(head.Level), fmt.Sprint(behind)})
		table.Render()
		return nil
	},
}

var sendCommand = &cli.Command{
	Name:  "send",
	Usage: "not implemented: always exits with an error (non-core adjunct; does not forge, sign or inject)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "source", Required: true},
		&cli.StringFlag{Name: "destination", Required: true},
		&cli.StringFlag{Name: "amount", Required: true},
	},
	Action: func(c *cli.Context) error {
		return cli.Exit("conseil send: forging is not implemented in this module — wire package signer against your own wallet key material", 1)
	},
}
