package main

import (
	"context"
	"fmt"

	"f1-rag-go/internal/bootstrap"
	"f1-rag-go/internal/config"
	"f1-rag-go/pkg/log"

	"github.com/spf13/cobra"
)

// cli holds state shared by all subcommands of one invocation.
type cli struct {
	configPath string
	verbose    bool

	cfg *config.Config
	app *bootstrap.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Query and manage the F1 knowledge base",
		Long: `ragctl runs the same ingestion and question-answering services as the
HTTP server, in-process. With the default in-memory index each invocation starts
empty, so ask and search ingest the configured corpus first.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil {
				c.app.Close()
			}
			log.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "./configs/config.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "print service logs")

	root.AddCommand(
		c.ingestCmd(),
		c.askCmd(),
		c.searchCmd(),
		c.statsCmd(),
		c.chunksCmd(),
		c.historyCmd(),
		c.enqueueCmd(),
		c.uploadCmd(),
	)
	return root
}

func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.verbose {
		log.Init(cfg.Log.Level, "console", "")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	c.cfg = cfg
	c.app = app
	return nil
}
