package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex"
	logpkg "github.com/kailas-cloud/docdex/internal/logger"
	"github.com/kailas-cloud/docdex/internal/version"
)

type globalFlags struct {
	indexPath string
	redisAddr string
	redisPass string
	tenant    string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "docdexctl",
		Short:         "Ingest and search docdex indexes",
		Long:          `A command-line interface for loading tabular files into docdex collections and querying them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.indexPath, "index", "./data", "bleve index directory")
	pf.StringVar(&g.redisAddr, "redis", "", "use a Redis backend at this address instead of bleve")
	pf.StringVar(&g.redisPass, "redis-password", "", "Redis password")
	pf.StringVarP(&g.tenant, "tenant", "t", "default", "tenant id")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newInferCmd(),
		newIngestCmd(g),
		newSearchCmd(g),
		newCollectionsCmd(g),
		newVersionCmd(),
	)
	return root
}

func (g *globalFlags) open() (*docdex.Client, error) {
	opts := []docdex.Option{docdex.WithBleve(g.indexPath)}
	if g.redisAddr != "" {
		opts = []docdex.Option{docdex.WithRedis(g.redisAddr, g.redisPass)}
	}
	if g.verbose {
		l, err := logpkg.NewLogger("local", "debug")
		if err != nil {
			return nil, err
		}
		opts = append(opts, docdex.WithLogger(l))
	} else {
		opts = append(opts, docdex.WithLogger(zap.NewNop()))
	}
	c, err := docdex.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docdexctl %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
