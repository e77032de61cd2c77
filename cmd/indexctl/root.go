package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"keygate/internal/indexing"
	"keygate/internal/indexing/elasticsearch"
	"keygate/internal/platform/config"
	"keygate/internal/platform/logger"
)

// backendFactory builds the search backend the commands operate on.
type backendFactory func() (indexing.Backend, error)

// newBackendFromEnv connects to the search node configured for the server.
func newBackendFromEnv() (indexing.Backend, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Search.Node == "" {
		return nil, fmt.Errorf("SEARCH_NODE is not set")
	}
	return elasticsearch.New(elasticsearch.Config{
		Node:     cfg.Search.Node,
		Username: cfg.Search.Username,
		Password: cfg.Search.Password,
		APIKey:   cfg.Search.APIKey,
	})
}

func newRootCmd(newBackend backendFactory) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   "indexctl",
		Short: "Maintenance commands for keygate's search indices",
		Long: `indexctl runs one-off operations against the search node keygate writes to:
purging old records and running ad-hoc searches. It reads the same SEARCH_*
environment variables as the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	queue := func(cmd *cobra.Command) (*indexing.Queue, error) {
		backend, err := newBackend()
		if err != nil {
			return nil, err
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		log := logger.NewWithWriter(cmd.ErrOrStderr(), level, "text")
		return indexing.New(backend, indexing.WithLogger(log), indexing.WithSink(indexing.NewLogSink(log))), nil
	}

	root.AddCommand(newPurgeCmd(queue), newSearchCmd(queue))
	return root
}

type queueFactory func(cmd *cobra.Command) (*indexing.Queue, error)
