package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"keygate/internal/indexing"
)

func newSearchCmd(newQueue queueFactory) *cobra.Command {
	var (
		index string
		query string
		size  int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a search and print the raw response",
		Long: `Runs a search against --index. --query is either a full JSON request body or a
Lucene query string, which is wrapped in a query_string query.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if index == "" {
				return fmt.Errorf("flag --index is required")
			}
			body, err := searchBody(query, size)
			if err != nil {
				return err
			}
			q, err := newQueue(cmd)
			if err != nil {
				return err
			}
			defer q.Close(cmd.Context())

			resp, err := q.Search(cmd.Context(), indexing.SearchRequest{
				Indices: strings.Split(index, ","),
				Body:    body,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			var out bytes.Buffer
			if err := json.Indent(&out, resp.Body, "", "  "); err != nil {
				out.Reset()
				out.Write(resp.Body)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			if resp.StatusCode >= 400 {
				return fmt.Errorf("search returned status %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "Index or comma-separated indices to search")
	cmd.Flags().StringVar(&query, "query", "", "JSON request body or query string (default: match all)")
	cmd.Flags().IntVar(&size, "size", 10, "Maximum hits when --query is a query string")
	return cmd
}

func searchBody(query string, size int) (json.RawMessage, error) {
	query = strings.TrimSpace(query)
	if strings.HasPrefix(query, "{") {
		if !json.Valid([]byte(query)) {
			return nil, fmt.Errorf("--query is not valid JSON")
		}
		return json.RawMessage(query), nil
	}

	q := map[string]any{"match_all": map[string]any{}}
	if query != "" {
		q = map[string]any{"query_string": map[string]any{"query": query}}
	}
	return json.Marshal(map[string]any{"query": q, "size": size})
}
