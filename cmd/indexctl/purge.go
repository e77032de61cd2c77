package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPurgeCmd(newQueue queueFactory) *cobra.Command {
	var (
		index string
		days  int
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete records older than a number of days",
		Long: `Deletes every record in --index whose date field is at or before now minus
--days calendar days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if index == "" {
				return fmt.Errorf("flag --index is required")
			}
			if days <= 0 {
				return fmt.Errorf("flag --days must be positive")
			}
			q, err := newQueue(cmd)
			if err != nil {
				return err
			}
			defer q.Close(cmd.Context())

			cutoff := q.Cutoff(days)
			if err := q.DeleteBefore(cmd.Context(), index, cutoff); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted records in %s dated on or before %s\n",
				index, cutoff.UTC().Format(time.RFC3339Nano))
			return nil
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "Index to purge")
	cmd.Flags().IntVar(&days, "days", 30, "Keep records newer than this many days")
	return cmd
}
