package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

// ServeFunc runs the HTTP server until ctx is cancelled.
type ServeFunc func(ctx context.Context) error

// NewRootCommand builds the servicebook command tree. Running it without a subcommand serves HTTP.
func NewRootCommand(serve ServeFunc, redisOpts func() asynq.RedisClientOpt) *cobra.Command {
	root := &cobra.Command{
		Use:           "servicebook",
		Short:         "Vehicle servicing ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(newJobsCommand(redisOpts))
	return root
}

func newJobsCommand(redisOpts func() asynq.RedisClientOpt) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage maintenance jobs",
	}

	open := func() (*JobsCLI, error) { return NewJobsCLI(redisOpts()) }

	jobsCmd.AddCommand(&cobra.Command{
		Use:       "trigger [job]",
		Short:     "Enqueue a maintenance job now",
		Example:   "  servicebook jobs trigger " + strings.Join(Jobs(), "\n  servicebook jobs trigger "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: Jobs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			info, err := c.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	})

	jobsCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return nil
		},
	})

	var size int
	scheduled := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			infos, err := c.ListScheduled(cmd.Context(), size)
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", info.ID, info.Type, info.NextProcessAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	scheduled.Flags().IntVar(&size, "size", 10, "maximum number of tasks to list")
	jobsCmd.AddCommand(scheduled)

	return jobsCmd
}
