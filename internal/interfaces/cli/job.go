package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteScope/pkg/client"
)

// jobTable adapts a job list to the table output format.
type jobTable []client.Job

func (t jobTable) TableHeaders() []string {
	return []string{"ID", "REFERENCE", "STATUS", "MATCHES", "UPDATED"}
}

func (t jobTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, j := range t {
		matches := "-"
		if j.Result != nil {
			matches = fmt.Sprintf("%d", len(j.Result.Matches))
		}
		rows = append(rows, []string{
			j.ID, j.Reference, j.Status, matches,
			j.UpdatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

// NewJobCmd creates the job command group: enqueue, get, list.
func NewJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage citation analysis jobs",
	}
	cmd.AddCommand(newJobEnqueueCmd(), newJobGetCmd(), newJobListCmd())
	return cmd
}

func newJobEnqueueCmd() *cobra.Command {
	var (
		searchID string
		ref      string
		elements []string
		wait     bool
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a citation job for a reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, api, err := requireClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			job, err := api.Citation().EnqueueJob(ctx, client.EnqueueJobRequest{
				SearchHistoryID: searchID,
				ReferenceNumber: ref,
				ElementIDs:      elements,
			})
			if err != nil {
				return err
			}

			if wait && !job.IsTerminal() {
				job, err = api.Citation().PollJob(ctx, job.ID, time.Second)
				if err != nil {
					return err
				}
			}
			return PrintResult(cmd, job)
		},
	}

	cmd.Flags().StringVar(&searchID, "search", "", "search history id (required)")
	cmd.Flags().StringVar(&ref, "reference", "", "reference number (required)")
	cmd.Flags().StringSliceVar(&elements, "elements", nil, "restrict matching to these element ids")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the job finishes")
	cmd.MarkFlagRequired("search")    //nolint:errcheck
	cmd.MarkFlagRequired("reference") //nolint:errcheck
	return cmd
}

func newJobGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one citation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, api, err := requireClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			job, err := api.Citation().GetJob(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return PrintResult(cmd, job)
		},
	}
}

func newJobListCmd() *cobra.Command {
	var searchID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the citation jobs of a search session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, api, err := requireClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			jobs, err := api.Citation().ListJobs(ctx, searchID)
			if err != nil {
				return err
			}
			return PrintResult(cmd, jobTable(jobs))
		},
	}

	cmd.Flags().StringVar(&searchID, "search", "", "search history id (required)")
	cmd.MarkFlagRequired("search") //nolint:errcheck
	return cmd
}

//Personal.AI order the ending
