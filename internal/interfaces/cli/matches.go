package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteScope/pkg/client"
)

type matchTable []client.Match

func (t matchTable) TableHeaders() []string {
	return []string{"ELEMENT", "ORDINAL", "SCORE", "DEEP", "MATCHING TEXT"}
}

func (t matchTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, m := range t {
		score := "-"
		if m.Score != nil {
			score = fmt.Sprintf("%.2f", *m.Score)
		}
		deep := ""
		if m.DeepAnalysis != nil {
			deep = "yes"
		}
		text := m.MatchingText
		if len(text) > 60 {
			text = text[:57] + "..."
		}
		rows = append(rows, []string{
			m.ElementID, fmt.Sprintf("%d", m.ElementOrdinal), score, deep, text,
		})
	}
	return rows
}

// NewMatchesCmd creates the matches command: ranked top matches of one
// reference within a search session.
func NewMatchesCmd() *cobra.Command {
	var (
		searchID string
		ref      string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Show the top-ranked matches for a reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, api, err := requireClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			matches, err := api.Citation().TopMatches(ctx, searchID, ref, limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, matchTable(matches))
		},
	}

	cmd.Flags().StringVar(&searchID, "search", "", "search history id (required)")
	cmd.Flags().StringVar(&ref, "reference", "", "reference number (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum matches to return (0 = server default)")
	cmd.MarkFlagRequired("search")    //nolint:errcheck
	cmd.MarkFlagRequired("reference") //nolint:errcheck
	return cmd
}

// NewInvalidateCmd creates the invalidate command: drop a project's cached
// citation results after workspace edits.
func NewInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <project-id>",
		Short: "Invalidate a project's cached citation results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, api, err := requireClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			if err := api.Citation().InvalidateWorkspace(ctx, args[0]); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("cache invalidated for project %s", args[0]))
			return nil
		},
	}
}

//Personal.AI order the ending
