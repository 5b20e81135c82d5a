package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteScope/pkg/client"
)

type combinedTable []client.CombinedRecord

func (t combinedTable) TableHeaders() []string {
	return []string{"ID", "REFERENCES", "CREATED"}
}

func (t combinedTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.ID,
			strings.Join(r.ReferenceNumbers, ","),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

// NewCombineCmd creates the combine command group: create, list, get.
func NewCombineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Build and inspect combined analyses across references",
	}
	cmd.AddCommand(newCombineCreateCmd(), newCombineListCmd(), newCombineGetCmd())
	return cmd
}

func newCombineCreateCmd() *cobra.Command {
	var (
		searchID  string
		refs      []string
		claimText string
		claimFile string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a combined analysis from completed references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, api, err := requireClient(cmd)
			if err != nil {
				return err
			}

			text := claimText
			if claimFile != "" {
				raw, err := os.ReadFile(claimFile)
				if err != nil {
					return fmt.Errorf("reading claim file: %w", err)
				}
				text = strings.TrimSpace(string(raw))
			}
			if text == "" {
				return fmt.Errorf("claim text is required; pass --claim-text or --claim-file")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			record, err := api.Citation().Combine(ctx, client.CombineRequest{
				SearchHistoryID:  searchID,
				Claim1Text:       text,
				ReferenceNumbers: refs,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, record)
		},
	}

	cmd.Flags().StringVar(&searchID, "search", "", "search history id (required)")
	cmd.Flags().StringSliceVar(&refs, "refs", nil, "reference numbers to combine (required)")
	cmd.Flags().StringVar(&claimText, "claim-text", "", "claim 1 text")
	cmd.Flags().StringVar(&claimFile, "claim-file", "", "file containing claim 1 text")
	cmd.MarkFlagRequired("search") //nolint:errcheck
	cmd.MarkFlagRequired("refs")   //nolint:errcheck
	return cmd
}

func newCombineListCmd() *cobra.Command {
	var searchID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the combined analyses of a search session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, api, err := requireClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			records, err := api.Citation().ListCombined(ctx, searchID)
			if err != nil {
				return err
			}
			return PrintResult(cmd, combinedTable(records))
		},
	}

	cmd.Flags().StringVar(&searchID, "search", "", "search history id (required)")
	cmd.MarkFlagRequired("search") //nolint:errcheck
	return cmd
}

func newCombineGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <combined-id>",
		Short: "Show one combined analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, api, err := requireClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			record, err := api.Citation().GetCombined(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, record)
		},
	}
}

//Personal.AI order the ending
