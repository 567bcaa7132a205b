package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
)

const defaultDir = "./curriculum"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Inspect a learning-path curriculum",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newTopicsCmd())
	return root
}

// catalogDir returns the directory argument, or the default curriculum path.
func catalogDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultDir
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Load a curriculum and report schema or prerequisite errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := curriculum.Load(catalogDir(args))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d topics, %d chapters\n", catalog.Len(), catalog.TotalChapters())
			return nil
		},
	}
}

func newTopicsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "topics [dir]",
		Short: "List topics in catalog order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := curriculum.Load(catalogDir(args))
			if err != nil {
				return err
			}
			topics := catalog.ListTopics()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(topics)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTIER\tCHAPTERS\tREQUIRES")
			for _, t := range topics {
				requires := strings.Join(t.Prerequisites.Required, ",")
				if requires == "" {
					requires = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					t.ID, t.DisplayName(), t.Difficulty, len(catalog.ChaptersOf(t.ID)), requires)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print topics as JSON")
	return cmd
}
