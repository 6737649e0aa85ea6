package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmacro/internal/landmark"
)

func newOutlineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "outline [file]",
		Short: "Print the heading outline of a document as JSON",
		Long:  "Runs the first expansion stage and prints the resulting heading tree.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, source, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			proc, _ := a.newProcessor()
			forest, err := proc.Outline(cmd.Context(), text, a.options(source))
			if err != nil {
				return err
			}
			if forest == nil {
				forest = landmark.Forest{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(forest)
		},
	}
}
