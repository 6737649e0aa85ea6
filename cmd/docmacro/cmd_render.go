package main

import (
	"github.com/spf13/cobra"
)

func newRenderCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Expand a document and write the result",
		Long: `Reads the document from file, or stdin when no file or "-" is given,
runs both expansion stages and writes the result to stdout or --output.
Nothing is written when the outline is malformed or an include cycles.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, source, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			proc, _ := a.newProcessor()
			res, err := proc.Process(cmd.Context(), text, a.options(source))
			if err != nil {
				return err
			}
			return writeOutput(output, cmd.OutOrStdout(), []byte(res.Output))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
