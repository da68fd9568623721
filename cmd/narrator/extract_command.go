package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var showSections bool

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the plain text of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, doc, err := decodeFile(cmd.Context(), args[0], ctx.logger())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			if showSections {
				rows := make([][]string, 0, len(doc.Sections))
				for i, s := range doc.Sections {
					rows = append(rows, []string{strconv.Itoa(i + 1), s.Title, s.Href, strconv.Itoa(s.Offset)})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Title", "Href", "Offset"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight}))
				return nil
			}
			fmt.Fprintln(out, doc.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the decoded document as JSON")
	cmd.Flags().BoolVar(&showSections, "sections", false, "List sections instead of printing the text")
	return cmd
}
