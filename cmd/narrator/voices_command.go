package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices of the configured speech engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.newCatalog(cmd.Context())
			if err != nil {
				return err
			}
			voices := catalog.Voices()
			out := cmd.OutOrStdout()
			if len(voices) == 0 {
				fmt.Fprintln(out, "No voices available.")
				return nil
			}
			def, _ := catalog.Default()
			rows := make([][]string, 0, len(voices))
			for _, v := range voices {
				mark := ""
				if v.ID == def.ID {
					mark = "*"
				}
				rows = append(rows, []string{mark, v.ID, v.Name, v.Language, v.Gender})
			}
			fmt.Fprintln(out, renderTable([]string{"", "ID", "Name", "Language", "Gender"}, rows, nil))
			return nil
		},
	}
}
