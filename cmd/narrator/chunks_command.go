package main

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/yuanying/narrator/internal/chunk"
)

func newChunksCommand(ctx *commandContext) *cobra.Command {
	var budget int

	cmd := &cobra.Command{
		Use:   "chunks FILE",
		Short: "Show how a document is split for narration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if budget <= 0 {
				budget = cfg.Playback.ChunkBudget
			}
			_, doc, err := decodeFile(cmd.Context(), args[0], ctx.logger())
			if err != nil {
				return err
			}

			chunks := chunk.Split(doc.Text, budget)
			rows := make([][]string, 0, len(chunks))
			for i, c := range chunks {
				rows = append(rows, []string{
					strconv.Itoa(c.Index),
					strconv.Itoa(c.Start),
					strconv.Itoa(c.End),
					strconv.Itoa(chunk.SpokenOffset(chunks, i)),
					strconv.Itoa(utf8.RuneCountInString(c.Text)),
					truncate(c.Text, 60),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Start", "End", "Spoken", "Runes", "Text"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d chunks (budget %d)\n", len(chunks), budget)
			return nil
		},
	}

	cmd.Flags().IntVarP(&budget, "budget", "b", 0, "Chunk budget in characters (default from config)")
	return cmd
}
