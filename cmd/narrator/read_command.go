package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yuanying/narrator/internal/library"
)

func addVoiceFlags(cmd *cobra.Command, opts *voiceOptions) {
	cmd.Flags().StringVar(&opts.voice, "voice", "", "Voice id or name (see `narrator voices`)")
	cmd.Flags().Float64Var(&opts.rate, "rate", 0, "Speech rate 0.5-2.0 (default from config)")
	cmd.Flags().Float64Var(&opts.pitch, "pitch", 0, "Speech pitch 0.5-2.0 (default from config)")
	cmd.Flags().Float64Var(&opts.volume, "volume", -1, "Speech volume 0-1 (default from config)")
	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 0, "Chunk budget in characters (default from config)")
}

func newReadCommand(ctx *commandContext) *cobra.Command {
	var opts voiceOptions
	var save bool

	cmd := &cobra.Command{
		Use:   "read FILE",
		Short: "Read a document aloud",
		Long: `Read a document aloud. On a terminal an interactive reader is shown
(SPACE: play/pause, S: stop, R: reset, Q: quit); otherwise each chunk is
printed as it is spoken.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, doc, err := decodeFile(cmd.Context(), args[0], ctx.logger())
			if err != nil {
				return err
			}
			if save {
				err := ctx.withLibrary(cmd.Context(), func(store *library.Store) error {
					e, err := store.Save(cmd.Context(), src, &doc)
					if err != nil {
						return err
					}
					ctx.logger().Info("saved to library", slog.String("id", e.ID), slog.String("title", e.Title))
					return nil
				})
				if err != nil {
					return fmt.Errorf("save to library: %w", err)
				}
			}
			return ctx.narrate(cmd.Context(), cmd.OutOrStdout(), doc, opts)
		},
	}

	addVoiceFlags(cmd, &opts)
	cmd.Flags().BoolVar(&save, "save", false, "Also save the document to the library")
	return cmd
}
