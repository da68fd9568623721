package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuanying/narrator/internal/document"
	"github.com/yuanying/narrator/internal/library"
)

const shortIDLength = 12

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage saved documents",
	}
	cmd.AddCommand(newLibraryListCommand(ctx))
	cmd.AddCommand(newLibraryAddCommand(ctx))
	cmd.AddCommand(newLibraryRemoveCommand(ctx))
	cmd.AddCommand(newLibraryReadCommand(ctx))
	cmd.AddCommand(newLibraryCoverCommand(ctx))
	return cmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(cmd.Context(), func(store *library.Store) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Library is empty.")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					cover := "no"
					if len(e.Thumbnail) > 0 {
						cover = "yes"
					}
					rows = append(rows, []string{
						shortID(e.ID),
						truncate(e.Title, 40),
						truncate(e.Author, 24),
						e.Format.String(),
						strconv.Itoa(e.WordCount),
						e.AddedAt.Local().Format(time.DateTime),
						cover,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Author", "Format", "Words", "Added", "Cover"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newLibraryAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE...",
		Short: "Save documents to the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(cmd.Context(), func(store *library.Store) error {
				out := cmd.OutOrStdout()
				for _, path := range args {
					src, doc, err := decodeFile(cmd.Context(), path, ctx.logger())
					if err != nil {
						return err
					}
					e, err := store.Save(cmd.Context(), src, &doc)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "saved %s %s\n", shortID(e.ID), e.Title)
				}
				return nil
			})
		},
	}
}

func newLibraryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Remove a saved document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(cmd.Context(), func(store *library.Store) error {
				if err := store.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newLibraryReadCommand(ctx *commandContext) *cobra.Command {
	var opts voiceOptions

	cmd := &cobra.Command{
		Use:   "read ID",
		Short: "Read a saved document aloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entry library.Entry
			err := ctx.withLibrary(cmd.Context(), func(store *library.Store) error {
				var err error
				entry, err = store.Get(cmd.Context(), args[0])
				return err
			})
			if err != nil {
				return err
			}
			src := document.Source{Filename: entry.Source, MediaType: entry.MediaType, Data: entry.Data}
			doc, err := decodeSource(cmd.Context(), src, ctx.logger())
			if err != nil {
				return err
			}
			return ctx.narrate(cmd.Context(), cmd.OutOrStdout(), doc, opts)
		},
	}
	addVoiceFlags(cmd, &opts)
	return cmd
}

func newLibraryCoverCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "cover ID",
		Short: "Write the cover thumbnail of a saved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(cmd.Context(), func(store *library.Store) error {
				entry, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(entry.Thumbnail) == 0 {
					return fmt.Errorf("%s has no cover", shortID(entry.ID))
				}
				if output == "" {
					ext := ".jpg"
					if entry.ThumbnailMediaType == "image/png" {
						ext = ".png"
					}
					output = shortID(entry.ID) + ext
				}
				if err := os.WriteFile(output, entry.Thumbnail, 0o644); err != nil {
					return fmt.Errorf("write cover: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <id>.jpg)")
	return cmd
}
