package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuanying/narrator/internal/document"
	"github.com/yuanying/narrator/internal/textutil"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Dump the package document of an EPUB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			if d := document.Detect(src.Filename, src.MediaType); d.Format != document.FormatEPUB {
				return fmt.Errorf("%s: inspect only supports epub files", src.Filename)
			}
			in, err := document.InspectEPUB(src.Data)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Filename, err)
			}

			out := cmd.OutOrStdout()
			opf := in.OPF
			meta := opf.Metadata
			metaRows := [][]string{
				{"Package", in.Package},
				{"Version", opf.Version},
				{"Title", meta.Title},
				{"Authors", strings.Join(meta.Authors(), ", ")},
				{"Language", meta.Language},
				{"Identifier", meta.Identifier},
				{"Publisher", meta.Publisher},
				{"Date", meta.Date},
				{"Subjects", strings.Join(meta.Subjects, ", ")},
				{"Rights", meta.Rights},
				{"Description", truncate(textutil.HTMLText(meta.Description), 80)},
			}
			if href, ok := opf.FindCoverImage(); ok {
				metaRows = append(metaRows, []string{"Cover", href})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, metaRows, nil))

			missing := make(map[string]bool, len(in.Missing))
			for _, id := range in.Missing {
				missing[id] = true
			}
			manifestRows := make([][]string, 0, len(opf.ManifestOrder))
			for _, id := range opf.ManifestOrder {
				item := opf.Manifest[id]
				present := "yes"
				if missing[id] {
					present = "no"
				}
				manifestRows = append(manifestRows, []string{item.ID, item.Href, item.MediaType, strings.Join(item.Properties, " "), present})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Href", "Media Type", "Properties", "Present"}, manifestRows, nil))

			spineRows := make([][]string, 0, len(opf.Spine))
			for i, ref := range opf.Spine {
				href := "(missing)"
				if item, ok := opf.Manifest[ref.IDRef]; ok {
					href = item.Href
				}
				spineRows = append(spineRows, []string{strconv.Itoa(i + 1), ref.IDRef, strconv.FormatBool(ref.Linear), href})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "IDRef", "Linear", "Href"}, spineRows,
				[]columnAlignment{alignRight}))

			fileRows := make([][]string, 0, len(in.Files))
			for i, name := range in.Files {
				fileRows = append(fileRows, []string{strconv.Itoa(i + 1), name})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Entry"}, fileRows, []columnAlignment{alignRight}))
			return nil
		},
	}
}
