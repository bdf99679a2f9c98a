package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrorpack/mirrorpack/internal/pack"
	"github.com/mirrorpack/mirrorpack/internal/ui"
)

func newInspectCommand(globalOptions *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect package",
		Short: "Show the header and the entries of a package file",
		Long: `
The "inspect" command prints the header of a package and the list of entries it
contains without decoding any payload. No password is needed.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		GroupID:           cmdGroupPackage,
		DisableAutoGenTag: true,
		Args:              cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), *globalOptions, args)
		},
	}
	return cmd
}

func runInspect(_ context.Context, gopts GlobalOptions, args []string) error {
	h, entries, err := pack.Inspect(args[0])
	if err != nil {
		return err
	}

	wr := gopts.stdout
	_, _ = fmt.Fprintf(wr, "version:     %d\n", h.Version)
	_, _ = fmt.Fprintf(wr, "layout:      %v\n", h.Layout)
	_, _ = fmt.Fprintf(wr, "compression: %v\n", h.Compression)
	_, _ = fmt.Fprintf(wr, "encryption:  %v\n", h.Encryption)
	_, _ = fmt.Fprintf(wr, "salt:        %d bytes\n", len(h.Salt))
	_, _ = fmt.Fprintf(wr, "entries:     %d\n\n", len(entries))

	for _, e := range entries {
		_, _ = fmt.Fprintf(wr, "%10s %10s %12d  %s\n",
			ui.FormatBytes(e.OrigSize), ui.FormatBytes(e.StoredSize), e.Offset, ui.Quote(e.Path))
	}
	return nil
}
