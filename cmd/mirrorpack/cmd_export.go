package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mirrorpack/mirrorpack/internal/compress"
	"github.com/mirrorpack/mirrorpack/internal/crypto"
	"github.com/mirrorpack/mirrorpack/internal/pack"
	"github.com/mirrorpack/mirrorpack/internal/ui"
)

func newExportCommand(globalOptions *GlobalOptions) *cobra.Command {
	opts := ExportOptions{
		Layout:      pack.HeaderPerFile,
		Compression: compress.None,
		Encryption:  crypto.None,
	}

	cmd := &cobra.Command{
		Use:   "export [flags] repository package",
		Short: "Write a repository into a single package file",
		Long: `
The "export" command serializes all files of a repository into a single package
file. Each file is compressed and then encrypted with the selected algorithms.
The package is written to a temporary file first and renamed on success.

Encryption requires a password, which is read from --password,
$MIRRORPACK_PASSWORD, the password file or an interactive prompt.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		GroupID:           cmdGroupPackage,
		DisableAutoGenTag: true,
		Args:              cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, *globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// ExportOptions bundles all options for the export command.
type ExportOptions struct {
	Layout      pack.Layout
	Compression compress.Algorithm
	Encryption  crypto.Algorithm
	Password    string
}

func (opts *ExportOptions) AddFlags(f *pflag.FlagSet) {
	f.Var(&opts.Layout, "layout", "package layout, one of (header|toc)")
	f.Var(&opts.Compression, "compression", "compression algorithm, one of (none|rle|zstd|lz4)")
	f.Var(&opts.Encryption, "encryption", "encryption algorithm, one of (none|xor|rc4)")
	f.StringVar(&opts.Password, "password", "", "`password` for the encryption (default: $MIRRORPACK_PASSWORD)")
}

func runExport(ctx context.Context, opts ExportOptions, gopts GlobalOptions, args []string) error {
	repoRoot, packagePath := args[0], args[1]
	printer := gopts.printer()

	var password string
	if opts.Encryption != crypto.None {
		var err error
		password, err = ReadPassword(ctx, gopts, opts.Password, "enter password for package: ")
		if err != nil {
			return err
		}
	}

	entries, err := pack.Export(ctx, repoRoot, packagePath, pack.Options{
		Layout:      opts.Layout,
		Compression: opts.Compression,
		Encryption:  opts.Encryption,
		Password:    password,
	})
	if err != nil {
		return err
	}

	var orig, stored uint64
	for _, e := range entries {
		printer.VV("%v\n", e)
		orig += e.OrigSize
		stored += e.StoredSize
	}
	printer.P("exported %d files to %v, %s stored as %s\n",
		len(entries), packagePath, ui.FormatBytes(orig), ui.FormatBytes(stored))
	return nil
}
