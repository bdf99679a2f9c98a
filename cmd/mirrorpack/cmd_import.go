package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mirrorpack/mirrorpack/internal/crypto"
	"github.com/mirrorpack/mirrorpack/internal/pack"
	"github.com/mirrorpack/mirrorpack/internal/ui"
)

func newImportCommand(globalOptions *GlobalOptions) *cobra.Command {
	var opts ImportOptions

	cmd := &cobra.Command{
		Use:   "import [flags] package repository",
		Short: "Recreate a repository from a package file",
		Long: `
The "import" command reads a package file written by "export" and recreates the
repository files below the given directory. All entries are decoded and checked
before the first file is written, a damaged package leaves the directory
untouched.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		GroupID:           cmdGroupPackage,
		DisableAutoGenTag: true,
		Args:              cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, *globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// ImportOptions bundles all options for the import command.
type ImportOptions struct {
	Password string
}

func (opts *ImportOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.Password, "password", "", "`password` for the decryption (default: $MIRRORPACK_PASSWORD)")
}

func runImport(ctx context.Context, opts ImportOptions, gopts GlobalOptions, args []string) error {
	packagePath, repoRoot := args[0], args[1]
	printer := gopts.printer()

	h, err := pack.ReadHeader(packagePath)
	if err != nil {
		return err
	}

	var password string
	if h.Encryption != crypto.None {
		password, err = ReadPassword(ctx, gopts, opts.Password, "enter password for package: ")
		if err != nil {
			return err
		}
	}

	entries, err := pack.Import(ctx, packagePath, repoRoot, password)
	if err != nil {
		return err
	}

	var size uint64
	for _, e := range entries {
		printer.VV("%v\n", e)
		size += e.OrigSize
	}
	printer.P("imported %d files (%s) to %v\n", len(entries), ui.FormatBytes(size), repoRoot)
	return nil
}
