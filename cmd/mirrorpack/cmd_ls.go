package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/repository"
	"github.com/mirrorpack/mirrorpack/internal/ui"
)

func newLsCommand(globalOptions *GlobalOptions) *cobra.Command {
	var opts LsOptions

	cmd := &cobra.Command{
		Use:   "ls [flags] repository",
		Short: "List the entries of a repository",
		Long: `
The "ls" command lists all entries recorded in the index of a repository in
lexical order. With --long, mode, owner, size and modification time are shown
as well.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		GroupID:           cmdGroupDefault,
		DisableAutoGenTag: true,
		Args:              cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd.Context(), opts, *globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// LsOptions collects all the options for the ls command.
type LsOptions struct {
	Long bool
}

func (opts *LsOptions) AddFlags(f *pflag.FlagSet) {
	f.BoolVarP(&opts.Long, "long", "l", false, "use a long listing format showing size and mode")
}

func runLs(_ context.Context, opts LsOptions, gopts GlobalOptions, args []string) error {
	repo, err := repository.Open(args[0])
	if err != nil {
		return err
	}
	repo.Warnf = warnf(gopts.printer())

	for _, e := range repo.List() {
		if !opts.Long {
			_, _ = fmt.Fprintln(gopts.stdout, e.Path)
			continue
		}
		printLong(gopts.stdout, repo, e)
	}
	return nil
}

func printLong(wr io.Writer, repo *repository.Repository, e repository.Entry) {
	m := e.Metadata

	var size string
	switch {
	case m.Kind == data.KindRegular:
		fi, err := os.Lstat(repo.BlobPath(e.Path))
		if err != nil {
			size = "?"
		} else {
			size = ui.FormatBytes(uint64(fi.Size()))
		}
	case m.Kind.IsDevice():
		size = fmt.Sprintf("%d, %d", m.DevMajor, m.DevMinor)
	}

	name := e.Path
	if m.Kind == data.KindSymlink {
		name += " -> " + m.LinkTarget
	}

	_, _ = fmt.Fprintf(wr, "%s %5d %5d %12s %s %s\n",
		ui.FormatMode(m.Mode), m.UID, m.GID, size, m.Time().Format(TimeFormat), ui.Quote(name))
}
