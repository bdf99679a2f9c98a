package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mirrorpack/mirrorpack/internal/archiver"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/filter"
	"github.com/mirrorpack/mirrorpack/internal/fs"
	"github.com/mirrorpack/mirrorpack/internal/repository"
	"github.com/mirrorpack/mirrorpack/internal/ui/progress"
)

func newBackupCommand(globalOptions *GlobalOptions) *cobra.Command {
	var opts BackupOptions

	cmd := &cobra.Command{
		Use:   "backup [flags] source repository",
		Short: "Copy a directory tree into a repository",
		Long: `
The "backup" command walks the source directory and stores every entry below it
in the repository. Regular files are copied to the data area of the repository,
the metadata of all entries is written to the index. An existing repository is
extended, entries with the same path are replaced.

Regular files, directories, symlinks and FIFOs are backed up. Devices and
sockets are skipped.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error, including single entries which could
not be backed up.
Exit status is 130 if the command was interrupted.
`,
		GroupID:           cmdGroupDefault,
		DisableAutoGenTag: true,
		Args:              cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd.Context(), opts, *globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// BackupOptions bundles all options for the backup command.
type BackupOptions struct {
	filter.Options
	NoFifo bool
}

func (opts *BackupOptions) AddFlags(f *pflag.FlagSet) {
	opts.Options.Add(f)
	f.BoolVar(&opts.NoFifo, "no-fifo", false, "do not back up named pipes (FIFOs)")
}

func runBackup(ctx context.Context, opts BackupOptions, gopts GlobalOptions, args []string) error {
	source, repoRoot := args[0], args[1]
	printer := gopts.printer()

	chain, err := opts.Options.Build(source, time.Now())
	if err != nil {
		return err
	}

	policy := fs.FifoPolicy
	if opts.NoFifo {
		policy = fs.MinimalPolicy
	}

	repo := repository.New(repoRoot)
	repo.Warnf = warnf(printer)

	printer.V("backing up %v to %v, policy %v\n", source, repoRoot, policy)
	stats, err := archiver.New(repo, archiver.Options{
		Policy:   policy,
		Reporter: progress.NewTextReporter(printer),
	}).Execute(ctx, source, chain)
	if err != nil {
		return err
	}

	if stats.Failed > 0 {
		return errors.Wrapf(ErrIncomplete, "%d of %d entries failed", stats.Failed, stats.Total)
	}
	return nil
}
