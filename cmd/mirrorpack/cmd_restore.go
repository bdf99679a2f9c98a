package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/repository"
	"github.com/mirrorpack/mirrorpack/internal/restorer"
	"github.com/mirrorpack/mirrorpack/internal/ui/progress"
)

func newRestoreCommand(globalOptions *GlobalOptions) *cobra.Command {
	var opts RestoreOptions

	cmd := &cobra.Command{
		Use:   "restore [flags] repository target",
		Short: "Recreate the entries of a repository in a directory",
		Long: `
The "restore" command recreates every entry recorded in the index of the
repository below the target directory. Existing files are replaced, existing
directories are kept. Permissions, owner and modification time are restored for
regular files and FIFOs. Devices and sockets are reported but not created.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error, including single entries which could
not be restored or failed verification.
Exit status is 130 if the command was interrupted.
`,
		GroupID:           cmdGroupDefault,
		DisableAutoGenTag: true,
		Args:              cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd.Context(), opts, *globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// RestoreOptions collects all options for the restore command.
type RestoreOptions struct {
	Verify bool
}

func (opts *RestoreOptions) AddFlags(f *pflag.FlagSet) {
	f.BoolVar(&opts.Verify, "verify", false, "verify the content of restored files")
}

func runRestore(ctx context.Context, opts RestoreOptions, gopts GlobalOptions, args []string) error {
	repoRoot, target := args[0], args[1]
	printer := gopts.printer()

	repo, err := repository.Open(repoRoot)
	if err != nil {
		return err
	}
	repo.Warnf = warnf(printer)

	printer.V("restoring %d entries from %v to %v\n", repo.Len(), repoRoot, target)
	stats, err := restorer.New(repo, restorer.Options{
		Verify:   opts.Verify,
		Reporter: progress.NewTextReporter(printer),
	}).Execute(ctx, target)
	if err != nil {
		return err
	}

	if stats.Failed > 0 {
		return errors.Wrapf(ErrIncomplete, "%d of %d entries failed", stats.Failed, stats.Total)
	}
	return nil
}
