package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	godebug "runtime/debug"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/pack"
	"github.com/mirrorpack/mirrorpack/internal/repository"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

// ErrIncomplete is returned by backup and restore if at least one entry
// failed.
var ErrIncomplete = errors.New("at least one entry could not be processed")

var cmdGroupDefault = "default"
var cmdGroupPackage = "package"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirrorpack",
		Short: "Mirror directory trees and move them around as single packages",
		Long: `
mirrorpack copies a directory tree into a repository together with the metadata
of every entry, restores it from there, and serializes a whole repository into
a single package file which can optionally be compressed and encrypted.
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,

		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return globalOptions.PreRun()
		},
	}

	cmd.AddGroup(
		&cobra.Group{
			ID:    cmdGroupDefault,
			Title: "Available Commands:",
		},
		&cobra.Group{
			ID:    cmdGroupPackage,
			Title: "Package Commands:",
		},
	)

	globalOptions.AddFlags(cmd.PersistentFlags())

	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newBackupCommand(&globalOptions),
		newRestoreCommand(&globalOptions),
		newLsCommand(&globalOptions),
		newExportCommand(&globalOptions),
		newImportCommand(&globalOptions),
		newInspectCommand(&globalOptions),
		newVersionCommand(&globalOptions),
	)

	registerProfiling(cmd)

	return cmd
}

func tweakGoGC() {
	// lower GOGC from 100 to 50, unless it was manually overwritten by the user
	oldValue := godebug.SetGCPercent(50)
	if oldValue != 100 {
		godebug.SetGCPercent(oldValue)
	}
}

func main() {
	tweakGoGC()
	// install custom global logger into a buffer, if an error occurs
	// we can show the logs
	logBuffer := bytes.NewBuffer(nil)
	log.SetOutput(logBuffer)

	debug.Log("main %#v", os.Args)
	debug.Log("mirrorpack %s compiled with %v on %v/%v",
		version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	ctx := createGlobalContext()
	err := newRootCommand().ExecuteContext(ctx)
	if err == nil {
		err = ctx.Err()
	}

	var exitMessage string
	switch {
	case errors.Is(err, ErrIncomplete):
		exitMessage = fmt.Sprintf("Warning: %v", err)
	case errors.IsFatal(err):
		exitMessage = err.Error()
	case errors.Is(err, repository.ErrNoRepository),
		errors.Is(err, pack.ErrPasswordRequired),
		errors.Is(err, pack.ErrMagicMismatch),
		pack.IsInvalidFile(err):
		exitMessage = fmt.Sprintf("Fatal: %v", err)
	case err != nil:
		exitMessage = fmt.Sprintf("%+v", err)

		if logBuffer.Len() > 0 {
			exitMessage += "also, the following messages were logged by a library:\n"
			sc := bufio.NewScanner(logBuffer)
			for sc.Scan() {
				exitMessage += fmt.Sprintln(sc.Text())
			}
		}
	}

	var exitCode int
	switch {
	case err == nil:
		exitCode = 0
	case errors.Is(err, context.Canceled):
		exitCode = 130
	default:
		exitCode = 1
	}

	if exitCode != 0 {
		_, _ = fmt.Fprintf(globalOptions.stderr, "%v\n", exitMessage)
	}
	Exit(exitCode)
}
