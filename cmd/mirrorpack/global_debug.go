//go:build debug || profile

package main

import (
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

type ProfileOptions struct {
	memPath   string
	cpuPath   string
	tracePath string
	blockPath string
}

func (opts *ProfileOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.memPath, "mem-profile", "", "write memory profile to `dir`")
	f.StringVar(&opts.cpuPath, "cpu-profile", "", "write cpu profile to `dir`")
	f.StringVar(&opts.tracePath, "trace-profile", "", "write trace to `dir`")
	f.StringVar(&opts.blockPath, "block-profile", "", "write block profile to `dir`")
}

type profiler struct {
	opts ProfileOptions
	stop interface {
		Stop()
	}
}

func registerProfiling(cmd *cobra.Command) {
	var prof profiler

	origPreRun := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if origPreRun != nil {
			if err := origPreRun(c, args); err != nil {
				return err
			}
		}
		return prof.Start(prof.opts)
	}

	origPostRun := cmd.PersistentPostRunE
	cmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		prof.Stop()
		if origPostRun != nil {
			return origPostRun(c, args)
		}
		return nil
	}

	prof.opts.AddFlags(cmd.PersistentFlags())
}

func (p *profiler) Start(profileOpts ProfileOptions) error {
	n := 0
	for _, path := range []string{profileOpts.memPath, profileOpts.cpuPath, profileOpts.tracePath, profileOpts.blockPath} {
		if path != "" {
			n++
		}
	}
	if n > 1 {
		return errors.Fatal("only one profile (memory, CPU, trace, or block) may be activated at the same time")
	}

	switch {
	case profileOpts.memPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.MemProfile, profile.ProfilePath(profileOpts.memPath))
	case profileOpts.cpuPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.CPUProfile, profile.ProfilePath(profileOpts.cpuPath))
	case profileOpts.tracePath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.TraceProfile, profile.ProfilePath(profileOpts.tracePath))
	case profileOpts.blockPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.BlockProfile, profile.ProfilePath(profileOpts.blockPath))
	}
	return nil
}

func (p *profiler) Stop() {
	if p.stop != nil {
		p.stop.Stop()
	}
}
