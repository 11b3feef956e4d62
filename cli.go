// Completion: 100% - Subcommands complete
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xyproto/regalloc/internal/config"
	"github.com/xyproto/regalloc/internal/listing"
	"github.com/xyproto/regalloc/internal/ra"
	"github.com/xyproto/regalloc/internal/target"
	"github.com/xyproto/regalloc/internal/watch"
)

// app holds what every subcommand needs: the environment defaults, the
// persistent flags and where output goes
type app struct {
	cfg     config.Config
	out     io.Writer
	log     *logrus.Logger
	target  string
	verbose bool
}

// allocateFlags are the flags of the allocate command
type allocateFlags struct {
	policy      string
	trace       bool
	stats       bool
	fingerprint bool
	watch       bool
	frame       bool
	jobs        int
}

func newRootCommand(cfg config.Config, out io.Writer) *cobra.Command {
	a := &app{cfg: cfg, out: out, log: logrus.New()}
	a.log.Out = os.Stderr
	a.log.Formatter = &logrus.TextFormatter{DisableColors: cfg.NoColor, DisableTimestamp: true}

	root := &cobra.Command{
		Use:           "regalloc",
		Short:         "Assign physical registers to virtual-register listings",
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log.SetLevel(cfg.LogLevel)
			if a.verbose && a.log.Level < logrus.InfoLevel {
				a.log.SetLevel(logrus.InfoLevel)
			}
		},
	}
	root.SetOut(out)
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&a.target, "target", "t", cfg.Target, "target machine ("+strings.Join(target.Names(), ", ")+" or host)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(a.allocateCommand(), a.frameCommand(), a.targetsCommand(), a.versionCommand())
	return root
}

func (a *app) lookupTarget() (*target.Target, error) {
	t, err := target.Lookup(a.target)
	if err != nil {
		return nil, errors.Wrapf(err, "target %q", a.target)
	}
	return t, nil
}

func (a *app) allocateCommand() *cobra.Command {
	f := &allocateFlags{}
	cmd := &cobra.Command{
		Use:   "allocate [files...]",
		Short: "Allocate every method of the given listings and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.lookupTarget()
			if err != nil {
				return err
			}
			if f.watch {
				return a.watchFiles(cmd.Context(), t, f, args)
			}
			for _, file := range args {
				if err := a.allocateFile(cmd.Context(), t, f, file); err != nil {
					return err
				}
			}
			return nil
		},
	}
	a.addAllocateFlags(cmd.Flags(), f)
	return cmd
}

func (a *app) addAllocateFlags(fs *pflag.FlagSet, f *allocateFlags) {
	fs.StringVarP(&f.policy, "policy", "p", a.cfg.Policy, "register selection policy (default, anchored, ring)")
	fs.BoolVar(&f.trace, "trace", a.cfg.Trace, "log every assignment, spill and reload")
	fs.BoolVarP(&f.stats, "stats", "s", false, "print register pressure statistics")
	fs.BoolVar(&f.fingerprint, "fingerprint", false, "print a digest of the allocated listing")
	fs.BoolVarP(&f.watch, "watch", "w", false, "allocate again whenever a listing changes")
	fs.BoolVar(&f.frame, "frame", false, "print prologue and epilogue")
	fs.IntVarP(&f.jobs, "jobs", "j", a.cfg.Jobs, "methods to allocate in parallel")
}

func (a *app) options(f *allocateFlags) (ra.Options, error) {
	policy, err := ra.ParsePolicy(f.policy)
	if err != nil {
		return ra.Options{}, err
	}
	log := logrus.NewEntry(a.log)
	if f.trace && a.log.Level < logrus.DebugLevel {
		a.log.SetLevel(logrus.DebugLevel)
	}
	return ra.Options{Log: log, Trace: f.trace, Policy: policy}, nil
}

// allocateFile parses, allocates and prints one listing
func (a *app) allocateFile(ctx context.Context, t *target.Target, f *allocateFlags, file string) error {
	opts, err := a.options(f)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	methods, err := listing.Parse(file, string(src), t)
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"file": file, "methods": len(methods), "target": t.Name}).Info("allocating")

	results, err := listing.AllocateAll(ctx, methods, t, opts, f.jobs)
	if err != nil {
		return errors.Wrap(err, file)
	}
	text := listing.Render(t, results, f.frame)
	if _, err := io.WriteString(a.out, text); err != nil {
		return err
	}

	if f.stats {
		var total ra.Stats
		for _, res := range results {
			total.Add(res.Stats)
		}
		fmt.Fprint(a.out, "\n"+total.Report(file))
	}
	if f.fingerprint {
		fmt.Fprintf(a.out, "fingerprint %s\n", listing.Fingerprint(text))
	}
	return nil
}

// watchFiles allocates every file once, then again on each change until interrupted
func (a *app) watchFiles(ctx context.Context, t *target.Target, f *allocateFlags, files []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func(file string) {
		if err := a.allocateFile(ctx, t, f, file); err != nil {
			reportError(err, !a.cfg.NoColor)
		}
	}
	w, err := watch.New(logrus.NewEntry(a.log), watch.DefaultQuiet, func(file string) {
		fmt.Fprintf(a.out, "--- %s changed\n", file)
		run(file)
	})
	if err != nil {
		return err
	}
	defer w.Close()

	for _, file := range files {
		if err := w.Add(file); err != nil {
			return err
		}
		run(file)
	}
	a.log.WithField("files", len(files)).Info("watching")
	return w.Watch(ctx)
}

func (a *app) frameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "frame <file>",
		Short: "Show the save set, frame size, prologue and epilogue of each method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.lookupTarget()
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			methods, err := listing.Parse(args[0], string(src), t)
			if err != nil {
				return err
			}
			policy, err := ra.ParsePolicy(a.cfg.Policy)
			if err != nil {
				return err
			}
			results, err := listing.AllocateAll(cmd.Context(), methods, t, ra.Options{Log: logrus.NewEntry(a.log), Policy: policy}, a.cfg.Jobs)
			if err != nil {
				return errors.Wrap(err, args[0])
			}
			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				a.printFrame(t, res)
			}
			return nil
		},
	}
}

func (a *app) printFrame(t *target.Target, res *ra.Result) {
	fr := res.Frame
	fmt.Fprintf(a.out, "method %s\n", res.Method.Name)
	saves := "none"
	if len(fr.SaveSet) > 0 {
		saves = strings.Join(fr.SaveNames(), " ")
	}
	fmt.Fprintf(a.out, "  saves:      %s\n", saves)
	fmt.Fprintf(a.out, "  spill area: %s\n", units.BytesSize(float64(fr.SpillArea)))
	fmt.Fprintf(a.out, "  frame:      %s\n", units.BytesSize(float64(fr.Size)))
	fmt.Fprintln(a.out, "  prologue:")
	for _, line := range t.Prologue(fr) {
		fmt.Fprintf(a.out, "    %s\n", line)
	}
	fmt.Fprintln(a.out, "  epilogue:")
	for _, line := range t.Epilogue(fr) {
		fmt.Fprintf(a.out, "    %s\n", line)
	}
}

func (a *app) targetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the known targets and their register files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, name := range target.Names() {
				t, err := target.Lookup(name)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				fmt.Fprint(a.out, t.Describe())
			}
			return nil
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, versionString)
		},
	}
}
