package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/shlex"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/r4j3sh-com/reconprog/core"
	"github.com/r4j3sh-com/reconprog/modules"
	"github.com/r4j3sh-com/reconprog/output"
)

type runOptions struct {
	target     string
	module     string
	profile    string
	format     string
	outputFile string
	quiet      bool
	raw        bool
	noCache    bool
	customArgs string
	saveAs     string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one module profile against a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingle(cmd.Context(), state, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "target domain or IP")
	cmd.Flags().StringVarP(&opts.module, "module", "m", "", "module name (nmap, dig, whois, crtsh)")
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "basic", "profile name")
	cmd.Flags().StringVarP(&opts.format, "output-format", "f", output.FormatJSON, "output format (json, text, table, none)")
	cmd.Flags().StringVarP(&opts.outputFile, "output-file", "o", "", "write output to file instead of stdout")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress everything but the result")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "also print the tool's stdout and stderr")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "ignore cached results and force a fresh run")
	cmd.Flags().StringVar(&opts.customArgs, "args", "", `arguments for the "custom" profile`)
	cmd.Flags().StringVar(&opts.saveAs, "save-as", "", "save custom arguments as a named profile after a successful run")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("module")
	return cmd
}

func (o *runOptions) validate() error {
	switch o.format {
	case output.FormatJSON, output.FormatText, output.FormatNone, "table":
	default:
		return fmt.Errorf("unknown output format: %s", o.format)
	}
	if o.saveAs != "" && o.profile != core.ProfileCustom {
		return fmt.Errorf("--save-as needs the %q profile", core.ProfileCustom)
	}
	if o.customArgs != "" && o.profile != core.ProfileCustom {
		return fmt.Errorf("--args needs the %q profile", core.ProfileCustom)
	}
	return nil
}

func runSingle(ctx context.Context, a *app, opts *runOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(orBackground(ctx), os.Interrupt)
	defer stop()

	task := core.Task{Module: opts.module, Profile: opts.profile}
	if opts.profile == core.ProfileCustom {
		args, err := customArgs(opts.customArgs)
		if err != nil {
			return err
		}
		task.CustomArgs = args
	}

	a.orch.NoCache = opts.noCache
	if !opts.quiet && opts.format != output.FormatJSON && opts.format != output.FormatNone {
		pterm.Info.Printfln("Running %s (%s) against %s", opts.module, opts.profile, opts.target)
	}
	res, err := a.orch.Execute(ctx, opts.target, task)
	if err != nil {
		return err
	}
	a.autoSave(res)

	if opts.saveAs != "" && len(task.CustomArgs) > 0 && res.OK() {
		if err := saveCustomProfile(a, res.Module, opts.saveAs, task.CustomArgs); err != nil {
			return err
		}
		if !opts.quiet {
			pterm.Success.Printfln("Saved profile %q", opts.saveAs)
		}
	}

	if err := emit(a, res, opts); err != nil {
		return err
	}
	if !res.OK() {
		msg := ""
		if opts.quiet || opts.format == output.FormatNone {
			msg = res.Stderr
		}
		return &exitCodeError{code: res.ExitCode, msg: msg}
	}
	return nil
}

func emit(a *app, res core.TaskResult, opts *runOptions) error {
	var buf bytes.Buffer
	if opts.raw && opts.format != output.FormatNone {
		if res.Stdout != "" {
			fmt.Fprintf(&buf, "=== STANDARD OUTPUT ===\n%s\n", strings.TrimRight(res.Stdout, "\n"))
		}
		if res.Stderr != "" {
			fmt.Fprintf(&buf, "=== STANDARD ERROR ===\n%s\n", strings.TrimRight(res.Stderr, "\n"))
		}
	}

	if opts.format == "table" {
		if opts.outputFile != "" {
			return fmt.Errorf("table output cannot be written to a file")
		}
		os.Stdout.Write(buf.Bytes())
		return a.console.Result(res)
	}
	if err := output.WriteResult(&buf, res, opts.format); err != nil {
		return err
	}

	if opts.outputFile != "" {
		if err := afero.WriteFile(a.fs, opts.outputFile, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write %s: %w", opts.outputFile, err)
		}
		if !opts.quiet {
			pterm.Success.Printfln("Output written to %s", opts.outputFile)
		}
		return nil
	}
	_, err := os.Stdout.Write(buf.Bytes())
	return err
}

// customArgs tokenises a shell-style argument line, prompting for one when
// none was given on the command line.
func customArgs(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		if !isTerminal() {
			return nil, fmt.Errorf(`profile "custom" needs --args`)
		}
		printFlagHelp()
		input, err := pterm.DefaultInteractiveTextInput.Show("Enter nmap arguments")
		if err != nil {
			return nil, err
		}
		line = input
	}
	args, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("custom scan cancelled: no arguments supplied")
	}
	return args, nil
}

func saveCustomProfile(a *app, module, name string, args []string) error {
	scanner, ok := modules.Scanner(a.engine)
	if !ok || scanner.Name() != module {
		return fmt.Errorf("module %s does not support saved profiles", module)
	}
	return scanner.SaveProfile(name, args)
}

func isTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
