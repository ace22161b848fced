package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/r4j3sh-com/reconprog/core"
	"github.com/r4j3sh-com/reconprog/output"
)

func newBatchCmd() *cobra.Command {
	var (
		target  string
		noCache bool
		raw     bool
		report  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "batch module:profile [module:profile...]",
		Short: "Run several module profiles concurrently against one target",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := make([]core.Task, 0, len(args))
			for _, arg := range args {
				t, err := core.ParseTask(arg)
				if err != nil {
					return err
				}
				if t.Profile == core.ProfileCustom || t.Profile == core.ProfileManage {
					return fmt.Errorf("profile %q is interactive and cannot run in a batch", t.Profile)
				}
				tasks = append(tasks, t)
			}
			switch report {
			case "", "md", "markdown", "html", "json":
			default:
				return fmt.Errorf("unknown report format: %s", report)
			}

			a := state
			ctx, stop := signal.NotifyContext(orBackground(cmd.Context()), os.Interrupt)
			defer stop()

			rows := make([][]string, 0, len(tasks))
			for i, t := range tasks {
				rows = append(rows, []string{fmt.Sprint(i + 1), t.Module, t.Profile})
			}
			fmt.Fprint(os.Stdout, pterm.DefaultSection.Sprintln("Tasks scheduled"))
			if err := a.console.Table([]string{"#", "module", "profile"}, rows); err != nil {
				return err
			}

			a.orch.NoCache = noCache
			a.console.ShowRaw = raw
			a.orch.OnResult = func(res core.TaskResult) {
				if err := a.console.Result(res); err != nil {
					core.Logger.WithError(err).Warn("Failed to render result")
				}
				a.autoSave(res)
			}
			rep := a.orch.RunBatch(ctx, target, tasks)
			if err := a.console.BatchSummary(rep, len(tasks)); err != nil {
				return err
			}

			if report != "" {
				if len(rep.Results) == 0 {
					pterm.Warning.Println("No results to report.")
				} else {
					path, err := writeReport(a, report, outPath, output.NewSession(target, rep.Results, rep.Failures))
					if err != nil {
						return err
					}
					pterm.Success.Printfln("Report saved to %s", path)
				}
			}
			if len(rep.Failures) > 0 {
				return &exitCodeError{code: core.ExitFailure}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "target domain or IP")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore cached results and force fresh runs")
	cmd.Flags().BoolVar(&raw, "raw", false, "also print each tool's stdout and stderr")
	cmd.Flags().StringVar(&report, "report", "", "write a session report (md, html, json)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "report path (default: <output_dir>/report_<target>_<time>.<ext>)")
	cmd.MarkFlagRequired("target")
	return cmd
}

func writeReport(a *app, format, path string, session output.Session) (string, error) {
	ext := map[string]string{"md": "md", "markdown": "md", "html": "html", "json": "json"}[format]
	if path == "" {
		name := fmt.Sprintf("report_%s_%s.%s",
			strings.NewReplacer("/", "_", ":", "_").Replace(session.Target),
			time.Now().Format("20060102_150405"), ext)
		path = filepath.Join(a.cfg.OutputDir, name)
	}

	var err error
	switch ext {
	case "md":
		err = output.WriteMarkdownReport(a.fs, session, path)
	case "html":
		err = output.WriteHTMLReport(a.fs, session, path)
	case "json":
		err = output.WriteJSONReport(a.fs, session, path)
	}
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
