package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/r4j3sh-com/reconprog/cache"
	"github.com/r4j3sh-com/reconprog/core"
	"github.com/r4j3sh-com/reconprog/modules"
	"github.com/r4j3sh-com/reconprog/output"
)

var (
	cfgFile  string
	logLevel string
	noColor  bool
)

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg     *core.Config
	fs      afero.Fs
	engine  *core.Engine
	store   *cache.FileStore
	orch    *core.Orchestrator
	console *output.ConsoleReporter
}

var state *app

// exitCodeError makes the process exit with a tool's own exit code.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

var rootCmd = &cobra.Command{
	Use:   "reconprog",
	Short: "Profile-driven recon orchestrator for nmap, dig, whois and crt.sh",
	Long: `reconprog runs reconnaissance tools against a target through named
profiles, caches their results per target, and turns their output into
structured intelligence.

Examples:
  reconprog run -t example.com -m nmap -p basic
  reconprog run -t example.com -m nmap -p custom --args "-p 22,80 -sV" --save-as web
  reconprog batch -t example.com nmap:version dig:mx crtsh:basic --report md
  reconprog profiles -m dig
  reconprog cache clear -t example.com`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		state = a
		return nil
	},
}

func init() {
	path := core.DefaultConfigPath()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", path, "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newRunCmd(),
		newBatchCmd(),
		newModulesCmd(),
		newProfilesCmd(),
		newProfileCmd(),
		newFlagsCmd(),
		newCacheCmd(),
		newManageCmd(),
	)
}

func newApp() (*app, error) {
	cfg, err := core.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := core.InitLogger(cfg.Log); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if noColor || !cfg.Color {
		color.NoColor = true
		pterm.DisableColor()
	}

	fs := afero.NewOsFs()
	profiles := modules.NewUserProfileStore(fs, cfg.ProfilesFile)
	engine := modules.NewEngine(modules.Options{Config: cfg}, profiles)
	if scanner, ok := modules.Scanner(engine); ok {
		scanner.SetEditor(&profileEditor{})
	}
	store := cache.NewFileStore(cfg.CacheDir, cache.WithFs(fs))

	return &app{
		cfg:     cfg,
		fs:      fs,
		engine:  engine,
		store:   store,
		orch:    core.NewOrchestrator(engine, store, cfg),
		console: output.NewConsoleReporter(os.Stdout),
	}, nil
}

// autoSave writes parsed intelligence to the output dir when enabled.
func (a *app) autoSave(res core.TaskResult) {
	if !a.cfg.SaveOutput || !res.OK() || res.Parsed == nil {
		return
	}
	path, err := output.SaveParsed(a.fs, a.cfg.OutputDir, res)
	if err != nil {
		core.Logger.WithError(err).Warn("Failed to save parsed output")
		return
	}
	core.Logger.WithField("path", path).Debug("Saved parsed output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitCodeError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				fmt.Fprintln(os.Stderr, strings.TrimSpace(exit.msg))
			}
			os.Exit(exit.code)
		}
		pterm.Error.Println(err)
		if errors.Is(err, core.ErrUnknownProfile) || errors.Is(err, core.ErrUnknownModule) {
			fmt.Fprintln(os.Stderr, "Run 'reconprog modules' or 'reconprog profiles -m <module>' to see what is available.")
		}
		os.Exit(1)
	}
}
