package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/config"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/docs"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/history"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/lcov"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/pip"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/provision"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/pytest"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/report"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/submit"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/watcher"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/wizard"
	"github.com/felixgeelhaar/matrixctl/internal/mcp"
)

const defaultConfigPath = ".matrixctl.yaml"

type Service interface {
	Run(ctx context.Context, opts application.RunOptions) error
	RunReport(ctx context.Context, opts application.RunOptions) (domain.AggregateReport, error)
	Expand(ctx context.Context, opts application.ExpandOptions) ([]domain.Cell, error)
	Verify(ctx context.Context, opts application.VerifyOptions) error
	VerifyDocs(ctx context.Context, opts application.VerifyOptions) (domain.VerificationResult, error)
	History(ctx context.Context, opts application.HistoryOptions, store application.HistoryStore) ([]domain.HistoryEntry, error)
	Watch(ctx context.Context, opts application.WatchOptions, watcher application.FileWatcher, callback application.WatchCallback) error
}

var initWizard = wizard.Run

func Run(args []string, stdout, stderr io.Writer, svc Service) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	ctx := context.Background()

	switch args[1] {
	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs)
		runID := fs.String("run-id", "", "Identifier passed to the submission finalize call")
		watch := fs.Bool("watch", false, "Watch subject sources and re-run the matrix")
		record := fs.Bool("record", false, "Record the run outcome to history")
		historyPath := fs.String("history", ".matrixctl/history.json", "History file path")
		commit := fs.String("commit", "", "Git commit SHA (optional)")
		branch := fs.String("branch", "", "Git branch name (optional)")
		_ = fs.Parse(args[2:])

		if *watch {
			return runWatch(ctx, stdout, stderr, svc, *configPath, *output)
		}
		opts := application.RunOptions{
			ConfigPath: *configPath,
			Output:     *output,
			RunID:      *runID,
			Commit:     *commit,
			Branch:     *branch,
			Submitter:  submitterFor(*configPath),
		}
		if *record {
			opts.Record = true
			opts.Store = &history.FileStore{Path: *historyPath}
		}
		err := svc.Run(ctx, opts)
		return exitCode(err, 1, stderr)
	case "expand":
		fs := flag.NewFlagSet("expand", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		_ = fs.Parse(args[2:])
		cells, err := svc.Expand(ctx, application.ExpandOptions{ConfigPath: *configPath})
		if err != nil {
			return exitCode(err, 3, stderr)
		}
		for i, cell := range cells {
			fmt.Fprintf(stdout, "%d\t%s\n", i, cell.ID())
		}
		return 0
	case "verify-docs":
		fs := flag.NewFlagSet("verify-docs", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs)
		_ = fs.Parse(args[2:])
		err := svc.Verify(ctx, application.VerifyOptions{ConfigPath: *configPath, Output: *output})
		return exitCode(err, 1, stderr)
	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		historyPath := fs.String("history", ".matrixctl/history.json", "History file path")
		limit := fs.Int("limit", 10, "Number of entries to show")
		_ = fs.Parse(args[2:])
		store := history.FileStore{Path: *historyPath}
		entries, err := svc.History(ctx, application.HistoryOptions{Limit: *limit}, &store)
		if err != nil {
			return exitCode(err, 3, stderr)
		}
		printHistory(entries, stdout)
		return 0
	case "init":
		fs := flag.NewFlagSet("init", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		force := fs.Bool("force", false, "Overwrite existing config file")
		noInteractive := fs.Bool("no-interactive", false, "Skip the interactive init wizard")
		_ = fs.Parse(args[2:])

		cfg := seedConfig(*configPath)
		if !*noInteractive {
			var confirmed bool
			var err error
			cfg, confirmed, err = initWizard(cfg, stdout, os.Stdin)
			if err != nil {
				return exitCode(err, 5, stderr)
			}
			if !confirmed {
				fmt.Fprintln(stdout, "Init cancelled; no configuration written.")
				return 0
			}
		}
		if err := writeConfigFile(*configPath, cfg, stdout, *force); err != nil {
			return exitCode(err, 2, stderr)
		}
		fmt.Fprintf(stdout, "Configuration written to %s\n", *configPath)
		return 0
	case "mcp":
		fs := flag.NewFlagSet("mcp", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		historyPath := fs.String("history", ".matrixctl/history.json", "History file path")
		_ = fs.Parse(args[2:])
		server := mcp.NewServer(svc, mcp.Options{
			ConfigPath:  *configPath,
			HistoryPath: *historyPath,
			Version:     Version,
		})
		err := server.Serve(ctx)
		return exitCode(err, 3, stderr)
	case "version":
		fmt.Fprintf(stdout, "matrixctl %s (%s, built %s)\n", Version, Commit, Date)
		return 0
	default:
		usage(stderr)
		return 2
	}
}

// BuildService wires the default adapters.
func BuildService(out *os.File) *application.Service {
	return &application.Service{
		ConfigLoader: config.Loader{},
		Provisioner:  provision.Provisioner{},
		Installer:    pip.Installer{},
		Runner:       pytest.Runner{},
		Parser:       lcov.New(),
		DocBuilder:   docs.Builder{},
		Reporter:     report.Writer{},
		Out:          out,
	}
}

// submitterFor builds a submission client from the config's submit
// section. Returns nil when submission is disabled or the config is not
// readable; the run itself reports config errors.
func submitterFor(configPath string) application.Submitter {
	cfg, err := config.Loader{}.Load(configPath)
	if err != nil || !cfg.Submit.Enabled {
		return nil
	}
	return submit.NewClient(cfg.Submit.URL, cfg.Submit.TokenEnv)
}

// seedConfig loads an existing config to pre-fill the wizard, falling
// back to an empty one.
func seedConfig(configPath string) application.Config {
	cfg, err := config.Loader{}.Load(configPath)
	if err != nil {
		return application.Config{}
	}
	return cfg
}

func outputFlags(fs *flag.FlagSet) *application.OutputFormat {
	output := application.OutputText
	fs.Var((*outputValue)(&output), "output", "Output format: text|json")
	fs.Var((*outputValue)(&output), "o", "Output format: text|json")
	return &output
}

type outputValue application.OutputFormat

func (o *outputValue) String() string { return string(*o) }

func (o *outputValue) Set(value string) error {
	switch value {
	case string(application.OutputText), string(application.OutputJSON):
		*o = outputValue(value)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", value)
	}
}

func writeConfigFile(path string, cfg application.Config, stdout io.Writer, force bool) error {
	if path == "-" {
		return config.Write(stdout, cfg)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return config.Write(file, cfg)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `matrixctl <command>

Commands:
  run          Expand the matrix, run every cell, aggregate coverage
  expand       Show the matrix cells without running anything
  verify-docs  Build the documentation and run its snippets
  history      Show recorded run outcomes
  init         Write a starting configuration (interactive)
  mcp          Serve the MCP tool interface on stdio
  version      Print version information`)
}

func exitCode(err error, code int, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, err)
	return code
}

func printHistory(entries []domain.HistoryEntry, w io.Writer) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No recorded runs yet.")
		return
	}
	for i, e := range entries {
		marker := ""
		if e.Incomplete {
			marker = " (incomplete)"
		}
		delta := ""
		if i > 0 {
			delta = fmt.Sprintf("  %+.1f%%", e.Overall-entries[i-1].Overall)
		}
		ref := e.Commit
		if e.Branch != "" {
			ref = e.Branch + "@" + shortCommit(e.Commit)
		}
		if ref != "" {
			ref = "  " + ref
		}
		fmt.Fprintf(w, "%s  %5.1f%%%s  %d cells%s%s\n",
			e.Timestamp.Format("2006-01-02 15:04"), e.Overall, delta, len(e.Cells), ref, marker)
	}
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

func runWatch(ctx context.Context, stdout, stderr io.Writer, svc Service, configPath string, output application.OutputFormat) int {
	w, err := watcher.New(watcher.WithDebounce(500 * time.Millisecond))
	if err != nil {
		fmt.Fprintf(stderr, "failed to create watcher: %v\n", err)
		return 3
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(stdout, "\nStopping watch mode...")
		cancel()
	}()

	fmt.Fprintln(stdout, "Watching for file changes... (Ctrl+C to stop)")
	fmt.Fprintln(stdout, "")

	callback := func(runNumber int, runErr error) {
		fmt.Fprintf(stdout, "\n--- Run #%d at %s ---\n", runNumber, time.Now().Format("15:04:05"))
		if runErr != nil {
			fmt.Fprintf(stderr, "Matrix run failed: %v\n", runErr)
		} else {
			fmt.Fprintln(stdout, "Matrix run completed successfully")
		}
	}

	opts := application.WatchOptions{
		ConfigPath: configPath,
		Output:     output,
	}

	if err := svc.Watch(ctx, opts, w, callback); err != nil {
		if ctx.Err() == context.Canceled {
			return 0
		}
		fmt.Fprintf(stderr, "watch error: %v\n", err)
		return 3
	}
	return 0
}
