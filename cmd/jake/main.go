// main.go bootstraps jake: it builds the root Cobra command and executes it
// with a signal-aware context, mapping engine errors to exit codes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/example/jake/internal/config"
	"github.com/example/jake/internal/engine"
	"github.com/example/jake/internal/logging"
	"github.com/example/jake/internal/recipe"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(engine.ExitCode(err))
	}
}

type rootOptions struct {
	jakefile string
	jobs     int
	dryRun   bool
	verbose  bool
	quiet    bool
	noColor  bool
	logLevel string
	shell    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "jake [RECIPE...]",
		Short:         "A recipe runner with a concurrent dependency scheduler",
		Long:          "jake runs named recipes from jakefile.yaml, honoring declared dependencies,\noptionally in parallel.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecipes(cmd.Context(), opts, cmd.Flags(), args)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.jakefile, "jakefile", "f", "", "Path to the recipe file (default "+recipe.DefaultFileName+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level for jake output (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "Number of parallel workers (0 = one per CPU)")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Print what would run without executing")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Echo every command, overriding quiet recipes")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Run commands without echoing them")
	cmd.Flags().StringVar(&opts.shell, "shell", "", "Shell used for command lines (e.g. 'bash -eu -c')")

	cmd.AddCommand(newListCommand(opts), newGraphCommand(opts), newVersionCommand())
	return cmd
}

func runRecipes(ctx context.Context, opts *rootOptions, flags *pflag.FlagSet, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if flags.Changed("log-level") {
		level = opts.logLevel
	}
	logger, err := logging.New(level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	set, vars, err := loadRecipeFile(opts)
	if err != nil {
		return err
	}

	jobs := cfg.Jobs
	if flags.Changed("jobs") {
		jobs = opts.jobs
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	shell := cfg.Shell
	if flags.Changed("shell") {
		shell = opts.shell
	}

	cache, err := engine.OpenFileCache(".")
	if err != nil {
		// A broken cache only costs redundant rebuilds.
		logger.Warn("staleness cache unavailable; file recipes will always run")
		cache = nil
	}
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	eng, err := engine.New(set, vars, engine.Options{
		Jobs:    jobs,
		DryRun:  opts.dryRun,
		Verbose: opts.verbose,
		Quiet:   opts.quiet,
		Shell:   shell,
		Logger:  logger,
		Cache:   cacheOrNil(cache),
	})
	if err != nil {
		return err
	}
	eng.AddObserver(engine.NewConsole(eng.OutputMutex(), os.Stdout, engine.ConsoleOptions{
		Color:     colorEnabled(opts, cfg),
		NameWidth: widestName(set),
	}))

	targets := args
	if len(targets) == 0 {
		target, err := defaultTarget(set)
		if err != nil {
			return err
		}
		targets = []string{target}
	}
	for _, target := range targets {
		if err := eng.Execute(ctx, target); err != nil {
			return err
		}
	}
	return nil
}

func loadRecipeFile(opts *rootOptions) (*recipe.Set, map[string]string, error) {
	path := strings.TrimSpace(opts.jakefile)
	if path == "" {
		path = recipe.DefaultFileName
	}
	return recipe.Load(path)
}

// defaultTarget picks the recipe named "default" or, failing that, the first
// declared recipe.
func defaultTarget(set *recipe.Set) (string, error) {
	if _, ok := set.Lookup("default"); ok {
		return "default", nil
	}
	names := set.Names()
	if len(names) == 0 {
		return "", fmt.Errorf("no recipes defined")
	}
	return names[0], nil
}

func colorEnabled(opts *rootOptions, cfg *config.Config) bool {
	if opts.noColor {
		return false
	}
	switch strings.ToLower(cfg.Color) {
	case "always":
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}

func widestName(set *recipe.Set) int {
	width := 0
	for _, name := range set.Names() {
		if w := runewidth.StringWidth(name); w > width {
			width = w
		}
	}
	return width
}

func cacheOrNil(c *engine.FileCache) engine.Cache {
	if c == nil {
		return nil
	}
	return c
}
