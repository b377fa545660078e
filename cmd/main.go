package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"claudeview/config"
	"claudeview/internal/diagnostics"
	"claudeview/internal/filestate"
	"claudeview/internal/formatter"
	"claudeview/internal/mappings"
	"claudeview/internal/model"
	"claudeview/internal/parser"
	"claudeview/internal/session"
	"claudeview/internal/watcher"
)

var (
	// Global flags
	flagNumber     int
	flagPath       string
	flagFile       string
	flagShow       string
	flagTheme      string
	flagNoColor    bool
	flagTimestamps bool
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "claudeview",
	Short: "View Claude Code session history as a conversation",
	Long: `claudeview renders Claude Code session logs as a readable conversation.

The session format drifts across producer versions; claudeview adapts through
a declarative field-mappings table instead of per-version code, and degrades
gracefully on anything it does not recognize.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
		if flagVerbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(runView)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List session files for the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(runList)
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List all projects with recorded sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(runProjects)
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [file...]",
	Short: "Analyze session files for format variations and parser coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(func(cfg *config.Config, normalizer parser.Normalizer, finder session.Finder) error {
			return runDiagnose(cfg, normalizer, finder, args)
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Watch a session file and display new entries as they appear",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(args)
	},
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List available color themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range formatter.ThemeNames() {
			fmt.Println(name)
		}
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().IntVarP(&flagNumber, "number", "n", 1, "number of recent sessions to show (0 for all)")
	rootCmd.PersistentFlags().StringVarP(&flagPath, "path", "p", "", "project path (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&flagFile, "file", "f", "", "view a specific session file")
	rootCmd.PersistentFlags().StringVarP(&flagShow, "show", "s", "", "show option letters (a=all, A=none, q/w/o/s/y/m/t/u/k)")
	rootCmd.PersistentFlags().StringVar(&flagTheme, "theme", "", "color theme (see 'claudeview themes')")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&flagTimestamps, "timestamps", "t", false, "include timestamps in output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(listCmd, projectsCmd, diagnoseCmd, watchCmd, themesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// --- Factory Functions ---

func NewMappings(cfg *config.Config) (*mappings.Mappings, error) {
	m, err := mappings.Load(cfg.Mappings.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Mappings.RetainDropped {
		for typeTag, rule := range m.SpecialEntries {
			rule.RetainDropped = true
			m.SpecialEntries[typeTag] = rule
		}
	}
	return m, nil
}

// NewWatchStates returns nil when resume is not configured; the watcher
// treats a nil manager as stateless.
func NewWatchStates(cfg *config.Config) filestate.Manager {
	if cfg.Watch.StateFile == "" {
		return nil
	}
	return filestate.NewManager(cfg.Watch.StateFile)
}

func NewFinder(cfg *config.Config) session.Finder {
	return session.NewFinder(cfg.Session.ProjectsDir, cfg.Session.MaxFileSizeMB)
}

func NewFormatter(cfg *config.Config) (formatter.Formatter, error) {
	showFlags := cfg.Display.ShowFlags + flagShow
	opts, err := formatter.ParseShowFlags(showFlags)
	if err != nil {
		return nil, err
	}
	theme := formatter.GetTheme(formatter.DetermineTheme(flagTheme, flagNoColor, cfg.Display.Theme))
	timestamps := flagTimestamps || cfg.Display.Timestamps
	return formatter.NewConversationFormatter(theme, opts, cfg.Display.Truncation, timestamps), nil
}

func appModule() fx.Option {
	return fx.Options(
		fx.NopLogger,
		fx.Provide(
			config.NewConfig,
			NewMappings,
			parser.NewAdaptiveNormalizer,
			NewFinder,
			NewFormatter,
			NewWatchStates,
		),
	)
}

// runApp starts a one-shot fx application whose work happens inside the
// invoked function.
func runApp(invoke any) error {
	app := fx.New(appModule(), fx.Invoke(invoke))

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return unwrapFxError(err)
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStop()
	return app.Stop(stopCtx)
}

// unwrapFxError strips the dependency-graph wrapping so the user sees the
// underlying cause.
func unwrapFxError(err error) error {
	type rootCauser interface{ Unwrap() error }
	for {
		wrapped, ok := err.(rootCauser)
		if !ok {
			return err
		}
		inner := wrapped.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// --- Command Implementations ---

func resolveProjectPath() string {
	if flagPath != "" {
		return flagPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return session.FindProjectRoot(cwd)
}

// selectSessions picks the session files to display: the explicit file when
// given, otherwise the last n sessions of the project in chronological order.
func selectSessions(finder session.Finder) ([]session.File, error) {
	if flagFile != "" {
		info, err := os.Stat(flagFile)
		if err != nil {
			return nil, fmt.Errorf("session file %s: %w", flagFile, err)
		}
		return []session.File{{Path: flagFile, Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()}}, nil
	}

	files, err := finder.ListSessions(resolveProjectPath())
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no session files found")
	}

	n := flagNumber
	if n <= 0 || n > len(files) {
		n = len(files)
	}
	selected := files[:n]

	// Listing order is newest first; display oldest first.
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}
	return selected, nil
}

func runView(normalizer parser.Normalizer, finder session.Finder, fm formatter.Formatter) error {
	files, err := selectSessions(finder)
	if err != nil {
		return err
	}

	for _, file := range files {
		fmt.Printf("=== %s (%s, %s) ===\n\n", file.Name, session.FormatFileSize(file.Size), file.ModTime.Format("2006-01-02 15:04"))

		entries, parseErrors, err := finder.ReadSession(file.Path)
		if err != nil {
			return err
		}

		for _, raw := range entries {
			if out, ok := fm.FormatEntry(normalizer.Normalize(raw)); ok {
				fmt.Println(out)
				fmt.Println()
			}
		}

		if parseErrors > 0 {
			log.Warn().Int("lines", parseErrors).Str("file", file.Name).Msg("Some lines failed to decode and were skipped")
		}
	}

	return nil
}

func runList(finder session.Finder) error {
	files, err := finder.ListSessions(resolveProjectPath())
	if err != nil {
		return err
	}
	for i, file := range files {
		fmt.Printf("%3d. %-44s %10s  %s\n", i+1, file.Name, session.FormatFileSize(file.Size), file.ModTime.Format("2006-01-02 15:04"))
	}
	return nil
}

func runProjects(finder session.Finder) error {
	projects, err := finder.ListProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects with sessions found.")
		return nil
	}
	for _, project := range projects {
		fmt.Println(project)
	}
	return nil
}

func runDiagnose(cfg *config.Config, normalizer parser.Normalizer, finder session.Finder, args []string) error {
	analyzer := diagnostics.NewAnalyzer(normalizer, flagVerbose)

	paths := args
	if len(paths) == 0 {
		files, err := finder.ListSessions(resolveProjectPath())
		if err != nil {
			return err
		}
		for _, file := range files {
			paths = append(paths, file.Path)
		}
	}

	for _, path := range paths {
		stats, err := analyzer.AnalyzeFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("Analyzed %s: %d entries, %d parse errors\n", stats.Path, stats.Entries, stats.ParseErrors)
	}
	fmt.Println()

	report := analyzer.Report()
	report.Render(os.Stdout)

	// Non-zero exit signals degraded coverage to automation.
	if report.ParseFailureCount > 0 {
		return fmt.Errorf("%d lines failed to parse", report.ParseFailureCount)
	}
	return nil
}

// runWatch wires the tail loop through the fx lifecycle so shutdown drains
// cleanly, mirroring a long-running consumer.
func runWatch(args []string) error {
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := fx.New(
		appModule(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, normalizer parser.Normalizer, finder session.Finder, fm formatter.Formatter, states filestate.Manager) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			} else if flagFile != "" {
				path = flagFile
			} else {
				files, err := finder.ListSessions(resolveProjectPath())
				if err != nil {
					return err
				}
				if len(files) == 0 {
					return fmt.Errorf("no session files found to watch")
				}
				path = files[0].Path
			}

			w := watcher.NewFileWatcher(path, cfg.Watch.PollInterval, func(raw model.RawEntry) {
				if out, ok := fm.FormatEntry(normalizer.Normalize(raw)); ok {
					fmt.Println(out)
					fmt.Println()
				}
			}, states)

			watchCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					wg.Add(1)
					go w.Run(watchCtx, &wg)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
			return nil
		}),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return unwrapFxError(err)
	}

	<-ctx.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}
	wg.Wait()
	return nil
}
