package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/app"
	"github.com/AazainKhan/luminate-ai-sub000/internal/config"
	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "luminate",
	Short: "Course tutor for Introduction to AI",
	Long: "Luminate answers course questions, coaches students through problems without doing graded work for them, " +
		"and tracks what each student has mastered.",
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides LUMINATE_DB env var)")
	pf.String("config", "", "Path to YAML config file (overrides LUMINATE_CONFIG env var)")
	pf.String("course", "", "Course directory or file (default: built-in course)")
	pf.BoolP("verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(masteryCmd)
	rootCmd.AddCommand(misconceptionsCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(courseCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file, then applies --db and --course.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Resolve(path))
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB = p
	}
	if p, _ := cmd.Flags().GetString("course"); p != "" {
		cfg.Course = p
	}
	return cfg, nil
}

// newLogger writes JSON logs to stderr: warnings by default, everything
// with --verbose.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zc.Sampling = nil
	return zc.Build()
}

// openApp builds the full tutor. The returned func closes it and flushes
// the logger.
func openApp(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(cmd.Context(), app.Options{Config: cfg, Logger: logger})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			logger.Error("close", zap.Error(err))
		}
		_ = logger.Sync()
	}, nil
}

// openStore opens only the database, for commands that inspect it.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// resolveDBPath returns the database path using --db (highest priority),
// then the config file, then LUMINATE_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.DB != "" {
		if cfg.DB == ":memory:" {
			return cfg.DB, nil
		}
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// studentFlag registers the --student flag shared by per-student commands.
func studentFlag(c *cobra.Command) {
	c.Flags().StringP("student", "s", defaultStudent(), "Student ID (default: $LUMINATE_STUDENT or $USER)")
}

func defaultStudent() string {
	if s := os.Getenv("LUMINATE_STUDENT"); s != "" {
		return s
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "student"
}

func studentID(cmd *cobra.Command) (string, error) {
	s, _ := cmd.Flags().GetString("student")
	if s == "" {
		return "", fmt.Errorf("--student is required")
	}
	return s, nil
}
