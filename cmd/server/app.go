package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ytdl-server/internal/config"
	"ytdl-server/internal/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	flagConfig    string
	flagPort      string
	flagTempDir   string
	flagExtractor string
	flagYtdlp     string
	flagMaxJobs   int
	flagHistoryDB string
	flagDebug     bool
)

var rootCmd = &cobra.Command{
	Use:          "ytdl-server",
	Short:        "Fetch videos, upload them to Gofile and stream progress to the browser",
	SilenceUsage: true,
	RunE:         serveRun,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  serveRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "ytdl-server", Version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Path to a TOML config file (default: ./config.toml if present)")
	pf.StringVarP(&flagPort, "port", "p", "", "Listen port or address")
	pf.StringVar(&flagTempDir, "temp-dir", "", "Root for per-job scratch directories")
	pf.StringVarP(&flagExtractor, "extractor", "e", "", "Extraction backend: ytdlp | native")
	pf.StringVar(&flagYtdlp, "ytdlp", "", "Path to the yt-dlp executable")
	pf.IntVarP(&flagMaxJobs, "max-jobs", "j", 0, "Maximum concurrently running jobs")
	pf.StringVar(&flagHistoryDB, "history-db", "", "SQLite file for the task history (empty disables it)")
	pf.BoolVarP(&flagDebug, "debug", "x", false, "Verbose request logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig merges defaults < config file < environment < CLI flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = flagPort
	}
	if flags.Changed("temp-dir") {
		cfg.TempDir = flagTempDir
	}
	if flags.Changed("extractor") {
		cfg.Extractor = flagExtractor
	}
	if flags.Changed("ytdlp") {
		cfg.YtdlpPath = flagYtdlp
	}
	if flags.Changed("max-jobs") {
		cfg.MaxConcurrentJobs = flagMaxJobs
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB = flagHistoryDB
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
