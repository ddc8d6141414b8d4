package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Environment variables read after .env is loaded.
const (
	envLogLevel = "PKSIM_LOG_LEVEL"
	envAddr     = "PKSIM_ADDR"
	envLang     = "PKSIM_LANG"
)

var (
	logLevel string // Log verbosity level
	envFile  string // Optional dotenv file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pkpd-sim",
	Short: "Opioid plasma and effect-site concentration simulator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadEnv(envFile)

		level := logLevel
		if !cmd.Flags().Changed("log") {
			if v := os.Getenv(envLogLevel); v != "" {
				level = v
			}
		}
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", level)
		}
		logrus.SetLevel(parsed)
	},
}

// loadEnv reads a dotenv file into the process environment without
// overriding variables that are already set. A missing default file is fine.
func loadEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == ".env" {
			return
		}
		logrus.Warnf("Failed to load env file %s: %v", path, err)
	}
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with PKSIM_* defaults")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(serveCmd)
}
