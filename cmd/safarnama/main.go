package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/safarnama/safarnama/internal/config"
	"github.com/safarnama/safarnama/internal/injector"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "safarnama",
	Short: "Safarnama genre field service",
	Long: `Safarnama animates blog genres as a field of drifting, colliding bubbles.

The serve command streams the field to browser renderers over websockets;
simulate runs it headless; the remaining commands talk to the blog backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded
		return nil
	},
}

// buildApp wires the full dependency graph for commands that need the backend
// or the server.
func buildApp() (*injector.App, func(), error) {
	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}
	return app, func() {
		cleanup()
		_ = app.Logger.Sync()
	}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(genresCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
