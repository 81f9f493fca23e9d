// Package cmd implements the pmengene CLI: compress, decompress, and
// inspect subcommands over pkg/pipeline. The CLI itself never compresses
// anything — it parses flags, builds a pipeline.Options, and calls
// pipeline.Coordinator.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hocestnonsatis/parallel-mengene/pkg/config"
)

var (
	configPath string
	logger     = logrus.New()
	activeCfg  *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pmengene",
	Short: "Chunked parallel file and directory compression",
	Long: `pmengene splits a file into independently compressible chunks,
fans compression work across worker goroutines, and reassembles the
result into a self-describing PMA archive.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
		} else if config.Exists(config.DefaultPath()) {
			loaded, err := config.Load(config.DefaultPath())
			if err == nil {
				cfg = loaded
			}
		}
		activeCfg = cfg

		level, err := logrus.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
		if cfg.Logging.Format == "json" {
			logger.SetFormatter(&logrus.JSONFormatter{})
		}
		return nil
	},
}

// Execute runs the root command; it is called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a pmengene YAML config file (default: "+config.DefaultPath()+")")
}
