package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hocestnonsatis/parallel-mengene/pkg/config"
	"github.com/hocestnonsatis/parallel-mengene/pkg/pipeline"
	"github.com/hocestnonsatis/parallel-mengene/pkg/pma"
	"github.com/hocestnonsatis/parallel-mengene/pkg/tarpack"
	"github.com/hocestnonsatis/parallel-mengene/pkg/vfs"
)

var (
	compressWorkers   int
	compressAlgorithm string
	compressLevel     int
	compressTrailer   bool
	compressVerify    bool
	compressOutput    string
)

var compressCmd = &cobra.Command{
	Use:   "compress <input> [output]",
	Short: "Compress a file into a PMA archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		output := compressOutput
		if output == "" {
			if len(args) == 2 {
				output = args[1]
			} else {
				output = input + ".pma"
			}
		}

		algo, err := config.ParseAlgorithm(compressAlgorithm)
		if err != nil {
			return err
		}

		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("compress: %w", err)
		}

		innerFormat := uint8(pma.InnerFormatRaw)
		pipelineInput := input
		if info.IsDir() {
			tarFile, err := os.CreateTemp("", "pmengene-pack-*.tar")
			if err != nil {
				return fmt.Errorf("compress: %w", err)
			}
			defer os.Remove(tarFile.Name())
			if err := tarpack.Pack(tarFile, input); err != nil {
				tarFile.Close()
				return fmt.Errorf("compress: %w", err)
			}
			if err := tarFile.Close(); err != nil {
				return fmt.Errorf("compress: %w", err)
			}
			innerFormat = pma.InnerFormatTar
			pipelineInput = tarFile.Name()
		}

		opts := pipeline.Options{
			WorkerCount:    compressWorkers,
			Algorithm:      algo,
			Level:          compressLevel,
			NoTrailerCRC:   !compressTrailer,
			VerifyOnWrite:  compressVerify,
			InnerFormatTag: innerFormat,
			Logger:         logger,
			Progress:       logProgressBar,
		}
		if compressWorkers == 0 && activeCfg != nil {
			opts.WorkerCount = activeCfg.WorkerCount
		}
		if compressAlgorithm == "" && activeCfg != nil {
			opts.Algorithm, _ = config.ParseAlgorithm(activeCfg.Algorithm)
		}
		if compressLevel == 0 && activeCfg != nil {
			opts.Level = activeCfg.Level
		}
		if !cmd.Flags().Changed("trailer-crc") && activeCfg != nil {
			opts.NoTrailerCRC = !activeCfg.TrailerCRC
		}
		if !cmd.Flags().Changed("verify-on-write") && activeCfg != nil {
			opts.VerifyOnWrite = activeCfg.VerifyOnWrite
		}
		if activeCfg != nil {
			opts.MemoryBudgetFraction = activeCfg.MemoryBudgetFraction
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		coordinator := pipeline.New(vfs.OS{})
		summary, err := coordinator.CompressFile(ctx, pipelineInput, output, opts)
		if err != nil {
			return fmt.Errorf("compress: %w", err)
		}

		fmt.Printf("wrote %s (%d -> %d bytes, %s, level %d, %d workers, %d chunks, %.2f MiB/s)\n",
			output, summary.InputSize, summary.OutputSize, summary.Algorithm, summary.Level,
			summary.WorkerCount, summary.ChunkCount, summary.Throughput()/(1024*1024))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compressCmd)
	compressCmd.Flags().IntVarP(&compressWorkers, "workers", "w", 0, "worker count (0 = logical core count)")
	compressCmd.Flags().StringVarP(&compressAlgorithm, "algorithm", "a", "", "auto, lz4, gzip, or zstd (default: auto-detect)")
	compressCmd.Flags().IntVarP(&compressLevel, "level", "l", 0, "compression level (0 = algorithm default)")
	compressCmd.Flags().BoolVar(&compressTrailer, "trailer-crc", true, "append a whole-archive CRC32 trailer")
	compressCmd.Flags().BoolVar(&compressVerify, "verify-on-write", false, "re-decompress each chunk and compare it against the source before writing the frame")
	compressCmd.Flags().StringVarP(&compressOutput, "output", "o", "", "output path (default: <input>.pma)")
}
