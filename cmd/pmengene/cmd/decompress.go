package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pipeline"
	"github.com/hocestnonsatis/parallel-mengene/pkg/pma"
	"github.com/hocestnonsatis/parallel-mengene/pkg/tarpack"
	"github.com/hocestnonsatis/parallel-mengene/pkg/vfs"
)

var (
	decompressWorkers int
	decompressOutput  string
)

var decompressCmd = &cobra.Command{
	Use:   "decompress <archive> [output]",
	Short: "Decompress a PMA archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		output := decompressOutput
		if output == "" {
			if len(args) == 2 {
				output = args[1]
			} else {
				output = strings.TrimSuffix(input, ".pma")
				if output == input {
					output = input + ".out"
				}
			}
		}

		innerFormat, err := peekInnerFormat(input)
		if err != nil {
			return fmt.Errorf("decompress: %w", err)
		}

		opts := pipeline.Options{
			WorkerCount: decompressWorkers,
			Logger:      logger,
			Progress:    logProgressBar,
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		coordinator := pipeline.New(vfs.OS{})

		decompressTarget := output
		if innerFormat == pma.InnerFormatTar {
			tarFile, err := os.CreateTemp("", "pmengene-unpack-*.tar")
			if err != nil {
				return fmt.Errorf("decompress: %w", err)
			}
			tarFile.Close()
			defer os.Remove(tarFile.Name())
			decompressTarget = tarFile.Name()
		}

		summary, err := coordinator.DecompressFile(ctx, input, decompressTarget, opts)
		if err != nil {
			return fmt.Errorf("decompress: %w", err)
		}

		if innerFormat == pma.InnerFormatTar {
			if err := os.MkdirAll(output, 0o755); err != nil {
				return fmt.Errorf("decompress: %w", err)
			}
			tr, err := os.Open(decompressTarget)
			if err != nil {
				return fmt.Errorf("decompress: %w", err)
			}
			defer tr.Close()
			if err := tarpack.Unpack(tr, output); err != nil {
				return fmt.Errorf("decompress: %w", err)
			}
		}

		fmt.Printf("wrote %s (%d bytes, %s, %d chunks)\n", output, summary.OutputSize, summary.Algorithm, summary.ChunkCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decompressCmd)
	decompressCmd.Flags().IntVarP(&decompressWorkers, "workers", "w", 0, "worker count (0 = archive's recorded worker count)")
	decompressCmd.Flags().StringVarP(&decompressOutput, "output", "o", "", "output path (default: <archive> with .pma stripped)")
}

// peekInnerFormat reads only the archive's fixed header and metadata (no
// frames, no decompression) to learn whether the payload is a raw byte
// stream or a tar-wrapped directory.
func peekInnerFormat(archivePath string) (uint8, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader, err := pma.NewReader(f)
	if err != nil {
		return 0, err
	}
	return reader.Metadata().InnerFormatTag, nil
}
